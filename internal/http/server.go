// Package http serves the staff dashboard: server-rendered pages with htmx
// partials, tenant-scoped routes behind the session guard, and the intake
// webhook endpoint.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/luke-anto/ledgerdesk/internal/auth"
	"github.com/luke-anto/ledgerdesk/internal/cache"
	"github.com/luke-anto/ledgerdesk/internal/core"
	ldlog "github.com/luke-anto/ledgerdesk/internal/log"
	"github.com/luke-anto/ledgerdesk/internal/middleware/ratelimit"
	"github.com/luke-anto/ledgerdesk/internal/middleware/security"
	"github.com/luke-anto/ledgerdesk/internal/middleware/trace"
	"github.com/luke-anto/ledgerdesk/internal/services"
	"github.com/luke-anto/ledgerdesk/internal/storage"
	"github.com/luke-anto/ledgerdesk/internal/webhook"
	appweb "github.com/luke-anto/ledgerdesk/web"
)

type Server struct {
	http.Server
	templates *template.Template
	logger    *ldlog.Logger

	storage     *storage.SQLiteRepository
	cycles      *services.CycleService
	intake      *services.IntakeService
	authManager *auth.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// Month overviews are the hot read on every dashboard load.
	overviewCache *cache.LRUCache[core.MonthOverview]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// Deps collects everything the server needs. The webhook handler is built
// by the caller so the broker wiring stays in one place.
type Deps struct {
	Storage       *storage.SQLiteRepository
	CycleService  *services.CycleService
	IntakeService *services.IntakeService
	AuthManager   *auth.Manager
	IntakeHook    *webhook.Handler
	Logger        *ldlog.Logger
}

// NewServer configures routes and templates, returning a ready-to-run
// server.
func NewServer(addr string, deps Deps) *Server {
	router := mux.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = ldlog.New(ldlog.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:        logger.WithComponent(ldlog.ComponentHTTP),
		storage:       deps.Storage,
		cycles:        deps.CycleService,
		intake:        deps.IntakeService,
		authManager:   deps.AuthManager,
		limiter:       ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:      security.NewDetector(),
		overviewCache: cache.NewLRUCache[core.MonthOverview](200, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}
	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	s.templates = parseTemplates()

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})

	router.Use(s.tracer.Middleware, headers.Middleware, limit)

	// Static assets from the embedded FS.
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		router.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	// Public endpoints.
	router.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	router.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	if deps.IntakeHook != nil {
		router.Handle("/webhooks/intake", deps.IntakeHook).Methods(http.MethodPost)
	}

	// Everything below needs a session.
	authed := router.NewRoute().Subrouter()
	authed.Use(s.authManager.RequireSession)

	authed.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)

	// Leads are practice-wide, not tenant-scoped.
	authed.HandleFunc("/leads", s.handleLeads).Methods(http.MethodGet)
	authed.HandleFunc("/leads/{leadID}/transition", s.handleLeadTransition).Methods(http.MethodPost)
	authed.HandleFunc("/leads/{leadID}/convert", s.handleLeadConvert).Methods(http.MethodPost)

	// Tenant administration.
	admin := authed.NewRoute().Subrouter()
	admin.Use(auth.RequireAdmin)
	admin.HandleFunc("/tenants", s.handleCreateTenant).Methods(http.MethodPost)
	admin.HandleFunc("/tenants/{tenantID:[0-9]+}", s.handleUpdateTenant).Methods(http.MethodPut)
	admin.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	admin.HandleFunc("/memberships", s.handleGrantMembership).Methods(http.MethodPost)

	// Tenant-scoped routes; membership is checked per request.
	tenant := authed.PathPrefix("/tenants/{tenantID:[0-9]+}").Subrouter()
	tenant.Use(auth.RequireTenant)

	tenant.HandleFunc("", s.handleTenantHome).Methods(http.MethodGet)
	tenant.HandleFunc("/ui/month-overview", s.handleMonthOverview).Methods(http.MethodGet)

	tenant.HandleFunc("/cycles", s.handleListCycles).Methods(http.MethodGet)
	tenant.HandleFunc("/cycles/{cycleID:[0-9]+}", s.handleCycleDetail).Methods(http.MethodGet)
	tenant.HandleFunc("/cycles/{cycleID:[0-9]+}/advance", s.handleCycleAdvance).Methods(http.MethodPost)
	tenant.HandleFunc("/cycles/{cycleID:[0-9]+}/pause", s.handleCyclePause).Methods(http.MethodPost)
	tenant.HandleFunc("/cycles/{cycleID:[0-9]+}/resume", s.handleCycleResume).Methods(http.MethodPost)
	tenant.HandleFunc("/tasks/{taskID:[0-9]+}/toggle", s.handleTaskToggle).Methods(http.MethodPost)

	tenant.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	tenant.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	tenant.HandleFunc("/transactions/{txID:[0-9]+}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	tenant.HandleFunc("/budgets", s.handleListBudgets).Methods(http.MethodGet)
	tenant.HandleFunc("/budgets", s.handleUpsertBudget).Methods(http.MethodPost)
	tenant.HandleFunc("/budgets/{budgetID:[0-9]+}", s.handleDeleteBudget).Methods(http.MethodDelete)

	tenant.HandleFunc("/invoices", s.handleListInvoices).Methods(http.MethodGet)
	tenant.HandleFunc("/invoices", s.handleCreateInvoice).Methods(http.MethodPost)
	tenant.HandleFunc("/invoices/{invoiceID:[0-9]+}/status", s.handleInvoiceStatus).Methods(http.MethodPost)

	tenant.HandleFunc("/contacts", s.handleListContacts).Methods(http.MethodGet)
	tenant.HandleFunc("/contacts", s.handleCreateContact).Methods(http.MethodPost)
	tenant.HandleFunc("/contacts/{contactID:[0-9]+}", s.handleUpdateContact).Methods(http.MethodPut)
	tenant.HandleFunc("/contacts/{contactID:[0-9]+}", s.handleDeleteContact).Methods(http.MethodDelete)
	tenant.HandleFunc("/contacts/{contactID:[0-9]+}/notes", s.handleCreateNote).Methods(http.MethodPost)

	tenant.HandleFunc("/templates", s.handleCreateTemplate).Methods(http.MethodPost)
	tenant.HandleFunc("/templates/{templateID:[0-9]+}", s.handleDeleteTemplate).Methods(http.MethodDelete)

	tenant.HandleFunc("/export/transactions.csv", s.handleExportTransactions).Methods(http.MethodGet)
	tenant.HandleFunc("/export/invoices.csv", s.handleExportInvoices).Methods(http.MethodGet)

	return s
}

func parseTemplates() *template.Template {
	t, err := template.New("").Funcs(template.FuncMap{
		"money":   core.FormatCents,
		"decimal": core.DecimalString,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		// Pages degrade to plain-text fallbacks; partial handlers check.
		return nil
	}
	return t
}

// Shutdown stops the HTTP listener and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		traffic := s.tracer.GetMetrics()
		limits := s.limiter.GetMetrics()
		s.logger.Info("Server shutting down",
			"requests_served", traffic.TotalRequests,
			"rate_limit_hits", limits.TotalHits)

		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.storage.ListActiveTenants(r.Context()); err != nil {
		http.Error(w, "storage not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
