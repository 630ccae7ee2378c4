package core

type (
	// MonthOverview aggregates a tenant's month for the dashboard.
	MonthOverview struct {
		TenantID   int64
		Year       int
		Month      int
		TotalIn    Money
		TotalOut   Money
		ByCategory []CategoryAmount
		Budgets    []BudgetVariance
	}

	CategoryAmount struct {
		Name   string
		Amount Money
	}

	// BudgetVariance compares a category budget to actual spend.
	// Variance is Budget - Actual: positive means under budget.
	BudgetVariance struct {
		Category string
		Budget   Money
		Actual   Money
		Variance Money
	}

	// CycleReport is the summary row recorded when a cycle is delivered
	// and later appended to the practice spreadsheet by the worker.
	CycleReport struct {
		ID          int64
		CycleID     int64
		TenantID    int64
		TenantName  string
		Year        int
		Month       int
		TotalIn     Money
		TotalOut    Money
		TasksDone   int
		SyncState   string // pending | synced | error
	}
)

// Net returns income minus spend for the month.
func (o MonthOverview) Net() Money {
	return Money{Cents: o.TotalIn.Cents + o.TotalOut.Cents}
}
