package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0.05", 5, false},
		{".75", 75, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{"", 0, true},
		{"0", 0, true},
		{"0.00", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"12.3x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "$12.34"},
		{5, "$0.05"},
		{-4500, "-$45.00"},
		{0, "$0.00"},
		{100000000, "$1000000.00"},
	}
	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.want {
			t.Errorf("FormatCents(%d) = %s, want %s", tt.cents, got, tt.want)
		}
	}
}

func TestDecimalString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{-1234, "-12.34"},
		{7, "0.07"},
	}
	for _, tt := range tests {
		if got := DecimalString(tt.cents); got != tt.want {
			t.Errorf("DecimalString(%d) = %s, want %s", tt.cents, got, tt.want)
		}
	}
}

func TestMonthOverview_Net(t *testing.T) {
	o := MonthOverview{TotalIn: Money{Cents: 500000}, TotalOut: Money{Cents: -123400}}
	if got := o.Net().Cents; got != 376600 {
		t.Errorf("Net() = %d, want 376600", got)
	}
}
