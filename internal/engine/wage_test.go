package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"laborline/internal/domain"
	"laborline/internal/engine"
)

func TestComputeWage(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		wageType domain.WageType
		rate     string
		elapsed  time.Duration
		want     string
	}{
		{"hourly half hour", domain.WageHourly, "100", 30 * time.Minute, "50"},
		{"hourly three quarters", domain.WageHourly, "100", 45 * time.Minute, "75"},
		{"hourly full day", domain.WageHourly, "62.50", 8 * time.Hour, "500"},
		{"hourly rounds minutes down", domain.WageHourly, "60", 90*time.Second + 29*time.Minute, "30"},
		{"daily ignores duration", domain.WageDaily, "800", 2 * time.Hour, "800"},
		{"daily full shift", domain.WageDaily, "800", 9 * time.Hour, "800"},
		{"zero elapsed", domain.WageHourly, "100", 0, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := domain.Assignment{
				WageRate: decimal.RequireFromString(tc.rate),
				WageType: tc.wageType,
			}
			got := engine.ComputeWage(a, base, base.Add(tc.elapsed))
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("wage = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestComputeWageClampsNegativeElapsed(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	a := domain.Assignment{WageRate: decimal.NewFromInt(100), WageType: domain.WageHourly}
	got := engine.ComputeWage(a, base, base.Add(-time.Hour))
	if !got.IsZero() {
		t.Fatalf("wage = %s, want 0", got)
	}
}
