package engine

import (
	"time"

	"laborline/internal/domain"

	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// ComputeWage settles a closed session against the assignment terms. A daily
// hire earns the flat rate regardless of duration. An hourly hire earns
// rate times the elapsed hours, with the hour fraction rounded half-up to
// two decimal places before multiplying.
func ComputeWage(a domain.Assignment, checkIn, checkOut time.Time) decimal.Decimal {
	switch a.WageType {
	case domain.WageDaily:
		return a.WageRate
	case domain.WageHourly:
		minutes := int64(checkOut.Sub(checkIn) / time.Minute)
		if minutes < 0 {
			minutes = 0
		}
		hours := decimal.NewFromInt(minutes).DivRound(sixty, 2)
		return hours.Mul(a.WageRate)
	}
	return decimal.Zero
}
