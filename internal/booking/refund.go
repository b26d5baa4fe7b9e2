package booking

import (
	"math"
	"time"
)

// RefundPercentage maps lead time before the appointment to the fraction
// of the paid amount returned on cancellation:
//
//	> 48h  100%
//	> 24h   75%
//	> 12h   50%
//	else     0%
func RefundPercentage(hoursUntilStart float64) float64 {
	switch {
	case hoursUntilStart > 48:
		return 1
	case hoursUntilStart > 24:
		return 0.75
	case hoursUntilStart > 12:
		return 0.5
	default:
		return 0
	}
}

// ComputeRefund returns the refund amount in minor currency units for a
// cancellation happening at `now`. Pure; the caller persists the refund
// outcome and talks to the payment processor.
func ComputeRefund(paidAmount int64, appointmentStart, now time.Time) int64 {
	hours := appointmentStart.Sub(now).Hours()
	return roundHalfUp(float64(paidAmount) * RefundPercentage(hours))
}

// roundHalfUp is the single money-rounding rule in this package. Inputs
// are never negative.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
