package booking

import "time"

const (
	// defaultHourlyRate applies when the caregiver record carries no rate,
	// in whole currency units per hour.
	defaultHourlyRate = 25.0

	// specializedCareSurcharge is a flat per-service charge in whole
	// currency units.
	specializedCareSurcharge = 10.0
)

// AppointmentCost prices an appointment in minor currency units (pence).
// Cost is the caregiver's hourly rate times the booked duration, plus a
// flat surcharge per specialized care service, rounded half-up.
func AppointmentCost(hourlyRate float64, start, end time.Time, services []CareService) int64 {
	if hourlyRate <= 0 {
		hourlyRate = defaultHourlyRate
	}

	cost := hourlyRate * end.Sub(start).Hours()
	for _, svc := range services {
		if svc.Type == ServiceSpecializedCare {
			cost += specializedCareSurcharge
		}
	}

	return roundHalfUp(cost * 100)
}
