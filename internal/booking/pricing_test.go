package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentCost(t *testing.T) {
	start := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rate     float64
		duration time.Duration
		services []CareService
		want     int64
	}{
		{"two hours at default rate", 0, 2 * time.Hour, nil, 5000},
		{"one hour explicit rate", 30, time.Hour, nil, 3000},
		{"ninety minutes", 30, 90 * time.Minute, nil, 4500},
		{
			"specialized care surcharge",
			25, time.Hour,
			[]CareService{{Type: ServiceSpecializedCare, DurationMinutes: 30}},
			3500,
		},
		{
			"surcharge applies per specialized service",
			25, time.Hour,
			[]CareService{
				{Type: ServiceSpecializedCare},
				{Type: ServiceSpecializedCare},
				{Type: "companionship"},
			},
			4500,
		},
		{"fractional pence rounds half-up", 20.333, time.Hour, nil, 2033}, // 2033.3
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppointmentCost(tt.rate, start, start.Add(tt.duration), tt.services)
			assert.Equal(t, tt.want, got)
		})
	}
}
