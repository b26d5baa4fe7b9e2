package caregiver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCaregiverNotFound = errors.New("caregiver not found")
)

type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusVerified            Status = "verified"
	StatusSuspended           Status = "suspended"
)

// Caregiver is the slice of the caregiver record the booking core needs:
// the hourly rate for pricing and the verification status. Everything
// else about caregivers lives outside this service.
type Caregiver struct {
	ID         uuid.UUID
	Name       string
	HourlyRate *float64 // whole currency units per hour; nil means default
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Directory is the read-side caregiver collaborator.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Caregiver, error)
}
