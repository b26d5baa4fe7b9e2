package caregiver

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StaticDirectory is an in-memory Directory for tests and local runs
// without Postgres.
type StaticDirectory struct {
	mu         sync.RWMutex
	caregivers map[uuid.UUID]Caregiver
}

func NewStaticDirectory(caregivers ...Caregiver) *StaticDirectory {
	d := &StaticDirectory{caregivers: make(map[uuid.UUID]Caregiver, len(caregivers))}
	for _, c := range caregivers {
		d.caregivers[c.ID] = c
	}
	return d
}

func (d *StaticDirectory) Put(c Caregiver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.caregivers[c.ID] = c
}

func (d *StaticDirectory) GetByID(_ context.Context, id uuid.UUID) (*Caregiver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.caregivers[id]
	if !ok {
		return nil, ErrCaregiverNotFound
	}
	return &c, nil
}
