package caregiver

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func scanCaregiver(row pgx.Row) (*Caregiver, error) {
	var c Caregiver
	var rate *float64

	err := row.Scan(
		&c.ID,
		&c.Name,
		&rate,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaregiverNotFound
		}
		return nil, err
	}

	c.HourlyRate = rate
	return &c, nil
}

func (d *PgDirectory) GetByID(ctx context.Context, id uuid.UUID) (*Caregiver, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, name, hourly_rate, status, created_at, updated_at
		FROM caregivers
		WHERE id = $1
	`, id)
	return scanCaregiver(row)
}
