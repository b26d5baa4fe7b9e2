package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localcare/care-booking/internal/caregiver"
	"github.com/localcare/care-booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedCaregivers(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed caregivers: %v", err)
	}

	log.Println("seed complete")
}

func seedCaregivers(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d caregivers", count)

	statuses := []caregiver.Status{
		caregiver.StatusVerified,
		caregiver.StatusVerified,
		caregiver.StatusVerified,
		caregiver.StatusPendingVerification,
		caregiver.StatusSuspended,
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		status := statuses[gofakeit.Number(0, len(statuses)-1)]

		// Roughly one in five caregivers has no listed rate and falls
		// back to the default at pricing time.
		var rate *float64
		if gofakeit.Number(0, 4) > 0 {
			r := float64(gofakeit.Number(18, 60))
			rate = &r
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO caregivers (id, name, hourly_rate, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, rate, status)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("caregivers seeded")
	return nil
}
