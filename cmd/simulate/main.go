// Command simulate hammers the booking API with deliberately overlapping
// requests and then verifies that no double-booking survived. It needs a
// running api-server and direct Postgres access for the final check.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/localcare/care-booking/internal/db"
)

type counters struct {
	created  int64
	conflict int64
	errored  int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var (
		baseURL    = flag.String("api", "http://localhost:8080", "api-server base URL")
		workers    = flag.Int("workers", 16, "concurrent workers")
		requests   = flag.Int("requests", 500, "total booking attempts")
		caregivers = flag.Int("caregivers", 5, "number of caregiver IDs to contend over")
	)
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required for the final overlap check")
	}

	caregiverIDs := readCaregiverIDs(dsn, *caregivers)
	if len(caregiverIDs) == 0 {
		log.Fatal("no caregivers found, run cmd/seed first")
	}

	log.Printf("simulating %d bookings across %d caregivers with %d workers", *requests, len(caregiverIDs), *workers)

	var c counters
	var wg sync.WaitGroup
	jobs := make(chan int)

	client := &http.Client{Timeout: 10 * time.Second}
	day := time.Now().Add(48 * time.Hour).Truncate(24 * time.Hour)

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				cg := caregiverIDs[rand.Intn(len(caregiverIDs))]
				// Narrow window of hours so most requests collide.
				startHour := 9 + rand.Intn(4)
				start := day.Add(time.Duration(startHour) * time.Hour)
				end := start.Add(time.Hour)

				status := attemptBooking(client, *baseURL, cg, start, end)
				switch status {
				case http.StatusCreated:
					atomic.AddInt64(&c.created, 1)
				case http.StatusConflict:
					atomic.AddInt64(&c.conflict, 1)
				default:
					atomic.AddInt64(&c.errored, 1)
				}
			}
		}()
	}

	begin := time.Now()
	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	log.Printf("done in %s: created=%d conflict=%d errored=%d",
		time.Since(begin), c.created, c.conflict, c.errored)

	overlaps := countOverlaps(dsn)
	if overlaps > 0 {
		log.Fatalf("FAIL: %d overlapping non-cancelled appointment pairs found", overlaps)
	}
	log.Println("OK: no double-booking detected")
}

func attemptBooking(client *http.Client, baseURL string, caregiverID uuid.UUID, start, end time.Time) int {
	payload := map[string]any{
		"patient_id":   uuid.NewString(),
		"caregiver_id": caregiverID.String(),
		"start_time":   start.Format(time.RFC3339),
		"end_time":     end.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0
	}

	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode
}

func readCaregiverIDs(dsn string, limit int) []uuid.UUID {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT id FROM caregivers WHERE status = 'verified' LIMIT $1
	`, limit)
	if err != nil {
		log.Fatalf("read caregivers: %v", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			log.Fatalf("scan caregiver id: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func countOverlaps(dsn string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	var n int
	err = pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.caregiver_id = b.caregiver_id
		 AND a.id < b.id
		 AND a.start_time < b.end_time
		 AND a.end_time > b.start_time
		WHERE a.status <> 'cancelled'
		  AND b.status <> 'cancelled'
	`).Scan(&n)
	if err != nil {
		log.Fatalf("overlap check: %v", err)
	}
	return n
}
