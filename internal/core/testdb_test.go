package core_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE requests, items, users RESTART IDENTITY CASCADE;

		INSERT INTO users (id, name, email, role) VALUES
		(1, 'Alice Admin', 'alice@example.com', 'admin'),
		(2, 'Bob Borrower', 'bob@example.com', 'user'),
		(3, 'Carol Clerk', 'carol@example.com', 'user'),
		(4, 'Dave Dev', 'dave@example.com', 'user');

		SELECT setval('users_id_seq', 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// seedItem inserts an inventory item and returns its id.
func seedItem(t *testing.T, pool *pgxpool.Pool, name string, quantity int) int {
	t.Helper()
	var id int
	err := pool.QueryRow(context.Background(), `
		INSERT INTO items (sku, name, category, quantity, status)
		VALUES ($1, $2, 'Test', $3, 'available')
		RETURNING id
	`, "TST-"+name, name, quantity).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed item %s: %v", name, err)
	}
	return id
}

// seedBorrowRequest inserts an existing-item request with the given status
// and window, bypassing the submission gate.
func seedBorrowRequest(t *testing.T, pool *pgxpool.Pool, userID, itemID, qty int, status string, start, end time.Time) int {
	t.Helper()
	var id int
	err := pool.QueryRow(context.Background(), `
		INSERT INTO requests (user_id, request_type, item_id, start_date, end_date,
		                      status, reason, quantity_requested, priority)
		VALUES ($1, 'existing_item', $2, $3, $4, $5, 'test request', $6, 'medium')
		RETURNING id
	`, userID, itemID, start, end, status, qty).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed request: %v", err)
	}
	return id
}

// date returns midnight UTC n days from today. Negative n is in the past.
func date(n int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}
