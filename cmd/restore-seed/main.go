// restore-seed is a one-shot tool to load demo users and inventory into a
// freshly migrated database. It refuses to touch a database that already has
// users, so it cannot wipe live data.
//
// Usage: go run ./cmd/restore-seed
package main

import (
	"context"
	"log"

	"warehouse-engine/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	var existing int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&existing); err != nil {
		log.Fatalf("Failed to inspect users table, have migrations run?: %v", err)
	}
	if existing > 0 {
		log.Fatalf("Refusing to seed: %d user(s) already present", existing)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding users...")
	_, err = tx.Exec(ctx, `
		INSERT INTO users (name, email, role) VALUES
		('Ada Admin', 'ada@warehouse.local', 'admin'),
		('Ben Field', 'ben@warehouse.local', 'user'),
		('Cleo Ops', 'cleo@warehouse.local', 'user');
	`)
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Println("Seeding inventory...")
	_, err = tx.Exec(ctx, `
		INSERT INTO items (sku, name, category, brand, quantity, status, location) VALUES
		('ELE-PRO-240110-A01', 'Projector', 'Electronics', 'Epson', 2, 'available', 'Shelf A1'),
		('ELE-MAC-240110-A02', 'MacBook Pro 14', 'Electronics', 'Apple', 5, 'available', 'Cabinet B2'),
		('TOO-DRI-240110-A03', 'Cordless Drill', 'Tools', 'Bosch', 3, 'available', 'Workshop'),
		('TOO-LAD-240110-A04', 'Telescopic Ladder', 'Tools', 'Hailo', 1, 'available', 'Workshop'),
		('CAM-EOS-240110-A05', 'EOS R6 Camera Kit', 'Camera', 'Canon', 2, 'maintenance', 'Media room');
	`)
	if err != nil {
		log.Fatalf("Failed to seed inventory: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit seed: %v", err)
	}
	log.Println("Seed data restored.")
}
