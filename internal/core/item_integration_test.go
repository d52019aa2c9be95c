package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"warehouse-engine/internal/core"
)

func TestItem_CreateAndGet(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewItemService(pool, core.NewStatusRecalculator())

	created, err := svc.Create(ctx, core.CreateItemInput{
		Name:     "MacBook Pro",
		Category: "Electronics",
		Brand:    "Apple",
		Quantity: 3,
		Location: "Shelf A1",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Status != core.ItemStatusAvailable {
		t.Errorf("expected default status available, got %s", created.Status)
	}
	if !strings.HasPrefix(created.SKU, "ELE-MAC-") {
		t.Errorf("unexpected SKU %q", created.SKU)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "MacBook Pro" || got.Quantity != 3 {
		t.Errorf("unexpected item: %+v", got)
	}

	if _, err := svc.Get(ctx, 99999); !errors.Is(err, core.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestItem_CreateValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewItemService(pool, core.NewStatusRecalculator())

	cases := []core.CreateItemInput{
		{Category: "Electronics", Quantity: 1},                            // no name
		{Name: "Drill", Quantity: 1},                                      // no category
		{Name: "Drill", Category: "Tools", Quantity: -1},                  // negative quantity
		{Name: "Drill", Category: "Tools", Quantity: 1, Status: "broken"}, // unknown status
	}
	for _, in := range cases {
		if _, err := svc.Create(ctx, in); !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestItem_List(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewItemService(pool, core.NewStatusRecalculator())

	mustCreate := func(name, category, brand string) {
		t.Helper()
		if _, err := svc.Create(ctx, core.CreateItemInput{
			Name: name, Category: category, Brand: brand, Quantity: 1,
		}); err != nil {
			t.Fatalf("Create %s failed: %v", name, err)
		}
	}
	mustCreate("MacBook Pro", "Electronics", "Apple")
	mustCreate("ThinkPad", "Electronics", "Lenovo")
	mustCreate("Cordless Drill", "Tools", "Bosch")

	all, err := svc.List(ctx, "", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 items, got %d", len(all))
	}

	tools, err := svc.List(ctx, "Tools", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "Cordless Drill" {
		t.Errorf("unexpected category filter result: %+v", tools)
	}

	// Search matches name and brand case-insensitively.
	hits, err := svc.List(ctx, "", "lenovo")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "ThinkPad" {
		t.Errorf("unexpected search result: %+v", hits)
	}
}

func TestItem_UpdateStatus(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewItemService(pool, core.NewStatusRecalculator())
	itemID := seedItem(t, pool, "Welder", 1)

	item, err := svc.UpdateStatus(ctx, itemID, core.ItemStatusMaintenance)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if item.Status != core.ItemStatusMaintenance {
		t.Errorf("expected maintenance, got %s", item.Status)
	}

	if _, err := svc.UpdateStatus(ctx, itemID, "broken"); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 99999, core.ItemStatusAvailable); !errors.Is(err, core.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestItem_RefreshStatuses(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewItemService(pool, core.NewStatusRecalculator())

	// Fully booked today: flips to not_available.
	bookedID := seedItem(t, pool, "Scanner", 1)
	seedBorrowRequest(t, pool, 2, bookedID, 1, "approved", date(0), date(3))

	// Free stock: flips back to available.
	freeID := seedItem(t, pool, "Ladder", 2)
	if _, err := pool.Exec(ctx, "UPDATE items SET status = 'not_available' WHERE id = $1", freeID); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	// Admin-set statuses survive the sweep.
	maintID := seedItem(t, pool, "Welder", 1)
	if _, err := pool.Exec(ctx, "UPDATE items SET status = 'maintenance' WHERE id = $1", maintID); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	n, err := svc.RefreshStatuses(ctx)
	if err != nil {
		t.Fatalf("RefreshStatuses failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 items swept, got %d", n)
	}

	wantStatus := map[int]core.ItemStatus{
		bookedID: core.ItemStatusNotAvailable,
		freeID:   core.ItemStatusAvailable,
		maintID:  core.ItemStatusMaintenance,
	}
	for id, want := range wantStatus {
		var status core.ItemStatus
		if err := pool.QueryRow(ctx, "SELECT status FROM items WHERE id = $1", id).Scan(&status); err != nil {
			t.Fatalf("Failed to reload item %d: %v", id, err)
		}
		if status != want {
			t.Errorf("item %d: expected %s, got %s", id, want, status)
		}
	}
}
