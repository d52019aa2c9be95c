package core_test

import (
	"context"
	"errors"
	"testing"

	"warehouse-engine/internal/core"
)

func TestAvailability_AvailableQuantity(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewAvailabilityService(pool)

	itemID := seedItem(t, pool, "Projector", 5)
	// Approved borrow of 2 units covering today.
	seedBorrowRequest(t, pool, 2, itemID, 2, "approved", date(0), date(3))
	// Pending and returned requests must not count against stock.
	seedBorrowRequest(t, pool, 3, itemID, 4, "pending", date(0), date(3))
	seedBorrowRequest(t, pool, 4, itemID, 4, "returned", date(-10), date(-5))

	got, err := svc.AvailableQuantity(ctx, itemID, date(0))
	if err != nil {
		t.Fatalf("AvailableQuantity failed: %v", err)
	}
	if got != 3 {
		t.Errorf("expected 3 available today, got %d", got)
	}

	// After the approved window ends, full stock is free again.
	got, err = svc.AvailableQuantity(ctx, itemID, date(4))
	if err != nil {
		t.Fatalf("AvailableQuantity failed: %v", err)
	}
	if got != 5 {
		t.Errorf("expected 5 available after window, got %d", got)
	}
}

func TestAvailability_AvailableQuantity_FloorsAtZero(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewAvailabilityService(pool)

	itemID := seedItem(t, pool, "Drill", 2)
	seedBorrowRequest(t, pool, 2, itemID, 2, "approved", date(0), date(5))
	seedBorrowRequest(t, pool, 3, itemID, 2, "approved", date(0), date(5))

	got, err := svc.AvailableQuantity(ctx, itemID, date(1))
	if err != nil {
		t.Fatalf("AvailableQuantity failed: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 when oversubscribed, got %d", got)
	}
}

func TestAvailability_UnknownItem(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewAvailabilityService(pool)
	_, err := svc.AvailableQuantity(context.Background(), 99999, date(0))
	if !errors.Is(err, core.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestAvailability_IsAvailableForPeriod(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewAvailabilityService(pool)

	itemID := seedItem(t, pool, "Camera", 3)
	// Days +2..+4 have only 1 free unit.
	seedBorrowRequest(t, pool, 2, itemID, 2, "approved", date(2), date(4))

	ok, err := svc.IsAvailableForPeriod(ctx, itemID, date(0), date(6), 1)
	if err != nil {
		t.Fatalf("IsAvailableForPeriod failed: %v", err)
	}
	if !ok {
		t.Errorf("expected 1 unit to be available over the whole period")
	}

	ok, err = svc.IsAvailableForPeriod(ctx, itemID, date(0), date(6), 2)
	if err != nil {
		t.Fatalf("IsAvailableForPeriod failed: %v", err)
	}
	if ok {
		t.Errorf("expected 2 units to be unavailable: days +2..+4 only have 1 free")
	}

	// The dip doesn't matter if the window avoids it.
	ok, err = svc.IsAvailableForPeriod(ctx, itemID, date(5), date(6), 3)
	if err != nil {
		t.Fatalf("IsAvailableForPeriod failed: %v", err)
	}
	if !ok {
		t.Errorf("expected full stock outside the borrow window")
	}
}

func TestAvailability_AvailablePeriods_ShortCircuit(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewAvailabilityService(pool)

	itemID := seedItem(t, pool, "Tripod", 4)
	// A future dip: days +5..+7 are fully booked.
	seedBorrowRequest(t, pool, 2, itemID, 4, "approved", date(5), date(7))

	windows, err := svc.AvailablePeriods(ctx, itemID, date(0), date(10))
	if err != nil {
		t.Fatalf("AvailablePeriods failed: %v", err)
	}
	if windows.ImmediateAvailable != 4 {
		t.Errorf("expected 4 immediately available, got %d", windows.ImmediateAvailable)
	}
	// Immediate availability reports the whole range as one period and does
	// not surface the future dip.
	if len(windows.Periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(windows.Periods))
	}
	p := windows.Periods[0]
	if !p.Start.Equal(date(0)) || !p.End.Equal(date(10)) || p.AvailableQuantity != 4 {
		t.Errorf("unexpected period: %+v", p)
	}
}

func TestAvailability_AvailablePeriods_Timeline(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewAvailabilityService(pool)

	itemID := seedItem(t, pool, "Mixer", 3)
	// Today is fully booked, then partial, then free.
	seedBorrowRequest(t, pool, 2, itemID, 3, "approved", date(0), date(2))
	seedBorrowRequest(t, pool, 3, itemID, 1, "approved", date(3), date(5))

	windows, err := svc.AvailablePeriods(ctx, itemID, date(0), date(7))
	if err != nil {
		t.Fatalf("AvailablePeriods failed: %v", err)
	}
	if windows.ImmediateAvailable != 0 {
		t.Errorf("expected 0 immediately available, got %d", windows.ImmediateAvailable)
	}
	if len(windows.Periods) != 2 {
		t.Fatalf("expected 2 periods, got %d: %+v", len(windows.Periods), windows.Periods)
	}
	if !windows.Periods[0].Start.Equal(date(3)) || !windows.Periods[0].End.Equal(date(5)) || windows.Periods[0].AvailableQuantity != 2 {
		t.Errorf("unexpected first period: %+v", windows.Periods[0])
	}
	if !windows.Periods[1].Start.Equal(date(6)) || !windows.Periods[1].End.Equal(date(7)) || windows.Periods[1].AvailableQuantity != 3 {
		t.Errorf("unexpected second period: %+v", windows.Periods[1])
	}
}

func TestAvailability_NextAvailableDate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewAvailabilityService(pool)

	// Immediately available: next date is today.
	freeItem := seedItem(t, pool, "Ladder", 2)
	next, err := svc.NextAvailableDate(ctx, freeItem)
	if err != nil {
		t.Fatalf("NextAvailableDate failed: %v", err)
	}
	if next == nil || !next.Equal(date(0)) {
		t.Errorf("expected today, got %v", next)
	}

	// Fully booked until day +4: next date is day +5.
	bookedItem := seedItem(t, pool, "Scanner", 1)
	seedBorrowRequest(t, pool, 2, bookedItem, 1, "approved", date(0), date(4))
	next, err = svc.NextAvailableDate(ctx, bookedItem)
	if err != nil {
		t.Fatalf("NextAvailableDate failed: %v", err)
	}
	if next == nil || !next.Equal(date(5)) {
		t.Errorf("expected day +5, got %v", next)
	}

	// Booked past the scan horizon: no date.
	goneItem := seedItem(t, pool, "Forklift", 1)
	seedBorrowRequest(t, pool, 2, goneItem, 1, "approved", date(0), date(200))
	next, err = svc.NextAvailableDate(ctx, goneItem)
	if err != nil {
		t.Fatalf("NextAvailableDate failed: %v", err)
	}
	if next != nil {
		t.Errorf("expected no available date within horizon, got %v", next)
	}
}

func TestAvailability_CheckAvailability(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewAvailabilityService(pool)

	itemID := seedItem(t, pool, "Beamer", 2)
	conflictID := seedBorrowRequest(t, pool, 2, itemID, 2, "approved", date(1), date(4))

	// Free window passes without conflicts or suggestions.
	check, err := svc.CheckAvailability(ctx, itemID, date(5), date(8), 2)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if !check.Available {
		t.Errorf("expected the free window to be available: %+v", check)
	}

	// Blocked window surfaces the blocking request and alternatives.
	check, err = svc.CheckAvailability(ctx, itemID, date(1), date(4), 1)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if check.Available {
		t.Fatalf("expected the booked window to be unavailable")
	}
	if len(check.Conflicts) != 1 || check.Conflicts[0].ID != conflictID {
		t.Errorf("expected conflict with request %d, got %+v", conflictID, check.Conflicts)
	}
	if check.Conflicts[0].RequesterName != "Bob Borrower" {
		t.Errorf("expected requester name on conflict, got %q", check.Conflicts[0].RequesterName)
	}
	if len(check.Suggestions) == 0 {
		t.Fatalf("expected alternative period suggestions")
	}
	// Suggestions are clamped to the requested duration (4 days).
	s := check.Suggestions[0]
	gotDays := int(s.End.Sub(s.Start).Hours()/24) + 1
	if gotDays != 4 {
		t.Errorf("expected suggestion clamped to 4 days, got %d (%+v)", gotDays, s)
	}
	if s.Start.Before(date(5)) {
		t.Errorf("expected suggestion to start after the booked window, got %v", s.Start)
	}
}

func TestAvailability_CheckAvailability_Validation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewAvailabilityService(pool)
	itemID := seedItem(t, pool, "Welder", 1)

	if _, err := svc.CheckAvailability(ctx, itemID, date(3), date(1), 1); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for inverted range, got %v", err)
	}
	if _, err := svc.CheckAvailability(ctx, itemID, date(1), date(3), 0); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero quantity, got %v", err)
	}
	if _, err := svc.CheckAvailability(ctx, 99999, date(1), date(3), 1); !errors.Is(err, core.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}
