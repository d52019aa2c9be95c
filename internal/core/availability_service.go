package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// nextAvailableHorizonDays bounds the forward scan of NextAvailableDate.
const nextAvailableHorizonDays = 90

// maxSuggestedPeriods caps the alternative periods surfaced by CheckAvailability.
const maxSuggestedPeriods = 3

// AvailabilityService answers availability questions for items without
// mutating any state. Only approved existing-item requests count against
// stock; pending, rejected, returned, and purchase requests never do.
type AvailabilityService interface {
	// AvailableQuantity returns how many units of the item are free on the
	// given calendar day: total quantity minus the sum of approved
	// existing-item requests whose window covers the day, floored at 0.
	AvailableQuantity(ctx context.Context, itemID int, on time.Time) (int, error)

	// IsAvailableForPeriod reports whether at least qty units are free on
	// every day of the inclusive range [start, end].
	IsAvailableForPeriod(ctx context.Context, itemID int, start, end time.Time, qty int) (bool, error)

	// AvailablePeriods returns the free periods within [rangeStart, rangeEnd].
	// When the item has availability today it short-circuits and reports the
	// whole range as one period at today's quantity; it does not look for
	// future dips.
	AvailablePeriods(ctx context.Context, itemID int, rangeStart, rangeEnd time.Time) (*AvailabilityWindows, error)

	// NextAvailableDate returns today if the item is immediately available,
	// otherwise the first date with availability within a 90-day horizon,
	// or nil if no such date exists.
	NextAvailableDate(ctx context.Context, itemID int) (*time.Time, error)

	// CheckAvailability pre-validates a candidate borrow window. On refusal
	// it surfaces the conflicting approved requests and up to three
	// alternative periods long enough and stocked enough for the request.
	CheckAvailability(ctx context.Context, itemID int, start, end time.Time, qty int) (*AvailabilityCheck, error)
}

// AvailablePeriod is a run of consecutive days sharing one availability level.
type AvailablePeriod struct {
	Start             time.Time `json:"start_date"`
	End               time.Time `json:"end_date"`
	AvailableQuantity int       `json:"available_quantity"`
}

// AvailabilityWindows is the result of AvailablePeriods.
type AvailabilityWindows struct {
	ImmediateAvailable int               `json:"immediate_available"`
	Periods            []AvailablePeriod `json:"periods"`
}

// ConflictingRequest describes an approved request that blocks a candidate window.
type ConflictingRequest struct {
	ID            int       `json:"id"`
	RequesterName string    `json:"requester_name"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Quantity      int       `json:"quantity"`
}

// AvailabilityCheck is the result of CheckAvailability.
type AvailabilityCheck struct {
	Available   bool                 `json:"available"`
	Reason      string               `json:"reason,omitempty"`
	Conflicts   []ConflictingRequest `json:"conflicting_requests,omitempty"`
	Suggestions []AvailablePeriod    `json:"suggested_periods,omitempty"`
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// query helpers inside and outside transactions.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type availabilityService struct {
	pool *pgxpool.Pool
}

// NewAvailabilityService constructs an AvailabilityService backed by PostgreSQL.
func NewAvailabilityService(pool *pgxpool.Pool) AvailabilityService {
	return &availabilityService{pool: pool}
}

// dateOnly truncates t to midnight UTC; all availability accounting is at
// calendar-day granularity.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func today() time.Time {
	return dateOnly(time.Now())
}

// borrowWindow is a loaded approved existing-item request window.
type borrowWindow struct {
	start time.Time
	end   time.Time
	qty   int
}

// itemQuantity returns the item's total quantity, or ErrItemNotFound.
func itemQuantity(ctx context.Context, q pgxQuerier, itemID int) (int, error) {
	var total int
	err := q.QueryRow(ctx, "SELECT quantity FROM items WHERE id = $1", itemID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("item %d: %w", itemID, ErrItemNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("fetch item %d: %w", itemID, err)
	}
	return total, nil
}

// usedQuantityOn sums approved existing-item requests covering the given day.
func usedQuantityOn(ctx context.Context, q pgxQuerier, itemID int, on time.Time) (int, error) {
	var used int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_requested), 0)
		FROM requests
		WHERE item_id = $1
		  AND status = 'approved'
		  AND request_type = 'existing_item'
		  AND start_date <= $2
		  AND end_date >= $2
	`, itemID, dateOnly(on)).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("sum approved requests for item %d: %w", itemID, err)
	}
	return used, nil
}

// availableQuantityQ computes free units on a day using the given querier,
// so the Approval coordinator can reuse it inside its transaction.
func availableQuantityQ(ctx context.Context, q pgxQuerier, itemID int, on time.Time) (int, error) {
	total, err := itemQuantity(ctx, q, itemID)
	if err != nil {
		return 0, err
	}
	used, err := usedQuantityOn(ctx, q, itemID, on)
	if err != nil {
		return 0, err
	}
	return max(0, total-used), nil
}

// loadBorrowWindows fetches approved existing-item windows overlapping
// [start, end] in one query; day scans then run in memory.
func loadBorrowWindows(ctx context.Context, q pgxQuerier, itemID int, start, end time.Time) ([]borrowWindow, error) {
	rows, err := q.Query(ctx, `
		SELECT start_date, end_date, quantity_requested
		FROM requests
		WHERE item_id = $1
		  AND status = 'approved'
		  AND request_type = 'existing_item'
		  AND start_date <= $3
		  AND end_date >= $2
		ORDER BY start_date
	`, itemID, dateOnly(start), dateOnly(end))
	if err != nil {
		return nil, fmt.Errorf("query approved windows for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var windows []borrowWindow
	for rows.Next() {
		var w borrowWindow
		if err := rows.Scan(&w.start, &w.end, &w.qty); err != nil {
			return nil, fmt.Errorf("scan approved window: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// buildTimeline computes the per-day available quantity over the inclusive
// range [start, end], floored at 0. Index 0 is start.
func buildTimeline(total int, windows []borrowWindow, start, end time.Time) []int {
	start, end = dateOnly(start), dateOnly(end)
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return nil
	}
	timeline := make([]int, days)
	for i := range timeline {
		day := start.AddDate(0, 0, i)
		used := 0
		for _, w := range windows {
			if !day.Before(w.start) && !day.After(w.end) {
				used += w.qty
			}
		}
		timeline[i] = max(0, total-used)
	}
	return timeline
}

// encodePeriods run-length-encodes a day timeline into periods. Only runs of
// identical non-zero availability merge; zero days terminate the current run
// and are never emitted.
func encodePeriods(start time.Time, timeline []int) []AvailablePeriod {
	start = dateOnly(start)
	var periods []AvailablePeriod
	runStart, runQty := -1, 0
	flush := func(endIdx int) {
		if runStart >= 0 {
			periods = append(periods, AvailablePeriod{
				Start:             start.AddDate(0, 0, runStart),
				End:               start.AddDate(0, 0, endIdx),
				AvailableQuantity: runQty,
			})
			runStart = -1
		}
	}
	for i, avail := range timeline {
		switch {
		case avail == 0:
			flush(i - 1)
		case runStart >= 0 && avail == runQty:
			// run continues
		default:
			flush(i - 1)
			runStart, runQty = i, avail
		}
	}
	flush(len(timeline) - 1)
	return periods
}

func (s *availabilityService) AvailableQuantity(ctx context.Context, itemID int, on time.Time) (int, error) {
	return availableQuantityQ(ctx, s.pool, itemID, on)
}

func (s *availabilityService) IsAvailableForPeriod(ctx context.Context, itemID int, start, end time.Time, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, qty)
	}
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return false, fmt.Errorf("%w: end date %s before start date %s",
			ErrInvalidInput, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	total, err := itemQuantity(ctx, s.pool, itemID)
	if err != nil {
		return false, err
	}
	windows, err := loadBorrowWindows(ctx, s.pool, itemID, start, end)
	if err != nil {
		return false, err
	}
	for _, avail := range buildTimeline(total, windows, start, end) {
		if avail < qty {
			return false, nil
		}
	}
	return true, nil
}

func (s *availabilityService) AvailablePeriods(ctx context.Context, itemID int, rangeStart, rangeEnd time.Time) (*AvailabilityWindows, error) {
	rangeStart, rangeEnd = dateOnly(rangeStart), dateOnly(rangeEnd)
	if rangeEnd.Before(rangeStart) {
		return nil, fmt.Errorf("%w: range end %s before range start %s",
			ErrInvalidInput, rangeEnd.Format("2006-01-02"), rangeStart.Format("2006-01-02"))
	}

	total, err := itemQuantity(ctx, s.pool, itemID)
	if err != nil {
		return nil, err
	}

	immediate, err := availableQuantityQ(ctx, s.pool, itemID, today())
	if err != nil {
		return nil, err
	}
	if immediate > 0 {
		// Immediate availability short-circuits: the whole range is reported
		// as one period at today's quantity, without scanning for future dips.
		return &AvailabilityWindows{
			ImmediateAvailable: immediate,
			Periods: []AvailablePeriod{
				{Start: rangeStart, End: rangeEnd, AvailableQuantity: immediate},
			},
		}, nil
	}

	windows, err := loadBorrowWindows(ctx, s.pool, itemID, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}
	timeline := buildTimeline(total, windows, rangeStart, rangeEnd)
	return &AvailabilityWindows{
		ImmediateAvailable: 0,
		Periods:            encodePeriods(rangeStart, timeline),
	}, nil
}

func (s *availabilityService) NextAvailableDate(ctx context.Context, itemID int) (*time.Time, error) {
	now := today()
	immediate, err := availableQuantityQ(ctx, s.pool, itemID, now)
	if err != nil {
		return nil, err
	}
	if immediate > 0 {
		return &now, nil
	}

	horizon := now.AddDate(0, 0, nextAvailableHorizonDays)
	windows, err := s.AvailablePeriods(ctx, itemID, now, horizon)
	if err != nil {
		return nil, err
	}
	for _, p := range windows.Periods {
		if p.Start.Equal(now) {
			// Nothing is free today; a period can only start today through
			// the day timeline, so skip to the next one.
			continue
		}
		if !p.Start.Before(now) && p.AvailableQuantity > 0 {
			start := p.Start
			return &start, nil
		}
	}
	return nil, nil
}

func (s *availabilityService) CheckAvailability(ctx context.Context, itemID int, start, end time.Time, qty int) (*AvailabilityCheck, error) {
	start, end = dateOnly(start), dateOnly(end)
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, qty)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
	}

	var itemName string
	err := s.pool.QueryRow(ctx, "SELECT name FROM items WHERE id = $1", itemID).Scan(&itemName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", itemID, err)
	}

	ok, err := s.IsAvailableForPeriod(ctx, itemID, start, end, qty)
	if err != nil {
		return nil, err
	}
	if ok {
		return &AvailabilityCheck{Available: true}, nil
	}

	conflicts, err := s.conflictingRequests(ctx, itemID, start, end)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.suggestPeriods(ctx, itemID, start, end, qty)
	if err != nil {
		return nil, err
	}

	return &AvailabilityCheck{
		Available: false,
		Reason: fmt.Sprintf("the period %s to %s is not available for %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"), itemName),
		Conflicts:   conflicts,
		Suggestions: suggestions,
	}, nil
}

func (s *availabilityService) conflictingRequests(ctx context.Context, itemID int, start, end time.Time) ([]ConflictingRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, u.name, r.start_date, r.end_date, r.quantity_requested
		FROM requests r
		JOIN users u ON u.id = r.user_id
		WHERE r.item_id = $1
		  AND r.status = 'approved'
		  AND r.request_type = 'existing_item'
		  AND r.start_date <= $3
		  AND r.end_date >= $2
		ORDER BY r.start_date, r.id
	`, itemID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query conflicting requests for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var conflicts []ConflictingRequest
	for rows.Next() {
		var c ConflictingRequest
		if err := rows.Scan(&c.ID, &c.RequesterName, &c.StartDate, &c.EndDate, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scan conflicting request: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// suggestPeriods finds up to three alternative windows starting from the
// requested start date that are at least as long as the requested window and
// have enough stock, each clamped to the requested duration. Unlike
// AvailablePeriods it always walks the day timeline, so suggestions never
// overlap the refused window.
func (s *availabilityService) suggestPeriods(ctx context.Context, itemID int, start, end time.Time, qty int) ([]AvailablePeriod, error) {
	scanEnd := start.AddDate(0, 0, nextAvailableHorizonDays)
	total, err := itemQuantity(ctx, s.pool, itemID)
	if err != nil {
		return nil, err
	}
	windows, err := loadBorrowWindows(ctx, s.pool, itemID, start, scanEnd)
	if err != nil {
		return nil, err
	}
	periods := encodePeriods(start, buildTimeline(total, windows, start, scanEnd))

	wantDays := int(end.Sub(start).Hours()/24) + 1
	var suggestions []AvailablePeriod
	for _, p := range periods {
		periodDays := int(p.End.Sub(p.Start).Hours()/24) + 1
		if periodDays < wantDays || p.AvailableQuantity < qty {
			continue
		}
		clampedEnd := p.Start.AddDate(0, 0, wantDays-1)
		if clampedEnd.After(p.End) {
			clampedEnd = p.End
		}
		suggestions = append(suggestions, AvailablePeriod{
			Start:             p.Start,
			End:               clampedEnd,
			AvailableQuantity: p.AvailableQuantity,
		})
		if len(suggestions) == maxSuggestedPeriods {
			break
		}
	}
	return suggestions, nil
}
