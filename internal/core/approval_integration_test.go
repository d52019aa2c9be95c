package core_test

import (
	"context"
	"errors"
	"testing"

	"warehouse-engine/internal/core"

	"github.com/shopspring/decimal"
)

const adminID = 1

func TestApproval_ApproveExistingItem(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())

	itemID := seedItem(t, pool, "Projector", 5)
	reqID := seedBorrowRequest(t, pool, 2, itemID, 2, "pending", date(0), date(3))

	res, err := svc.Approve(ctx, reqID, adminID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected approval to succeed: %+v", res)
	}
	if len(res.RejectedRequests) != 0 {
		t.Errorf("expected no cascade rejections, got %+v", res.RejectedRequests)
	}

	var status string
	var approvedBy *int
	err = pool.QueryRow(ctx,
		"SELECT status, approved_by FROM requests WHERE id = $1", reqID,
	).Scan(&status, &approvedBy)
	if err != nil {
		t.Fatalf("Failed to reload request: %v", err)
	}
	if status != "approved" {
		t.Errorf("expected status approved, got %s", status)
	}
	if approvedBy == nil || *approvedBy != adminID {
		t.Errorf("expected approved_by %d, got %v", adminID, approvedBy)
	}
}

func TestApproval_Idempotent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())

	itemID := seedItem(t, pool, "Camera", 3)
	reqID := seedBorrowRequest(t, pool, 2, itemID, 1, "pending", date(0), date(2))

	if _, err := svc.Approve(ctx, reqID, adminID); err != nil {
		t.Fatalf("first Approve failed: %v", err)
	}

	// Retrying is a safe no-op reported as a business outcome.
	res, err := svc.Approve(ctx, reqID, adminID)
	if err != nil {
		t.Fatalf("second Approve errored: %v", err)
	}
	if res.Success || res.Code != core.FailureAlreadyProcessed {
		t.Errorf("expected already_processed outcome, got %+v", res)
	}

	// Stock must be charged exactly once.
	var used int
	err = pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_requested), 0) FROM requests
		WHERE item_id = $1 AND status = 'approved'
	`, itemID).Scan(&used)
	if err != nil {
		t.Fatalf("Failed to sum approved quantity: %v", err)
	}
	if used != 1 {
		t.Errorf("expected 1 unit charged, got %d", used)
	}
}

func TestApproval_InsufficientQuantity(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())

	itemID := seedItem(t, pool, "Drill", 2)
	seedBorrowRequest(t, pool, 2, itemID, 2, "approved", date(0), date(5))
	reqID := seedBorrowRequest(t, pool, 3, itemID, 1, "pending", date(0), date(3))

	res, err := svc.Approve(ctx, reqID, adminID)
	if err != nil {
		t.Fatalf("Approve errored: %v", err)
	}
	if res.Success || res.Code != core.FailureInsufficientQuantity {
		t.Fatalf("expected insufficient_quantity outcome, got %+v", res)
	}
	if res.AvailableQuantity != 0 || res.RequestedQuantity != 1 {
		t.Errorf("expected available 0 requested 1, got %+v", res)
	}

	// The refused request stays pending.
	var status string
	if err := pool.QueryRow(ctx, "SELECT status FROM requests WHERE id = $1", reqID).Scan(&status); err != nil {
		t.Fatalf("Failed to reload request: %v", err)
	}
	if status != "pending" {
		t.Errorf("expected request to stay pending, got %s", status)
	}
}

func TestApproval_CascadeRejection_FIFO(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())

	// 2 units. Approving the 1-unit request leaves 1 unit of headroom:
	// the oldest pending 1-unit request keeps its place, then headroom is
	// exhausted and everything behind it is rejected in FIFO order.
	itemID := seedItem(t, pool, "Beamer", 2)
	approveID := seedBorrowRequest(t, pool, 2, itemID, 1, "pending", date(0), date(3))
	keepID := seedBorrowRequest(t, pool, 3, itemID, 1, "pending", date(0), date(3))
	rejectID := seedBorrowRequest(t, pool, 4, itemID, 2, "pending", date(0), date(3))
	lastID := seedBorrowRequest(t, pool, 2, itemID, 1, "pending", date(0), date(3))

	res, err := svc.Approve(ctx, approveID, adminID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected approval to succeed: %+v", res)
	}
	if len(res.RejectedRequests) != 2 ||
		res.RejectedRequests[0].ID != rejectID || res.RejectedRequests[1].ID != lastID {
		t.Fatalf("expected requests %d and %d rejected in order, got %+v", rejectID, lastID, res.RejectedRequests)
	}
	if res.RejectedRequests[0].RequesterName != "Dave Dev" {
		t.Errorf("expected requester name on rejection, got %q", res.RejectedRequests[0].RequesterName)
	}

	wantStatus := map[int]string{
		approveID: "approved",
		keepID:    "pending",
		rejectID:  "rejected",
		lastID:    "rejected",
	}
	for id, want := range wantStatus {
		var status string
		if err := pool.QueryRow(ctx, "SELECT status FROM requests WHERE id = $1", id).Scan(&status); err != nil {
			t.Fatalf("Failed to reload request %d: %v", id, err)
		}
		if status != want {
			t.Errorf("request %d: expected %s, got %s", id, want, status)
		}
	}

	// The cascade stamps a reason on the rejected request.
	var reason string
	if err := pool.QueryRow(ctx, "SELECT rejection_reason FROM requests WHERE id = $1", rejectID).Scan(&reason); err != nil {
		t.Fatalf("Failed to read rejection reason: %v", err)
	}
	if reason == "" {
		t.Errorf("expected a rejection reason on the cascaded request")
	}
}

func TestApproval_NeverOversubscribes(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())

	itemID := seedItem(t, pool, "Mixer", 3)
	ids := []int{
		seedBorrowRequest(t, pool, 2, itemID, 2, "pending", date(0), date(3)),
		seedBorrowRequest(t, pool, 3, itemID, 2, "pending", date(0), date(3)),
		seedBorrowRequest(t, pool, 4, itemID, 2, "pending", date(0), date(3)),
	}

	// Approve everything in order; outcomes vary but the invariant holds.
	for _, id := range ids {
		if _, err := svc.Approve(ctx, id, adminID); err != nil {
			t.Fatalf("Approve %d errored: %v", id, err)
		}
	}

	var used, total int
	if err := pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_requested), 0) FROM requests
		WHERE item_id = $1 AND status = 'approved'
	`, itemID).Scan(&used); err != nil {
		t.Fatalf("Failed to sum approved quantity: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT quantity FROM items WHERE id = $1", itemID).Scan(&total); err != nil {
		t.Fatalf("Failed to read item quantity: %v", err)
	}
	if used > total {
		t.Errorf("approved quantity %d exceeds stock %d", used, total)
	}
}

func TestApproval_PurchaseCreatesItem(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())

	cost := decimal.NewFromFloat(1299.99)
	var reqID int
	err := pool.QueryRow(ctx, `
		INSERT INTO requests (user_id, request_type, item_name, item_category, item_brand,
		                      estimated_cost, supplier_info, justification, status,
		                      reason, quantity_requested, priority)
		VALUES (2, 'purchase_request', 'Thermal Camera', 'Electronics', 'FLIR',
		        $1, 'FLIR Direct', 'Needed for inspections', 'pending',
		        'equipment gap', 2, 'high')
		RETURNING id
	`, cost).Scan(&reqID)
	if err != nil {
		t.Fatalf("Failed to seed purchase request: %v", err)
	}

	res, err := svc.Approve(ctx, reqID, adminID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected approval to succeed: %+v", res)
	}
	if res.CreatedItem == nil {
		t.Fatalf("expected a created item in the result")
	}

	item := res.CreatedItem
	if item.Name != "Thermal Camera" || item.Quantity != 2 || item.Status != core.ItemStatusAvailable {
		t.Errorf("unexpected created item: %+v", item)
	}
	if item.SKU == "" {
		t.Errorf("expected a generated SKU")
	}
	if item.PurchasePrice == nil || !item.PurchasePrice.Equal(cost) {
		t.Errorf("expected purchase price %s, got %v", cost, item.PurchasePrice)
	}

	// The request is linked to the new item.
	var linkedID *int
	var status string
	if err := pool.QueryRow(ctx, "SELECT item_id, status FROM requests WHERE id = $1", reqID).Scan(&linkedID, &status); err != nil {
		t.Fatalf("Failed to reload request: %v", err)
	}
	if status != "approved" {
		t.Errorf("expected status approved, got %s", status)
	}
	if linkedID == nil || *linkedID != item.ID {
		t.Errorf("expected request linked to item %d, got %v", item.ID, linkedID)
	}
}

func TestApproval_Reject(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())

	itemID := seedItem(t, pool, "Ladder", 2)
	reqID := seedBorrowRequest(t, pool, 2, itemID, 1, "pending", date(0), date(3))

	if _, err := svc.Reject(ctx, reqID, adminID, ""); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty reason, got %v", err)
	}

	res, err := svc.Reject(ctx, reqID, adminID, "item needed for maintenance")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected rejection to succeed: %+v", res)
	}

	// A second rejection reports already_processed.
	res, err = svc.Reject(ctx, reqID, adminID, "again")
	if err != nil {
		t.Fatalf("second Reject errored: %v", err)
	}
	if res.Success || res.Code != core.FailureAlreadyProcessed {
		t.Errorf("expected already_processed outcome, got %+v", res)
	}
}

func TestApproval_MarkReturned(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())

	itemID := seedItem(t, pool, "Scanner", 1)
	pendingID := seedBorrowRequest(t, pool, 3, itemID, 1, "pending", date(0), date(3))
	approvedID := seedBorrowRequest(t, pool, 2, itemID, 1, "approved", date(0), date(3))

	// Only approved requests can be returned.
	res, err := svc.MarkReturned(ctx, pendingID)
	if err != nil {
		t.Fatalf("MarkReturned errored: %v", err)
	}
	if res.Success || res.Code != core.FailureNotApproved {
		t.Errorf("expected not_approved outcome, got %+v", res)
	}

	res, err = svc.MarkReturned(ctx, approvedID)
	if err != nil {
		t.Fatalf("MarkReturned failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected return to succeed: %+v", res)
	}

	var status string
	var returnedAt *string
	err = pool.QueryRow(ctx,
		"SELECT status, returned_at::text FROM requests WHERE id = $1", approvedID,
	).Scan(&status, &returnedAt)
	if err != nil {
		t.Fatalf("Failed to reload request: %v", err)
	}
	if status != "returned" || returnedAt == nil {
		t.Errorf("expected returned with timestamp, got %s %v", status, returnedAt)
	}

	// Stock freed by the return is visible to availability again.
	avail := core.NewAvailabilityService(pool)
	got, err := avail.AvailableQuantity(ctx, itemID, date(1))
	if err != nil {
		t.Fatalf("AvailableQuantity failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected 1 available after return, got %d", got)
	}
}

func TestApproval_UnknownRequest(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())
	if _, err := svc.Approve(context.Background(), 99999, adminID); !errors.Is(err, core.ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestApproval_GetItemAvailabilityInfo(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	svc := core.NewApprovalService(pool, core.NewStatusRecalculator())

	itemID := seedItem(t, pool, "Tripod", 5)
	seedBorrowRequest(t, pool, 2, itemID, 2, "approved", date(0), date(3))
	seedBorrowRequest(t, pool, 3, itemID, 2, "pending", date(0), date(3))
	seedBorrowRequest(t, pool, 4, itemID, 4, "pending", date(0), date(3))

	info, err := svc.GetItemAvailabilityInfo(ctx, itemID)
	if err != nil {
		t.Fatalf("GetItemAvailabilityInfo failed: %v", err)
	}
	if info.TotalQuantity != 5 || info.ApprovedQuantity != 2 || info.PendingQuantity != 6 {
		t.Errorf("unexpected counts: %+v", info)
	}
	if info.AvailableQuantity != 3 {
		t.Errorf("expected 3 available, got %d", info.AvailableQuantity)
	}
	if info.CanFulfillPending {
		t.Errorf("expected pending demand 6 to exceed available 3")
	}
}
