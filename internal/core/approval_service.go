package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// itemLockTimeout bounds how long an approval waits for the per-item row
// lock before failing with a retryable error.
const itemLockTimeout = "5s"

// cascadeRejectionReason is stamped on pending requests auto-rejected
// because another approval consumed the remaining stock.
const cascadeRejectionReason = "Quantity no longer available due to other approved requests."

// FailureCode identifies an expected business outcome of a mutating
// operation. These are reported in results, never raised as errors.
type FailureCode string

const (
	FailureNone                 FailureCode = ""
	FailureAlreadyProcessed     FailureCode = "already_processed"
	FailureItemNotFound         FailureCode = "item_not_found"
	FailureInsufficientQuantity FailureCode = "insufficient_quantity"
	FailureNotApproved          FailureCode = "not_approved"
)

// RejectedRequest identifies a pending request auto-rejected by cascade.
type RejectedRequest struct {
	ID                int    `json:"id"`
	RequesterName     string `json:"requester_name"`
	QuantityRequested int    `json:"quantity_requested"`
}

// ApprovalResult is the structured outcome of Approve.
type ApprovalResult struct {
	Success           bool              `json:"success"`
	Code              FailureCode       `json:"code,omitempty"`
	Message           string            `json:"message"`
	AvailableQuantity int               `json:"available_quantity,omitempty"`
	RequestedQuantity int               `json:"requested_quantity,omitempty"`
	RejectedRequests  []RejectedRequest `json:"rejected_requests"`
	CreatedItem       *Item             `json:"created_item,omitempty"`
}

// RejectionResult is the structured outcome of Reject.
type RejectionResult struct {
	Success bool        `json:"success"`
	Code    FailureCode `json:"code,omitempty"`
	Message string      `json:"message"`
}

// ReturnResult is the structured outcome of MarkReturned.
type ReturnResult struct {
	Success bool        `json:"success"`
	Code    FailureCode `json:"code,omitempty"`
	Message string      `json:"message"`
}

// ItemAvailabilityInfo is a diagnostic stock snapshot for one item.
type ItemAvailabilityInfo struct {
	TotalQuantity     int  `json:"total_quantity"`
	ApprovedQuantity  int  `json:"approved_quantity"`
	PendingQuantity   int  `json:"pending_quantity"`
	AvailableQuantity int  `json:"available_quantity"`
	CanFulfillPending bool `json:"can_fulfill_pending"`
}

// StatusRecalculator is the hook invoked after quantity-affecting
// transitions (approve, return). The engine calls it inside the same
// transaction but does not define its policy.
type StatusRecalculator interface {
	Recalculate(ctx context.Context, tx pgx.Tx, itemID int) error
}

// ApprovalService owns every Request status transition and the creation of
// new Items from purchase requests. All mutations for one call happen in a
// single transaction; concurrent approvals against the same item are
// serialized by a per-item row lock.
type ApprovalService interface {
	// Approve transitions a pending request to approved. For purchase
	// requests it creates the proposed item; for existing-item requests it
	// gates on today's availability and cascade-rejects pending requests the
	// reduced stock can no longer satisfy, in FIFO creation order.
	Approve(ctx context.Context, requestID, approverID int) (*ApprovalResult, error)

	// Reject transitions a pending request to rejected. The reason is
	// mandatory.
	Reject(ctx context.Context, requestID, approverID int, reason string) (*RejectionResult, error)

	// MarkReturned transitions an approved request to returned and triggers
	// the item status recompute hook.
	MarkReturned(ctx context.Context, requestID int) (*ReturnResult, error)

	// GetItemAvailabilityInfo returns a diagnostic stock snapshot.
	GetItemAvailabilityInfo(ctx context.Context, itemID int) (*ItemAvailabilityInfo, error)
}

type approvalService struct {
	pool   *pgxpool.Pool
	recalc StatusRecalculator
}

// NewApprovalService constructs an ApprovalService backed by PostgreSQL.
func NewApprovalService(pool *pgxpool.Pool, recalc StatusRecalculator) ApprovalService {
	return &approvalService{pool: pool, recalc: recalc}
}

// lockErr maps a PostgreSQL lock_timeout failure (55P03) onto ErrLockTimeout
// so callers can tell a retryable lock wait from a hard failure.
func lockErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
		return fmt.Errorf("%w: %s", ErrLockTimeout, pgErr.Message)
	}
	return err
}

func (s *approvalService) Approve(ctx context.Context, requestID, approverID int) (*ApprovalResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '"+itemLockTimeout+"'"); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	// Reload and lock the request so two admins cannot process it twice.
	var (
		reqType   RequestType
		status    RequestStatus
		itemID    *int
		qty       int
		itemName  *string
		itemDesc  *string
		itemCat   *string
		itemBrand *string
		estCost   *string
		supplier  *string
		justif    *string
		notes     *string
	)
	err = tx.QueryRow(ctx, `
		SELECT request_type, status, item_id, quantity_requested,
		       item_name, item_description, item_category, item_brand,
		       estimated_cost::text, supplier_info, justification, notes
		FROM requests
		WHERE id = $1
		FOR UPDATE
	`, requestID).Scan(&reqType, &status, &itemID, &qty,
		&itemName, &itemDesc, &itemCat, &itemBrand,
		&estCost, &supplier, &justif, &notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("request %d: %w", requestID, ErrRequestNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock request %d: %w", requestID, lockErr(err))
	}

	if status != RequestStatusPending {
		// Idempotent no-op: retrying an already-processed approval is safe.
		return &ApprovalResult{
			Success:          false,
			Code:             FailureAlreadyProcessed,
			Message:          "This request has already been processed.",
			RejectedRequests: []RejectedRequest{},
		}, nil
	}

	if reqType == RequestTypePurchase {
		return s.approvePurchase(ctx, tx, requestID, approverID, qty, purchaseFields{
			name: itemName, description: itemDesc, category: itemCat, brand: itemBrand,
			estimatedCost: estCost, supplier: supplier, justification: justif, notes: notes,
		})
	}
	return s.approveExisting(ctx, tx, requestID, approverID, itemID, qty)
}

type purchaseFields struct {
	name, description, category, brand *string
	estimatedCost, supplier            *string
	justification, notes               *string
}

// approvePurchase creates the proposed item and links the request to it.
// No availability check: this path adds stock rather than consuming it.
func (s *approvalService) approvePurchase(ctx context.Context, tx pgx.Tx, requestID, approverID, qty int, pf purchaseFields) (*ApprovalResult, error) {
	name := strDefault(pf.name, "Unnamed item")
	category := strDefault(pf.category, "General")

	itemNotes := fmt.Sprintf("Created from purchase request #%d.", requestID)
	if j := strDefault(pf.justification, strDefault(pf.notes, "")); j != "" {
		itemNotes += " " + j
	}

	now := time.Now()
	var item Item
	err := tx.QueryRow(ctx, `
		INSERT INTO items (sku, name, category, brand, description, quantity, status,
		                   location, purchase_price, purchase_date, supplier, notes)
		VALUES ($1, $2, $3, $4, $5, $6, 'available', 'To be assigned', $7::numeric, $8, $9, $10)
		RETURNING id, COALESCE(sku, ''), name, category, COALESCE(brand, ''),
		          COALESCE(description, ''), quantity, status, COALESCE(location, ''),
		          purchase_price, purchase_date, COALESCE(supplier, ''),
		          COALESCE(notes, ''), created_at, updated_at
	`, NewSKU(category, name, now), name, category,
		strDefault(pf.brand, "N/A"),
		strDefault(pf.description, "New item from purchase request"),
		qty, pf.estimatedCost, dateOnly(now),
		strDefault(pf.supplier, "N/A"), itemNotes,
	).Scan(&item.ID, &item.SKU, &item.Name, &item.Category, &item.Brand,
		&item.Description, &item.Quantity, &item.Status, &item.Location,
		&item.PurchasePrice, &item.PurchaseDate, &item.Supplier,
		&item.Notes, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create item from purchase request %d: %w", requestID, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE requests
		SET item_id = $1, status = 'approved', approved_by = $2, approved_at = NOW()
		WHERE id = $3
	`, item.ID, approverID, requestID); err != nil {
		return nil, fmt.Errorf("approve purchase request %d: %w", requestID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase approval: %w", err)
	}

	return &ApprovalResult{
		Success: true,
		Message: fmt.Sprintf("Purchase request approved: new item %q added to inventory with %d units.",
			item.Name, item.Quantity),
		RejectedRequests: []RejectedRequest{},
		CreatedItem:      &item,
	}, nil
}

// approveExisting gates on today's availability, approves, and runs cascade
// rejection against the remaining headroom.
//
// The gate deliberately checks today's availability rather than the
// request's full date range; see DESIGN.md.
func (s *approvalService) approveExisting(ctx context.Context, tx pgx.Tx, requestID, approverID int, itemID *int, qty int) (*ApprovalResult, error) {
	if itemID == nil {
		return &ApprovalResult{
			Success:          false,
			Code:             FailureItemNotFound,
			Message:          "Item not found.",
			RejectedRequests: []RejectedRequest{},
		}, nil
	}

	// Exclusive per-item lock: concurrent approvals against the same item
	// serialize here, so availability is read after the previous approval
	// committed or rolled back.
	var total int
	err := tx.QueryRow(ctx,
		"SELECT quantity FROM items WHERE id = $1 FOR UPDATE",
		*itemID,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return &ApprovalResult{
			Success:          false,
			Code:             FailureItemNotFound,
			Message:          "Item not found.",
			RejectedRequests: []RejectedRequest{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock item %d: %w", *itemID, lockErr(err))
	}

	used, err := usedQuantityOn(ctx, tx, *itemID, today())
	if err != nil {
		return nil, err
	}
	available := max(0, total-used)

	if available < qty {
		return &ApprovalResult{
			Success:           false,
			Code:              FailureInsufficientQuantity,
			Message:           fmt.Sprintf("Insufficient quantity. Available: %d, requested: %d.", available, qty),
			AvailableQuantity: available,
			RequestedQuantity: qty,
			RejectedRequests:  []RejectedRequest{},
		}, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE requests
		SET status = 'approved', approved_by = $1, approved_at = NOW()
		WHERE id = $2
	`, approverID, requestID); err != nil {
		return nil, fmt.Errorf("approve request %d: %w", requestID, err)
	}

	rejected, err := s.cascadeReject(ctx, tx, *itemID, requestID, approverID, available-qty)
	if err != nil {
		return nil, err
	}

	if err := s.recalc.Recalculate(ctx, tx, *itemID); err != nil {
		return nil, fmt.Errorf("recalculate item %d status: %w", *itemID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}

	msg := "Request approved."
	if len(rejected) > 0 {
		msg += fmt.Sprintf(" %d competing pending request(s) were automatically rejected for lack of stock.", len(rejected))
	}
	return &ApprovalResult{
		Success:          true,
		Message:          msg,
		RejectedRequests: rejected,
	}, nil
}

// cascadeReject walks the item's other pending requests in FIFO creation
// order and rejects the ones the remaining headroom can no longer satisfy.
// Earlier submitters keep their place; the scan only budgets quantity, it
// does not re-run date-range validation.
func (s *approvalService) cascadeReject(ctx context.Context, tx pgx.Tx, itemID, approvedRequestID, approverID, headroom int) ([]RejectedRequest, error) {
	rows, err := tx.Query(ctx, `
		SELECT r.id, u.name, r.quantity_requested
		FROM requests r
		JOIN users u ON u.id = r.user_id
		WHERE r.item_id = $1
		  AND r.status = 'pending'
		  AND r.id <> $2
		ORDER BY r.created_at ASC, r.id ASC
	`, itemID, approvedRequestID)
	if err != nil {
		return nil, fmt.Errorf("query pending requests for item %d: %w", itemID, err)
	}

	type pendingRow struct {
		id   int
		name string
		qty  int
	}
	var pending []pendingRow
	for rows.Next() {
		var p pendingRow
		if err := rows.Scan(&p.id, &p.name, &p.qty); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pending request: %w", err)
		}
		pending = append(pending, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending requests: %w", err)
	}

	rejected := []RejectedRequest{}
	for _, p := range pending {
		if headroom < p.qty {
			if _, err := tx.Exec(ctx, `
				UPDATE requests
				SET status = 'rejected', approved_by = $1, approved_at = NOW(), rejection_reason = $2
				WHERE id = $3
			`, approverID, cascadeRejectionReason, p.id); err != nil {
				return nil, fmt.Errorf("cascade-reject request %d: %w", p.id, err)
			}
			rejected = append(rejected, RejectedRequest{
				ID:                p.id,
				RequesterName:     p.name,
				QuantityRequested: p.qty,
			})
		} else {
			headroom -= p.qty
		}
	}
	return rejected, nil
}

func (s *approvalService) Reject(ctx context.Context, requestID, approverID int, reason string) (*RejectionResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status RequestStatus
	err = tx.QueryRow(ctx,
		"SELECT status FROM requests WHERE id = $1 FOR UPDATE",
		requestID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("request %d: %w", requestID, ErrRequestNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock request %d: %w", requestID, lockErr(err))
	}

	if status != RequestStatusPending {
		return &RejectionResult{
			Success: false,
			Code:    FailureAlreadyProcessed,
			Message: "This request has already been processed.",
		}, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE requests
		SET status = 'rejected', approved_by = $1, approved_at = NOW(), rejection_reason = $2
		WHERE id = $3
	`, approverID, reason, requestID); err != nil {
		return nil, fmt.Errorf("reject request %d: %w", requestID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit rejection: %w", err)
	}

	return &RejectionResult{Success: true, Message: "Request rejected."}, nil
}

func (s *approvalService) MarkReturned(ctx context.Context, requestID int) (*ReturnResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status RequestStatus
	var itemID *int
	err = tx.QueryRow(ctx,
		"SELECT status, item_id FROM requests WHERE id = $1 FOR UPDATE",
		requestID,
	).Scan(&status, &itemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("request %d: %w", requestID, ErrRequestNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock request %d: %w", requestID, lockErr(err))
	}

	if status != RequestStatusApproved {
		return &ReturnResult{
			Success: false,
			Code:    FailureNotApproved,
			Message: "Only approved requests can be marked as returned.",
		}, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE requests
		SET status = 'returned', returned_at = NOW()
		WHERE id = $1
	`, requestID); err != nil {
		return nil, fmt.Errorf("mark request %d returned: %w", requestID, err)
	}

	// Stock is free again; let the hook refresh the item's operational status.
	if itemID != nil {
		if err := s.recalc.Recalculate(ctx, tx, *itemID); err != nil {
			return nil, fmt.Errorf("recalculate item %d status: %w", *itemID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit return: %w", err)
	}

	return &ReturnResult{Success: true, Message: "Item marked as returned."}, nil
}

func (s *approvalService) GetItemAvailabilityInfo(ctx context.Context, itemID int) (*ItemAvailabilityInfo, error) {
	total, err := itemQuantity(ctx, s.pool, itemID)
	if err != nil {
		return nil, err
	}

	approved, err := usedQuantityOn(ctx, s.pool, itemID, today())
	if err != nil {
		return nil, err
	}

	var pending int
	if err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_requested), 0)
		FROM requests
		WHERE item_id = $1
		  AND status = 'pending'
		  AND request_type = 'existing_item'
	`, itemID).Scan(&pending); err != nil {
		return nil, fmt.Errorf("sum pending requests for item %d: %w", itemID, err)
	}

	available := max(0, total-approved)
	return &ItemAvailabilityInfo{
		TotalQuantity:     total,
		ApprovedQuantity:  approved,
		PendingQuantity:   pending,
		AvailableQuantity: available,
		CanFulfillPending: available >= pending,
	}, nil
}

// strDefault dereferences s or falls back when nil/empty.
func strDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
