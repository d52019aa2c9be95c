package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SubmitRequestInput carries a new borrow or purchase request.
// Existing-item requests need ItemID, StartDate and EndDate; purchase
// requests need ItemName instead.
type SubmitRequestInput struct {
	UserID int         `json:"user_id"`
	Type   RequestType `json:"request_type"`

	ItemID    *int       `json:"item_id,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	ItemName        string           `json:"item_name,omitempty"`
	ItemDescription string           `json:"item_description,omitempty"`
	ItemCategory    string           `json:"item_category,omitempty"`
	ItemBrand       string           `json:"item_brand,omitempty"`
	EstimatedCost   *decimal.Decimal `json:"estimated_cost,omitempty"`
	SupplierInfo    string           `json:"supplier_info,omitempty"`
	Justification   string           `json:"justification,omitempty"`

	Reason            string   `json:"reason"`
	Notes             string   `json:"notes,omitempty"`
	QuantityRequested int      `json:"quantity_requested"`
	Priority          Priority `json:"priority,omitempty"`
}

// SubmitResult reports the outcome of Submit. A refused availability check
// is a business outcome, not an error: Accepted is false and Check carries
// the conflicts and suggestions.
type SubmitResult struct {
	Accepted bool               `json:"accepted"`
	Message  string             `json:"message"`
	Request  *Request           `json:"request,omitempty"`
	Check    *AvailabilityCheck `json:"availability_check,omitempty"`
}

// RequestFilter narrows List. Zero values match everything.
type RequestFilter struct {
	Status RequestStatus
	ItemID int
	UserID int
}

// RequestService accepts new requests and serves read queries over them.
// Status transitions after submission belong to ApprovalService.
type RequestService interface {
	// Submit validates the request and, for existing-item requests, gates it
	// on an availability pre-check before persisting it as pending.
	Submit(ctx context.Context, in SubmitRequestInput) (*SubmitResult, error)
	Get(ctx context.Context, requestID int) (*Request, error)
	List(ctx context.Context, filter RequestFilter) ([]Request, error)
	// PendingForItem returns the item's pending requests in the same FIFO
	// order the cascade rejection walks them.
	PendingForItem(ctx context.Context, itemID int) ([]Request, error)
}

type requestService struct {
	pool         *pgxpool.Pool
	availability AvailabilityService
}

// NewRequestService constructs a RequestService backed by PostgreSQL.
func NewRequestService(pool *pgxpool.Pool, availability AvailabilityService) RequestService {
	return &requestService{pool: pool, availability: availability}
}

const requestColumns = `r.id, r.user_id, u.name, r.request_type, r.item_id,
	COALESCE(r.item_name, ''), COALESCE(r.item_description, ''),
	COALESCE(r.item_category, ''), COALESCE(r.item_brand, ''),
	r.estimated_cost, COALESCE(r.supplier_info, ''), COALESCE(r.justification, ''),
	r.start_date, r.end_date, r.status, COALESCE(r.reason, ''),
	COALESCE(r.notes, ''), r.quantity_requested, r.priority,
	r.approved_by, r.approved_at, COALESCE(r.rejection_reason, ''),
	r.returned_at, r.created_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.UserID, &r.RequesterName, &r.Type, &r.ItemID,
		&r.ItemName, &r.ItemDescription, &r.ItemCategory, &r.ItemBrand,
		&r.EstimatedCost, &r.SupplierInfo, &r.Justification,
		&r.StartDate, &r.EndDate, &r.Status, &r.Reason,
		&r.Notes, &r.QuantityRequested, &r.Priority,
		&r.ApprovedBy, &r.ApprovedAt, &r.RejectionReason,
		&r.ReturnedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *requestService) Submit(ctx context.Context, in SubmitRequestInput) (*SubmitResult, error) {
	if in.QuantityRequested <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, in.QuantityRequested)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !ValidPriority(in.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}

	switch in.Type {
	case RequestTypeExistingItem:
		return s.submitExisting(ctx, in)
	case RequestTypePurchase:
		return s.submitPurchase(ctx, in)
	default:
		return nil, fmt.Errorf("%w: unknown request type %q", ErrInvalidInput, in.Type)
	}
}

func (s *requestService) submitExisting(ctx context.Context, in SubmitRequestInput) (*SubmitResult, error) {
	if in.ItemID == nil {
		return nil, fmt.Errorf("%w: item_id is required for existing-item requests", ErrInvalidInput)
	}
	if in.StartDate == nil || in.EndDate == nil {
		return nil, fmt.Errorf("%w: start and end dates are required for existing-item requests", ErrInvalidInput)
	}
	start, end := dateOnly(*in.StartDate), dateOnly(*in.EndDate)
	if start.Before(today()) {
		return nil, fmt.Errorf("%w: start date must not be in the past", ErrInvalidInput)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
	}

	check, err := s.availability.CheckAvailability(ctx, *in.ItemID, start, end, in.QuantityRequested)
	if err != nil {
		return nil, err
	}
	if !check.Available {
		return &SubmitResult{
			Accepted: false,
			Message:  "The requested period is not available.",
			Check:    check,
		}, nil
	}

	row := s.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO requests (user_id, request_type, item_id, start_date, end_date,
			                      status, reason, notes, quantity_requested, priority)
			VALUES ($1, 'existing_item', $2, $3, $4, 'pending', $5, $6, $7, $8)
			RETURNING *
		)
		SELECT `+requestColumns+`
		FROM inserted r
		JOIN users u ON u.id = r.user_id
	`, in.UserID, *in.ItemID, start, end, in.Reason, in.Notes, in.QuantityRequested, in.Priority)
	req, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	return &SubmitResult{
		Accepted: true,
		Message:  "Request submitted and awaiting approval.",
		Request:  req,
		Check:    check,
	}, nil
}

func (s *requestService) submitPurchase(ctx context.Context, in SubmitRequestInput) (*SubmitResult, error) {
	if strings.TrimSpace(in.ItemName) == "" {
		return nil, fmt.Errorf("%w: item_name is required for purchase requests", ErrInvalidInput)
	}

	row := s.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO requests (user_id, request_type, item_name, item_description,
			                      item_category, item_brand, estimated_cost, supplier_info,
			                      justification, status, reason, notes, quantity_requested, priority)
			VALUES ($1, 'purchase_request', $2, $3, $4, $5, $6, $7, $8, 'pending', $9, $10, $11, $12)
			RETURNING *
		)
		SELECT `+requestColumns+`
		FROM inserted r
		JOIN users u ON u.id = r.user_id
	`, in.UserID, in.ItemName, in.ItemDescription, in.ItemCategory, in.ItemBrand,
		in.EstimatedCost, in.SupplierInfo, in.Justification,
		in.Reason, in.Notes, in.QuantityRequested, in.Priority)
	req, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("insert purchase request: %w", err)
	}

	return &SubmitResult{
		Accepted: true,
		Message:  "Purchase request submitted and awaiting approval.",
		Request:  req,
	}, nil
}

func (s *requestService) Get(ctx context.Context, requestID int) (*Request, error) {
	req, err := scanRequest(s.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM requests r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1
	`, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("request %d: %w", requestID, ErrRequestNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch request %d: %w", requestID, err)
	}
	return req, nil
}

func (s *requestService) List(ctx context.Context, filter RequestFilter) ([]Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests r
		JOIN users u ON u.id = r.user_id
		WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	if filter.ItemID != 0 {
		args = append(args, filter.ItemID)
		query += fmt.Sprintf(" AND r.item_id = $%d", len(args))
	}
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND r.user_id = $%d", len(args))
	}
	query += " ORDER BY r.created_at DESC, r.id DESC"

	return s.queryRequests(ctx, query, args...)
}

func (s *requestService) PendingForItem(ctx context.Context, itemID int) ([]Request, error) {
	return s.queryRequests(ctx, `
		SELECT `+requestColumns+`
		FROM requests r
		JOIN users u ON u.id = r.user_id
		WHERE r.item_id = $1 AND r.status = 'pending'
		ORDER BY r.created_at ASC, r.id ASC
	`, itemID)
}

func (s *requestService) queryRequests(ctx context.Context, query string, args ...any) ([]Request, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}
