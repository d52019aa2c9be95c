package app

import (
	"context"
	"time"

	"warehouse-engine/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ListItems returns catalog items, optionally filtered by category and a
	// free-text search over name, brand and SKU.
	ListItems(ctx context.Context, category, search string) (*ItemListResult, error)

	// GetItem returns one item together with its stock snapshot.
	GetItem(ctx context.Context, itemID int) (*ItemResult, error)

	// CreateItem adds a new item to the catalog.
	CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResult, error)

	// UpdateItemStatus sets an item's operational status.
	UpdateItemStatus(ctx context.Context, itemID int, status string) (*ItemResult, error)

	// RefreshItemStatuses re-runs the status recompute over the whole catalog
	// and returns the number of items swept.
	RefreshItemStatuses(ctx context.Context) (int, error)

	// SubmitRequest files a new borrow or purchase request. A refusal by the
	// availability pre-check is reported in the result, not as an error.
	SubmitRequest(ctx context.Context, req SubmitRequestRequest) (*core.SubmitResult, error)

	// ListRequests returns requests, optionally filtered by status, item or user.
	ListRequests(ctx context.Context, filter ListRequestsFilter) (*RequestListResult, error)

	// GetRequest returns one request.
	GetRequest(ctx context.Context, requestID int) (*core.Request, error)

	// ApproveRequest approves a pending request on behalf of an admin.
	// Purchase requests create their item; existing-item approvals may
	// cascade-reject competing pending requests.
	ApproveRequest(ctx context.Context, requestID, approverID int) (*core.ApprovalResult, error)

	// RejectRequest rejects a pending request with a mandatory reason, on
	// behalf of an admin.
	RejectRequest(ctx context.Context, requestID, approverID int, reason string) (*core.RejectionResult, error)

	// MarkReturned closes out an approved request.
	MarkReturned(ctx context.Context, requestID int) (*core.ReturnResult, error)

	// CheckAvailability pre-validates a candidate borrow window.
	CheckAvailability(ctx context.Context, itemID int, start, end time.Time, qty int) (*core.AvailabilityCheck, error)

	// GetAvailablePeriods returns the item's free periods within a range.
	GetAvailablePeriods(ctx context.Context, itemID int, rangeStart, rangeEnd time.Time) (*core.AvailabilityWindows, error)

	// GetNextAvailableDate returns the first date the item has stock, or nil
	// if none exists within the scan horizon.
	GetNextAvailableDate(ctx context.Context, itemID int) (*time.Time, error)

	// GetItemAvailabilityInfo returns a diagnostic stock snapshot, served
	// from cache when one is configured.
	GetItemAvailabilityInfo(ctx context.Context, itemID int) (*core.ItemAvailabilityInfo, error)

	// ListUsers returns all registered users.
	ListUsers(ctx context.Context) ([]core.User, error)
}

// AvailabilityInfoCache is an optional read-through cache for stock
// snapshots. Implementations must treat a miss as (nil, nil).
type AvailabilityInfoCache interface {
	Get(ctx context.Context, itemID int) (*core.ItemAvailabilityInfo, error)
	Set(ctx context.Context, itemID int, info *core.ItemAvailabilityInfo) error
	Invalidate(ctx context.Context, itemID int) error
}
