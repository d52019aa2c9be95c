package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"warehouse-engine/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
)

type appService struct {
	pool         *pgxpool.Pool
	items        core.ItemService
	requests     core.RequestService
	availability core.AvailabilityService
	approvals    core.ApprovalService
	users        core.UserService
	cache        AvailabilityInfoCache // nil when caching is disabled
}

// NewAppService constructs an appService that satisfies ApplicationService.
// cache may be nil; stock snapshots are then always computed from the
// database.
func NewAppService(
	pool *pgxpool.Pool,
	items core.ItemService,
	requests core.RequestService,
	availability core.AvailabilityService,
	approvals core.ApprovalService,
	users core.UserService,
	cache AvailabilityInfoCache,
) ApplicationService {
	return &appService{
		pool:         pool,
		items:        items,
		requests:     requests,
		availability: availability,
		approvals:    approvals,
		users:        users,
		cache:        cache,
	}
}

// requireAdmin resolves approverID and verifies the admin role.
func (s *appService) requireAdmin(ctx context.Context, approverID int) error {
	approver, err := s.users.GetByID(ctx, approverID)
	if err != nil {
		return err
	}
	if !approver.IsAdmin() {
		return fmt.Errorf("%w: user %d is not an admin", core.ErrInvalidInput, approverID)
	}
	return nil
}

func (s *appService) ListItems(ctx context.Context, category, search string) (*ItemListResult, error) {
	items, err := s.items.List(ctx, category, search)
	if err != nil {
		return nil, err
	}
	return &ItemListResult{Items: items}, nil
}

func (s *appService) GetItem(ctx context.Context, itemID int) (*ItemResult, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	info, err := s.GetItemAvailabilityInfo(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &ItemResult{Item: *item, Availability: info}, nil
}

func (s *appService) CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResult, error) {
	item, err := s.items.Create(ctx, core.CreateItemInput{
		Name:          req.Name,
		Category:      req.Category,
		Brand:         req.Brand,
		Description:   req.Description,
		Quantity:      req.Quantity,
		Status:        core.ItemStatus(req.Status),
		Location:      req.Location,
		PurchasePrice: req.PurchasePrice,
		PurchaseDate:  req.PurchaseDate,
		Supplier:      req.Supplier,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &ItemResult{Item: *item}, nil
}

func (s *appService) UpdateItemStatus(ctx context.Context, itemID int, status string) (*ItemResult, error) {
	item, err := s.items.UpdateStatus(ctx, itemID, core.ItemStatus(status))
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, itemID)
	return &ItemResult{Item: *item}, nil
}

func (s *appService) RefreshItemStatuses(ctx context.Context) (int, error) {
	return s.items.RefreshStatuses(ctx)
}

func (s *appService) SubmitRequest(ctx context.Context, req SubmitRequestRequest) (*core.SubmitResult, error) {
	res, err := s.requests.Submit(ctx, core.SubmitRequestInput{
		UserID:            req.UserID,
		Type:              core.RequestType(req.RequestType),
		ItemID:            req.ItemID,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		ItemName:          req.ItemName,
		ItemDescription:   req.ItemDescription,
		ItemCategory:      req.ItemCategory,
		ItemBrand:         req.ItemBrand,
		EstimatedCost:     req.EstimatedCost,
		SupplierInfo:      req.SupplierInfo,
		Justification:     req.Justification,
		Reason:            req.Reason,
		Notes:             req.Notes,
		QuantityRequested: req.QuantityRequested,
		Priority:          core.Priority(req.Priority),
	})
	if err != nil {
		return nil, err
	}
	if res.Accepted && req.ItemID != nil {
		s.invalidate(ctx, *req.ItemID)
	}
	return res, nil
}

func (s *appService) ListRequests(ctx context.Context, filter ListRequestsFilter) (*RequestListResult, error) {
	requests, err := s.requests.List(ctx, core.RequestFilter{
		Status: core.RequestStatus(filter.Status),
		ItemID: filter.ItemID,
		UserID: filter.UserID,
	})
	if err != nil {
		return nil, err
	}
	return &RequestListResult{Requests: requests}, nil
}

func (s *appService) GetRequest(ctx context.Context, requestID int) (*core.Request, error) {
	return s.requests.Get(ctx, requestID)
}

func (s *appService) ApproveRequest(ctx context.Context, requestID, approverID int) (*core.ApprovalResult, error) {
	if err := s.requireAdmin(ctx, approverID); err != nil {
		return nil, err
	}
	res, err := s.approvals.Approve(ctx, requestID, approverID)
	if err != nil {
		return nil, err
	}
	s.invalidateForRequest(ctx, requestID)
	return res, nil
}

func (s *appService) RejectRequest(ctx context.Context, requestID, approverID int, reason string) (*core.RejectionResult, error) {
	if err := s.requireAdmin(ctx, approverID); err != nil {
		return nil, err
	}
	res, err := s.approvals.Reject(ctx, requestID, approverID, reason)
	if err != nil {
		return nil, err
	}
	s.invalidateForRequest(ctx, requestID)
	return res, nil
}

func (s *appService) MarkReturned(ctx context.Context, requestID int) (*core.ReturnResult, error) {
	res, err := s.approvals.MarkReturned(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.invalidateForRequest(ctx, requestID)
	return res, nil
}

func (s *appService) CheckAvailability(ctx context.Context, itemID int, start, end time.Time, qty int) (*core.AvailabilityCheck, error) {
	return s.availability.CheckAvailability(ctx, itemID, start, end, qty)
}

func (s *appService) GetAvailablePeriods(ctx context.Context, itemID int, rangeStart, rangeEnd time.Time) (*core.AvailabilityWindows, error) {
	return s.availability.AvailablePeriods(ctx, itemID, rangeStart, rangeEnd)
}

func (s *appService) GetNextAvailableDate(ctx context.Context, itemID int) (*time.Time, error) {
	return s.availability.NextAvailableDate(ctx, itemID)
}

func (s *appService) GetItemAvailabilityInfo(ctx context.Context, itemID int) (*core.ItemAvailabilityInfo, error) {
	if s.cache != nil {
		info, err := s.cache.Get(ctx, itemID)
		if err != nil {
			log.Printf("availability cache read failed for item %d: %v", itemID, err)
		} else if info != nil {
			return info, nil
		}
	}

	info, err := s.approvals.GetItemAvailabilityInfo(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, itemID, info); err != nil {
			log.Printf("availability cache write failed for item %d: %v", itemID, err)
		}
	}
	return info, nil
}

func (s *appService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.users.List(ctx)
}

// invalidate drops the cached snapshot for one item. Cache failures are
// logged, never surfaced: the cache is a read optimization only.
func (s *appService) invalidate(ctx context.Context, itemID int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, itemID); err != nil {
		log.Printf("availability cache invalidation failed for item %d: %v", itemID, err)
	}
}

// invalidateForRequest resolves the item behind a request and invalidates
// its snapshot. Purchase approvals set item_id, so this covers them too.
func (s *appService) invalidateForRequest(ctx context.Context, requestID int) {
	if s.cache == nil {
		return
	}
	var itemID *int
	if err := s.pool.QueryRow(ctx,
		"SELECT item_id FROM requests WHERE id = $1", requestID,
	).Scan(&itemID); err != nil {
		log.Printf("availability cache invalidation failed for request %d: %v", requestID, err)
		return
	}
	if itemID != nil {
		s.invalidate(ctx, *itemID)
	}
}
