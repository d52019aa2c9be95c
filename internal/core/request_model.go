package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestType discriminates the two request variants: borrowing an existing
// item for a date range, or proposing the purchase of a new item.
type RequestType string

const (
	RequestTypeExistingItem RequestType = "existing_item"
	RequestTypePurchase     RequestType = "purchase_request"
)

// RequestStatus is the lifecycle state of a request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
	RequestStatusInUse    RequestStatus = "in_use"
	RequestStatusReturned RequestStatus = "returned"
)

// CanTransitionTo reports whether the status may move to target.
// Rejected and returned are terminal.
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	var allowed []RequestStatus
	switch s {
	case RequestStatusPending:
		allowed = []RequestStatus{RequestStatusApproved, RequestStatusRejected}
	case RequestStatusApproved:
		allowed = []RequestStatus{RequestStatusInUse, RequestStatusReturned}
	case RequestStatusInUse:
		allowed = []RequestStatus{RequestStatusReturned}
	}
	for _, a := range allowed {
		if a == target {
			return true
		}
	}
	return false
}

// Priority orders requests for display; it does not affect cascade
// rejection, which is strictly FIFO by creation time.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Request is a user's borrow or purchase request. The purchase proposal
// fields are only populated for RequestTypePurchase; the borrow window only
// for RequestTypeExistingItem. ItemID is set at submission for existing-item
// requests and filled in on approval for purchase requests.
type Request struct {
	ID            int
	UserID        int
	RequesterName string
	Type          RequestType
	ItemID        *int

	// Purchase proposal fields.
	ItemName        string
	ItemDescription string
	ItemCategory    string
	ItemBrand       string
	EstimatedCost   *decimal.Decimal
	SupplierInfo    string
	Justification   string

	// Borrow window: inclusive calendar days.
	StartDate *time.Time
	EndDate   *time.Time

	Status            RequestStatus
	Reason            string
	Notes             string
	QuantityRequested int
	Priority          Priority

	ApprovedBy      *int
	ApprovedAt      *time.Time
	RejectionReason string
	ReturnedAt      *time.Time
	CreatedAt       time.Time
}

// IsPurchase reports whether the request proposes a new item purchase.
func (r *Request) IsPurchase() bool {
	return r.Type == RequestTypePurchase
}

// IsActive reports whether the request currently holds stock.
func (r *Request) IsActive() bool {
	return r.Status == RequestStatusApproved || r.Status == RequestStatusInUse
}

// Duration returns the borrow window length in inclusive calendar days,
// or 0 if the request carries no window.
func (r *Request) Duration() int {
	if r.StartDate == nil || r.EndDate == nil {
		return 0
	}
	return int(r.EndDate.Sub(*r.StartDate).Hours()/24) + 1
}
