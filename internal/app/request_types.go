package app

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemRequest carries the fields for a new catalog item.
type CreateItemRequest struct {
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand,omitempty"`
	Description   string           `json:"description,omitempty"`
	Quantity      int              `json:"quantity"`
	Status        string           `json:"status,omitempty"`
	Location      string           `json:"location,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	PurchaseDate  *time.Time       `json:"purchase_date,omitempty"`
	Supplier      string           `json:"supplier,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// SubmitRequestRequest carries a new borrow or purchase request.
// RequestType selects the variant: existing-item requests need ItemID,
// StartDate and EndDate; purchase requests need ItemName.
type SubmitRequestRequest struct {
	UserID      int    `json:"user_id"`
	RequestType string `json:"request_type"`

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

	Reason            string `json:"reason"`
	Notes             string `json:"notes,omitempty"`
	QuantityRequested int    `json:"quantity_requested"`
	Priority          string `json:"priority,omitempty"`
}

// ListRequestsFilter narrows ListRequests. Zero values match everything.
type ListRequestsFilter struct {
	Status string `json:"status,omitempty"`
	ItemID int    `json:"item_id,omitempty"`
	UserID int    `json:"user_id,omitempty"`
}
