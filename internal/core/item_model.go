package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemStatus is the operational condition of an item. It is set by admins
// (or the recompute hook) and is independent of stock level: an item can be
// "available" with every unit out on loan.
type ItemStatus string

const (
	ItemStatusAvailable    ItemStatus = "available"
	ItemStatusNotAvailable ItemStatus = "not_available"
	ItemStatusMaintenance  ItemStatus = "maintenance"
	ItemStatusReserved     ItemStatus = "reserved"
)

// ValidItemStatus reports whether s is one of the known operational statuses.
func ValidItemStatus(s ItemStatus) bool {
	switch s {
	case ItemStatusAvailable, ItemStatusNotAvailable, ItemStatusMaintenance, ItemStatusReserved:
		return true
	}
	return false
}

// Item is a physical inventory item with a finite unit count.
// Quantity is the total physical count owned; how many of those units are
// free on a given day is a derived figure answered by AvailabilityService.
type Item struct {
	ID            int
	SKU           string
	Name          string
	Category      string
	Brand         string
	Description   string
	Quantity      int
	Status        ItemStatus
	Location      string
	PurchasePrice *decimal.Decimal
	PurchaseDate  *time.Time
	Supplier      string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
