package app

import "warehouse-engine/internal/core"

// ItemListResult wraps a catalog listing.
type ItemListResult struct {
	Items []core.Item `json:"items"`
}

// ItemResult wraps a single item. Availability is populated on reads, not on
// writes.
type ItemResult struct {
	Item         core.Item                  `json:"item"`
	Availability *core.ItemAvailabilityInfo `json:"availability,omitempty"`
}

// RequestListResult wraps a request listing.
type RequestListResult struct {
	Requests []core.Request `json:"requests"`
}
