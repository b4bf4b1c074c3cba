package model

import "time"

// DailyAvailability is the remaining stock of one goods row on one calendar day.
type DailyAvailability struct {
	ID                int64     `json:"id"`
	GoodsID           int64     `json:"goods_id"`
	Date              time.Time `json:"date"`
	AvailableQuantity int       `json:"available_quantity"`
	InitialQuantity   int       `json:"initial_quantity"`
}

// AvailabilityFilter narrows the admin availability listing.
type AvailabilityFilter struct {
	GoodsID *int64
	From    *time.Time
	To      *time.Time
}
