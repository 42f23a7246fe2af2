package model

import "time"

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) Valid() bool {
	return s == DeliverySent || s == DeliveryFailed
}

// Delivery is the DB entity persisted in the deliveries table, one row per
// gateway attempt that passed the dedup gate.
type Delivery struct {
	ID             string         `db:"id" json:"id"`
	Phone          string         `db:"phone" json:"phone"`
	ActorID        string         `db:"actor_id" json:"actor_id"`
	PatternCode    string         `db:"pattern_code" json:"pattern_code"`
	Status         DeliveryStatus `db:"status" json:"status"`
	ProviderStatus int            `db:"provider_status" json:"provider_status"`
	ErrorDetail    string         `db:"error_detail" json:"error_detail,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
