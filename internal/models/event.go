package models

import (
	"time"

	"github.com/google/uuid"
)

// DealEvent records every status change on a deal, written in the same
// transaction as the transition itself (see internal/dealengine). OldStatus
// is empty for the deal's creation event.
type DealEvent struct {
	ID        uuid.UUID  `json:"id"`
	DealID    uuid.UUID  `json:"deal_id"`
	EventType string     `json:"event_type"`
	OldStatus string     `json:"old_status"`
	NewStatus string     `json:"new_status"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	Metadata  any        `json:"metadata,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// DealReceipt is the immutable record left behind once a completed deal's
// sensitive fields have been purged. Its existence is the only remaining
// evidence the deal ever happened; DataHash lets anyone holding the
// original field values prove they match what was purged.
type DealReceipt struct {
	ID              uuid.UUID `json:"id"`
	DealID          uuid.UUID `json:"deal_id"`
	ChannelTitle    *string   `json:"channel_title,omitempty"`
	OwnerAlias      string    `json:"owner_alias"`
	AdvertiserAlias string    `json:"advertiser_alias"`
	Amount          string    `json:"amount"`
	FinalStatus     string    `json:"final_status"`
	CompletedAt     time.Time `json:"completed_at"`
	DataHash        string    `json:"data_hash"`
	CreatedAt       time.Time `json:"created_at"`
}
