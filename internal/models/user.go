package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles: a single account can act as a channel owner, an advertiser,
// or both — Role only records which capabilities have been exercised so
// far, it never gates access.
const (
	UserRoleCreator    = "creator"
	UserRoleAdvertiser = "advertiser"
	UserRoleBoth       = "both"
)

// User is keyed on a platform-neutral external identity. TelegramUserID is
// kept as the concrete external ID for this deployment's auth surface
// (Telegram WebApp initData); other platforms would add their own ID
// column rather than replace this one.
type User struct {
	ID                  uuid.UUID `json:"id"`
	TelegramUserID      int64     `json:"telegram_user_id"`
	Username            *string   `json:"username,omitempty"`
	FirstName           *string   `json:"first_name,omitempty"`
	LastName            *string   `json:"last_name,omitempty"`
	Role                string    `json:"role"`
	PayoutWalletAddress *string   `json:"payout_wallet_address,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	LastActiveAt        time.Time `json:"last_active_at"`
}
