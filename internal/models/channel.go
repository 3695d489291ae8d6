package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a platform-neutral inventory listing: a creator's channel,
// group, or profile on some supported platform, identified by a
// (PlatformTag, PlatformChannelID) pair rather than a Telegram-specific
// chat ID.
type Channel struct {
	ID                  uuid.UUID  `json:"id"`
	PlatformTag         string     `json:"platform_tag"` // e.g. "telegram"
	PlatformChannelID    string     `json:"platform_channel_id"`
	Title               *string    `json:"title,omitempty"`
	OwnerUserID         uuid.UUID  `json:"owner_user_id"`
	Subscribers         *int       `json:"subscribers,omitempty"`
	AvgViews            *int       `json:"avg_views,omitempty"`
	AvgReach            *int       `json:"avg_reach,omitempty"`
	PremiumFraction     *float64   `json:"premium_fraction,omitempty"`
	LanguageDistribution any       `json:"language_distribution,omitempty"`
	Verified            bool       `json:"verified"`
	VerifiedAt          *time.Time `json:"verified_at,omitempty"`
	VerificationToken   *string    `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ChannelMember records a platform-reported admin/manager of a channel,
// used by the optional verifyUserAdmin/fetchAdmins adapter capability.
type ChannelMember struct {
	ID               uuid.UUID  `json:"id"`
	ChannelID        uuid.UUID  `json:"channel_id"`
	UserID           uuid.UUID  `json:"user_id"`
	Role             string     `json:"role"` // owner / manager
	CanPost          bool       `json:"can_post"`
	LastAdminCheckAt *time.Time `json:"last_admin_check_at,omitempty"`
}

// ChannelStatsSnapshot is a point-in-time stats fetch, kept for trend
// reporting independent of the Channel row's current values.
type ChannelStatsSnapshot struct {
	ID            uuid.UUID `json:"id"`
	ChannelID     uuid.UUID `json:"channel_id"`
	FetchedAt     time.Time `json:"fetched_at"`
	Subscribers   *int      `json:"subscribers,omitempty"`
	AvgViews      *int      `json:"avg_views,omitempty"`
	PremiumCount  *int      `json:"premium_count,omitempty"`
	Source        string    `json:"source"` // adapter tag that produced this snapshot
	RawJSON       any       `json:"raw_json,omitempty"`
}
