package models

import (
	"time"

	"github.com/google/uuid"
)

// Deal statuses.
const (
	DealStatusPendingPayment    = "pending_payment"
	DealStatusFunded            = "funded"
	DealStatusCreativePending   = "creative_pending"
	DealStatusCreativeSubmitted = "creative_submitted"
	DealStatusCreativeRevision  = "creative_revision"
	DealStatusCreativeApproved  = "creative_approved"
	DealStatusPosted            = "posted"
	DealStatusTracking          = "tracking"
	DealStatusVerified          = "verified"
	DealStatusCompleted         = "completed"
	DealStatusFailed            = "failed"
	DealStatusCancelled         = "cancelled"
	DealStatusRefunded          = "refunded"
	DealStatusDisputed          = "disputed"
	DealStatusTimedOut          = "timed_out"
)

// ValidDealTransitions is the state graph. There is no Scheduled state
// (open question 1 resolves to the graph without it) — an approved
// creative goes straight to Posted once the owner publishes it.
var ValidDealTransitions = map[string][]string{
	DealStatusPendingPayment:    {DealStatusFunded, DealStatusCancelled, DealStatusTimedOut},
	DealStatusFunded:            {DealStatusCreativePending, DealStatusCancelled, DealStatusRefunded, DealStatusDisputed, DealStatusTimedOut},
	DealStatusCreativePending:   {DealStatusCreativeSubmitted, DealStatusCancelled, DealStatusRefunded, DealStatusDisputed, DealStatusTimedOut},
	DealStatusCreativeSubmitted: {DealStatusCreativeApproved, DealStatusCreativeRevision, DealStatusCancelled, DealStatusRefunded, DealStatusDisputed, DealStatusTimedOut},
	DealStatusCreativeRevision:  {DealStatusCreativeSubmitted, DealStatusCancelled, DealStatusRefunded, DealStatusDisputed, DealStatusTimedOut},
	DealStatusCreativeApproved:  {DealStatusPosted, DealStatusCancelled, DealStatusRefunded, DealStatusDisputed, DealStatusTimedOut},
	DealStatusPosted:            {DealStatusTracking, DealStatusDisputed, DealStatusTimedOut},
	DealStatusTracking:          {DealStatusVerified, DealStatusFailed, DealStatusDisputed, DealStatusTimedOut},
	DealStatusVerified:          {DealStatusCompleted},
	DealStatusFailed:            {DealStatusRefunded, DealStatusDisputed},
	DealStatusDisputed:          {DealStatusRefunded, DealStatusCompleted},
	DealStatusTimedOut:          {DealStatusRefunded},
	DealStatusCompleted:         {},
	DealStatusCancelled:         {},
	DealStatusRefunded:          {},
}

var terminalDealStatuses = map[string]bool{
	DealStatusCompleted: true,
	DealStatusCancelled: true,
	DealStatusRefunded:  true,
}

// IsValidTransition reports whether to is reachable from from in one hop.
func IsValidTransition(from, to string) bool {
	allowed, ok := ValidDealTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status has no outgoing transitions.
func IsTerminal(status string) bool {
	return terminalDealStatuses[status]
}

// softTimeoutHours is the per-state soft timeout table. States not listed
// here have no timer of their own; Tracking instead runs off the deal's own
// VerificationWindowHours.
var softTimeoutHours = map[string]int{
	DealStatusPendingPayment:    24,
	DealStatusFunded:            72,
	DealStatusCreativePending:   72,
	DealStatusCreativeSubmitted: 96,
	DealStatusCreativeRevision:  72,
	DealStatusCreativeApproved:  168,
}

// SoftTimeoutFor returns the soft timeout duration for status and whether
// one is defined at all.
func SoftTimeoutFor(status string) (time.Duration, bool) {
	hours, ok := softTimeoutHours[status]
	if !ok {
		return 0, false
	}
	return time.Duration(hours) * time.Hour, true
}

// Ad format tags.
const (
	AdFormatPost          = "post"
	AdFormatForward       = "forward"
	AdFormatStory         = "story"
	AdFormatVideo         = "video"
	AdFormatReel          = "reel"
	AdFormatTweet         = "tweet"
	AdFormatCommunityPost = "community_post"
	AdFormatCustom        = "custom"
)

// Deal is the central entity. Amount is carried as a canonical decimal
// string (see internal/money) rather than a float. OwnerAlias and
// AdvertiserAlias are what each side is shown of the other.
type Deal struct {
	ID                      uuid.UUID  `json:"id"`
	ChannelID               uuid.UUID  `json:"channel_id"`
	AdFormatID               uuid.UUID `json:"ad_format_id"`
	AdvertiserUserID         uuid.UUID `json:"advertiser_user_id"`
	Status                  string     `json:"status"`
	Amount                  string     `json:"amount"`
	PlatformFeePercent      float64    `json:"platform_fee_percent"`
	OwnerAlias              string     `json:"owner_alias"`
	AdvertiserAlias         string     `json:"advertiser_alias"`
	EscrowAddress           *string    `json:"escrow_address,omitempty"`
	EscrowEncryptedMnemonic *string    `json:"-"`
	TimeoutAt               *time.Time `json:"timeout_at,omitempty"`
	VerificationWindowHours int        `json:"verification_window_hours"`
	TrackingStartedAt       *time.Time `json:"tracking_started_at,omitempty"`
	PostedPlatformID        *string    `json:"posted_platform_id,omitempty"`
	PostProofURL            *string    `json:"post_proof_url,omitempty"`
	ContentHash             *string    `json:"content_hash,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// DealWithChannel embeds Deal with denormalized channel display fields to
// avoid an N+1 query on list endpoints.
type DealWithChannel struct {
	Deal
	ChannelTitle *string `json:"channel_title,omitempty"`
	PlatformTag  string  `json:"platform_tag"`
}
