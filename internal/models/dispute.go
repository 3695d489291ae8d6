package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute statuses.
const (
	DisputeStatusOpen             = "open"
	DisputeStatusMutualResolution = "mutual_resolution"
	DisputeStatusAdminReview      = "admin_review"
	DisputeStatusResolved         = "resolved"
)

// Dispute resolution outcomes.
const (
	DisputeOutcomeReleaseToOwner      = "release_to_owner"
	DisputeOutcomeRefundToAdvertiser  = "refund_to_advertiser"
	DisputeOutcomeSplit               = "split"
)

// Dispute is the escalation path for a deal that entered DealStatusDisputed.
// It starts Open, can move to MutualResolution once either side proposes an
// outcome, and settles either by mutual agreement (Resolved, no admin) or by
// timing out into AdminReview and then Resolved by an operator.
type Dispute struct {
	ID                     uuid.UUID  `json:"id"`
	DealID                 uuid.UUID  `json:"deal_id"`
	OpenedBy               uuid.UUID  `json:"opened_by"`
	Reason                 string     `json:"reason"`
	Status                 string     `json:"status"`
	MutualDeadline         time.Time  `json:"mutual_deadline"`
	OwnerProposal          *string    `json:"owner_proposal,omitempty"`
	AdvertiserProposal     *string    `json:"advertiser_proposal,omitempty"`
	OwnerSplitPercent      *float64   `json:"owner_split_percent,omitempty"`
	AdvertiserSplitPercent *float64   `json:"advertiser_split_percent,omitempty"`
	ResolvedOutcome        *string    `json:"resolved_outcome,omitempty"`
	ResolvedSplitPercent   *float64   `json:"resolved_split_percent,omitempty"`
	ResolvedBy             *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedReason         *string    `json:"resolved_reason,omitempty"`
	ResolvedAt             *time.Time `json:"resolved_at,omitempty"`
	EscalatedAt            *time.Time `json:"escalated_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// ProposalsMatch reports whether both sides have proposed the same split,
// the condition that lets proposeResolution auto-settle without an admin.
func (d *Dispute) ProposalsMatch() bool {
	if d.OwnerSplitPercent == nil || d.AdvertiserSplitPercent == nil {
		return false
	}
	return *d.OwnerSplitPercent == *d.AdvertiserSplitPercent
}

// DisputeEvidence is a supporting attachment submitted by either party
// while a dispute is open.
type DisputeEvidence struct {
	ID          uuid.UUID `json:"id"`
	DisputeID   uuid.UUID `json:"dispute_id"`
	SubmittedBy uuid.UUID `json:"submitted_by"`
	Description string    `json:"description"`
	URL         *string   `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
