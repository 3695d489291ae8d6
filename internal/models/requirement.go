package models

import (
	"time"

	"github.com/google/uuid"
)

// Requirement metric types — what the tracking worker is measuring against
// TargetValue. PostExists is special: it has no numeric target, it just
// checks the post is still live. Custom is manual-only — the evaluator
// never touches it; it is only moved by confirmRequirement.
const (
	MetricTypePostExists = "post_exists"
	MetricTypeViews      = "views"
	MetricTypeLikes      = "likes"
	MetricTypeComments   = "comments"
	MetricTypeShares     = "shares"
	MetricTypeCustom     = "custom"
)

// Requirement statuses. Met and Waived both latch: once set, the tracking
// worker never reverts them back to Pending even if the underlying metric
// later dips below target. EditDetected is a distinct terminal-ish status
// reached when the tracked post's content hash no longer matches what was
// approved — see Dispute open question 4.
const (
	RequirementStatusPending      = "pending"
	RequirementStatusMet          = "met"
	RequirementStatusWaived       = "waived"
	RequirementStatusEditDetected = "edit_detected"
)

// DealRequirement is one condition a posted deal must satisfy before it is
// allowed to complete — e.g. "at least 10,000 views within the
// verification window".
type DealRequirement struct {
	ID            uuid.UUID  `json:"id"`
	DealID        uuid.UUID  `json:"deal_id"`
	MetricType    string     `json:"metric_type"`
	TargetValue   int64      `json:"target_value"`
	CurrentValue  int64      `json:"current_value"`
	Status        string     `json:"status"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	MetAt         *time.Time `json:"met_at,omitempty"`
}

// IsLatched reports whether the requirement has reached a status the
// evaluator must never revert (Met or Waived).
func (r *DealRequirement) IsLatched() bool {
	return r.Status == RequirementStatusMet || r.Status == RequirementStatusWaived
}

// IsValidMetricType reports whether t is one of the known requirement
// metrics the tracking worker and evaluator understand.
func IsValidMetricType(t string) bool {
	switch t {
	case MetricTypePostExists, MetricTypeViews, MetricTypeLikes, MetricTypeComments, MetricTypeShares, MetricTypeCustom:
		return true
	default:
		return false
	}
}

// MaxRequirementsPerDeal and MinRequirementsPerDeal bound the requirement
// list a deal can be created with.
const (
	MinRequirementsPerDeal = 1
	MaxRequirementsPerDeal = 10
)
