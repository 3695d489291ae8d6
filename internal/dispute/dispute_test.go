package dispute

import (
	"testing"

	"github.com/sponsorlink/dealcore/internal/models"
)

func float64p(v float64) *float64 { return &v }

func TestValidateOutcome(t *testing.T) {
	tests := []struct {
		name       string
		outcome    string
		splitPct   *float64
		wantErr    bool
	}{
		{"release ok", models.DisputeOutcomeReleaseToOwner, nil, false},
		{"refund ok", models.DisputeOutcomeRefundToAdvertiser, nil, false},
		{"split ok", models.DisputeOutcomeSplit, float64p(60), false},
		{"split missing percent", models.DisputeOutcomeSplit, nil, true},
		{"split below range", models.DisputeOutcomeSplit, float64p(-1), true},
		{"split above range", models.DisputeOutcomeSplit, float64p(101), true},
		{"unknown outcome", "bogus", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOutcome(tt.outcome, tt.splitPct)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateOutcome(%q, %v) error = %v, wantErr %v", tt.outcome, tt.splitPct, err, tt.wantErr)
			}
		})
	}
}

func TestOpenableDealStatuses(t *testing.T) {
	mustBeOpenable := []string{
		models.DealStatusFunded, models.DealStatusCreativePending, models.DealStatusCreativeSubmitted,
		models.DealStatusCreativeRevision, models.DealStatusCreativeApproved, models.DealStatusPosted,
		models.DealStatusTracking, models.DealStatusFailed,
	}
	for _, s := range mustBeOpenable {
		if !openableDealStatuses[s] {
			t.Errorf("expected %q to be openable", s)
		}
	}

	mustNotBeOpenable := []string{
		models.DealStatusPendingPayment, models.DealStatusCompleted, models.DealStatusCancelled,
		models.DealStatusRefunded, models.DealStatusDisputed, models.DealStatusTimedOut, models.DealStatusVerified,
	}
	for _, s := range mustNotBeOpenable {
		if openableDealStatuses[s] {
			t.Errorf("expected %q to not be openable", s)
		}
	}
}
