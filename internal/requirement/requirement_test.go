package requirement

import (
	"testing"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/platform"
)

func int64p(v int64) *int64 { return &v }

func TestAllLatched(t *testing.T) {
	tests := []struct {
		name string
		reqs []models.DealRequirement
		want bool
	}{
		{"empty", nil, true},
		{"all met", []models.DealRequirement{
			{Status: models.RequirementStatusMet},
			{Status: models.RequirementStatusWaived},
		}, true},
		{"one pending", []models.DealRequirement{
			{Status: models.RequirementStatusMet},
			{Status: models.RequirementStatusPending},
		}, false},
		{"edit detected does not latch", []models.DealRequirement{
			{Status: models.RequirementStatusEditDetected},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := allLatched(tt.reqs); got != tt.want {
				t.Errorf("allLatched() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetricValue(t *testing.T) {
	metrics := &platform.PostMetrics{
		Exists:   true,
		Views:    int64p(500),
		Likes:    int64p(20),
		Comments: nil,
	}

	tests := []struct {
		metricType string
		wantValue  int64
		wantOK     bool
	}{
		{models.MetricTypeViews, 500, true},
		{models.MetricTypeLikes, 20, true},
		{models.MetricTypeComments, 0, false},
		{models.MetricTypeShares, 0, false},
		{models.MetricTypeCustom, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.metricType, func(t *testing.T) {
			got, ok := metricValue(tt.metricType, metrics)
			if ok != tt.wantOK || got != tt.wantValue {
				t.Errorf("metricValue(%q) = (%d, %v), want (%d, %v)", tt.metricType, got, ok, tt.wantValue, tt.wantOK)
			}
		})
	}
}

func TestRequirementIsLatched(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{models.RequirementStatusPending, false},
		{models.RequirementStatusMet, true},
		{models.RequirementStatusWaived, true},
		{models.RequirementStatusEditDetected, false},
	}

	for _, tt := range tests {
		r := models.DealRequirement{Status: tt.status}
		if got := r.IsLatched(); got != tt.want {
			t.Errorf("IsLatched(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
