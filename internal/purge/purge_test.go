package purge

import (
	"testing"
	"time"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/google/uuid"
)

func baseDeal() *models.Deal {
	completed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	addr := "EQabc123"
	return &models.Deal{
		ID:               uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		ChannelID:        uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		AdvertiserUserID: uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		Amount:           "47.500000000",
		Status:           models.DealStatusCompleted,
		EscrowAddress:    &addr,
		CompletedAt:      &completed,
	}
}

func TestHashFieldsIsDeterministic(t *testing.T) {
	d := baseDeal()
	h1, err := hashFields(d)
	if err != nil {
		t.Fatalf("hashFields: %v", err)
	}
	h2, err := hashFields(d)
	if err != nil {
		t.Fatalf("hashFields: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestHashFieldsChangesWithStatus(t *testing.T) {
	d1 := baseDeal()
	d2 := baseDeal()
	d2.Status = models.DealStatusRefunded

	h1, _ := hashFields(d1)
	h2, _ := hashFields(d2)
	if h1 == h2 {
		t.Errorf("expected different hashes for different final status")
	}
}

func TestHashFieldsHandlesNilEscrowAddress(t *testing.T) {
	d := baseDeal()
	d.EscrowAddress = nil
	if _, err := hashFields(d); err != nil {
		t.Fatalf("hashFields with nil escrow address: %v", err)
	}
}
