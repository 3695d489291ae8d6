package repositories

import (
	"context"
	"errors"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReceiptRepo persists the one DealReceipt a purged deal leaves behind.
// DealID is unique: a deal can be purged at most once.
type ReceiptRepo struct {
	q store.Querier
}

func NewReceiptRepo(pool *pgxpool.Pool) *ReceiptRepo {
	return &ReceiptRepo{q: pool}
}

func (r *ReceiptRepo) WithQuerier(q store.Querier) *ReceiptRepo {
	return &ReceiptRepo{q: q}
}

func (r *ReceiptRepo) Create(ctx context.Context, rc *models.DealReceipt) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO deal_receipts (deal_id, channel_title, owner_alias, advertiser_alias, amount,
		                           final_status, completed_at, data_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, rc.DealID, rc.ChannelTitle, rc.OwnerAlias, rc.AdvertiserAlias, rc.Amount,
		rc.FinalStatus, rc.CompletedAt, rc.DataHash,
	).Scan(&rc.ID, &rc.CreatedAt)
}

func (r *ReceiptRepo) GetByDealID(ctx context.Context, dealID uuid.UUID) (*models.DealReceipt, error) {
	var rc models.DealReceipt
	err := r.q.QueryRow(ctx, `
		SELECT id, deal_id, channel_title, owner_alias, advertiser_alias, amount, final_status,
		       completed_at, data_hash, created_at
		FROM deal_receipts WHERE deal_id = $1
	`, dealID).Scan(&rc.ID, &rc.DealID, &rc.ChannelTitle, &rc.OwnerAlias, &rc.AdvertiserAlias, &rc.Amount,
		&rc.FinalStatus, &rc.CompletedAt, &rc.DataHash, &rc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rc, nil
}
