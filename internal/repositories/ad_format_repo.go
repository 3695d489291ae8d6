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

// AdFormatRepo stores the sellable slots a channel lists.
type AdFormatRepo struct {
	q store.Querier
}

func NewAdFormatRepo(pool *pgxpool.Pool) *AdFormatRepo {
	return &AdFormatRepo{q: pool}
}

func (r *AdFormatRepo) Create(ctx context.Context, f *models.AdFormat) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO ad_formats (channel_id, type_tag, label, price, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, f.ChannelID, f.TypeTag, f.Label, f.Price, f.Active).Scan(&f.ID)
}

func (r *AdFormatRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AdFormat, error) {
	var f models.AdFormat
	err := r.q.QueryRow(ctx, `
		SELECT id, channel_id, type_tag, label, price, active FROM ad_formats WHERE id = $1
	`, id).Scan(&f.ID, &f.ChannelID, &f.TypeTag, &f.Label, &f.Price, &f.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *AdFormatRepo) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]models.AdFormat, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, channel_id, type_tag, label, price, active FROM ad_formats
		WHERE channel_id = $1 AND active = true
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AdFormat
	for rows.Next() {
		var f models.AdFormat
		if err := rows.Scan(&f.ID, &f.ChannelID, &f.TypeTag, &f.Label, &f.Price, &f.Active); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
