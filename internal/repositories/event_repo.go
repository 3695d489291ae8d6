package repositories

import (
	"context"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepo persists the DealEvent audit trail. Every status transition
// writes exactly one row here, in the same transaction as the status
// write itself — see internal/dealengine.
type EventRepo struct {
	q store.Querier
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{q: pool}
}

func (r *EventRepo) WithQuerier(q store.Querier) *EventRepo {
	return &EventRepo{q: q}
}

func (r *EventRepo) Create(ctx context.Context, e *models.DealEvent) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO deal_events (deal_id, event_type, old_status, new_status, actor_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.DealID, e.EventType, e.OldStatus, e.NewStatus, e.ActorID, e.Metadata).Scan(&e.ID, &e.CreatedAt)
}

func (r *EventRepo) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]models.DealEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, deal_id, event_type, old_status, new_status, actor_id, metadata, created_at
		FROM deal_events WHERE deal_id = $1 ORDER BY created_at ASC
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DealEvent
	for rows.Next() {
		var e models.DealEvent
		if err := rows.Scan(&e.ID, &e.DealID, &e.EventType, &e.OldStatus, &e.NewStatus,
			&e.ActorID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteByDeal removes every event row for a deal — used only by the purge
// flow, inside the same transaction as the DealReceipt insert.
func (r *EventRepo) DeleteByDeal(ctx context.Context, dealID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `DELETE FROM deal_events WHERE deal_id = $1`, dealID)
	return err
}
