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

// RequirementRepo stores the conditions a posted deal must satisfy before
// it can complete.
type RequirementRepo struct {
	q store.Querier
}

func NewRequirementRepo(pool *pgxpool.Pool) *RequirementRepo {
	return &RequirementRepo{q: pool}
}

func (r *RequirementRepo) WithQuerier(q store.Querier) *RequirementRepo {
	return &RequirementRepo{q: q}
}

func (r *RequirementRepo) Create(ctx context.Context, req *models.DealRequirement) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO deal_requirements (deal_id, metric_type, target_value, current_value, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, req.DealID, req.MetricType, req.TargetValue, req.CurrentValue, req.Status).Scan(&req.ID)
}

func (r *RequirementRepo) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]models.DealRequirement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, deal_id, metric_type, target_value, current_value, status, last_checked_at, met_at
		FROM deal_requirements WHERE deal_id = $1
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []models.DealRequirement
	for rows.Next() {
		var req models.DealRequirement
		if err := rows.Scan(&req.ID, &req.DealID, &req.MetricType, &req.TargetValue, &req.CurrentValue,
			&req.Status, &req.LastCheckedAt, &req.MetAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (r *RequirementRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DealRequirement, error) {
	var req models.DealRequirement
	err := r.q.QueryRow(ctx, `
		SELECT id, deal_id, metric_type, target_value, current_value, status, last_checked_at, met_at
		FROM deal_requirements WHERE id = $1
	`, id).Scan(&req.ID, &req.DealID, &req.MetricType, &req.TargetValue, &req.CurrentValue,
		&req.Status, &req.LastCheckedAt, &req.MetAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateProgress records a freshly measured value. It never writes Met or
// Waived here — the evaluator decides those separately so the latching
// invariant lives in one place (internal/requirement).
func (r *RequirementRepo) UpdateProgress(ctx context.Context, id uuid.UUID, currentValue int64) error {
	_, err := r.q.Exec(ctx, `
		UPDATE deal_requirements SET current_value = $1, last_checked_at = now() WHERE id = $2
	`, currentValue, id)
	return err
}

func (r *RequirementRepo) MarkStatus(ctx context.Context, id uuid.UUID, status string, metAt bool) error {
	if metAt {
		_, err := r.q.Exec(ctx, `
			UPDATE deal_requirements SET status = $1, met_at = now(), last_checked_at = now() WHERE id = $2
		`, status, id)
		return err
	}
	_, err := r.q.Exec(ctx, `
		UPDATE deal_requirements SET status = $1, last_checked_at = now() WHERE id = $2
	`, status, id)
	return err
}
