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

// DisputeRepo stores the escalation record for a deal in DealStatusDisputed.
type DisputeRepo struct {
	q store.Querier
}

func NewDisputeRepo(pool *pgxpool.Pool) *DisputeRepo {
	return &DisputeRepo{q: pool}
}

func (r *DisputeRepo) WithQuerier(q store.Querier) *DisputeRepo {
	return &DisputeRepo{q: q}
}

func (r *DisputeRepo) Create(ctx context.Context, d *models.Dispute) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO disputes (deal_id, opened_by, reason, status, mutual_deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, d.DealID, d.OpenedBy, d.Reason, d.Status, d.MutualDeadline).Scan(&d.ID, &d.CreatedAt)
}

func scanDispute(row pgx.Row) (*models.Dispute, error) {
	var d models.Dispute
	err := row.Scan(&d.ID, &d.DealID, &d.OpenedBy, &d.Reason, &d.Status, &d.MutualDeadline,
		&d.OwnerProposal, &d.AdvertiserProposal, &d.OwnerSplitPercent, &d.AdvertiserSplitPercent,
		&d.ResolvedOutcome, &d.ResolvedSplitPercent, &d.ResolvedBy, &d.ResolvedReason, &d.ResolvedAt,
		&d.EscalatedAt, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var disputeColumns = `id, deal_id, opened_by, reason, status, mutual_deadline,
	owner_proposal, advertiser_proposal, owner_split_percent, advertiser_split_percent,
	resolved_outcome, resolved_split_percent, resolved_by, resolved_reason, resolved_at,
	escalated_at, created_at`

func (r *DisputeRepo) GetByDealID(ctx context.Context, dealID uuid.UUID) (*models.Dispute, error) {
	row := r.q.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE deal_id = $1`, dealID)
	return scanDispute(row)
}

func (r *DisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	row := r.q.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	return scanDispute(row)
}

// ListPastMutualDeadline backs the worker's escalation scan: open disputes
// whose mutual-resolution window has elapsed.
func (r *DisputeRepo) ListPastMutualDeadline(ctx context.Context) ([]models.Dispute, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+disputeColumns+` FROM disputes
		WHERE status IN ('open', 'mutual_resolution') AND mutual_deadline < now()
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *DisputeRepo) SetProposal(ctx context.Context, id uuid.UUID, ownerProposal, advertiserProposal *string,
	ownerSplit, advertiserSplit *float64, status string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE disputes SET owner_proposal = COALESCE($1, owner_proposal),
		                    advertiser_proposal = COALESCE($2, advertiser_proposal),
		                    owner_split_percent = COALESCE($3, owner_split_percent),
		                    advertiser_split_percent = COALESCE($4, advertiser_split_percent),
		                    status = $5
		WHERE id = $6
	`, ownerProposal, advertiserProposal, ownerSplit, advertiserSplit, status, id)
	return err
}

func (r *DisputeRepo) SetEscalated(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `UPDATE disputes SET status = $1, escalated_at = now() WHERE id = $2`,
		models.DisputeStatusAdminReview, id)
	return err
}

func (r *DisputeRepo) Resolve(ctx context.Context, id uuid.UUID, outcome string, splitPercent *float64,
	resolvedBy *uuid.UUID, reason string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE disputes SET status = $1, resolved_outcome = $2, resolved_split_percent = $3,
		                    resolved_by = $4, resolved_reason = $5, resolved_at = now()
		WHERE id = $6
	`, models.DisputeStatusResolved, outcome, splitPercent, resolvedBy, reason, id)
	return err
}

// DisputeEvidenceRepo stores supporting attachments submitted while a
// dispute is open.
type DisputeEvidenceRepo struct {
	q store.Querier
}

func NewDisputeEvidenceRepo(pool *pgxpool.Pool) *DisputeEvidenceRepo {
	return &DisputeEvidenceRepo{q: pool}
}

func (r *DisputeEvidenceRepo) WithQuerier(q store.Querier) *DisputeEvidenceRepo {
	return &DisputeEvidenceRepo{q: q}
}

func (r *DisputeEvidenceRepo) Create(ctx context.Context, e *models.DisputeEvidence) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO dispute_evidence (dispute_id, submitted_by, description, url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, e.DisputeID, e.SubmittedBy, e.Description, e.URL).Scan(&e.ID, &e.CreatedAt)
}

func (r *DisputeEvidenceRepo) ListByDispute(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvidence, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, dispute_id, submitted_by, description, url, created_at
		FROM dispute_evidence WHERE dispute_id = $1 ORDER BY created_at ASC
	`, disputeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DisputeEvidence
	for rows.Next() {
		var e models.DisputeEvidence
		if err := rows.Scan(&e.ID, &e.DisputeID, &e.SubmittedBy, &e.Description, &e.URL, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
