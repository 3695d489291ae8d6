package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DealRepo is built against store.Querier so the same repo works whether
// it's handed the pool directly or a transaction from store.Store.WithTx.
type DealRepo struct {
	q store.Querier
}

func NewDealRepo(pool *pgxpool.Pool) *DealRepo {
	return &DealRepo{q: pool}
}

// WithQuerier returns a repo bound to a transaction instead of the pool —
// callers inside store.Store.WithTx use this to keep a deal write in the
// same transaction as the row lock and the DealEvent insert.
func (r *DealRepo) WithQuerier(q store.Querier) *DealRepo {
	return &DealRepo{q: q}
}

func (r *DealRepo) Create(ctx context.Context, d *models.Deal) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO deals (channel_id, ad_format_id, advertiser_user_id, status, amount, platform_fee_percent,
		                    owner_alias, advertiser_alias, timeout_at, verification_window_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, d.ChannelID, d.AdFormatID, d.AdvertiserUserID, d.Status, d.Amount, d.PlatformFeePercent,
		d.OwnerAlias, d.AdvertiserAlias, d.TimeoutAt, d.VerificationWindowHours,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var d models.Deal
	err := row.Scan(&d.ID, &d.ChannelID, &d.AdFormatID, &d.AdvertiserUserID, &d.Status, &d.Amount, &d.PlatformFeePercent,
		&d.OwnerAlias, &d.AdvertiserAlias, &d.EscrowAddress, &d.EscrowEncryptedMnemonic, &d.TimeoutAt,
		&d.VerificationWindowHours, &d.TrackingStartedAt, &d.PostedPlatformID, &d.PostProofURL, &d.ContentHash,
		&d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DealRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, channel_id, ad_format_id, advertiser_user_id, status, amount, platform_fee_percent,
		       owner_alias, advertiser_alias, escrow_address, escrow_encrypted_mnemonic, timeout_at,
		       verification_window_hours, tracking_started_at, posted_platform_id, post_proof_url, content_hash,
		       completed_at, created_at, updated_at
		FROM deals WHERE id = $1
	`, id)
	return scanDeal(row)
}

func (r *DealRepo) GetByIDWithChannel(ctx context.Context, id uuid.UUID) (*models.DealWithChannel, error) {
	var d models.DealWithChannel
	err := r.q.QueryRow(ctx, `
		SELECT d.id, d.channel_id, d.ad_format_id, d.advertiser_user_id, d.status, d.amount, d.platform_fee_percent,
		       d.owner_alias, d.advertiser_alias, d.escrow_address, d.escrow_encrypted_mnemonic, d.timeout_at,
		       d.verification_window_hours, d.tracking_started_at, d.posted_platform_id, d.post_proof_url, d.content_hash,
		       d.completed_at, d.created_at, d.updated_at,
		       c.title, c.platform_tag
		FROM deals d
		JOIN channels c ON c.id = d.channel_id
		WHERE d.id = $1
	`, id).Scan(
		&d.ID, &d.ChannelID, &d.AdFormatID, &d.AdvertiserUserID, &d.Status, &d.Amount, &d.PlatformFeePercent,
		&d.OwnerAlias, &d.AdvertiserAlias, &d.EscrowAddress, &d.EscrowEncryptedMnemonic, &d.TimeoutAt,
		&d.VerificationWindowHours, &d.TrackingStartedAt, &d.PostedPlatformID, &d.PostProofURL, &d.ContentHash,
		&d.CompletedAt, &d.CreatedAt, &d.UpdatedAt,
		&d.ChannelTitle, &d.PlatformTag,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateStatus is a bare status write with no validation — callers that
// need the transition checked and recorded go through internal/dealengine
// instead, which wraps this in store.WithTx alongside a DealEvent insert.
func (r *DealRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.q.Exec(ctx, `UPDATE deals SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return err
}

func (r *DealRepo) SetCompletedNow(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `UPDATE deals SET completed_at = now(), updated_at = now() WHERE id = $1`, id)
	return err
}

// SetTimeoutAt sets or clears the soft-timeout deadline. Called by
// internal/dealengine on every transition per the per-state timeout table.
func (r *DealRepo) SetTimeoutAt(ctx context.Context, id uuid.UUID, timeoutAt *time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE deals SET timeout_at = $1, updated_at = now() WHERE id = $2`, timeoutAt, id)
	return err
}

func (r *DealRepo) SetEscrow(ctx context.Context, id uuid.UUID, address, encryptedMnemonic string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE deals SET escrow_address = $1, escrow_encrypted_mnemonic = $2, updated_at = now() WHERE id = $3
	`, address, encryptedMnemonic, id)
	return err
}

func (r *DealRepo) SetTrackingStarted(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `UPDATE deals SET tracking_started_at = now(), updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *DealRepo) SetPostProof(ctx context.Context, id uuid.UUID, platformPostID, proofURL, contentHash string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE deals SET posted_platform_id = $1, post_proof_url = $2, content_hash = $3, updated_at = now()
		WHERE id = $4
	`, platformPostID, proofURL, contentHash, id)
	return err
}

// PurgeSensitiveFields nulls every column the purge receipt replaces.
// Callers must already hold the deal lock and be inside the same
// transaction that inserted the DealReceipt.
func (r *DealRepo) PurgeSensitiveFields(ctx context.Context, id uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		UPDATE deals SET escrow_address = NULL, escrow_encrypted_mnemonic = NULL, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// GetCompletedBeforeWithoutReceipt backs the purge worker's scan: deals
// whose retention window has elapsed and that have not been purged yet.
func (r *DealRepo) GetCompletedBeforeWithoutReceipt(ctx context.Context, retentionDays int) ([]models.Deal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT d.id, d.channel_id, d.ad_format_id, d.advertiser_user_id, d.status, d.amount, d.platform_fee_percent,
		       d.owner_alias, d.advertiser_alias, d.escrow_address, d.escrow_encrypted_mnemonic, d.timeout_at,
		       d.verification_window_hours, d.tracking_started_at, d.posted_platform_id, d.post_proof_url, d.content_hash,
		       d.completed_at, d.created_at, d.updated_at
		FROM deals d
		WHERE d.completed_at IS NOT NULL
		  AND d.completed_at < now() - ($1 || ' days')::interval
		  AND NOT EXISTS (SELECT 1 FROM deal_receipts r WHERE r.deal_id = d.id)
	`, fmt.Sprintf("%d", retentionDays))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, nil
}

type DealFilter struct {
	ChannelID        *uuid.UUID
	AdvertiserUserID *uuid.UUID
	OwnerUserID      *uuid.UUID // through channel ownership
	Status           *string
	Limit            int
	Offset           int
}

func (r *DealRepo) List(ctx context.Context, f DealFilter) ([]models.Deal, error) {
	query := `
		SELECT d.id, d.channel_id, d.ad_format_id, d.advertiser_user_id, d.status, d.amount, d.platform_fee_percent,
		       d.owner_alias, d.advertiser_alias, d.escrow_address, d.escrow_encrypted_mnemonic, d.timeout_at,
		       d.verification_window_hours, d.tracking_started_at, d.posted_platform_id, d.post_proof_url, d.content_hash,
		       d.completed_at, d.created_at, d.updated_at
		FROM deals d
	`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.ChannelID != nil {
		where = append(where, fmt.Sprintf("d.channel_id = $%d", argIdx))
		args = append(args, *f.ChannelID)
		argIdx++
	}
	if f.AdvertiserUserID != nil {
		where = append(where, fmt.Sprintf("d.advertiser_user_id = $%d", argIdx))
		args = append(args, *f.AdvertiserUserID)
		argIdx++
	}
	if f.OwnerUserID != nil {
		query += ` JOIN channels c ON c.id = d.channel_id`
		where = append(where, fmt.Sprintf("c.owner_user_id = $%d", argIdx))
		args = append(args, *f.OwnerUserID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("d.status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY d.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, nil
}

// GetByStatusOlderThan backs the soft-timeout scan: deals that have sat in
// status since before the cutoff.
func (r *DealRepo) GetByStatusOlderThan(ctx context.Context, status string, cutoffSeconds int) ([]models.Deal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, channel_id, ad_format_id, advertiser_user_id, status, amount, platform_fee_percent,
		       owner_alias, advertiser_alias, escrow_address, escrow_encrypted_mnemonic, timeout_at,
		       verification_window_hours, tracking_started_at, posted_platform_id, post_proof_url, content_hash,
		       completed_at, created_at, updated_at
		FROM deals
		WHERE status = $1 AND updated_at < now() - ($2 || ' seconds')::interval
	`, status, fmt.Sprintf("%d", cutoffSeconds))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, nil
}

// GetTimedOut backs the timeout sweep: deals whose soft timeout has
// elapsed and that haven't already settled into a terminal state or
// TimedOut itself.
func (r *DealRepo) GetTimedOut(ctx context.Context) ([]models.Deal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, channel_id, ad_format_id, advertiser_user_id, status, amount, platform_fee_percent,
		       owner_alias, advertiser_alias, escrow_address, escrow_encrypted_mnemonic, timeout_at,
		       verification_window_hours, tracking_started_at, posted_platform_id, post_proof_url, content_hash,
		       completed_at, created_at, updated_at
		FROM deals
		WHERE timeout_at IS NOT NULL AND timeout_at <= now()
		  AND status NOT IN ('completed', 'cancelled', 'refunded', 'timed_out')
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, nil
}

// GetTrackingDealsPastWindow backs the verification worker: deals whose
// VerificationWindowHours has elapsed since TrackingStartedAt.
func (r *DealRepo) GetTrackingDealsPastWindow(ctx context.Context) ([]models.Deal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, channel_id, ad_format_id, advertiser_user_id, status, amount, platform_fee_percent,
		       owner_alias, advertiser_alias, escrow_address, escrow_encrypted_mnemonic, timeout_at,
		       verification_window_hours, tracking_started_at, posted_platform_id, post_proof_url, content_hash,
		       completed_at, created_at, updated_at
		FROM deals
		WHERE status = 'tracking'
		  AND tracking_started_at IS NOT NULL
		  AND tracking_started_at + (verification_window_hours || ' hours')::interval < now()
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, nil
}
