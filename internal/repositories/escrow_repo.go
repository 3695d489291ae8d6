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

// TransactionRepo stores the immutable on-chain activity log for a deal's
// escrow wallet: one row per confirmed deposit, release, or refund.
type TransactionRepo struct {
	q store.Querier
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{q: pool}
}

func (r *TransactionRepo) WithQuerier(q store.Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

func (r *TransactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO transactions (deal_id, type, amount, source_address, dest_address, chain_tx_id, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, created_at
	`, t.DealID, t.Type, t.Amount, t.SourceAddress, t.DestAddress, t.ChainTxID).Scan(&t.ID, &t.CreatedAt)
}

func (r *TransactionRepo) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]models.Transaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, deal_id, type, amount, source_address, dest_address, chain_tx_id, confirmed_at, created_at
		FROM transactions WHERE deal_id = $1 ORDER BY created_at ASC
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.DealID, &t.Type, &t.Amount, &t.SourceAddress, &t.DestAddress,
			&t.ChainTxID, &t.ConfirmedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// PurgeByDeal strips the on-chain identifiers from every transaction row
// for dealID: chain_tx_id is nulled and the NOT NULL address columns are
// blanked to empty strings. The rows themselves (type, amount, timestamps)
// are kept. Called only by the retention purge worker, inside the same
// transaction as the DealReceipt insert.
func (r *TransactionRepo) PurgeByDeal(ctx context.Context, dealID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		UPDATE transactions SET source_address = '', dest_address = '', chain_tx_id = NULL WHERE deal_id = $1
	`, dealID)
	return err
}

// PendingTransferRepo is the crash-safe continuation record for
// internal/saga's two-hop escrow settlement.
type PendingTransferRepo struct {
	q store.Querier
}

func NewPendingTransferRepo(pool *pgxpool.Pool) *PendingTransferRepo {
	return &PendingTransferRepo{q: pool}
}

func (r *PendingTransferRepo) WithQuerier(q store.Querier) *PendingTransferRepo {
	return &PendingTransferRepo{q: q}
}

func (r *PendingTransferRepo) Create(ctx context.Context, pt *models.PendingTransfer) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO pending_transfers (deal_id, saga_type, recipient_address, amount, retry_count)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id, created_at, updated_at
	`, pt.DealID, pt.SagaType, pt.RecipientAddress, pt.Amount).Scan(&pt.ID, &pt.CreatedAt, &pt.UpdatedAt)
}

func scanPendingTransfer(row pgx.Row) (*models.PendingTransfer, error) {
	var pt models.PendingTransfer
	err := row.Scan(&pt.ID, &pt.DealID, &pt.SagaType, &pt.RecipientAddress, &pt.Amount, &pt.Hop1TxID, &pt.Hop2TxID,
		&pt.RetryCount, &pt.LastError, &pt.CompletedAt, &pt.CreatedAt, &pt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pt, nil
}

func (r *PendingTransferRepo) GetByDealID(ctx context.Context, dealID uuid.UUID) (*models.PendingTransfer, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, deal_id, saga_type, recipient_address, amount, hop1_tx_id, hop2_tx_id,
		       retry_count, last_error, completed_at, created_at, updated_at
		FROM pending_transfers WHERE deal_id = $1
	`, dealID)
	return scanPendingTransfer(row)
}

func (r *PendingTransferRepo) SetHop1(ctx context.Context, id uuid.UUID, txID string) error {
	_, err := r.q.Exec(ctx, `UPDATE pending_transfers SET hop1_tx_id = $1, updated_at = now() WHERE id = $2`, txID, id)
	return err
}

func (r *PendingTransferRepo) SetHop2Complete(ctx context.Context, id uuid.UUID, txID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE pending_transfers SET hop2_tx_id = $1, completed_at = now(), updated_at = now() WHERE id = $2
	`, txID, id)
	return err
}

func (r *PendingTransferRepo) RecordFailure(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE pending_transfers SET retry_count = retry_count + 1, last_error = $1, updated_at = now() WHERE id = $2
	`, errMsg, id)
	return err
}

// ListIncomplete returns every saga that hasn't reached CompletedAt yet,
// for the worker's crash-recovery sweep.
func (r *PendingTransferRepo) ListIncomplete(ctx context.Context) ([]models.PendingTransfer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, deal_id, saga_type, recipient_address, amount, hop1_tx_id, hop2_tx_id,
		       retry_count, last_error, completed_at, created_at, updated_at
		FROM pending_transfers WHERE completed_at IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PendingTransfer
	for rows.Next() {
		var pt models.PendingTransfer
		if err := rows.Scan(&pt.ID, &pt.DealID, &pt.SagaType, &pt.RecipientAddress, &pt.Amount, &pt.Hop1TxID, &pt.Hop2TxID,
			&pt.RetryCount, &pt.LastError, &pt.CompletedAt, &pt.CreatedAt, &pt.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, nil
}
