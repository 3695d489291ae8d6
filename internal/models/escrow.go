package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types recorded against a deal's escrow activity.
const (
	TransactionTypeDeposit = "deposit"
	TransactionTypeRelease = "release"
	TransactionTypeRefund  = "refund"
)

// Transaction is an immutable record of one on-chain operation tied to a
// deal's escrow wallet — funding in, or payout/refund out.
type Transaction struct {
	ID            uuid.UUID  `json:"id"`
	DealID        uuid.UUID  `json:"deal_id"`
	Type          string     `json:"type"`
	Amount        string     `json:"amount"`
	SourceAddress string     `json:"source_address"`
	DestAddress   string     `json:"dest_address"`
	ChainTxID     *string    `json:"chain_tx_id,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Saga types for a PendingTransfer.
const (
	SagaTypeRelease = "release"
	SagaTypeRefund  = "refund"
)

// PendingTransfer is the crash-safe continuation record for the two-hop
// escrow->master->payee saga. The row itself is the saga state: hop1TxID
// set means the first hop cleared, hop2TxID set means the whole transfer
// completed, and CompletedAt is only set once both hops (or the single hop,
// when no master wallet is configured) have confirmed.
type PendingTransfer struct {
	ID               uuid.UUID  `json:"id"`
	DealID           uuid.UUID  `json:"deal_id"`
	SagaType         string     `json:"saga_type"`
	RecipientAddress string     `json:"recipient_address"`
	Amount           string     `json:"amount"`
	Hop1TxID         *string    `json:"hop1_tx_id,omitempty"`
	Hop2TxID         *string    `json:"hop2_tx_id,omitempty"`
	RetryCount       int        `json:"retry_count"`
	LastError        *string    `json:"last_error,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsComplete reports whether the saga has fully settled.
func (p *PendingTransfer) IsComplete() bool {
	return p.CompletedAt != nil
}
