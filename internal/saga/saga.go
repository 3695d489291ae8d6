// Package saga implements the escrow release/refund coordinator
// (component I): a two-hop relay, escrow wallet -> master wallet -> payee,
// that breaks on-chain linkability between a specific escrow and its
// payee. Every hop is recorded on a PendingTransfer row so a crash between
// hops can be resumed instead of re-executed from scratch; hop 1 is a
// sunk cost once it clears, hop 2 is always the retry point.
package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/sponsorlink/dealcore/internal/chain"
	"github.com/sponsorlink/dealcore/internal/dealengine"
	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/money"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrNoPayoutWallet is returned when the recipient user has not linked a
// payout wallet address yet.
var ErrNoPayoutWallet = errors.New("saga: recipient has no payout wallet address")

type Coordinator struct {
	store        *store.Store
	deals        *repositories.DealRepo
	channels     *repositories.ChannelRepo
	users        *repositories.UserRepo
	transactions *repositories.TransactionRepo
	transfers    *repositories.PendingTransferRepo
	chain        *chain.Client
	engine       *dealengine.Engine
	log          *zap.Logger
}

func New(st *store.Store, deals *repositories.DealRepo, channels *repositories.ChannelRepo, users *repositories.UserRepo,
	transactions *repositories.TransactionRepo, transfers *repositories.PendingTransferRepo, chainClient *chain.Client,
	engine *dealengine.Engine, log *zap.Logger) *Coordinator {
	return &Coordinator{store: st, deals: deals, channels: channels, users: users, transactions: transactions,
		transfers: transfers, chain: chainClient, engine: engine, log: log}
}

// ReleaseFunds pays the channel owner amount-minus-fee and transitions the
// deal to Completed.
func (c *Coordinator) ReleaseFunds(ctx context.Context, dealID uuid.UUID) error {
	deal, err := c.deals.GetByID(ctx, dealID)
	if err != nil {
		return err
	}
	channel, err := c.channels.GetByID(ctx, deal.ChannelID)
	if err != nil {
		return err
	}
	owner, err := c.users.GetByID(ctx, channel.OwnerUserID)
	if err != nil {
		return err
	}
	if owner.PayoutWalletAddress == nil {
		return fmt.Errorf("%w: deal %s owner %s", ErrNoPayoutWallet, dealID, owner.ID)
	}

	amount, err := money.Parse(deal.Amount)
	if err != nil {
		return err
	}
	split := money.SubtractFee(amount, deal.PlatformFeePercent)

	// Hop 1 sweeps the full deposit out of escrow; hop 2 pays the owner
	// their net share and leaves the fee behind in the master wallet.
	return c.run(ctx, dealID, models.SagaTypeRelease, *owner.PayoutWalletAddress, amount, split.Payout,
		models.TransactionTypeRelease, models.DealStatusCompleted, "funds_released")
}

// RefundFunds returns the full deposited amount (no fee) to the advertiser
// and transitions the deal to Refunded.
func (c *Coordinator) RefundFunds(ctx context.Context, dealID uuid.UUID) error {
	deal, err := c.deals.GetByID(ctx, dealID)
	if err != nil {
		return err
	}
	advertiser, err := c.users.GetByID(ctx, deal.AdvertiserUserID)
	if err != nil {
		return err
	}
	if advertiser.PayoutWalletAddress == nil {
		return fmt.Errorf("%w: deal %s advertiser %s", ErrNoPayoutWallet, dealID, advertiser.ID)
	}

	amount, err := money.Parse(deal.Amount)
	if err != nil {
		return err
	}

	return c.run(ctx, dealID, models.SagaTypeRefund, *advertiser.PayoutWalletAddress, amount, amount,
		models.TransactionTypeRefund, models.DealStatusRefunded, "funds_refunded")
}

// run drives one saga to completion (or resumes one already in progress),
// working off whatever PendingTransfer row already exists for dealID —
// ReleaseFunds and RefundFunds are mutually exclusive per deal, so there
// is at most one live saga row at a time.
//
// fullAmount is what hop 1 sweeps out of the escrow wallet; finalAmount is
// what the recipient actually receives. They differ for a release (full
// deposit out of escrow, net-of-fee into the owner's pocket) and are equal
// for a refund. When no master wallet is configured, hop 1 goes straight to
// the recipient and moves finalAmount instead, since there is no second hop
// left to carry the fee split.
func (c *Coordinator) run(ctx context.Context, dealID uuid.UUID, sagaType, recipientAddress string, fullAmount, finalAmount money.Money,
	txType, terminalStatus, eventType string) error {

	deal, err := c.deals.GetByID(ctx, dealID)
	if err != nil {
		return err
	}
	if deal.EscrowAddress == nil || deal.EscrowEncryptedMnemonic == nil {
		return fmt.Errorf("saga: deal %s has no escrow wallet", dealID)
	}

	pt, err := c.transfers.GetByDealID(ctx, dealID)
	if errors.Is(err, store.ErrNotFound) {
		pt = &models.PendingTransfer{DealID: dealID, SagaType: sagaType, RecipientAddress: recipientAddress, Amount: finalAmount.String()}
		if err := c.transfers.Create(ctx, pt); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	if pt.IsComplete() {
		return nil
	}

	hop1Source := *deal.EscrowAddress
	hop1Dest := recipientAddress
	hop1Amount := finalAmount
	singleHop := !c.chain.HasMasterWallet()
	if !singleHop {
		masterAddr, _ := c.chain.MasterAddress()
		hop1Dest = masterAddr
		hop1Amount = fullAmount
	}

	if pt.Hop1TxID == nil {
		txID, err := c.chain.TransferFunds(ctx, *deal.EscrowEncryptedMnemonic, hop1Dest, hop1Amount.ToNano())
		if err != nil {
			_ = c.transfers.RecordFailure(ctx, pt.ID, err.Error())
			return fmt.Errorf("saga: hop1 transfer: %w", err)
		}
		if err := c.transfers.SetHop1(ctx, pt.ID, txID); err != nil {
			return err
		}
		pt.Hop1TxID = &txID
	}

	if singleHop {
		if err := c.finish(ctx, pt, dealID, deal.Status, *pt.Hop1TxID, hop1Source, recipientAddress, finalAmount, txType, terminalStatus, eventType); err != nil {
			return err
		}
		c.warnIfEscrowDusty(ctx, dealID, hop1Source)
		return nil
	}

	hop2TxID, err := c.chain.TransferFromMaster(ctx, recipientAddress, finalAmount.ToNano())
	if err != nil {
		_ = c.transfers.RecordFailure(ctx, pt.ID, err.Error())
		return fmt.Errorf("saga: hop2 transfer: %w", err)
	}
	masterAddr, _ := c.chain.MasterAddress()
	if err := c.finish(ctx, pt, dealID, deal.Status, hop2TxID, masterAddr, recipientAddress, finalAmount, txType, terminalStatus, eventType); err != nil {
		return err
	}
	c.warnIfEscrowDusty(ctx, dealID, hop1Source)
	return nil
}

// dustThresholdNano is the residual escrow balance above which a completed
// saga's sweep is considered to have left meaningful value behind instead
// of rounding dust. 0.01 TON.
const dustThresholdNano = 10_000_000

// warnIfEscrowDusty checks the now-settled escrow wallet's balance and logs
// a warning if it is still above dust. It never fails the saga — the funds
// have already moved and the deal has already transitioned — this is an
// observability check, not a correctness gate.
func (c *Coordinator) warnIfEscrowDusty(ctx context.Context, dealID uuid.UUID, escrowAddress string) {
	balance, err := c.chain.GetBalance(ctx, escrowAddress)
	if err != nil {
		c.log.Warn("saga: could not verify escrow dust after settlement",
			zap.String("deal_id", dealID.String()), zap.Error(err))
		return
	}
	if balance > dustThresholdNano {
		c.log.Warn("saga: escrow wallet retains non-dust balance after settlement",
			zap.String("deal_id", dealID.String()), zap.String("escrow_address", escrowAddress), zap.Int64("balance_nano", balance))
	}
}

// finish records the settled hop, the Transaction row, and the terminal
// deal transition in one commit. This ordering matters for crash safety:
// PendingTransfer.CompletedAt is the signal that tells the worker's
// ListIncomplete scan to stop retrying a saga, so it must never be set
// until the Transaction and the deal's terminal status are durable too —
// otherwise a crash between the separate writes would leave the deal
// stuck non-terminal with no saga left to resume it.
func (c *Coordinator) finish(ctx context.Context, pt *models.PendingTransfer, dealID uuid.UUID, oldStatus, txID, sourceAddr, destAddr string,
	amount money.Money, txType, terminalStatus, eventType string) error {

	err := c.store.WithTx(ctx, func(ctx context.Context, dtx pgx.Tx) error {
		if err := store.LockDeal(ctx, dtx, dealID); err != nil {
			return err
		}
		if err := c.transfers.WithQuerier(dtx).SetHop2Complete(ctx, pt.ID, txID); err != nil {
			return err
		}

		txRecord := &models.Transaction{
			DealID:        dealID,
			Type:          txType,
			Amount:        amount.String(),
			SourceAddress: sourceAddr,
			DestAddress:   destAddr,
			ChainTxID:     &txID,
		}
		if err := c.transactions.WithQuerier(dtx).Create(ctx, txRecord); err != nil {
			return err
		}

		_, err := c.engine.TransitionInTx(ctx, dtx, dealID, terminalStatus, eventType, nil, map[string]any{"chain_tx_id": txID})
		return err
	})
	if err != nil {
		return err
	}
	c.engine.Notify(ctx, dealID, oldStatus, terminalStatus, eventType)
	return nil
}
