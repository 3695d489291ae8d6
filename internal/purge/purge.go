// Package purge implements the receipt/purge flow (component L): once a
// deal has sat in a terminal state past its retention window, its
// sensitive fields are replaced by a single tamper-evident DealReceipt.
// The receipt's existence and the purged state of those fields are kept
// in lockstep — both happen in one transaction, never one without the
// other.
package purge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/privacy"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrNotTerminal is returned when PurgeDeal is asked to purge a deal that
// hasn't reached a completed state yet.
var ErrNotTerminal = errors.New("purge: deal has not completed")

type Worker struct {
	store        *store.Store
	deals        *repositories.DealRepo
	channels     *repositories.ChannelRepo
	creatives    *repositories.CreativeRepo
	transactions *repositories.TransactionRepo
	events       *repositories.EventRepo
	receipts     *repositories.ReceiptRepo
	log          *zap.Logger
}

func New(st *store.Store, deals *repositories.DealRepo, channels *repositories.ChannelRepo,
	creatives *repositories.CreativeRepo, transactions *repositories.TransactionRepo, events *repositories.EventRepo,
	receipts *repositories.ReceiptRepo, log *zap.Logger) *Worker {
	return &Worker{store: st, deals: deals, channels: channels, creatives: creatives, transactions: transactions,
		events: events, receipts: receipts, log: log}
}

// PurgeDeal writes dealID's DealReceipt and nulls every sensitive column
// the receipt replaces, all in one transaction. Idempotent: if a receipt
// already exists the call is a no-op, so the worker's scan can safely
// retry a deal it already purged.
func (w *Worker) PurgeDeal(ctx context.Context, dealID uuid.UUID) error {
	return w.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}

		if _, err := w.receipts.WithQuerier(tx).GetByDealID(ctx, dealID); err == nil {
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		deal, err := w.deals.WithQuerier(tx).GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.CompletedAt == nil {
			return fmt.Errorf("%w: deal %s", ErrNotTerminal, dealID)
		}

		channel, err := w.channels.GetByID(ctx, deal.ChannelID)
		if err != nil {
			return err
		}

		hash, err := hashFields(deal)
		if err != nil {
			return err
		}

		receipt := &models.DealReceipt{
			DealID:          deal.ID,
			ChannelTitle:    channel.Title,
			OwnerAlias:      deal.OwnerAlias,
			AdvertiserAlias: deal.AdvertiserAlias,
			Amount:          deal.Amount,
			FinalStatus:     deal.Status,
			CompletedAt:     *deal.CompletedAt,
			DataHash:        hash,
		}
		if err := w.receipts.WithQuerier(tx).Create(ctx, receipt); err != nil {
			return err
		}

		if err := w.deals.WithQuerier(tx).PurgeSensitiveFields(ctx, dealID); err != nil {
			return err
		}
		if err := w.creatives.WithQuerier(tx).PurgeByDeal(ctx, dealID); err != nil {
			return err
		}
		if err := w.transactions.WithQuerier(tx).PurgeByDeal(ctx, dealID); err != nil {
			return err
		}
		if err := w.events.WithQuerier(tx).DeleteByDeal(ctx, dealID); err != nil {
			return err
		}

		w.log.Info("deal purged", zap.String("deal_id", dealID.String()))
		return nil
	})
}

// hashFields builds the tamper-evident digest over exactly the fields the
// purge replaces — id, channelId, advertiserId, amount, final status,
// escrowAddress, completed_at — so the receipt can later prove a deal
// matched a given set of original values without retaining them.
func hashFields(deal *models.Deal) (string, error) {
	escrowAddress := ""
	if deal.EscrowAddress != nil {
		escrowAddress = *deal.EscrowAddress
	}
	return privacy.HashDealData(map[string]any{
		"id":             deal.ID.String(),
		"channel_id":     deal.ChannelID.String(),
		"advertiser_id":  deal.AdvertiserUserID.String(),
		"amount":         deal.Amount,
		"final_status":   deal.Status,
		"escrow_address": escrowAddress,
		"completed_at":   deal.CompletedAt.UTC().Format(time.RFC3339),
	})
}
