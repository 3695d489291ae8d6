// Package worker implements the seven periodic processor functions
// (component K) that drive a deal forward without a human request:
// payment detection, timeout sweeps, metric tracking, channel stats
// refresh, saga crash recovery, purge, and dispute escalation. Each is a
// pure function of the database's current state — scheduling (how often,
// on what replica) is deliberately left to whatever external scheduler
// calls these. Every processor takes a per-target Redis lock first so
// concurrent scheduler replicas never duplicate work.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sponsorlink/dealcore/internal/chain"
	"github.com/sponsorlink/dealcore/internal/creative"
	"github.com/sponsorlink/dealcore/internal/dealengine"
	"github.com/sponsorlink/dealcore/internal/dispute"
	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/money"
	"github.com/sponsorlink/dealcore/internal/platform"
	"github.com/sponsorlink/dealcore/internal/purge"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/requirement"
	"github.com/sponsorlink/dealcore/internal/saga"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Config holds the tunables the scheduler's processors read — everything
// else about scheduling (tick interval, replica count) lives outside this
// package; cmd/worker sets the tick intervals.
type Config struct {
	// RetentionDays is how long a completed deal's sensitive fields
	// survive before the purge worker replaces them with a receipt.
	RetentionDays int
	// StatsRefreshStaleAfter is how old a channel's stats must be before
	// it's a candidate for refresh.
	StatsRefreshStaleAfter time.Duration
	// StatsRefreshBatchSize caps how many channels one cycle refreshes.
	StatsRefreshBatchSize int
}

func DefaultConfig() Config {
	return Config{
		RetentionDays:          30,
		StatsRefreshStaleAfter: 6 * time.Hour,
		StatsRefreshBatchSize:  50,
	}
}

type Scheduler struct {
	cfg Config

	store        *store.Store
	deals        *repositories.DealRepo
	channels     *repositories.ChannelRepo
	requirements *repositories.RequirementRepo
	transactions *repositories.TransactionRepo
	transfers    *repositories.PendingTransferRepo
	disputes     *repositories.DisputeRepo

	chain     *chain.Client
	engine    *dealengine.Engine
	evaluator *requirement.Evaluator
	creatives *creative.Pipeline
	sagaCoord *saga.Coordinator
	disputeP  *dispute.Protocol
	purgeW    *purge.Worker
	registry  *platform.Registry

	locker *Locker
	log    *zap.Logger
}

func New(cfg Config, st *store.Store, deals *repositories.DealRepo, channels *repositories.ChannelRepo,
	requirements *repositories.RequirementRepo, transactions *repositories.TransactionRepo,
	transfers *repositories.PendingTransferRepo, disputes *repositories.DisputeRepo, chainClient *chain.Client,
	engine *dealengine.Engine, evaluator *requirement.Evaluator, creatives *creative.Pipeline,
	sagaCoord *saga.Coordinator, disputeP *dispute.Protocol, purgeW *purge.Worker, registry *platform.Registry,
	locker *Locker, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg: cfg, store: st, deals: deals, channels: channels, requirements: requirements,
		transactions: transactions, transfers: transfers, disputes: disputes, chain: chainClient, engine: engine,
		evaluator: evaluator, creatives: creatives, sagaCoord: sagaCoord, disputeP: disputeP, purgeW: purgeW,
		registry: registry, locker: locker, log: log,
	}
}

func lockKey(scope, id string) string {
	return fmt.Sprintf("lock:%s:%s", scope, id)
}

// withLock runs fn only if key can be locked; it logs and returns nil
// (never an error that would halt a batch) when the lock is already held
// or fails to acquire, matching §7's "one bad/busy item must not halt a
// batch" rule.
func (s *Scheduler) withLock(ctx context.Context, scope, id string, fn func() error) {
	key := lockKey(scope, id)
	release, ok, err := s.locker.TryLock(ctx, key, DefaultTTL)
	if err != nil {
		s.log.Warn("lock acquire failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	defer release()
	if err := fn(); err != nil {
		s.log.Error("worker item failed", zap.String("key", key), zap.Error(err))
	}
}

// RunPaymentDetector is K1: for every deal awaiting payment with an
// escrow wallet, check whether the escrow balance has reached the deal
// amount, and if so advance it to Funded then CreativePending and record
// a deposit transaction — all in one commit.
func (s *Scheduler) RunPaymentDetector(ctx context.Context) error {
	deals, err := s.deals.List(ctx, repositories.DealFilter{Status: strPtr(models.DealStatusPendingPayment), Limit: 200})
	if err != nil {
		return fmt.Errorf("worker: list pending-payment deals: %w", err)
	}
	for _, deal := range deals {
		if deal.EscrowAddress == nil {
			continue
		}
		d := deal
		s.withLock(ctx, "payment-detect", d.ID.String(), func() error {
			return s.detectPayment(ctx, &d)
		})
	}
	return nil
}

func (s *Scheduler) detectPayment(ctx context.Context, deal *models.Deal) error {
	balance, err := s.chain.GetBalance(ctx, *deal.EscrowAddress)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	amount, err := money.Parse(deal.Amount)
	if err != nil {
		return err
	}
	if balance < amount.ToNano() {
		return nil
	}

	advanced := false
	err = s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, deal.ID); err != nil {
			return err
		}
		current, err := s.deals.WithQuerier(tx).GetByID(ctx, deal.ID)
		if err != nil {
			return err
		}
		if current.Status != models.DealStatusPendingPayment {
			return nil // another replica already advanced it
		}
		advanced = true

		meta := map[string]any{"balance_nano": balance}
		if _, err := s.engine.TransitionInTx(ctx, tx, deal.ID, models.DealStatusFunded, "payment_detected", nil, meta); err != nil {
			return err
		}
		if _, err := s.engine.TransitionInTx(ctx, tx, deal.ID, models.DealStatusCreativePending, "escrow_funded", nil, nil); err != nil {
			return err
		}

		txRecord := &models.Transaction{
			DealID:        deal.ID,
			Type:          models.TransactionTypeDeposit,
			Amount:        deal.Amount,
			SourceAddress: "",
			DestAddress:   *deal.EscrowAddress,
		}
		return s.transactions.WithQuerier(tx).Create(ctx, txRecord)
	})
	if err != nil || !advanced {
		return err
	}
	s.engine.Notify(ctx, deal.ID, models.DealStatusPendingPayment, models.DealStatusFunded, "payment_detected")
	s.engine.Notify(ctx, deal.ID, models.DealStatusFunded, models.DealStatusCreativePending, "escrow_funded")
	return nil
}

// RunTimeoutSweep is K2: deals whose soft timeout elapsed move to
// TimedOut; the saga coordinator then attempts an immediate refund when
// the advertiser has a payout wallet, otherwise the deal sits flagged in
// TimedOut awaiting manual resolution.
func (s *Scheduler) RunTimeoutSweep(ctx context.Context) error {
	deals, err := s.deals.GetTimedOut(ctx)
	if err != nil {
		return fmt.Errorf("worker: list timed-out deals: %w", err)
	}
	for _, deal := range deals {
		d := deal
		s.withLock(ctx, "timeout-sweep", d.ID.String(), func() error {
			if _, err := s.engine.Transition(ctx, d.ID, models.DealStatusTimedOut, "soft_timeout", nil, nil); err != nil {
				return fmt.Errorf("transition timed_out: %w", err)
			}
			if err := s.sagaCoord.RefundFunds(ctx, d.ID); err != nil {
				if errors.Is(err, saga.ErrNoPayoutWallet) {
					s.log.Warn("timed-out deal flagged: advertiser has no payout wallet",
						zap.String("deal_id", d.ID.String()))
					return nil
				}
				return fmt.Errorf("refund: %w", err)
			}
			return nil
		})
	}
	return nil
}

// RunMetricTracker is K3: for every deal in Tracking with a posted
// platform ID, fetch live metrics, run the requirement evaluator, and
// either verify (all requirements latched), fail (window elapsed, not all
// latched), or flag an edit. S6's edit-detection runs first — a mismatch
// marks the PostExists requirement EditDetected, and the metrics poll and
// evaluation still run in the same cycle, so a deal whose window has
// elapsed still moves to Failed.
func (s *Scheduler) RunMetricTracker(ctx context.Context) error {
	deals, err := s.deals.List(ctx, repositories.DealFilter{Status: strPtr(models.DealStatusTracking), Limit: 200})
	if err != nil {
		return fmt.Errorf("worker: list tracking deals: %w", err)
	}
	pastWindow, err := s.deals.GetTrackingDealsPastWindow(ctx)
	if err != nil {
		return fmt.Errorf("worker: list past-window deals: %w", err)
	}
	pastWindowSet := make(map[uuid.UUID]bool, len(pastWindow))
	for _, d := range pastWindow {
		pastWindowSet[d.ID] = true
	}

	for _, deal := range deals {
		if deal.PostedPlatformID == nil || deal.PostProofURL == nil {
			continue
		}
		d := deal
		s.withLock(ctx, "metric-tracker", d.ID.String(), func() error {
			return s.trackOne(ctx, &d, pastWindowSet[d.ID])
		})
	}
	return nil
}

func (s *Scheduler) trackOne(ctx context.Context, deal *models.Deal, pastWindow bool) error {
	channel, err := s.channels.GetByID(ctx, deal.ChannelID)
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}
	adapter, err := s.registry.Get(channel.PlatformTag)
	if err != nil {
		return fmt.Errorf("adapter: %w", err)
	}

	if edited, err := s.checkEdit(ctx, deal, adapter); err != nil {
		s.log.Warn("edit check failed", zap.String("deal_id", deal.ID.String()), zap.Error(err))
	} else if edited {
		if err := s.evaluator.FlagEditDetected(ctx, deal.ID); err != nil {
			return fmt.Errorf("flag edit detected: %w", err)
		}
	}

	metrics, err := adapter.FetchPostMetrics(ctx, *deal.PostProofURL)
	if err != nil {
		return fmt.Errorf("fetch post metrics: %w", err)
	}

	result, err := s.evaluator.Evaluate(ctx, deal.ID, metrics)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	if result.AllMet {
		_, err := s.engine.Transition(ctx, deal.ID, models.DealStatusVerified, "requirements_met", nil, nil)
		if err != nil {
			return fmt.Errorf("transition verified: %w", err)
		}
		return s.sagaCoord.ReleaseFunds(ctx, deal.ID)
	}

	if pastWindow {
		_, err := s.engine.Transition(ctx, deal.ID, models.DealStatusFailed, "verification_window_elapsed", nil, nil)
		if err != nil {
			return fmt.Errorf("transition failed: %w", err)
		}
	}
	return nil
}

// checkEdit fetches the post's live text and compares its content hash
// against deal.ContentHash. Adapters that don't implement
// platform.ContentCapable (no public content surface) skip the check
// entirely rather than false-positive on every poll.
func (s *Scheduler) checkEdit(ctx context.Context, deal *models.Deal, adapter platform.Adapter) (bool, error) {
	if deal.ContentHash == nil {
		return false, nil
	}
	capable, ok := adapter.(platform.ContentCapable)
	if !ok {
		return false, nil
	}
	text, exists, err := capable.FetchPostContent(ctx, *deal.PostProofURL)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	_, mediaURL, err := s.creatives.ApprovedContent(ctx, deal.ID)
	if err != nil {
		return false, err
	}
	liveHash := creative.ContentHashOf(text, mediaURL)
	return liveHash != *deal.ContentHash, nil
}

// RunStatsRefresh is K4: refresh subscriber/reach/language stats for a
// capped batch of verified channels whose stats have gone stale.
func (s *Scheduler) RunStatsRefresh(ctx context.Context) error {
	channels, err := s.channels.ListForStatsRefresh(ctx, s.cfg.StatsRefreshStaleAfter, s.cfg.StatsRefreshBatchSize)
	if err != nil {
		return fmt.Errorf("worker: list channels for stats refresh: %w", err)
	}
	for _, ch := range channels {
		c := ch
		s.withLock(ctx, "stats-refresh", c.ID.String(), func() error {
			adapter, err := s.registry.Get(c.PlatformTag)
			if err != nil {
				return fmt.Errorf("adapter: %w", err)
			}
			info, err := adapter.FetchChannelInfo(ctx, c.PlatformChannelID)
			if err != nil {
				return fmt.Errorf("fetch channel info: %w", err)
			}
			subscribers, avgViews, avgReach := info.Subscribers, info.AvgViews, info.AvgReach
			premium := info.PremiumFraction
			return s.channels.UpdateStatsWithLanguage(ctx, c.ID, &subscribers, &avgViews, &avgReach, &premium, info.LanguageDist)
		})
	}
	return nil
}

// RunSagaRecovery is K5: resume every PendingTransfer that hasn't
// completed yet. saga.Coordinator.run (reached via ReleaseFunds/
// RefundFunds, both idempotent against an existing row) figures out which
// hop to retry from the row's own state.
func (s *Scheduler) RunSagaRecovery(ctx context.Context) error {
	transfers, err := s.transfers.ListIncomplete(ctx)
	if err != nil {
		return fmt.Errorf("worker: list incomplete transfers: %w", err)
	}
	for _, pt := range transfers {
		t := pt
		s.withLock(ctx, "saga-recovery", t.DealID.String(), func() error {
			switch t.SagaType {
			case models.SagaTypeRelease:
				return s.sagaCoord.ReleaseFunds(ctx, t.DealID)
			case models.SagaTypeRefund:
				return s.sagaCoord.RefundFunds(ctx, t.DealID)
			default:
				return fmt.Errorf("unknown saga type %q", t.SagaType)
			}
		})
	}
	return nil
}

// RunPurgeWorker is K6: deals past their retention window that haven't
// been purged yet get a DealReceipt and have their sensitive fields
// nulled, one transaction per deal.
func (s *Scheduler) RunPurgeWorker(ctx context.Context) error {
	deals, err := s.deals.GetCompletedBeforeWithoutReceipt(ctx, s.cfg.RetentionDays)
	if err != nil {
		return fmt.Errorf("worker: list deals due for purge: %w", err)
	}
	for _, deal := range deals {
		id := deal.ID
		s.withLock(ctx, "purge", id.String(), func() error {
			return s.purgeW.PurgeDeal(ctx, id)
		})
	}
	return nil
}

// RunDisputeEscalator is K7: disputes whose mutual-resolution window has
// elapsed move to AdminReview; the underlying deal stays Disputed until an
// operator calls dispute.Protocol.AdminResolve.
func (s *Scheduler) RunDisputeEscalator(ctx context.Context) error {
	disputes, err := s.disputes.ListPastMutualDeadline(ctx)
	if err != nil {
		return fmt.Errorf("worker: list disputes past deadline: %w", err)
	}
	for _, d := range disputes {
		id := d.ID
		s.withLock(ctx, "dispute-escalate", id.String(), func() error {
			return s.disputeP.Escalate(ctx, id)
		})
	}
	return nil
}

func strPtr(s string) *string { return &s }
