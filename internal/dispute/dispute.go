// Package dispute implements the escalation protocol (component J): a
// deal in dispute gets a fixed mutual-resolution window during which
// either party can propose or accept a resolution; if the window lapses
// unresolved, an admin decides instead. Execution of any agreed-upon
// outcome always goes through internal/saga so the chain-level and
// state-machine effects stay consistent with every other settlement path.
package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sponsorlink/dealcore/internal/dealengine"
	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/saga"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// MutualWindow is how long both parties have to agree on a resolution
// before the dispute escalates to admin review.
const MutualWindow = 48 * time.Hour

var (
	ErrForbidden       = errors.New("dispute: forbidden")
	ErrInvalidState    = errors.New("dispute: invalid state")
	ErrInvalidOutcome  = errors.New("dispute: invalid outcome")
	ErrInvalidSplit    = errors.New("dispute: split percent out of range")
	ErrNoCounterProposal = errors.New("dispute: counterparty has not proposed yet")
	ErrNotEscalated    = errors.New("dispute: not escalated to admin review")
)

// openableDealStatuses are the statuses a deal may be in when a dispute is
// opened against it.
var openableDealStatuses = map[string]bool{
	models.DealStatusFunded:            true,
	models.DealStatusCreativePending:   true,
	models.DealStatusCreativeSubmitted: true,
	models.DealStatusCreativeRevision:  true,
	models.DealStatusCreativeApproved:  true,
	models.DealStatusPosted:            true,
	models.DealStatusTracking:          true,
	models.DealStatusFailed:            true,
}

type Protocol struct {
	store    *store.Store
	deals    *repositories.DealRepo
	channels *repositories.ChannelRepo
	disputes *repositories.DisputeRepo
	evidence *repositories.DisputeEvidenceRepo
	engine   *dealengine.Engine
	saga     *saga.Coordinator
	log      *zap.Logger
}

func New(st *store.Store, deals *repositories.DealRepo, channels *repositories.ChannelRepo, disputes *repositories.DisputeRepo,
	evidence *repositories.DisputeEvidenceRepo, engine *dealengine.Engine, sagaCoord *saga.Coordinator, log *zap.Logger) *Protocol {
	return &Protocol{store: st, deals: deals, channels: channels, disputes: disputes, evidence: evidence,
		engine: engine, saga: sagaCoord, log: log}
}

// party resolves which side of the deal actorID is on. ok is false if
// actorID is neither.
func (p *Protocol) party(ctx context.Context, deal *models.Deal, actorID uuid.UUID) (isOwner, ok bool, err error) {
	if deal.AdvertiserUserID == actorID {
		return false, true, nil
	}
	channel, err := p.channels.GetByID(ctx, deal.ChannelID)
	if err != nil {
		return false, false, err
	}
	if channel.OwnerUserID == actorID {
		return true, true, nil
	}
	return false, false, nil
}

// Open creates the (unique) dispute row for dealID and moves the deal to
// Disputed. actorID must be a party to the deal.
func (p *Protocol) Open(ctx context.Context, dealID, actorID uuid.UUID, reason string) (*models.Dispute, error) {
	deal, err := p.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if _, isParty, err := p.party(ctx, deal, actorID); err != nil {
		return nil, err
	} else if !isParty {
		return nil, fmt.Errorf("%w: open dispute requires a deal party", ErrForbidden)
	}
	if !openableDealStatuses[deal.Status] {
		return nil, fmt.Errorf("%w: cannot dispute a deal in status %s", ErrInvalidState, deal.Status)
	}

	var created *models.Dispute
	err = p.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		d, err := p.deals.WithQuerier(tx).GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		if !openableDealStatuses[d.Status] {
			return fmt.Errorf("%w: cannot dispute a deal in status %s", ErrInvalidState, d.Status)
		}

		dispute := &models.Dispute{
			DealID:         dealID,
			OpenedBy:       actorID,
			Reason:         reason,
			Status:         models.DisputeStatusOpen,
			MutualDeadline: nowPlus(MutualWindow),
		}
		if err := p.disputes.WithQuerier(tx).Create(ctx, dispute); err != nil {
			return err
		}

		if _, err := p.engine.TransitionInTx(ctx, tx, dealID, models.DealStatusDisputed, "dispute_opened", &actorID,
			map[string]any{"dispute_id": dispute.ID, "reason": reason}); err != nil {
			return err
		}
		created = dispute
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.engine.Notify(ctx, dealID, deal.Status, models.DealStatusDisputed, "dispute_opened")
	return created, nil
}

// SubmitEvidence attaches a supporting item. Any party may submit, any
// time before the dispute is Resolved.
func (p *Protocol) SubmitEvidence(ctx context.Context, dealID, actorID uuid.UUID, description string, url *string) (*models.DisputeEvidence, error) {
	deal, err := p.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if _, isParty, err := p.party(ctx, deal, actorID); err != nil {
		return nil, err
	} else if !isParty {
		return nil, fmt.Errorf("%w: submit evidence requires a deal party", ErrForbidden)
	}

	d, err := p.disputes.GetByDealID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d.Status == models.DisputeStatusResolved {
		return nil, fmt.Errorf("%w: dispute already resolved", ErrInvalidState)
	}

	evidence := &models.DisputeEvidence{DisputeID: d.ID, SubmittedBy: actorID, Description: description, URL: url}
	if err := p.evidence.Create(ctx, evidence); err != nil {
		return nil, err
	}
	return evidence, nil
}

// Result reports whether a proposal/accept call caused the dispute to
// auto-execute.
type Result struct {
	Dispute  *models.Dispute
	Executed bool
}

// ProposeResolution records actorID's proposed outcome. If both parties
// have now proposed matching outcomes (and, for Split, matching split
// percentages), the dispute auto-executes.
func (p *Protocol) ProposeResolution(ctx context.Context, dealID, actorID uuid.UUID, outcome string, splitPercent *float64) (*Result, error) {
	if err := validateOutcome(outcome, splitPercent); err != nil {
		return nil, err
	}

	deal, err := p.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	isOwner, isParty, err := p.party(ctx, deal, actorID)
	if err != nil {
		return nil, err
	}
	if !isParty {
		return nil, fmt.Errorf("%w: propose resolution requires a deal party", ErrForbidden)
	}

	d, err := p.disputes.GetByDealID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d.Status == models.DisputeStatusResolved {
		return nil, fmt.Errorf("%w: dispute already resolved", ErrInvalidState)
	}

	var ownerProposal, advertiserProposal *string
	var ownerSplit, advertiserSplit *float64
	if isOwner {
		ownerProposal, ownerSplit = &outcome, splitPercent
	} else {
		advertiserProposal, advertiserSplit = &outcome, splitPercent
	}
	if err := p.disputes.SetProposal(ctx, d.ID, ownerProposal, advertiserProposal, ownerSplit, advertiserSplit,
		models.DisputeStatusMutualResolution); err != nil {
		return nil, err
	}

	d, err = p.disputes.GetByDealID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	return p.autoExecuteIfMatched(ctx, d)
}

// AcceptProposal adopts the counterparty's existing proposal as actorID's
// own, which — since the two now match by construction — triggers
// execution immediately.
func (p *Protocol) AcceptProposal(ctx context.Context, dealID, actorID uuid.UUID) (*Result, error) {
	deal, err := p.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	isOwner, isParty, err := p.party(ctx, deal, actorID)
	if err != nil {
		return nil, err
	}
	if !isParty {
		return nil, fmt.Errorf("%w: accept proposal requires a deal party", ErrForbidden)
	}

	d, err := p.disputes.GetByDealID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d.Status == models.DisputeStatusResolved {
		return nil, fmt.Errorf("%w: dispute already resolved", ErrInvalidState)
	}

	var counterOutcome *string
	var counterSplit *float64
	if isOwner {
		counterOutcome, counterSplit = d.AdvertiserProposal, d.AdvertiserSplitPercent
	} else {
		counterOutcome, counterSplit = d.OwnerProposal, d.OwnerSplitPercent
	}
	if counterOutcome == nil {
		return nil, ErrNoCounterProposal
	}

	return p.ProposeResolution(ctx, dealID, actorID, *counterOutcome, counterSplit)
}

// AdminResolve settles a dispute that has escalated to AdminReview.
func (p *Protocol) AdminResolve(ctx context.Context, dealID, adminID uuid.UUID, outcome, reason string, splitPercent *float64) (*models.Dispute, error) {
	if err := validateOutcome(outcome, splitPercent); err != nil {
		return nil, err
	}
	d, err := p.disputes.GetByDealID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DisputeStatusAdminReview {
		return nil, fmt.Errorf("%w: dispute %s is %s", ErrNotEscalated, d.ID, d.Status)
	}

	if err := p.execute(ctx, d, outcome, splitPercent, &adminID, reason); err != nil {
		return nil, err
	}
	return p.disputes.GetByDealID(ctx, dealID)
}

// Escalate moves an overdue dispute to AdminReview. Called by the worker
// scheduler's mutual-deadline sweep.
func (p *Protocol) Escalate(ctx context.Context, disputeID uuid.UUID) error {
	return p.disputes.SetEscalated(ctx, disputeID)
}

func (p *Protocol) autoExecuteIfMatched(ctx context.Context, d *models.Dispute) (*Result, error) {
	if d.OwnerProposal == nil || d.AdvertiserProposal == nil || *d.OwnerProposal != *d.AdvertiserProposal {
		return &Result{Dispute: d, Executed: false}, nil
	}
	if *d.OwnerProposal == models.DisputeOutcomeSplit && !d.ProposalsMatch() {
		return &Result{Dispute: d, Executed: false}, nil
	}

	var splitPercent *float64
	if *d.OwnerProposal == models.DisputeOutcomeSplit {
		splitPercent = d.OwnerSplitPercent
	}
	if err := p.execute(ctx, d, *d.OwnerProposal, splitPercent, nil, "mutual agreement"); err != nil {
		return nil, err
	}
	resolved, err := p.disputes.GetByDealID(ctx, d.DealID)
	if err != nil {
		return nil, err
	}
	return &Result{Dispute: resolved, Executed: true}, nil
}

// execute runs the agreed outcome's saga effect and marks the dispute
// resolved. Split is a documented simplification: creator share >= 50%
// resolves as a full release, otherwise a full refund. True multi-recipient
// splitting is out of scope.
func (p *Protocol) execute(ctx context.Context, d *models.Dispute, outcome string, splitPercent *float64, resolvedBy *uuid.UUID, reason string) error {
	var resolveErr error
	switch outcome {
	case models.DisputeOutcomeReleaseToOwner:
		resolveErr = p.saga.ReleaseFunds(ctx, d.DealID)
	case models.DisputeOutcomeRefundToAdvertiser:
		resolveErr = p.saga.RefundFunds(ctx, d.DealID)
	case models.DisputeOutcomeSplit:
		if splitPercent != nil && *splitPercent >= 50 {
			resolveErr = p.saga.ReleaseFunds(ctx, d.DealID)
		} else {
			resolveErr = p.saga.RefundFunds(ctx, d.DealID)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOutcome, outcome)
	}
	if resolveErr != nil {
		return fmt.Errorf("dispute: execute %s: %w", outcome, resolveErr)
	}

	return p.disputes.Resolve(ctx, d.ID, outcome, splitPercent, resolvedBy, reason)
}

func validateOutcome(outcome string, splitPercent *float64) error {
	switch outcome {
	case models.DisputeOutcomeReleaseToOwner, models.DisputeOutcomeRefundToAdvertiser:
		return nil
	case models.DisputeOutcomeSplit:
		if splitPercent == nil || *splitPercent < 0 || *splitPercent > 100 {
			return fmt.Errorf("%w: %v", ErrInvalidSplit, splitPercent)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOutcome, outcome)
	}
}

func nowPlus(d time.Duration) time.Time {
	return time.Now().Add(d)
}
