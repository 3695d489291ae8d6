// Package dealengine owns the one legal way to move a Deal from one
// status to another: every mutation that depends on status goes through
// Engine.Transition, which locks the deal row, validates the edge against
// models.ValidDealTransitions, applies the soft-timeout table, and writes
// the matching DealEvent — all inside one transaction. Nothing else in
// this module calls DealRepo.UpdateStatus directly.
package dealengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/notify"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrInvalidTransition is returned when target is not reachable from the
// deal's current status in one hop.
var ErrInvalidTransition = errors.New("dealengine: invalid transition")

type Engine struct {
	store    *store.Store
	deals    *repositories.DealRepo
	events   *repositories.EventRepo
	reqs     *repositories.RequirementRepo
	notifier *notify.Dispatcher
	log      *zap.Logger
}

// New wires an Engine. notifier may be nil (tests, or a caller that
// manages its own notifications) — every Notify call degrades to a no-op.
func New(st *store.Store, deals *repositories.DealRepo, events *repositories.EventRepo, reqs *repositories.RequirementRepo,
	notifier *notify.Dispatcher, log *zap.Logger) *Engine {
	return &Engine{store: st, deals: deals, events: events, reqs: reqs, notifier: notifier, log: log}
}

// Notify publishes a status-change notification for a transition that was
// already committed by the caller — used by packages that bundle their own
// TransitionInTx call inside a larger transaction and so can't rely on
// Transition's automatic post-commit publish.
func (e *Engine) Notify(ctx context.Context, dealID uuid.UUID, oldStatus, newStatus, eventType string) {
	e.notifier.DealStatusChanged(ctx, dealID, oldStatus, newStatus, eventType)
}

// Transition moves deal dealID to target status, recording eventType and
// metadata on the DealEvent. actorID is nil for system-originated
// transitions (e.g. a worker timeout sweep). Returns the deal as it stood
// immediately after the commit.
func (e *Engine) Transition(ctx context.Context, dealID uuid.UUID, target, eventType string, actorID *uuid.UUID, metadata any) (*models.Deal, error) {
	var updated *models.Deal
	var oldStatus string
	err := e.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		before, err := e.deals.WithQuerier(tx).GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		oldStatus = before.Status
		updated, err = e.TransitionInTx(ctx, tx, dealID, target, eventType, actorID, metadata)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.Notify(ctx, dealID, oldStatus, target, eventType)
	return updated, nil
}

// TransitionInTx is the same write as Transition but runs inside a
// transaction the caller already owns, so a transition can be bundled
// atomically with other writes (e.g. a creative submission). The caller
// must already hold the deal's row lock — store.LockDeal is idempotent
// within one transaction, but callers that haven't locked yet should take
// the lock themselves before calling this.
func (e *Engine) TransitionInTx(ctx context.Context, tx pgx.Tx, dealID uuid.UUID, target, eventType string, actorID *uuid.UUID, metadata any) (*models.Deal, error) {
	deal, err := e.deals.WithQuerier(tx).GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}

	if !models.IsValidTransition(deal.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, deal.Status, target)
	}
	oldStatus := deal.Status

	if err := e.deals.WithQuerier(tx).UpdateStatus(ctx, dealID, target); err != nil {
		return nil, err
	}

	if timeout, ok := models.SoftTimeoutFor(target); ok {
		at := nowPlus(timeout)
		if err := e.deals.WithQuerier(tx).SetTimeoutAt(ctx, dealID, &at); err != nil {
			return nil, err
		}
	} else if err := e.deals.WithQuerier(tx).SetTimeoutAt(ctx, dealID, nil); err != nil {
		return nil, err
	}

	if models.IsTerminal(target) {
		if err := e.deals.WithQuerier(tx).SetCompletedNow(ctx, dealID); err != nil {
			return nil, err
		}
	}

	event := &models.DealEvent{
		DealID:    dealID,
		EventType: eventType,
		OldStatus: oldStatus,
		NewStatus: target,
		ActorID:   actorID,
		Metadata:  metadata,
	}
	if err := e.events.WithQuerier(tx).Create(ctx, event); err != nil {
		return nil, err
	}

	return e.deals.WithQuerier(tx).GetByID(ctx, dealID)
}

// defaultRequirements is what a deal gets when the caller supplies no
// requirement list of its own: a single PostExists check, target 1.
func defaultRequirements() []models.DealRequirement {
	return []models.DealRequirement{
		{MetricType: models.MetricTypePostExists, TargetValue: 1, Status: models.RequirementStatusPending},
	}
}

// Create inserts a new deal in PendingPayment, its requirement set, and its
// opening DealEvent, all in the same transaction. reqs is the caller's
// requested requirement list (1-10 entries); pass nil to fall back to the
// default single PostExists=1 requirement. Without at least one row here,
// the tracking evaluator's "all requirements latched" check is vacuously
// true and a deal would verify on the very first metrics poll.
func (e *Engine) Create(ctx context.Context, deal *models.Deal, reqs []models.DealRequirement) (*models.Deal, error) {
	deal.Status = models.DealStatusPendingPayment
	if timeout, ok := models.SoftTimeoutFor(deal.Status); ok {
		at := nowPlus(timeout)
		deal.TimeoutAt = &at
	}
	if len(reqs) == 0 {
		reqs = defaultRequirements()
	}

	var created *models.Deal
	err := e.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		d := *deal
		if err := e.deals.WithQuerier(tx).Create(ctx, &d); err != nil {
			return err
		}

		for i := range reqs {
			r := reqs[i]
			r.DealID = d.ID
			if r.Status == "" {
				r.Status = models.RequirementStatusPending
			}
			if err := e.reqs.WithQuerier(tx).Create(ctx, &r); err != nil {
				return err
			}
		}

		event := &models.DealEvent{
			DealID:    d.ID,
			EventType: "deal_created",
			OldStatus: "",
			NewStatus: d.Status,
			ActorID:   &d.AdvertiserUserID,
		}
		if err := e.events.WithQuerier(tx).Create(ctx, event); err != nil {
			return err
		}
		created = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
