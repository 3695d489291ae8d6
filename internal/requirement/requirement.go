// Package requirement implements the evaluator (component G): it maps a
// platform metrics snapshot onto a deal's requirement rows, respecting the
// latching invariant (Met and Waived never revert), and the two
// advertiser-driven manual actions, waive and confirm.
package requirement

import (
	"context"
	"errors"
	"fmt"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/platform"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrForbidden is returned when the caller is not the advertiser on the
// deal the requirement belongs to.
var ErrForbidden = errors.New("requirement: forbidden")

// ErrInvalidState is returned when the deal's current status does not
// permit the requested action.
var ErrInvalidState = errors.New("requirement: invalid deal state")

// ErrNotCustom is returned by Confirm on a non-Custom requirement.
var ErrNotCustom = errors.New("requirement: not a custom requirement")

type Evaluator struct {
	store *store.Store
	deals *repositories.DealRepo
	reqs  *repositories.RequirementRepo
	log   *zap.Logger
}

func New(st *store.Store, deals *repositories.DealRepo, reqs *repositories.RequirementRepo, log *zap.Logger) *Evaluator {
	return &Evaluator{store: st, deals: deals, reqs: reqs, log: log}
}

// Result is what Evaluate and the manual actions return: the final
// per-requirement state and whether every requirement is now latched.
type Result struct {
	AllMet         bool
	Requirements   []models.DealRequirement
	AutoVerify     bool // only meaningful for Waive: true when waiving this one completed the set
}

// Evaluate maps metrics onto dealID's requirements and persists progress.
// Latched requirements (Met, Waived) and Custom requirements are left
// untouched — Custom is manual-only, latched is, well, latched.
func (e *Evaluator) Evaluate(ctx context.Context, dealID uuid.UUID, metrics *platform.PostMetrics) (*Result, error) {
	var result *Result
	err := e.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		reqs, err := e.reqs.WithQuerier(tx).ListByDeal(ctx, dealID)
		if err != nil {
			return err
		}

		for i := range reqs {
			r := &reqs[i]
			if r.IsLatched() || r.MetricType == models.MetricTypeCustom {
				continue
			}

			var currentValue int64
			var met bool
			if r.MetricType == models.MetricTypePostExists {
				if metrics.Exists {
					currentValue = 1
					met = true
				}
			} else {
				value, ok := metricValue(r.MetricType, metrics)
				if !ok {
					currentValue = r.CurrentValue
					met = false
				} else {
					currentValue = value
					met = currentValue >= r.TargetValue
				}
			}

			if err := e.reqs.WithQuerier(tx).UpdateProgress(ctx, r.ID, currentValue); err != nil {
				return err
			}
			r.CurrentValue = currentValue

			if met && r.Status == models.RequirementStatusPending {
				if err := e.reqs.WithQuerier(tx).MarkStatus(ctx, r.ID, models.RequirementStatusMet, true); err != nil {
					return err
				}
				r.Status = models.RequirementStatusMet
			}
		}

		result = &Result{AllMet: allLatched(reqs), Requirements: reqs}
		return nil
	})
	return result, err
}

// Waive marks a requirement Waived. actorID must be the deal's advertiser;
// the deal must be in Tracking or Failed. When the deal is in Tracking and
// waiving this requirement makes every requirement latched, AutoVerify is
// true so the caller can drive the state machine to Verified — a Failed
// deal never auto-advances, it must go through Disputed or admin
// resolution instead.
func (e *Evaluator) Waive(ctx context.Context, dealID, reqID, actorID uuid.UUID) (*Result, error) {
	var result *Result
	err := e.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		deal, err := e.deals.WithQuerier(tx).GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.AdvertiserUserID != actorID {
			return fmt.Errorf("%w: waive requires the advertiser", ErrForbidden)
		}
		if deal.Status != models.DealStatusTracking && deal.Status != models.DealStatusFailed {
			return fmt.Errorf("%w: waive only valid in tracking or failed, got %s", ErrInvalidState, deal.Status)
		}

		if err := e.reqs.WithQuerier(tx).MarkStatus(ctx, reqID, models.RequirementStatusWaived, false); err != nil {
			return err
		}

		reqs, err := e.reqs.WithQuerier(tx).ListByDeal(ctx, dealID)
		if err != nil {
			return err
		}
		allMet := allLatched(reqs)
		result = &Result{
			AllMet:       allMet,
			Requirements: reqs,
			AutoVerify:   allMet && deal.Status == models.DealStatusTracking,
		}
		return nil
	})
	return result, err
}

// Confirm sets a Custom requirement Met at its target value. Custom
// requirements are never evaluated automatically — this is the only way
// they can become Met.
func (e *Evaluator) Confirm(ctx context.Context, dealID, reqID, actorID uuid.UUID) (*Result, error) {
	var result *Result
	err := e.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		deal, err := e.deals.WithQuerier(tx).GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.AdvertiserUserID != actorID {
			return fmt.Errorf("%w: confirm requires the advertiser", ErrForbidden)
		}

		req, err := e.reqs.WithQuerier(tx).GetByID(ctx, reqID)
		if err != nil {
			return err
		}
		if req.MetricType != models.MetricTypeCustom {
			return fmt.Errorf("%w: requirement %s", ErrNotCustom, reqID)
		}

		if err := e.reqs.WithQuerier(tx).UpdateProgress(ctx, reqID, req.TargetValue); err != nil {
			return err
		}
		if err := e.reqs.WithQuerier(tx).MarkStatus(ctx, reqID, models.RequirementStatusMet, true); err != nil {
			return err
		}

		reqs, err := e.reqs.WithQuerier(tx).ListByDeal(ctx, dealID)
		if err != nil {
			return err
		}
		result = &Result{AllMet: allLatched(reqs), Requirements: reqs}
		return nil
	})
	return result, err
}

// FlagEditDetected marks dealID's PostExists requirement (if any) as
// EditDetected instead of evaluating it normally — called by the metric
// tracker worker when the tracked post's content hash no longer matches
// what was approved. EditDetected does not latch: the advertiser can
// still waive it (accept the edit) or open a dispute over it.
func (e *Evaluator) FlagEditDetected(ctx context.Context, dealID uuid.UUID) error {
	return e.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		reqs, err := e.reqs.WithQuerier(tx).ListByDeal(ctx, dealID)
		if err != nil {
			return err
		}
		for _, r := range reqs {
			if r.MetricType != models.MetricTypePostExists || r.IsLatched() {
				continue
			}
			if err := e.reqs.WithQuerier(tx).MarkStatus(ctx, r.ID, models.RequirementStatusEditDetected, false); err != nil {
				return err
			}
		}
		return nil
	})
}

func allLatched(reqs []models.DealRequirement) bool {
	for _, r := range reqs {
		if !r.IsLatched() {
			return false
		}
	}
	return true
}

func metricValue(metricType string, metrics *platform.PostMetrics) (int64, bool) {
	switch metricType {
	case models.MetricTypeViews:
		if metrics.Views == nil {
			return 0, false
		}
		return *metrics.Views, true
	case models.MetricTypeLikes:
		if metrics.Likes == nil {
			return 0, false
		}
		return *metrics.Likes, true
	case models.MetricTypeComments:
		if metrics.Comments == nil {
			return 0, false
		}
		return *metrics.Comments, true
	case models.MetricTypeShares:
		if metrics.Shares == nil {
			return 0, false
		}
		return *metrics.Shares, true
	default:
		return 0, false
	}
}
