// Package creative implements the sponsored-content draft pipeline
// (component H): versioned submit/approve/revise, and the post-proof step
// that hands a posted deal off to metric tracking. Every creative body and
// media URL this package writes is internal/privacy.FieldCipher output —
// plaintext only exists transiently in memory here and in GetForDisplay's
// return value.
package creative

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/sponsorlink/dealcore/internal/dealengine"
	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/platform"
	"github.com/sponsorlink/dealcore/internal/privacy"
	"github.com/sponsorlink/dealcore/internal/repositories"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	// ErrForbidden is returned when the caller is not the party the
	// operation requires (channel owner or advertiser, depending).
	ErrForbidden = errors.New("creative: forbidden")
	// ErrInvalidState is returned when the deal's status doesn't permit
	// the requested operation.
	ErrInvalidState = errors.New("creative: invalid deal state")
	// ErrNoSubmittedCreative is returned by Approve/RequestRevision when
	// there is no creative in Submitted status to act on.
	ErrNoSubmittedCreative = errors.New("creative: no submitted creative")
	// ErrNoApprovedCreative is returned by SubmitPostProof when the
	// latest creative isn't Approved.
	ErrNoApprovedCreative = errors.New("creative: no approved creative")
)

type Pipeline struct {
	store     *store.Store
	deals     *repositories.DealRepo
	channels  *repositories.ChannelRepo
	creatives *repositories.CreativeRepo
	engine    *dealengine.Engine
	cipher    *privacy.FieldCipher
	registry  *platform.Registry
	// VerifyPostOnSubmit gates the optional live existence check in
	// SubmitPostProof. Off by default so local/dev environments without
	// network access to the platform can still exercise the pipeline.
	VerifyPostOnSubmit bool
	log                *zap.Logger
}

func New(st *store.Store, deals *repositories.DealRepo, channels *repositories.ChannelRepo,
	creatives *repositories.CreativeRepo, engine *dealengine.Engine, cipher *privacy.FieldCipher,
	registry *platform.Registry, log *zap.Logger) *Pipeline {
	return &Pipeline{store: st, deals: deals, channels: channels, creatives: creatives,
		engine: engine, cipher: cipher, registry: registry, log: log}
}

// SubmitPayload is the plaintext draft an owner submits.
type SubmitPayload struct {
	Text      string
	MediaURL  string
	MediaType string
}

func (p *Pipeline) checkChannelOwner(ctx context.Context, channelID, actorID uuid.UUID) error {
	ch, err := p.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch.OwnerUserID != actorID {
		return fmt.Errorf("%w: not the channel owner", ErrForbidden)
	}
	return nil
}

// Submit encrypts payload and inserts the next creative version, moving
// the deal to CreativeSubmitted. Valid from CreativePending or
// CreativeRevision.
func (p *Pipeline) Submit(ctx context.Context, dealID, actorID uuid.UUID, payload SubmitPayload) (*models.Creative, error) {
	deal, err := p.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if err := p.checkChannelOwner(ctx, deal.ChannelID, actorID); err != nil {
		return nil, err
	}

	encText, err := p.cipher.Encrypt(payload.Text)
	if err != nil {
		return nil, fmt.Errorf("creative: encrypt text: %w", err)
	}
	var encMediaURL *string
	if payload.MediaURL != "" {
		enc, err := p.cipher.Encrypt(payload.MediaURL)
		if err != nil {
			return nil, fmt.Errorf("creative: encrypt media url: %w", err)
		}
		encMediaURL = &enc
	}

	var created *models.Creative
	var oldStatus string
	err = p.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		d, err := p.deals.WithQuerier(tx).GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		if d.Status != models.DealStatusCreativePending && d.Status != models.DealStatusCreativeRevision {
			return fmt.Errorf("%w: submit only valid from creative_pending or creative_revision, got %s", ErrInvalidState, d.Status)
		}
		oldStatus = d.Status

		maxVersion, err := p.creatives.WithQuerier(tx).MaxVersion(ctx, dealID)
		if err != nil {
			return err
		}

		c := &models.Creative{
			DealID:            dealID,
			Version:           maxVersion + 1,
			EncryptedText:     &encText,
			EncryptedMediaURL: encMediaURL,
			MediaType:         payload.MediaType,
			SubmitterID:       actorID,
			Status:            models.CreativeStatusSubmitted,
		}
		if err := p.creatives.WithQuerier(tx).Create(ctx, c); err != nil {
			return err
		}

		_, err = p.engine.TransitionInTx(ctx, tx, dealID, models.DealStatusCreativeSubmitted, "creative_submitted",
			&actorID, map[string]any{"creative_id": c.ID, "version": c.Version})
		if err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.engine.Notify(ctx, dealID, oldStatus, models.DealStatusCreativeSubmitted, "creative_submitted")
	return created, nil
}

// Approve marks the latest Submitted creative Approved and moves the deal
// to CreativeApproved. actorID must be the deal's advertiser.
func (p *Pipeline) Approve(ctx context.Context, dealID, actorID uuid.UUID) (*models.Deal, error) {
	var updated *models.Deal
	err := p.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		d, err := p.deals.WithQuerier(tx).GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		if d.AdvertiserUserID != actorID {
			return fmt.Errorf("%w: approve requires the advertiser", ErrForbidden)
		}
		if d.Status != models.DealStatusCreativeSubmitted {
			return fmt.Errorf("%w: approve only valid from creative_submitted, got %s", ErrInvalidState, d.Status)
		}

		latest, err := p.creatives.WithQuerier(tx).GetLatest(ctx, dealID)
		if err != nil {
			return err
		}
		if latest.Status != models.CreativeStatusSubmitted {
			return fmt.Errorf("%w: latest creative is %s", ErrNoSubmittedCreative, latest.Status)
		}
		if err := p.creatives.WithQuerier(tx).UpdateStatus(ctx, latest.ID, models.CreativeStatusApproved, nil); err != nil {
			return err
		}

		updated, err = p.engine.TransitionInTx(ctx, tx, dealID, models.DealStatusCreativeApproved, "creative_approved", &actorID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.engine.Notify(ctx, dealID, models.DealStatusCreativeSubmitted, models.DealStatusCreativeApproved, "creative_approved")
	return updated, nil
}

// RequestRevision marks the latest Submitted creative RevisionRequested
// with notes and moves the deal back to CreativeRevision. actorID must be
// the deal's advertiser.
func (p *Pipeline) RequestRevision(ctx context.Context, dealID, actorID uuid.UUID, notes string) (*models.Deal, error) {
	var updated *models.Deal
	err := p.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		d, err := p.deals.WithQuerier(tx).GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		if d.AdvertiserUserID != actorID {
			return fmt.Errorf("%w: request revision requires the advertiser", ErrForbidden)
		}
		if d.Status != models.DealStatusCreativeSubmitted {
			return fmt.Errorf("%w: revision request only valid from creative_submitted, got %s", ErrInvalidState, d.Status)
		}

		latest, err := p.creatives.WithQuerier(tx).GetLatest(ctx, dealID)
		if err != nil {
			return err
		}
		if latest.Status != models.CreativeStatusSubmitted {
			return fmt.Errorf("%w: latest creative is %s", ErrNoSubmittedCreative, latest.Status)
		}
		if err := p.creatives.WithQuerier(tx).UpdateStatus(ctx, latest.ID, models.CreativeStatusRevisionRequested, &notes); err != nil {
			return err
		}

		updated, err = p.engine.TransitionInTx(ctx, tx, dealID, models.DealStatusCreativeRevision, "revision_requested", &actorID,
			map[string]any{"notes": notes})
		return err
	})
	if err != nil {
		return nil, err
	}
	p.engine.Notify(ctx, dealID, models.DealStatusCreativeSubmitted, models.DealStatusCreativeRevision, "revision_requested")
	return updated, nil
}

// SubmitPostProof parses postURL through the channel's platform adapter,
// optionally verifies the post is live, computes the tamper-detection
// content hash over the approved creative's plaintext, and drives the
// deal through Posted into Tracking. actorID must be the channel owner.
func (p *Pipeline) SubmitPostProof(ctx context.Context, dealID, actorID uuid.UUID, postURL string) (*models.Deal, error) {
	deal, err := p.deals.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	channel, err := p.channels.GetByID(ctx, deal.ChannelID)
	if err != nil {
		return nil, err
	}
	if channel.OwnerUserID != actorID {
		return nil, fmt.Errorf("%w: submit proof requires the channel owner", ErrForbidden)
	}

	adapter, err := p.registry.Get(channel.PlatformTag)
	if err != nil {
		return nil, err
	}
	platformPostID, err := adapter.ParsePostURL(postURL)
	if err != nil {
		return nil, err
	}
	if p.VerifyPostOnSubmit {
		exists, err := adapter.VerifyPostExists(ctx, postURL)
		if err != nil {
			return nil, fmt.Errorf("creative: verify post exists: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("creative: post not found at %s", postURL)
		}
	}

	var updated *models.Deal
	err = p.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := store.LockDeal(ctx, tx, dealID); err != nil {
			return err
		}
		d, err := p.deals.WithQuerier(tx).GetByID(ctx, dealID)
		if err != nil {
			return err
		}
		if d.Status != models.DealStatusCreativeApproved {
			return fmt.Errorf("%w: submit proof only valid from creative_approved, got %s", ErrInvalidState, d.Status)
		}

		latest, err := p.creatives.WithQuerier(tx).GetLatest(ctx, dealID)
		if err != nil {
			return err
		}
		if latest.Status != models.CreativeStatusApproved {
			return fmt.Errorf("%w: latest creative is %s", ErrNoApprovedCreative, latest.Status)
		}

		text, mediaURL, err := p.decryptCreative(latest)
		if err != nil {
			return err
		}
		contentHash := contentHashOf(text, mediaURL)

		if err := p.deals.WithQuerier(tx).SetPostProof(ctx, dealID, platformPostID, postURL, contentHash); err != nil {
			return err
		}
		if err := p.deals.WithQuerier(tx).SetTrackingStarted(ctx, dealID); err != nil {
			return err
		}

		if _, err := p.engine.TransitionInTx(ctx, tx, dealID, models.DealStatusPosted, "post_proof_submitted", &actorID,
			map[string]any{"post_url": postURL}); err != nil {
			return err
		}
		updated, err = p.engine.TransitionInTx(ctx, tx, dealID, models.DealStatusTracking, "tracking_started", &actorID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.engine.Notify(ctx, dealID, models.DealStatusCreativeApproved, models.DealStatusPosted, "post_proof_submitted")
	p.engine.Notify(ctx, dealID, models.DealStatusPosted, models.DealStatusTracking, "tracking_started")
	return updated, nil
}

// DisplayCreative is a creative with its fields decrypted for a caller
// that has already been authorized to see it.
type DisplayCreative struct {
	ID            uuid.UUID
	Version       int
	Text          string
	MediaURL      string
	MediaType     string
	SubmitterID   uuid.UUID
	ReviewerNotes *string
	Status        string
}

// GetForDisplay returns every creative version for dealID, decrypted.
// Party authorization is the caller's responsibility — this function
// trusts it has already been done.
func (p *Pipeline) GetForDisplay(ctx context.Context, dealID uuid.UUID) ([]DisplayCreative, error) {
	creatives, err := p.creatives.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	out := make([]DisplayCreative, 0, len(creatives))
	for _, c := range creatives {
		text, mediaURL, err := p.decryptCreative(&c)
		if err != nil {
			return nil, err
		}
		out = append(out, DisplayCreative{
			ID:            c.ID,
			Version:       c.Version,
			Text:          text,
			MediaURL:      mediaURL,
			MediaType:     c.MediaType,
			SubmitterID:   c.SubmitterID,
			ReviewerNotes: c.ReviewerNotes,
			Status:        c.Status,
		})
	}
	return out, nil
}

// ApprovedContent returns the decrypted text and media URL of dealID's
// latest creative — used by the metric tracker to recompute the live
// content hash for edit detection. Returns ErrNoApprovedCreative if the
// latest version isn't Approved.
func (p *Pipeline) ApprovedContent(ctx context.Context, dealID uuid.UUID) (text, mediaURL string, err error) {
	c, err := p.creatives.GetLatest(ctx, dealID)
	if err != nil {
		return "", "", err
	}
	if c.Status != models.CreativeStatusApproved {
		return "", "", ErrNoApprovedCreative
	}
	return p.decryptCreative(c)
}

func (p *Pipeline) decryptCreative(c *models.Creative) (text, mediaURL string, err error) {
	if c.EncryptedText != nil {
		text, err = p.cipher.Decrypt(*c.EncryptedText)
		if err != nil {
			return "", "", fmt.Errorf("creative: decrypt text: %w", err)
		}
	}
	if c.EncryptedMediaURL != nil {
		mediaURL, err = p.cipher.Decrypt(*c.EncryptedMediaURL)
		if err != nil {
			return "", "", fmt.Errorf("creative: decrypt media url: %w", err)
		}
	}
	return text, mediaURL, nil
}

// contentHashOf is the tamper-detection fingerprint compared against a
// tracked post's live content on every metric poll — see
// internal/worker's edit-detection sweep.
func contentHashOf(text, mediaURL string) string {
	sum := sha256.Sum256([]byte(text + mediaURL))
	return hex.EncodeToString(sum[:])
}

// ContentHashOf exports contentHashOf for the metric tracker, which
// recomputes the hash against live-fetched text paired with the approved
// creative's own media URL (platform adapters expose no way to re-fetch
// media independently of text).
func ContentHashOf(text, mediaURL string) string {
	return contentHashOf(text, mediaURL)
}
