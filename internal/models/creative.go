package models

import (
	"time"

	"github.com/google/uuid"
)

// Creative statuses.
const (
	CreativeStatusDraft            = "draft"
	CreativeStatusSubmitted        = "submitted"
	CreativeStatusApproved         = "approved"
	CreativeStatusRevisionRequested = "revision_requested"
)

// Creative media types.
const (
	CreativeMediaNone  = "none"
	CreativeMediaPhoto = "photo"
	CreativeMediaVideo = "video"
)

// Creative is one version of the sponsored content draft exchanged between
// the owner and advertiser before posting. EncryptedText and
// EncryptedMediaURL are always the output of internal/privacy.FieldCipher;
// callers never see the plaintext at this layer.
type Creative struct {
	ID                uuid.UUID `json:"id"`
	DealID            uuid.UUID `json:"deal_id"`
	Version           int       `json:"version"`
	EncryptedText     *string   `json:"-"`
	EncryptedMediaURL *string   `json:"-"`
	MediaType         string    `json:"media_type"`
	SubmitterID       uuid.UUID `json:"submitter_id"`
	ReviewerNotes     *string   `json:"reviewer_notes,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}
