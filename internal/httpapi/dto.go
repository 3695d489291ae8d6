package httpapi

import "time"

// ErrorResponse is the uniform failure body for every endpoint in this
// package.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// DataResponse wraps a successful payload.
type DataResponse struct {
	Data any `json:"data"`
}

type createDealRequest struct {
	ChannelID               string            `json:"channel_id"`
	AdFormatID              string            `json:"ad_format_id"`
	Amount                  string            `json:"amount"`
	VerificationWindowHours int               `json:"verification_window_hours,omitempty"`
	Requirements            []requirementSpec `json:"requirements,omitempty"`
}

// requirementSpec is the wire shape for a caller-supplied requirement. When
// the request omits Requirements entirely, CreateDeal defaults to a single
// PostExists=1 requirement instead of leaving the deal with none.
type requirementSpec struct {
	MetricType  string `json:"metric_type"`
	TargetValue int64  `json:"target_value"`
}

type submitCreativeRequest struct {
	Text      string `json:"text"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

type requestRevisionRequest struct {
	Notes string `json:"notes"`
}

type postProofRequest struct {
	PostURL string `json:"post_url"`
}

type openDisputeRequest struct {
	Reason string `json:"reason"`
}

type submitEvidenceRequest struct {
	Description string  `json:"description"`
	URL         *string `json:"url,omitempty"`
}

type proposeResolutionRequest struct {
	Outcome      string   `json:"outcome"`
	SplitPercent *float64 `json:"split_percent,omitempty"`
}

type adminResolveRequest struct {
	Outcome      string   `json:"outcome"`
	Reason       string   `json:"reason"`
	SplitPercent *float64 `json:"split_percent,omitempty"`
}

type authTelegramRequest struct {
	InitData string `json:"init_data"`
}

type authResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

type dealListItem struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	ChannelID string    `json:"channel_id"`
	CreatedAt time.Time `json:"created_at"`
}
