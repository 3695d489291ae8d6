package models

import "github.com/google/uuid"

// AdFormat is one sellable slot on a channel: a type tag (post, story,
// video...), a label for display, and a price. A channel can list several
// active formats at once.
type AdFormat struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
	TypeTag   string    `json:"type_tag"`
	Label     string    `json:"label"`
	Price     string    `json:"price"`
	Active    bool      `json:"active"`
}

var allAdFormats = []string{
	AdFormatPost, AdFormatForward, AdFormatStory, AdFormatVideo,
	AdFormatReel, AdFormatTweet, AdFormatCommunityPost, AdFormatCustom,
}

// IsValidAdFormatTag reports whether tag is one of the known format tags.
func IsValidAdFormatTag(tag string) bool {
	for _, f := range allAdFormats {
		if f == tag {
			return true
		}
	}
	return false
}
