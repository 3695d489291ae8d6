// Package telegram implements the platform.Adapter contract for Telegram
// channels, grounded on the t.me/s/<channel> public-preview scraper. Admin
// discovery and automated posting are optional, served through the
// BotClient interface when a concrete bot-service client is wired in.
package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sponsorlink/dealcore/internal/platform"
	"github.com/sponsorlink/dealcore/internal/statsparser"
	"go.uber.org/zap"
)

// BotClient is what this adapter needs from a bot service for admin
// discovery and automated posting — narrowed to an interface so the
// adapter can be tested without a live bot service.
type BotClient interface {
	GetAdmins(ctx context.Context, channelUsername string) ([]BotAdminInfo, error)
	CheckAdmin(ctx context.Context, channelUsername string, telegramUserID int64) (bool, bool, error)
	PostToDeal(ctx context.Context, dealID string, chatID int64, text string) (messageID int64, postURL string, err error)
}

// BotAdminInfo is the admin/owner shape returned by a bot service,
// independent of that service's own wire format.
type BotAdminInfo struct {
	TelegramUserID  int64
	Username        string
	DisplayName     string
	CanPostMessages bool
	IsOwner         bool
}

var postURLRE = regexp.MustCompile(`^https://t\.me/([A-Za-z0-9_]+)/(\d+)$`)

// Adapter implements platform.Adapter and platform.AdminCapable for
// Telegram. Bot may be nil — in that configuration PublishPost and the
// admin-capable methods return platform.ErrPublishNotSupported /
// unavailable errors, and the adapter degrades to read-only scraping.
type Adapter struct {
	parser *statsparser.Parser
	bot    BotClient
	log    *zap.Logger
}

func New(parser *statsparser.Parser, bot BotClient, log *zap.Logger) *Adapter {
	return &Adapter{parser: parser, bot: bot, log: log}
}

func (a *Adapter) PlatformTag() string { return "telegram" }

func (a *Adapter) FetchChannelInfo(ctx context.Context, platformChannelID string) (*platform.ChannelInfo, error) {
	stats, err := a.parser.FetchAndParse(ctx, platformChannelID)
	if err != nil {
		return nil, fmt.Errorf("telegram: fetch channel info: %w", err)
	}

	info := &platform.ChannelInfo{Title: platformChannelID}
	if stats.Subscribers != nil {
		info.Subscribers = *stats.Subscribers
	}
	if stats.AvgViewsLast20 != nil {
		info.AvgViews = *stats.AvgViewsLast20
	}
	if stats.LangGuess != "" && stats.LangGuess != "unknown" {
		info.LanguageDist = map[string]float64{stats.LangGuess: 1.0}
	}
	return info, nil
}

func (a *Adapter) CanPost(ctx context.Context, platformChannelID string, externalUserID int64) (bool, error) {
	if a.bot == nil {
		return false, fmt.Errorf("telegram: CanPost: %w", platform.ErrPublishNotSupported)
	}
	_, canPost, err := a.bot.CheckAdmin(ctx, platformChannelID, externalUserID)
	if err != nil {
		return false, fmt.Errorf("telegram: check admin: %w", err)
	}
	return canPost, nil
}

func (a *Adapter) PublishPost(ctx context.Context, platformChannelID, text, mediaURL string) (string, error) {
	if a.bot == nil {
		return "", platform.ErrPublishNotSupported
	}
	// The bot service addresses channels by numeric chat ID; this adapter
	// only ever receives the channel's platform_channel_id string, so
	// callers that want automated posting must pass a numeric identity.
	chatID, err := strconv.ParseInt(platformChannelID, 10, 64)
	if err != nil {
		return "", platform.ErrPublishNotSupported
	}
	messageID, _, err := a.bot.PostToDeal(ctx, "", chatID, text)
	if err != nil {
		return "", fmt.Errorf("telegram: publish post: %w", err)
	}
	return strconv.FormatInt(messageID, 10), nil
}

func (a *Adapter) VerifyPostExists(ctx context.Context, postURL string) (bool, error) {
	username, messageID, err := parsePostURL(postURL)
	if err != nil {
		return false, err
	}
	_, exists, err := a.parser.FetchPostContent(ctx, username, messageID)
	if err != nil {
		return false, fmt.Errorf("telegram: verify post exists: %w", err)
	}
	return exists, nil
}

// FetchPostContent implements platform.ContentCapable: the public preview
// page already carries the post's text, so edit detection reuses the same
// scrape VerifyPostExists does rather than a separate fetch.
func (a *Adapter) FetchPostContent(ctx context.Context, postURL string) (string, bool, error) {
	username, messageID, err := parsePostURL(postURL)
	if err != nil {
		return "", false, err
	}
	text, exists, err := a.parser.FetchPostContent(ctx, username, messageID)
	if err != nil {
		return "", false, fmt.Errorf("telegram: fetch post content: %w", err)
	}
	return text, exists, nil
}

func (a *Adapter) FetchPostMetrics(ctx context.Context, postURL string) (*platform.PostMetrics, error) {
	username, _, err := parsePostURL(postURL)
	if err != nil {
		return nil, err
	}

	stats, err := a.parser.FetchAndParse(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("telegram: fetch post metrics: %w", err)
	}

	_, messageID, _ := parsePostURL(postURL)
	for _, p := range stats.LastPosts {
		if p.MessageID == messageID {
			metrics := &platform.PostMetrics{Exists: true}
			if p.Views != nil {
				v := int64(*p.Views)
				metrics.Views = &v
			}
			// Telegram's public preview exposes no likes/comments/shares
			// counts — those fields stay nil, meaning "not exposed", not
			// zero.
			return metrics, nil
		}
	}
	return &platform.PostMetrics{Exists: false}, nil
}

func (a *Adapter) ParsePostURL(postURL string) (string, error) {
	username, messageID, err := parsePostURL(postURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%d", username, messageID), nil
}

func (a *Adapter) GetPostURL(platformChannelID, postID string) string {
	return fmt.Sprintf("https://t.me/%s/%s", platformChannelID, postID)
}

func (a *Adapter) GetChannelURL(platformChannelID string) string {
	return fmt.Sprintf("https://t.me/%s", platformChannelID)
}

// VerifyUserAdmin and FetchAdmins satisfy platform.AdminCapable.

func (a *Adapter) VerifyUserAdmin(ctx context.Context, platformChannelID string, externalUserID int64) (bool, error) {
	if a.bot == nil {
		return false, fmt.Errorf("telegram: verify user admin: %w", platform.ErrPublishNotSupported)
	}
	isAdmin, _, err := a.bot.CheckAdmin(ctx, platformChannelID, externalUserID)
	if err != nil {
		return false, fmt.Errorf("telegram: verify user admin: %w", err)
	}
	return isAdmin, nil
}

func (a *Adapter) FetchAdmins(ctx context.Context, platformChannelID string) ([]platform.AdminInfo, error) {
	if a.bot == nil {
		return nil, fmt.Errorf("telegram: fetch admins: %w", platform.ErrPublishNotSupported)
	}
	raw, err := a.bot.GetAdmins(ctx, platformChannelID)
	if err != nil {
		return nil, fmt.Errorf("telegram: fetch admins: %w", err)
	}
	out := make([]platform.AdminInfo, 0, len(raw))
	for _, r := range raw {
		out = append(out, platform.AdminInfo{
			ExternalUserID:  r.TelegramUserID,
			Username:        r.Username,
			DisplayName:     r.DisplayName,
			CanPostMessages: r.CanPostMessages,
			IsOwner:         r.IsOwner,
		})
	}
	return out, nil
}

func parsePostURL(postURL string) (username string, messageID int64, err error) {
	m := postURLRE.FindStringSubmatch(strings.TrimSpace(postURL))
	if m == nil {
		return "", 0, platform.ErrUnparseableURL
	}
	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, platform.ErrUnparseableURL
	}
	return m[1], id, nil
}
