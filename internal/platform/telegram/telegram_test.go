package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/sponsorlink/dealcore/internal/platform"
)

type fakeBotClient struct {
	admins    []BotAdminInfo
	isAdmin   bool
	canPost   bool
	checkErr  error
	postMsgID int64
	postURL   string
	postErr   error
}

func (f *fakeBotClient) GetAdmins(ctx context.Context, channelUsername string) ([]BotAdminInfo, error) {
	return f.admins, nil
}

func (f *fakeBotClient) CheckAdmin(ctx context.Context, channelUsername string, telegramUserID int64) (bool, bool, error) {
	if f.checkErr != nil {
		return false, false, f.checkErr
	}
	return f.isAdmin, f.canPost, nil
}

func (f *fakeBotClient) PostToDeal(ctx context.Context, dealID string, chatID int64, text string) (int64, string, error) {
	if f.postErr != nil {
		return 0, "", f.postErr
	}
	return f.postMsgID, f.postURL, nil
}

func TestParsePostURL(t *testing.T) {
	tests := []struct {
		url      string
		wantUser string
		wantID   int64
		wantErr  bool
	}{
		{"https://t.me/somechannel/123", "somechannel", 123, false},
		{"  https://t.me/some_channel/4 ", "some_channel", 4, false},
		{"https://t.me/somechannel", "", 0, true},
		{"not a url", "", 0, true},
		{"https://t.me/some channel/123", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			user, id, err := parsePostURL(tt.url)
			if tt.wantErr {
				if !errors.Is(err, platform.ErrUnparseableURL) {
					t.Fatalf("expected ErrUnparseableURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user != tt.wantUser || id != tt.wantID {
				t.Errorf("parsePostURL(%q) = (%q, %d), want (%q, %d)", tt.url, user, id, tt.wantUser, tt.wantID)
			}
		})
	}
}

func TestAdapterPlatformTag(t *testing.T) {
	a := New(nil, nil, nil)
	if a.PlatformTag() != "telegram" {
		t.Errorf("PlatformTag() = %q, want telegram", a.PlatformTag())
	}
}

func TestAdapterURLHelpers(t *testing.T) {
	a := New(nil, nil, nil)
	if got := a.GetChannelURL("mychannel"); got != "https://t.me/mychannel" {
		t.Errorf("GetChannelURL() = %q", got)
	}
	if got := a.GetPostURL("mychannel", "42"); got != "https://t.me/mychannel/42" {
		t.Errorf("GetPostURL() = %q", got)
	}
	got, err := a.ParsePostURL("https://t.me/mychannel/42")
	if err != nil || got != "mychannel/42" {
		t.Errorf("ParsePostURL() = (%q, %v)", got, err)
	}
}

func TestAdapterWithoutBotDegradesToReadOnly(t *testing.T) {
	a := New(nil, nil, nil)
	ctx := context.Background()

	if _, err := a.CanPost(ctx, "chan", 1); !errors.Is(err, platform.ErrPublishNotSupported) {
		t.Errorf("CanPost() err = %v, want ErrPublishNotSupported", err)
	}
	if _, err := a.PublishPost(ctx, "chan", "text", ""); !errors.Is(err, platform.ErrPublishNotSupported) {
		t.Errorf("PublishPost() err = %v, want ErrPublishNotSupported", err)
	}
	if _, err := a.VerifyUserAdmin(ctx, "chan", 1); !errors.Is(err, platform.ErrPublishNotSupported) {
		t.Errorf("VerifyUserAdmin() err = %v, want ErrPublishNotSupported", err)
	}
	if _, err := a.FetchAdmins(ctx, "chan"); !errors.Is(err, platform.ErrPublishNotSupported) {
		t.Errorf("FetchAdmins() err = %v, want ErrPublishNotSupported", err)
	}
}

func TestAdapterWithBot(t *testing.T) {
	bot := &fakeBotClient{
		isAdmin: true, canPost: true,
		admins:    []BotAdminInfo{{TelegramUserID: 7, Username: "u", DisplayName: "D", CanPostMessages: true, IsOwner: true}},
		postMsgID: 99, postURL: "https://t.me/chan/99",
	}
	a := New(nil, bot, nil)
	ctx := context.Background()

	canPost, err := a.CanPost(ctx, "chan", 1)
	if err != nil || !canPost {
		t.Errorf("CanPost() = (%v, %v), want (true, nil)", canPost, err)
	}

	isAdmin, err := a.VerifyUserAdmin(ctx, "chan", 1)
	if err != nil || !isAdmin {
		t.Errorf("VerifyUserAdmin() = (%v, %v), want (true, nil)", isAdmin, err)
	}

	admins, err := a.FetchAdmins(ctx, "chan")
	if err != nil || len(admins) != 1 || admins[0].ExternalUserID != 7 {
		t.Errorf("FetchAdmins() = (%v, %v)", admins, err)
	}

	msgID, err := a.PublishPost(ctx, "555", "hello", "")
	if err != nil || msgID != "99" {
		t.Errorf("PublishPost() = (%q, %v), want (\"99\", nil)", msgID, err)
	}

	if _, err := a.PublishPost(ctx, "not-numeric", "hello", ""); !errors.Is(err, platform.ErrPublishNotSupported) {
		t.Errorf("PublishPost() with non-numeric channel id err = %v, want ErrPublishNotSupported", err)
	}
}

func TestAdapterBotError(t *testing.T) {
	bot := &fakeBotClient{checkErr: errors.New("boom")}
	a := New(nil, bot, nil)
	ctx := context.Background()

	if _, err := a.CanPost(ctx, "chan", 1); err == nil {
		t.Error("CanPost() expected error")
	}
	if _, err := a.VerifyUserAdmin(ctx, "chan", 1); err == nil {
		t.Error("VerifyUserAdmin() expected error")
	}
}
