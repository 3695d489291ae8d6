package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChannelRepo stores inventory listings. Channel search/browse filtering
// beyond the basics below is out of this module's scope — the ledger core
// only needs to resolve a channel by ID or platform identity and read its
// owner and stats.
type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

func (r *ChannelRepo) Create(ctx context.Context, ch *models.Channel) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO channels (platform_tag, platform_channel_id, title, owner_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, ch.PlatformTag, ch.PlatformChannelID, ch.Title, ch.OwnerUserID).Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
}

var channelColumns = `id, platform_tag, platform_channel_id, title, owner_user_id, subscribers, avg_views,
	avg_reach, premium_fraction, language_distribution, verified, verified_at, verification_token,
	created_at, updated_at`

func scanChannel(row pgx.Row) (*models.Channel, error) {
	var ch models.Channel
	var langBytes []byte
	err := row.Scan(&ch.ID, &ch.PlatformTag, &ch.PlatformChannelID, &ch.Title, &ch.OwnerUserID, &ch.Subscribers,
		&ch.AvgViews, &ch.AvgReach, &ch.PremiumFraction, &langBytes, &ch.Verified, &ch.VerifiedAt,
		&ch.VerificationToken, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(langBytes) > 0 {
		_ = json.Unmarshal(langBytes, &ch.LanguageDistribution)
	}
	return &ch, nil
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM channels WHERE id = $1`, channelColumns), id)
	return scanChannel(row)
}

func (r *ChannelRepo) GetByPlatformIdentity(ctx context.Context, platformTag, platformChannelID string) (*models.Channel, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM channels WHERE platform_tag = $1 AND platform_channel_id = $2
	`, channelColumns), platformTag, platformChannelID)
	return scanChannel(row)
}

func (r *ChannelRepo) GetByOwnerUserID(ctx context.Context, ownerUserID uuid.UUID) ([]models.Channel, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM channels WHERE owner_user_id = $1 ORDER BY created_at DESC
	`, channelColumns), ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, nil
}

func (r *ChannelRepo) UpdateStats(ctx context.Context, id uuid.UUID, subscribers, avgViews, avgReach *int, premiumFraction *float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE channels SET subscribers = $1, avg_views = $2, avg_reach = $3, premium_fraction = $4, updated_at = now()
		WHERE id = $5
	`, subscribers, avgViews, avgReach, premiumFraction, id)
	return err
}

// UpdateStatsWithLanguage is UpdateStats plus the language-distribution
// breakdown the stats-refresh worker pulls from the platform adapter.
func (r *ChannelRepo) UpdateStatsWithLanguage(ctx context.Context, id uuid.UUID, subscribers, avgViews, avgReach *int,
	premiumFraction *float64, languageDist map[string]float64) error {
	langBytes, err := json.Marshal(languageDist)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE channels SET subscribers = $1, avg_views = $2, avg_reach = $3, premium_fraction = $4,
		                     language_distribution = $5, updated_at = now()
		WHERE id = $6
	`, subscribers, avgViews, avgReach, premiumFraction, langBytes, id)
	return err
}

// ListForStatsRefresh backs the worker's 6-hourly stats-refresh scan:
// verified channels whose stats haven't been touched in staleAfter,
// oldest first, capped at limit per cycle.
func (r *ChannelRepo) ListForStatsRefresh(ctx context.Context, staleAfter time.Duration, limit int) ([]models.Channel, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM channels
		WHERE verified = true AND updated_at < now() - ($1 || ' seconds')::interval
		ORDER BY updated_at ASC
		LIMIT $2
	`, channelColumns), fmt.Sprintf("%d", int(staleAfter.Seconds())), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	return out, nil
}

func (r *ChannelRepo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE channels SET verified = true, verified_at = now(), verification_token = NULL, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// ---- Channel Members ----

func (r *ChannelRepo) AddMember(ctx context.Context, m *models.ChannelMember) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO channel_members (channel_id, user_id, role, can_post, last_admin_check_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (channel_id, user_id) DO UPDATE SET
			role = EXCLUDED.role, can_post = EXCLUDED.can_post, last_admin_check_at = now()
		RETURNING id
	`, m.ChannelID, m.UserID, m.Role, m.CanPost).Scan(&m.ID)
}

func (r *ChannelRepo) GetMembers(ctx context.Context, channelID uuid.UUID) ([]models.ChannelMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, channel_id, user_id, role, can_post, last_admin_check_at
		FROM channel_members WHERE channel_id = $1
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.ChannelMember
	for rows.Next() {
		var m models.ChannelMember
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.UserID, &m.Role, &m.CanPost, &m.LastAdminCheckAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (r *ChannelRepo) GetMemberByUserAndChannel(ctx context.Context, channelID, userID uuid.UUID) (*models.ChannelMember, error) {
	var m models.ChannelMember
	err := r.pool.QueryRow(ctx, `
		SELECT id, channel_id, user_id, role, can_post, last_admin_check_at
		FROM channel_members WHERE channel_id = $1 AND user_id = $2
	`, channelID, userID).Scan(&m.ID, &m.ChannelID, &m.UserID, &m.Role, &m.CanPost, &m.LastAdminCheckAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ---- Stats snapshots ----

func (r *ChannelRepo) InsertStatsSnapshot(ctx context.Context, s *models.ChannelStatsSnapshot) error {
	rawBytes, _ := json.Marshal(s.RawJSON)
	return r.pool.QueryRow(ctx, `
		INSERT INTO channel_stats_snapshots (channel_id, subscribers, avg_views, premium_count, source, raw_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, fetched_at
	`, s.ChannelID, s.Subscribers, s.AvgViews, s.PremiumCount, s.Source, rawBytes).Scan(&s.ID, &s.FetchedAt)
}

func (r *ChannelRepo) GetLatestStats(ctx context.Context, channelID uuid.UUID) (*models.ChannelStatsSnapshot, error) {
	var s models.ChannelStatsSnapshot
	var rawBytes []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, channel_id, fetched_at, subscribers, avg_views, premium_count, source, raw_json
		FROM channel_stats_snapshots WHERE channel_id = $1 ORDER BY fetched_at DESC LIMIT 1
	`, channelID).Scan(&s.ID, &s.ChannelID, &s.FetchedAt, &s.Subscribers, &s.AvgViews, &s.PremiumCount, &s.Source, &rawBytes)
	if err != nil {
		return nil, err
	}
	if len(rawBytes) > 0 {
		_ = json.Unmarshal(rawBytes, &s.RawJSON)
	}
	return &s, nil
}
