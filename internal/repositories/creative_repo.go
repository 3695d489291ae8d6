package repositories

import (
	"context"

	"github.com/sponsorlink/dealcore/internal/models"
	"github.com/sponsorlink/dealcore/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreativeRepo stores versions of the sponsored content draft. Text and
// media URL columns hold internal/privacy.FieldCipher output, never
// plaintext — this repo has no knowledge of the cipher, it just persists
// whatever string it's handed.
type CreativeRepo struct {
	q store.Querier
}

func NewCreativeRepo(pool *pgxpool.Pool) *CreativeRepo {
	return &CreativeRepo{q: pool}
}

func (r *CreativeRepo) WithQuerier(q store.Querier) *CreativeRepo {
	return &CreativeRepo{q: q}
}

func (r *CreativeRepo) Create(ctx context.Context, c *models.Creative) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO creatives (deal_id, version, encrypted_text, encrypted_media_url, media_type, submitter_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, c.DealID, c.Version, c.EncryptedText, c.EncryptedMediaURL, c.MediaType, c.SubmitterID, c.Status,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *CreativeRepo) GetLatest(ctx context.Context, dealID uuid.UUID) (*models.Creative, error) {
	var c models.Creative
	err := r.q.QueryRow(ctx, `
		SELECT id, deal_id, version, encrypted_text, encrypted_media_url, media_type, submitter_id,
		       reviewer_notes, status, created_at
		FROM creatives WHERE deal_id = $1 ORDER BY version DESC LIMIT 1
	`, dealID).Scan(&c.ID, &c.DealID, &c.Version, &c.EncryptedText, &c.EncryptedMediaURL, &c.MediaType,
		&c.SubmitterID, &c.ReviewerNotes, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CreativeRepo) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]models.Creative, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, deal_id, version, encrypted_text, encrypted_media_url, media_type, submitter_id,
		       reviewer_notes, status, created_at
		FROM creatives WHERE deal_id = $1 ORDER BY version ASC
	`, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Creative
	for rows.Next() {
		var c models.Creative
		if err := rows.Scan(&c.ID, &c.DealID, &c.Version, &c.EncryptedText, &c.EncryptedMediaURL, &c.MediaType,
			&c.SubmitterID, &c.ReviewerNotes, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *CreativeRepo) MaxVersion(ctx context.Context, dealID uuid.UUID) (int, error) {
	var v *int
	err := r.q.QueryRow(ctx, `SELECT MAX(version) FROM creatives WHERE deal_id = $1`, dealID).Scan(&v)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

func (r *CreativeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, reviewerNotes *string) error {
	_, err := r.q.Exec(ctx, `UPDATE creatives SET status = $1, reviewer_notes = $2 WHERE id = $3`, status, reviewerNotes, id)
	return err
}

// PurgeByDeal blanks the encrypted content of every version of a deal's
// creative — called only by the purge worker, inside the same transaction
// as the DealReceipt insert.
func (r *CreativeRepo) PurgeByDeal(ctx context.Context, dealID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		UPDATE creatives SET encrypted_text = NULL, encrypted_media_url = NULL WHERE deal_id = $1
	`, dealID)
	return err
}
