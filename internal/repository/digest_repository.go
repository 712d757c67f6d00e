package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rah-ai/financial-daily-summary/internal/model"
)

type DigestRepository struct {
	db *sql.DB
}

func NewDigestRepository(db *sql.DB) *DigestRepository {
	return &DigestRepository{db: db}
}

func (r *DigestRepository) SaveDigest(ctx context.Context, d *model.Digest) error {
	bullets, translations, charts, err := encodeDigest(d)
	if err != nil {
		return err
	}

	return r.db.QueryRowContext(ctx, `
		INSERT INTO daily_digest(run_id, paragraph, bullets, translations, chart_urls, item_count, model_used, channel)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, d.RunID, d.Paragraph, bullets, translations, charts, d.ItemCount, d.ModelUsed, d.Channel).Scan(&d.ID, &d.CreatedAt)
}

const digestColumns = `id, run_id, paragraph, bullets, translations, chart_urls, item_count, model_used, channel, created_at`

func (r *DigestRepository) GetDigests(limit, offset int) ([]model.Digest, error) {
	rows, err := r.db.Query(`
		SELECT `+digestColumns+`
		FROM daily_digest
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var digests []model.Digest
	for rows.Next() {
		d, err := scanDigest(rows)
		if err != nil {
			return nil, err
		}
		digests = append(digests, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return digests, nil
}

func (r *DigestRepository) GetDigestTotal() (int, error) {
	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM daily_digest`).Scan(&total)
	return total, err
}

// GetLatestDigest returns nil, nil when nothing has been archived yet.
func (r *DigestRepository) GetLatestDigest() (*model.Digest, error) {
	row := r.db.QueryRow(`
		SELECT ` + digestColumns + `
		FROM daily_digest
		ORDER BY created_at DESC
		LIMIT 1
	`)

	d, err := scanDigest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDigest(s scanner) (*model.Digest, error) {
	var d model.Digest
	var bullets, translations, charts []byte

	err := s.Scan(&d.ID, &d.RunID, &d.Paragraph, &bullets, &translations, &charts, &d.ItemCount, &d.ModelUsed, &d.Channel, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(bullets, &d.Bullets); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(translations, &d.Translations); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(charts, &d.ChartURLs); err != nil {
		return nil, err
	}

	return &d, nil
}

// encodeDigest renders the JSON columns. Missing values are stored as empty
// arrays and objects, never null.
func encodeDigest(d *model.Digest) (bullets, translations, charts []byte, err error) {
	if bullets, err = json.Marshal(nonNil(d.Bullets)); err != nil {
		return nil, nil, nil, err
	}
	tr := d.Translations
	if tr == nil {
		tr = map[string]string{}
	}
	if translations, err = json.Marshal(tr); err != nil {
		return nil, nil, nil, err
	}
	if charts, err = json.Marshal(nonNil(d.ChartURLs)); err != nil {
		return nil, nil, nil, err
	}
	return bullets, translations, charts, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
