package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/rah-ai/financial-daily-summary/internal/model"
)

// fakeRow stands in for *sql.Row and *sql.Rows, copying one value per column.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *int:
			*p = r.values[i].(int)
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			*p = []byte(r.values[i].(string))
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return errors.New("unsupported scan destination")
		}
	}
	return nil
}

func digestRow(bullets, translations, charts string) fakeRow {
	created := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	return fakeRow{values: []any{
		int64(42), "run-1", "Stocks rose.", bullets, translations, charts, 12, "gpt-4o-mini", "telegram", created,
	}}
}

func TestScanDigest(t *testing.T) {
	d, err := scanDigest(digestRow(
		`["Fed holds","Apple beats"]`,
		`{"hi":"शेयर बढ़े","ar":"ارتفعت الأسهم"}`,
		`["https://quickchart.io/chart?c=1"]`,
	))

	assert.Equal(t, nil, err)
	assert.Equal(t, int64(42), d.ID)
	assert.Equal(t, "run-1", d.RunID)
	assert.Equal(t, []string{"Fed holds", "Apple beats"}, d.Bullets)
	assert.Equal(t, map[string]string{"hi": "शेयर बढ़े", "ar": "ارتفعت الأسهم"}, d.Translations)
	assert.Equal(t, []string{"https://quickchart.io/chart?c=1"}, d.ChartURLs)
	assert.Equal(t, 12, d.ItemCount)
	assert.Equal(t, "telegram", d.Channel)
}

func TestScanDigestErrors(t *testing.T) {
	tests := []struct {
		name string
		row  fakeRow
	}{
		{name: "bad bullets", row: digestRow(`not json`, `{}`, `[]`)},
		{name: "bad translations", row: digestRow(`[]`, `["hi"]`, `[]`)},
		{name: "bad chart urls", row: digestRow(`[]`, `{}`, `{`)},
		{name: "no rows", row: fakeRow{err: sql.ErrNoRows}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := scanDigest(tt.row)
			assert.NotEqual(t, nil, err)
			assert.Equal(t, true, d == nil)
		})
	}
}

func TestEncodeDigest(t *testing.T) {
	tests := []struct {
		name             string
		digest           model.Digest
		wantBullets      string
		wantTranslations string
		wantCharts       string
	}{
		{
			name:             "empty digest",
			digest:           model.Digest{},
			wantBullets:      `[]`,
			wantTranslations: `{}`,
			wantCharts:       `[]`,
		},
		{
			name: "filled digest",
			digest: model.Digest{
				Bullets:      []string{"Fed holds"},
				Translations: map[string]string{"he": "המניות עלו"},
				ChartURLs:    []string{"https://quickchart.io/chart?c=1"},
			},
			wantBullets:      `["Fed holds"]`,
			wantTranslations: `{"he":"המניות עלו"}`,
			wantCharts:       `["https://quickchart.io/chart?c=1"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bullets, translations, charts, err := encodeDigest(&tt.digest)
			assert.Equal(t, nil, err)
			assert.Equal(t, tt.wantBullets, string(bullets))
			assert.Equal(t, tt.wantTranslations, string(translations))
			assert.Equal(t, tt.wantCharts, string(charts))
		})
	}
}

func TestEncodeThenScanDigest(t *testing.T) {
	in := model.Digest{Bullets: []string{"a", "b"}, Translations: map[string]string{"ar": "س"}}
	bullets, translations, charts, err := encodeDigest(&in)
	assert.Equal(t, nil, err)

	out, err := scanDigest(digestRow(string(bullets), string(translations), string(charts)))
	assert.Equal(t, nil, err)
	assert.Equal(t, in.Bullets, out.Bullets)
	assert.Equal(t, in.Translations, out.Translations)
	assert.Equal(t, []string{}, out.ChartURLs)
}
