package model

import "time"

// Digest is one delivered daily briefing.
type Digest struct {
	ID           int64
	RunID        string
	Paragraph    string
	Bullets      []string
	Translations map[string]string
	ChartURLs    []string
	ItemCount    int
	ModelUsed    string
	Channel      string
	CreatedAt    time.Time
}
