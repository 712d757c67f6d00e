package handler

type DigestResponse struct {
	ID           int64             `json:"id"`
	RunID        string            `json:"run_id"`
	Paragraph    string            `json:"paragraph"`
	Bullets      []string          `json:"bullets"`
	Translations map[string]string `json:"translations"`
	ChartURLs    []string          `json:"chart_urls"`
	ItemCount    int               `json:"item_count"`
	ModelUsed    string            `json:"model_used"`
	Channel      string            `json:"channel"`
	CreatedAt    string            `json:"created_at"`
}

type DigestsResponse struct {
	Latest  *DigestResponse  `json:"latest"`
	History []DigestResponse `json:"history"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}
