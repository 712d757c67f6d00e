package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rah-ai/financial-daily-summary/internal/model"
)

type DigestStore interface {
	GetDigests(limit, offset int) ([]model.Digest, error)
	GetDigestTotal() (int, error)
	GetLatestDigest() (*model.Digest, error)
}

type DigestHandler struct {
	repository DigestStore
}

func NewDigestHandler(repository DigestStore) *DigestHandler {
	return &DigestHandler{repository: repository}
}

func toDigestResponse(d model.Digest) DigestResponse {
	translations := d.Translations
	if translations == nil {
		translations = map[string]string{}
	}
	return DigestResponse{
		ID:           d.ID,
		RunID:        d.RunID,
		Paragraph:    d.Paragraph,
		Bullets:      d.Bullets,
		Translations: translations,
		ChartURLs:    d.ChartURLs,
		ItemCount:    d.ItemCount,
		ModelUsed:    d.ModelUsed,
		Channel:      d.Channel,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
	}
}

func (h *DigestHandler) GetDigests(c *gin.Context) {
	limit := getQueryLimit(c)
	offset := getQueryOffset(c)

	digests, err := h.repository.GetDigests(limit, offset)
	if err != nil {
		slog.Error("error fetching digests", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	total, err := h.repository.GetDigestTotal()
	if err != nil {
		slog.Error("error fetching digest total", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	res := DigestsResponse{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		History: []DigestResponse{},
	}

	if len(digests) > 0 {
		latest := toDigestResponse(digests[0])
		res.Latest = &latest
		for _, d := range digests[1:] {
			res.History = append(res.History, toDigestResponse(d))
		}
	}

	c.JSON(http.StatusOK, res)
}

func (h *DigestHandler) GetLatestDigest(c *gin.Context) {
	digest, err := h.repository.GetLatestDigest()
	if err != nil {
		slog.Error("error fetching latest digest", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if digest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No digest available"})
		return
	}

	c.JSON(http.StatusOK, toDigestResponse(*digest))
}

func (h *DigestHandler) GetHealth(c *gin.Context) {
	_, err := h.repository.GetDigestTotal()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}
