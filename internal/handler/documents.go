package handler

import (
	"net/http"
	"time"

	"tickerpulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type submitDocument struct {
	ID          string    `json:"id" binding:"required"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at" binding:"required"`
	Source      string    `json:"source"`
}

type submitDocumentsRequest struct {
	Documents []submitDocument `json:"documents" binding:"required"`
}

// SubmitDocuments godoc
// @Summary      Submit documents for signal measurement
// @Description  Queues a batch of financial-text documents in the inbox; the pipeline picks them up on its next run
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        request  body  submitDocumentsRequest  true  "Documents to queue"
// @Success      202  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/documents [post]
func (h *Handler) SubmitDocuments(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.submit-documents")
	defer span.End()

	var req submitDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Documents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documents must not be empty"})
		return
	}
	span.SetAttributes(attribute.Int("documents.count", len(req.Documents)))

	docs := make([]domain.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		docs = append(docs, domain.Document{
			ID:          d.ID,
			Text:        d.Text,
			PublishedAt: d.PublishedAt,
			Source:      d.Source,
		})
	}

	if err := h.documents.InsertDocuments(ctx, docs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
		"count":  len(docs),
	})
}
