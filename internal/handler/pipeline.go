package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerPipelineRun godoc
// @Summary      Trigger a pipeline run manually
// @Description  Drains queued documents through linking, sentiment, novelty, velocity, and aggregation, then returns the batch counters
// @Tags         pipeline
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/pipeline/run [post]
func (h *Handler) TriggerPipelineRun(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-pipeline-run")
	defer span.End()

	report, err := h.runner.RunOnce(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"processed": report.Processed,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
		"requeued":  report.Requeued,
		"signals":   len(report.Signals),
	})
}
