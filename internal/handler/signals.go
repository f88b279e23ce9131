package handler

import (
	"net/http"
	"strconv"
	"strings"

	"tickerpulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ListSignals godoc
// @Summary      List measured signals
// @Description  Returns persisted signals, newest first, optionally filtered by symbol and minimum score
// @Tags         signals
// @Produce      json
// @Param        symbol     query  string   false  "Filter by instrument symbol (e.g., AAPL)"
// @Param        min_score  query  number   false  "Only return signals with score >= min_score"
// @Param        limit      query  int      false  "Number of signals (default 100, max 500)"  default(100)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/signals [get]
func (h *Handler) ListSignals(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-signals")
	defer span.End()

	filter := domain.SignalFilter{
		Symbol: strings.ToUpper(c.Query("symbol")),
	}
	if ms := c.Query("min_score"); ms != "" {
		v, err := strconv.ParseFloat(ms, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_score: " + ms})
			return
		}
		filter.MinScore = &v
	}
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	span.SetAttributes(attribute.String("symbol", filter.Symbol))

	signals, err := h.signals.ListSignals(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(signals),
		"signals": signals,
	})
}

// GetLatestSignal godoc
// @Summary      Get the latest signal for a symbol
// @Description  Returns the most recently measured signal for one instrument, served from the cache when warm
// @Tags         signals
// @Produce      json
// @Param        symbol  path  string  true  "Instrument symbol (e.g., AAPL)"
// @Success      200  {object}  domain.Signal
// @Failure      404  {object}  map[string]string
// @Router       /api/signals/{symbol}/latest [get]
func (h *Handler) GetLatestSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-latest-signal")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if h.cache != nil {
		if sig, err := h.cache.GetLatest(ctx, symbol); err == nil && sig != nil {
			c.JSON(http.StatusOK, sig)
			return
		}
	}

	signals, err := h.signals.ListSignals(ctx, domain.SignalFilter{Symbol: symbol, Limit: 1})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(signals) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no signal for symbol: " + symbol})
		return
	}

	c.JSON(http.StatusOK, signals[0])
}
