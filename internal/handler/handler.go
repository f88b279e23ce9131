package handler

import (
	"context"

	"tickerpulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// PipelineRunner drains the document inbox through the pipeline once.
type PipelineRunner interface {
	RunOnce(ctx context.Context) (domain.BatchReport, error)
}

type DocumentStore interface {
	InsertDocuments(ctx context.Context, docs []domain.Document) error
}

type SignalReader interface {
	ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.Signal, error)
}

type LatestSignalCache interface {
	GetLatest(ctx context.Context, symbol string) (*domain.Signal, error)
}

type Handler struct {
	tracer    trace.Tracer
	runner    PipelineRunner
	documents DocumentStore
	signals   SignalReader
	cache     LatestSignalCache
}

func New(tracer trace.Tracer, runner PipelineRunner, documents DocumentStore, signals SignalReader, cache LatestSignalCache) *Handler {
	return &Handler{
		tracer:    tracer,
		runner:    runner,
		documents: documents,
		signals:   signals,
		cache:     cache,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/api/documents", h.SubmitDocuments)
	r.POST("/api/pipeline/run", h.TriggerPipelineRun)
	r.GET("/api/signals", h.ListSignals)
	r.GET("/api/signals/:symbol/latest", h.GetLatestSignal)
}
