package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := NewHashingEmbedder(64)
	a, err := e.Embed(context.Background(), "Apple shares surge on record earnings")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := e.Embed(context.Background(), "Apple shares surge on record earnings")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHashingEmbedderUnitNorm(t *testing.T) {
	e := NewHashingEmbedder(128)
	vec, _ := e.Embed(context.Background(), "strong quarterly growth")
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
		t.Fatalf("expected unit norm, got %v", math.Sqrt(norm))
	}
}

func TestHashingEmbedderEmptyTextZeroVector(t *testing.T) {
	e := NewHashingEmbedder(32)
	vec, err := e.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 32 {
		t.Fatalf("expected dimension 32, got %d", len(vec))
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector, got %v at %d", v, i)
		}
	}
}

func TestHashingEmbedderDefaultDimension(t *testing.T) {
	vec, _ := NewHashingEmbedder(0).Embed(context.Background(), "hello")
	if len(vec) != 256 {
		t.Fatalf("expected default dimension 256, got %d", len(vec))
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("remote embedder down")
}

func TestHybridFallsBack(t *testing.T) {
	h := NewHybrid(failingEmbedder{}, NewHashingEmbedder(16), zerolog.Nop())
	vec, err := h.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if len(vec) != 16 {
		t.Fatalf("expected fallback dimension 16, got %d", len(vec))
	}
}

func TestHybridPrefersPrimary(t *testing.T) {
	h := NewHybrid(NewHashingEmbedder(8), NewHashingEmbedder(16), zerolog.Nop())
	vec, err := h.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 8 {
		t.Fatalf("expected primary dimension 8, got %d", len(vec))
	}
}
