package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/rs/zerolog"
)

// Embedder turns document text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Hybrid prefers the primary embedder and falls back to a deterministic
// local one so novelty scoring keeps working without the remote service.
type Hybrid struct {
	primary  Embedder
	fallback Embedder
	log      zerolog.Logger
}

func NewHybrid(primary, fallback Embedder, log zerolog.Logger) *Hybrid {
	return &Hybrid{primary: primary, fallback: fallback, log: log}
}

func (h *Hybrid) Embed(ctx context.Context, text string) ([]float64, error) {
	if h.primary != nil {
		vec, err := h.primary.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		h.log.Warn().Err(err).Msg("primary embedder failed, using hashing fallback")
	}
	return h.fallback.Embed(ctx, text)
}

// HashingEmbedder is a signed feature-hashing embedder. It is pure, so
// reprocessing the identical document yields the identical vector.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashingEmbedder{dim: dim}
}

func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:()[]\"'")
		if tok == "" {
			continue
		}
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dim))
		sign := 1.0
		if (sum>>63)&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	// L2-normalize; an all-zero vector stays zero and is handled by the
	// novelty scorer's zero-norm rule.
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}
