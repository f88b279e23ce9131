package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL string
	RedisURL    string

	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIEmbedModel string
	UseGPU           bool

	FallbackEnabled  bool
	SentimentTimeout time.Duration
	SentimentBatch   int
	PipelineWorkers  int
	PipelinePollSecs int
	InboxBatchLimit  int

	NoveltyWindow    time.Duration
	VelocityBaseline time.Duration
	VelocityBucket   time.Duration

	WeightSentiment float64
	WeightNovelty   float64
	WeightVelocity  float64
	TagBoosts       map[string]float64

	AmbiguousSymbols []string
}

// Load reads configuration from the environment. Unset values fall back
// to defaults; values that are set but unparsable or out of range are a
// hard error so the pipeline refuses to start on a bad configuration.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		FallbackEnabled:  true,
		SentimentTimeout: 10 * time.Second,
		SentimentBatch:   16,
		PipelineWorkers:  4,
		PipelinePollSecs: 60,
		InboxBatchLimit:  200,
		NoveltyWindow:    24 * time.Hour,
		VelocityBaseline: 30 * 24 * time.Hour,
		VelocityBucket:   time.Hour,
		WeightSentiment:  1.0,
		WeightNovelty:    0.5,
		WeightVelocity:   0.1,
		TagBoosts:        map[string]float64{},
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, sentiment runs on fallback only")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	cfg.OpenAIEmbedModel = strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if cfg.OpenAIEmbedModel == "" {
		cfg.OpenAIEmbedModel = "text-embedding-3-small"
	}

	cfg.UseGPU = strings.EqualFold(strings.TrimSpace(os.Getenv("SENTIMENT_USE_GPU")), "true")
	if v := strings.TrimSpace(os.Getenv("SENTIMENT_FALLBACK_ENABLED")); v != "" {
		cfg.FallbackEnabled = strings.EqualFold(v, "true")
	}

	var err error
	if cfg.SentimentTimeout, err = durationEnv("SENTIMENT_TIMEOUT_SECS", cfg.SentimentTimeout); err != nil {
		return nil, err
	}
	if cfg.SentimentBatch, err = intEnv("SENTIMENT_BATCH_SIZE", cfg.SentimentBatch); err != nil {
		return nil, err
	}
	if cfg.PipelineWorkers, err = intEnv("PIPELINE_WORKERS", cfg.PipelineWorkers); err != nil {
		return nil, err
	}
	if cfg.PipelinePollSecs, err = intEnv("PIPELINE_POLL_SECS", cfg.PipelinePollSecs); err != nil {
		return nil, err
	}
	if cfg.InboxBatchLimit, err = intEnv("INBOX_BATCH_LIMIT", cfg.InboxBatchLimit); err != nil {
		return nil, err
	}

	if cfg.NoveltyWindow, err = durationEnv("NOVELTY_WINDOW_HOURS", cfg.NoveltyWindow, withUnit(time.Hour)); err != nil {
		return nil, err
	}
	if cfg.VelocityBaseline, err = durationEnv("VELOCITY_BASELINE_DAYS", cfg.VelocityBaseline, withUnit(24*time.Hour)); err != nil {
		return nil, err
	}
	if cfg.VelocityBucket, err = durationEnv("VELOCITY_BUCKET_MINS", cfg.VelocityBucket, withUnit(time.Minute)); err != nil {
		return nil, err
	}

	if cfg.WeightSentiment, err = floatEnv("W_SENT", cfg.WeightSentiment); err != nil {
		return nil, err
	}
	if cfg.WeightNovelty, err = floatEnv("W_NOVELTY", cfg.WeightNovelty); err != nil {
		return nil, err
	}
	if cfg.WeightVelocity, err = floatEnv("W_VELOCITY", cfg.WeightVelocity); err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(os.Getenv("TAG_BOOSTS")); v != "" {
		boosts, perr := parseTagBoosts(v)
		if perr != nil {
			return nil, perr
		}
		cfg.TagBoosts = boosts
	}

	if v := strings.TrimSpace(os.Getenv("AMBIGUOUS_SYMBOLS")); v != "" {
		for _, s := range strings.Split(v, ",") {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s != "" {
				cfg.AmbiguousSymbols = append(cfg.AmbiguousSymbols, s)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline must not start with.
func (c *Config) Validate() error {
	for name, w := range map[string]float64{
		"W_SENT":     c.WeightSentiment,
		"W_NOVELTY":  c.WeightNovelty,
		"W_VELOCITY": c.WeightVelocity,
	} {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("config: %s must be finite, got %v", name, w)
		}
	}
	for tag, boost := range c.TagBoosts {
		if math.IsNaN(boost) || math.IsInf(boost, 0) {
			return fmt.Errorf("config: tag boost for %q must be finite", tag)
		}
	}
	if c.NoveltyWindow <= 0 {
		return fmt.Errorf("config: NOVELTY_WINDOW_HOURS must be positive")
	}
	if c.VelocityBaseline <= 0 || c.VelocityBucket <= 0 {
		return fmt.Errorf("config: velocity baseline and bucket must be positive")
	}
	if c.VelocityBucket >= c.VelocityBaseline {
		return fmt.Errorf("config: velocity bucket must be smaller than the baseline window")
	}
	if c.SentimentBatch <= 0 || c.PipelineWorkers <= 0 {
		return fmt.Errorf("config: batch size and worker count must be positive")
	}
	return nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number, got %q", key, v)
	}
	return f, nil
}

type durationOpt func(*time.Duration)

func withUnit(u time.Duration) durationOpt {
	return func(d *time.Duration) { *d = u }
}

func durationEnv(key string, def time.Duration, opts ...durationOpt) (time.Duration, error) {
	unit := time.Second
	for _, opt := range opts {
		opt(&unit)
	}
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive integer, got %q", key, v)
	}
	return time.Duration(n) * unit, nil
}

// parseTagBoosts parses "etf:0.1,meme:0.25" into a category boost table.
func parseTagBoosts(raw string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("config: invalid TAG_BOOSTS entry %q", pair)
		}
		boost, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid TAG_BOOSTS value in %q", pair)
		}
		out[strings.ToLower(strings.TrimSpace(parts[0]))] = boost
	}
	return out, nil
}
