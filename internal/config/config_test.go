package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"DATABASE_URL", "REDIS_URL", "OPENAI_API_KEY", "OPENAI_MODEL",
		"OPENAI_EMBED_MODEL", "SENTIMENT_USE_GPU", "SENTIMENT_FALLBACK_ENABLED",
		"SENTIMENT_TIMEOUT_SECS", "SENTIMENT_BATCH_SIZE", "PIPELINE_WORKERS",
		"PIPELINE_POLL_SECS", "INBOX_BATCH_LIMIT", "NOVELTY_WINDOW_HOURS",
		"VELOCITY_BASELINE_DAYS", "VELOCITY_BUCKET_MINS", "W_SENT",
		"W_NOVELTY", "W_VELOCITY", "TAG_BOOSTS", "AMBIGUOUS_SYMBOLS",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected redis default, got %q", cfg.RedisURL)
	}
	if cfg.NoveltyWindow != 24*time.Hour {
		t.Fatalf("expected 24h novelty window, got %v", cfg.NoveltyWindow)
	}
	if cfg.VelocityBaseline != 30*24*time.Hour {
		t.Fatalf("expected 30d velocity baseline, got %v", cfg.VelocityBaseline)
	}
	if cfg.VelocityBucket != time.Hour {
		t.Fatalf("expected 1h velocity bucket, got %v", cfg.VelocityBucket)
	}
	if cfg.WeightSentiment != 1.0 || cfg.WeightNovelty != 0.5 || cfg.WeightVelocity != 0.1 {
		t.Fatalf("unexpected default weights: %+v", cfg)
	}
	if !cfg.FallbackEnabled {
		t.Fatal("expected fallback enabled by default")
	}
	if cfg.SentimentBatch != 16 || cfg.PipelineWorkers != 4 {
		t.Fatalf("unexpected batch/worker defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOVELTY_WINDOW_HOURS", "48")
	t.Setenv("VELOCITY_BASELINE_DAYS", "7")
	t.Setenv("VELOCITY_BUCKET_MINS", "30")
	t.Setenv("W_SENT", "2.0")
	t.Setenv("SENTIMENT_FALLBACK_ENABLED", "false")
	t.Setenv("SENTIMENT_USE_GPU", "true")
	t.Setenv("TAG_BOOSTS", "etf:0.1, meme:0.25")
	t.Setenv("AMBIGUOUS_SYMBOLS", "all, it")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NoveltyWindow != 48*time.Hour {
		t.Fatalf("expected 48h window, got %v", cfg.NoveltyWindow)
	}
	if cfg.VelocityBaseline != 7*24*time.Hour {
		t.Fatalf("expected 7d baseline, got %v", cfg.VelocityBaseline)
	}
	if cfg.VelocityBucket != 30*time.Minute {
		t.Fatalf("expected 30m bucket, got %v", cfg.VelocityBucket)
	}
	if cfg.WeightSentiment != 2.0 {
		t.Fatalf("expected W_SENT 2.0, got %v", cfg.WeightSentiment)
	}
	if cfg.FallbackEnabled {
		t.Fatal("expected fallback disabled")
	}
	if !cfg.UseGPU {
		t.Fatal("expected UseGPU set")
	}
	if cfg.TagBoosts["meme"] != 0.25 || cfg.TagBoosts["etf"] != 0.1 {
		t.Fatalf("unexpected tag boosts: %v", cfg.TagBoosts)
	}
	if len(cfg.AmbiguousSymbols) != 2 || cfg.AmbiguousSymbols[0] != "ALL" || cfg.AmbiguousSymbols[1] != "IT" {
		t.Fatalf("unexpected ambiguous symbols: %v", cfg.AmbiguousSymbols)
	}
}

func TestLoadInvalidValuesFail(t *testing.T) {
	cases := map[string]string{
		"W_SENT":                 "not-a-number",
		"NOVELTY_WINDOW_HOURS":   "-4",
		"VELOCITY_BASELINE_DAYS": "0",
		"SENTIMENT_BATCH_SIZE":   "zero",
		"PIPELINE_WORKERS":       "-1",
		"TAG_BOOSTS":             "etf=0.1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestValidateRejectsBucketLargerThanBaseline(t *testing.T) {
	clearEnv(t)
	t.Setenv("VELOCITY_BASELINE_DAYS", "1")
	t.Setenv("VELOCITY_BUCKET_MINS", "1441")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when bucket exceeds baseline")
	}
}
