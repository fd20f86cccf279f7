package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("RECO_ALPHA", "0.5")
	t.Setenv("RECO_SIMILARITY_METHOD", "jaccard")
	t.Setenv("RECO_TOP_K_NEIGHBORS", "20")
	t.Setenv("RECO_CACHE_TTL_SECONDS", "120")
	t.Setenv("RECO_HYBRID", "false")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Alpha != 0.5 {
		t.Fatalf("alpha: want=0.5 got=%v", cfg.Alpha)
	}
	if cfg.SimilarityMethod != "jaccard" {
		t.Fatalf("method: want=jaccard got=%s", cfg.SimilarityMethod)
	}
	if cfg.TopKNeighbors != 20 {
		t.Fatalf("top_k: want=20 got=%d", cfg.TopKNeighbors)
	}
	if cfg.CacheTTL.Seconds() != 120 {
		t.Fatalf("cache ttl: want=120s got=%v", cfg.CacheTTL)
	}
	if cfg.HybridEnabled {
		t.Fatalf("hybrid should be disabled")
	}
	// Untouched knobs keep their defaults.
	if cfg.BiasShrink != 0.7 {
		t.Fatalf("bias shrink default lost: got=%v", cfg.BiasShrink)
	}
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RECO_ALPHA", "not-a-float")
	t.Setenv("RECO_TOP_K_NEIGHBORS", "many")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Alpha != 0.7 || cfg.TopKNeighbors != 50 {
		t.Fatalf("malformed values must keep defaults: alpha=%v top_k=%d", cfg.Alpha, cfg.TopKNeighbors)
	}
}

func TestFromEnvRejectsInvalidConfig(t *testing.T) {
	t.Setenv("RECO_ALPHA", "1.5")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("alpha=1.5 must fail validation")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha below zero", func(c *Config) { c.Alpha = -0.1 }},
		{"unknown method", func(c *Config) { c.SimilarityMethod = "pearson" }},
		{"threshold above one", func(c *Config) { c.SimilarityThreshold = 1.2 }},
		{"zero neighbors", func(c *Config) { c.TopKNeighbors = 0 }},
		{"zero user minimum", func(c *Config) { c.MinUserRatings = 0 }},
		{"zero factors", func(c *Config) { c.NFactors = 0 }},
		{"shrink above one", func(c *Config) { c.BiasShrink = 1.5 }},
		{"inverted bounds", func(c *Config) { c.MaxRecommendations = 0 }},
		{"zero workers", func(c *Config) { c.FitWorkers = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestClampTopN(t *testing.T) {
	cfg := Default()
	cases := []struct {
		in, want int
	}{
		{0, 10},
		{1, 1},
		{-3, 1},
		{25, 25},
		{50, 50},
		{1000, 50},
	}
	for _, tc := range cases {
		if got := cfg.ClampTopN(tc.in); got != tc.want {
			t.Fatalf("ClampTopN(%d): want=%d got=%d", tc.in, tc.want, got)
		}
	}
}
