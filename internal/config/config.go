package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the recommender. Values come from Default()
// and may be overridden by environment variables via FromEnv(); individual
// requests can still override Alpha and the similarity method per call.
type Config struct {
	// Hybrid blending: weight of the dish rating vs the venue rating.
	Alpha         float64
	HybridEnabled bool

	// Similarity.
	SimilarityMethod    string // "cosine" | "jaccard"
	SimilarityThreshold float64
	MinCommonItems      int
	TopKNeighbors       int

	// Sparsity filtering.
	MinUserRatings int
	MinDishRatings int

	// Factorization.
	NFactors           int
	BiasShrink         float64
	HighSparsity       float64 // above this the rank is capped
	ExtremeSparsity    float64 // above this centering is skipped
	SparseFactorCap    int
	MinRatingThreshold float64

	// Orchestration.
	CacheTTL           time.Duration
	MinRecommendations int
	MaxRecommendations int
	DefaultTopN        int
	FitWorkers         int
	RequestTimeout     time.Duration
}

// Default returns the tuned defaults. The shrink and sparsity cutoffs are
// empirical values, not derived bounds; keep them overridable.
func Default() Config {
	return Config{
		Alpha:               0.7,
		HybridEnabled:       true,
		SimilarityMethod:    "cosine",
		SimilarityThreshold: 0.2,
		MinCommonItems:      2,
		TopKNeighbors:       50,
		MinUserRatings:      3,
		MinDishRatings:      1,
		NFactors:            100,
		BiasShrink:          0.7,
		HighSparsity:        0.95,
		ExtremeSparsity:     0.99,
		SparseFactorCap:     50,
		MinRatingThreshold:  3.0,
		CacheTTL:            time.Hour,
		MinRecommendations:  1,
		MaxRecommendations:  50,
		DefaultTopN:         10,
		FitWorkers:          4,
		RequestTimeout:      10 * time.Second,
	}
}

// FromEnv layers environment overrides on top of the defaults.
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.Alpha = getfloat("RECO_ALPHA", cfg.Alpha)
	cfg.HybridEnabled = getbool("RECO_HYBRID", cfg.HybridEnabled)
	cfg.SimilarityMethod = getenv("RECO_SIMILARITY_METHOD", cfg.SimilarityMethod)
	cfg.SimilarityThreshold = getfloat("RECO_SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.MinCommonItems = getint("RECO_MIN_COMMON_ITEMS", cfg.MinCommonItems)
	cfg.TopKNeighbors = getint("RECO_TOP_K_NEIGHBORS", cfg.TopKNeighbors)
	cfg.MinUserRatings = getint("RECO_MIN_USER_RATINGS", cfg.MinUserRatings)
	cfg.MinDishRatings = getint("RECO_MIN_DISH_RATINGS", cfg.MinDishRatings)
	cfg.NFactors = getint("RECO_N_FACTORS", cfg.NFactors)
	cfg.BiasShrink = getfloat("RECO_BIAS_SHRINK", cfg.BiasShrink)
	cfg.MinRatingThreshold = getfloat("RECO_MIN_RATING_THRESHOLD", cfg.MinRatingThreshold)
	cfg.FitWorkers = getint("RECO_FIT_WORKERS", cfg.FitWorkers)
	if ttl := getint("RECO_CACHE_TTL_SECONDS", 0); ttl > 0 {
		cfg.CacheTTL = time.Duration(ttl) * time.Second
	}
	if ms := getint("RECO_REQUEST_TIMEOUT_MS", 0); ms > 0 {
		cfg.RequestTimeout = time.Duration(ms) * time.Millisecond
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects out-of-range knobs before the service starts.
func (c Config) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("config: alpha %.3f out of range [0,1]", c.Alpha)
	}
	if c.SimilarityMethod != "cosine" && c.SimilarityMethod != "jaccard" {
		return fmt.Errorf("config: unknown similarity method %q", c.SimilarityMethod)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("config: similarity threshold %.3f out of range [0,1]", c.SimilarityThreshold)
	}
	if c.TopKNeighbors < 1 {
		return fmt.Errorf("config: top_k_neighbors must be >= 1, got %d", c.TopKNeighbors)
	}
	if c.MinUserRatings < 1 || c.MinDishRatings < 1 {
		return fmt.Errorf("config: rating minimums must be >= 1")
	}
	if c.NFactors < 1 {
		return fmt.Errorf("config: n_factors must be >= 1, got %d", c.NFactors)
	}
	if c.BiasShrink < 0 || c.BiasShrink > 1 {
		return fmt.Errorf("config: bias shrink %.3f out of range [0,1]", c.BiasShrink)
	}
	if c.MinRecommendations < 1 || c.MaxRecommendations < c.MinRecommendations {
		return fmt.Errorf("config: invalid recommendation bounds [%d,%d]", c.MinRecommendations, c.MaxRecommendations)
	}
	if c.FitWorkers < 1 {
		return fmt.Errorf("config: fit_workers must be >= 1, got %d", c.FitWorkers)
	}
	return nil
}

// ClampTopN forces a requested size into the configured bounds, applying the
// default when the caller did not ask for a size at all.
func (c Config) ClampTopN(n int) int {
	if n == 0 {
		n = c.DefaultTopN
	}
	if n < c.MinRecommendations {
		return c.MinRecommendations
	}
	if n > c.MaxRecommendations {
		return c.MaxRecommendations
	}
	return n
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
