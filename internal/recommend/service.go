package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"bocado/internal/cache"
	"bocado/internal/catalog"
	"bocado/internal/config"
	"bocado/internal/factorization"
	"bocado/internal/hybrid"
	"bocado/internal/neighborhood"
	"bocado/internal/platform/logger"
	"bocado/internal/similarity"
	"bocado/pkg/types"
)

// Request is one recommendation call. Alpha and Method override the service
// defaults for this call only; zero values keep the configured behavior.
type Request struct {
	UserID string
	TopN   int
	Alpha  *float64
	Method string
}

// RecommendedDish joins a recommendation with its catalog metadata.
type RecommendedDish struct {
	catalog.Dish
	Score float64 `json:"predicted_score"`
	Rank  int     `json:"rank"`
}

// Service is the recommendation orchestrator. It owns the TTL-guarded rating
// snapshot, drives neighborhood construction and factorization, and degrades
// through fallback tiers ending at popularity ranking. Recommend never
// returns an error to its caller.
type Service struct {
	cfg     config.Config
	source  catalog.Source
	results *cache.Results
	log     *logger.Logger

	snapshots *snapshotHolder

	// fitSlots bounds concurrent factorizations so CPU-bound fits don't
	// monopolize request goroutines.
	fitSlots chan struct{}
}

func NewService(cfg config.Config, source catalog.Source, results *cache.Results, log *logger.Logger) *Service {
	loader := hybrid.NewLoader(cfg.Alpha, cfg.HybridEnabled, log)
	return &Service{
		cfg:       cfg,
		source:    source,
		results:   results,
		log:       log,
		snapshots: newSnapshotHolder(source, loader, cfg.CacheTTL, log),
		fitSlots:  make(chan struct{}, cfg.FitWorkers),
	}
}

// Recommend returns a ranked, deduplicated list of unseen dishes for the
// user, at most topN long, with contiguous ranks starting at 1. Every
// failure tier degrades toward popularity ranking; the result is a list,
// possibly empty, never an error.
func (s *Service) Recommend(ctx context.Context, req Request) []types.Recommendation {
	topN := s.cfg.ClampTopN(req.TopN)
	alpha, hybridOn := s.cfg.Alpha, s.cfg.HybridEnabled
	if req.Alpha != nil {
		if *req.Alpha < 0 || *req.Alpha > 1 {
			s.log.Warn("ignoring out-of-range alpha override", "alpha", *req.Alpha)
		} else {
			alpha = *req.Alpha
		}
	}
	method := s.cfg.SimilarityMethod
	if req.Method != "" {
		method = req.Method
	}

	// The cache key covers the knobs that change training scores; a method
	// override bypasses the cache rather than widening the key.
	cacheable := method == s.cfg.SimilarityMethod
	key := cache.Key(req.UserID, alpha, hybridOn, topN)
	if cacheable {
		if recs, ok := s.results.Get(ctx, key); ok {
			return recs
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	snap, err := s.snapshots.get(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrDataUnavailable):
			s.log.Info("no rating data, returning empty recommendations", "user_id", req.UserID)
		case errors.Is(err, ErrDataQualityTooLow):
			s.log.Warn("rating data below quality floor", "user_id", req.UserID, "error", err)
		default:
			s.log.Error("snapshot load failed", "user_id", req.UserID, "error", err)
		}
		return []types.Recommendation{}
	}

	exclude := snap.ratedBy(req.UserID)

	table := snap.table
	if alpha != s.cfg.Alpha || hybridOn != s.cfg.HybridEnabled {
		loader := hybrid.NewLoader(alpha, hybridOn, s.log)
		table = hybrid.Table(loader.Load(snap.dishRatings, snap.venueRatings, snap.dishVenue))
	}

	recs, err := s.personalized(ctx, req.UserID, table, method, exclude, topN)
	if err != nil {
		s.log.Warn("personalized pipeline degraded to popularity fallback",
			"user_id", req.UserID, "error", err)
		recs = popularFromSnapshot(snap, exclude, topN)
	} else if len(recs) < topN {
		recs = s.topOff(snap, recs, exclude, topN)
	}

	recs = finalize(recs, topN)
	if cacheable {
		s.results.Set(ctx, key, recs)
	}
	return recs
}

// personalized runs neighborhood construction and factorization. Any error
// it returns means "use the popularity tier".
func (s *Service) personalized(ctx context.Context, userID string, table types.RatingTable, method string, exclude map[string]struct{}, topN int) ([]types.Recommendation, error) {
	engine := similarity.NewEngine(similarity.Method(method), s.cfg.MinCommonItems)
	builder := neighborhood.NewBuilder(table, engine, neighborhood.Options{
		TopK:                s.cfg.TopKNeighbors,
		SimilarityThreshold: s.cfg.SimilarityThreshold,
		MinUserRatings:      s.cfg.MinUserRatings,
		MinDishRatings:      s.cfg.MinDishRatings,
	}, s.log)

	nb, pivot, err := builder.Build(userID)
	if err != nil {
		return nil, err
	}

	model, err := s.fit(ctx, pivot)
	if err != nil {
		return nil, err
	}
	if !model.HasUser(userID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	recs := model.Recommend(userID, exclude, s.cfg.MinRatingThreshold, topN)
	if len(recs) == 0 {
		return nil, ErrNoCandidates
	}

	s.log.Debug("personalized recommendations computed",
		"user_id", userID,
		"neighbors", len(nb.Members)-1,
		"fallback_dataset", nb.Fallback,
		"results", len(recs),
	)
	return recs, nil
}

// fit runs the factorization through a bounded worker slot. A request that
// cannot get a slot before its deadline short-circuits to the fallback.
func (s *Service) fit(ctx context.Context, pivot *neighborhood.PivotMatrix) (*factorization.Model, error) {
	select {
	case s.fitSlots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for factorization slot: %w", ctx.Err())
	}
	defer func() { <-s.fitSlots }()

	return factorization.Fit(pivot, factorization.Config{
		NFactors:        s.cfg.NFactors,
		BiasShrink:      s.cfg.BiasShrink,
		HighSparsity:    s.cfg.HighSparsity,
		ExtremeSparsity: s.cfg.ExtremeSparsity,
		SparseFactorCap: s.cfg.SparseFactorCap,
	}, s.log)
}

// topOff fills a short list with popular dishes the user hasn't rated and
// that aren't already recommended, until topN or candidates run out.
func (s *Service) topOff(snap *snapshot, recs []types.Recommendation, exclude map[string]struct{}, topN int) []types.Recommendation {
	have := make(map[string]struct{}, len(recs)+len(exclude))
	for dish := range exclude {
		have[dish] = struct{}{}
	}
	for _, r := range recs {
		have[r.DishID] = struct{}{}
	}
	for _, p := range popularFromSnapshot(snap, have, topN-len(recs)) {
		recs = append(recs, p)
	}
	return recs
}

// finalize trims to topN, rounds scores and renumbers ranks contiguously.
func finalize(recs []types.Recommendation, topN int) []types.Recommendation {
	if len(recs) > topN {
		recs = recs[:topN]
	}
	out := make([]types.Recommendation, 0, len(recs))
	for i, r := range recs {
		out = append(out, types.Recommendation{
			DishID: r.DishID,
			Score:  math.Round(r.Score*1000) / 1000,
			Rank:   i + 1,
		})
	}
	return out
}

// RecommendWithDetails enriches recommendations with catalog metadata.
// Dishes missing from the catalog keep their id with empty metadata.
func (s *Service) RecommendWithDetails(ctx context.Context, req Request) ([]RecommendedDish, error) {
	recs := s.Recommend(ctx, req)
	if len(recs) == 0 {
		return []RecommendedDish{}, nil
	}

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.DishID)
	}
	dishes, err := s.source.DishesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching dish details: %w", err)
	}
	byID := make(map[string]catalog.Dish, len(dishes))
	for _, d := range dishes {
		byID[d.DishID] = d
	}

	out := make([]RecommendedDish, 0, len(recs))
	for _, r := range recs {
		dish, ok := byID[r.DishID]
		if !ok {
			dish = catalog.Dish{DishID: r.DishID}
		}
		out = append(out, RecommendedDish{Dish: dish, Score: r.Score, Rank: r.Rank})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// Popular exposes the system-wide popularity ranking.
func (s *Service) Popular(ctx context.Context, limit int) ([]catalog.PopularDish, error) {
	return s.source.PopularDishes(ctx, s.cfg.ClampTopN(limit))
}

// SnapshotAge reports how old the current rating snapshot is, or -1 when
// none has been loaded yet.
func (s *Service) SnapshotAge() float64 {
	age := s.snapshots.age()
	if age < 0 {
		return -1
	}
	return age.Seconds()
}
