package neighborhood

import (
	"errors"
	"sort"
	"sync"

	"bocado/internal/hybrid"
	"bocado/internal/platform/logger"
	"bocado/internal/similarity"
	"bocado/pkg/types"
)

// ErrNoRatings means the filtered table is empty: nothing to build from.
var ErrNoRatings = errors.New("neighborhood: no ratings available")

// minNeighbors is the smallest neighbor count worth factorizing; below it
// the builder switches to the most-active-users fallback dataset.
const minNeighbors = 2

// Options tunes neighborhood construction.
type Options struct {
	TopK                int
	SimilarityThreshold float64
	MinUserRatings      int
	MinDishRatings      int
}

// Neighborhood is the user selection behind one pivot matrix. Members are
// ordered by similarity, target first. Fallback marks a selection of the
// most rating-active users instead of similar ones.
type Neighborhood struct {
	TargetID     string
	Members      []string
	Similarities map[string]float64
	Fallback     bool
}

// Builder carves a per-user sub-matrix from a full hybrid rating table.
// The sparsity-filtered table is computed once and shared by every Build
// call on the same instance.
type Builder struct {
	engine similarity.Engine
	opts   Options
	log    *logger.Logger

	source types.RatingTable

	once     sync.Once
	filtered types.RatingTable
}

func NewBuilder(table types.RatingTable, engine similarity.Engine, opts Options, log *logger.Logger) *Builder {
	if opts.TopK < 1 {
		opts.TopK = 1
	}
	return &Builder{engine: engine, opts: opts, log: log, source: table}
}

// Filtered exposes the sparsity-filtered table the builder works on.
func (b *Builder) Filtered() types.RatingTable {
	b.once.Do(func() {
		b.filtered = hybrid.FilterSparse(b.source, b.opts.MinUserRatings, b.opts.MinDishRatings)
	})
	return b.filtered
}

// Build selects the target's neighborhood and lays it out as a pivot matrix.
// An unknown target or too few qualifying neighbors switches to the fallback
// dataset; the pivot is only nil when no ratings survive filtering at all.
func (b *Builder) Build(targetID string) (*Neighborhood, *PivotMatrix, error) {
	table := b.Filtered()
	if len(table) == 0 {
		return nil, nil, ErrNoRatings
	}

	if _, ok := table[targetID]; !ok {
		b.log.Debug("target user absent after sparsity filtering, using fallback dataset",
			"user_id", targetID)
		return b.fallback(targetID, table)
	}

	sims := b.engine.Similarities(table, targetID)
	neighbors := make([]string, 0, len(sims))
	for userID, sim := range sims {
		if sim >= b.opts.SimilarityThreshold {
			neighbors = append(neighbors, userID)
		}
	}
	if len(neighbors) < minNeighbors {
		b.log.Debug("not enough qualifying neighbors, using fallback dataset",
			"user_id", targetID, "neighbors", len(neighbors))
		return b.fallback(targetID, table)
	}

	sort.Slice(neighbors, func(i, j int) bool {
		si, sj := sims[neighbors[i]], sims[neighbors[j]]
		if si != sj {
			return si > sj
		}
		return neighbors[i] < neighbors[j]
	})
	if len(neighbors) > b.opts.TopK {
		neighbors = neighbors[:b.opts.TopK]
	}

	members := append([]string{targetID}, neighbors...)
	picked := make(map[string]float64, len(neighbors))
	for _, n := range neighbors {
		picked[n] = sims[n]
	}

	pivot := NewPivotMatrix(table, members)
	if pivot == nil {
		return nil, nil, ErrNoRatings
	}
	return &Neighborhood{
		TargetID:     targetID,
		Members:      members,
		Similarities: picked,
	}, pivot, nil
}

// fallback picks the TopK most rating-active users system-wide, regardless
// of any relation to the target. As long as the filtered table is non-empty
// this always yields a pivot matrix.
func (b *Builder) fallback(targetID string, table types.RatingTable) (*Neighborhood, *PivotMatrix, error) {
	active := make([]string, 0, len(table))
	for userID := range table {
		active = append(active, userID)
	}
	sort.Slice(active, func(i, j int) bool {
		ci, cj := len(table[active[i]]), len(table[active[j]])
		if ci != cj {
			return ci > cj
		}
		return active[i] < active[j]
	})
	if len(active) > b.opts.TopK {
		active = active[:b.opts.TopK]
	}

	// The target stays a member of their own neighborhood even when their
	// row only exists outside the fallback selection.
	members := append([]string{targetID}, active...)
	pivot := NewPivotMatrix(table, members)
	if pivot == nil {
		return nil, nil, ErrNoRatings
	}
	return &Neighborhood{
		TargetID:     targetID,
		Members:      members,
		Similarities: map[string]float64{},
		Fallback:     true,
	}, pivot, nil
}
