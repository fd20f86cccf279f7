package factorization

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"bocado/internal/neighborhood"
	"bocado/internal/platform/logger"
	"bocado/pkg/types"
)

// ErrFactorization covers every way a fit can fail: empty or degenerate
// pivot matrix, invalid rank. Callers fall back to popularity ranking.
var ErrFactorization = errors.New("factorization failed")

// confidenceScale controls how fast evidence saturates the confidence
// weight: conf = min(1, sqrt(common/confidenceScale)).
const confidenceScale = 5.0

// Config carries the factorization tunables. The shrink factor and the
// sparsity cutoffs are empirically tuned defaults, not derived bounds.
type Config struct {
	NFactors        int
	BiasShrink      float64
	HighSparsity    float64
	ExtremeSparsity float64
	SparseFactorCap int
}

func DefaultConfig() Config {
	return Config{
		NFactors:        100,
		BiasShrink:      0.7,
		HighSparsity:    0.95,
		ExtremeSparsity: 0.99,
		SparseFactorCap: 50,
	}
}

// Model is a bias-corrected low-rank factorization of one neighborhood's
// pivot matrix. Instances are built fresh per request and never shared.
type Model struct {
	cfg Config

	userFactors *mat.Dense // users x rank
	itemFactors *mat.Dense // dishes x rank
	globalMean  float64
	userBias    []float64
	itemBias    []float64

	users  *neighborhood.Index
	dishes *neighborhood.Index

	// ratedMask remembers which cells held a rating before centering,
	// row-major over users x dishes.
	ratedMask []bool

	rank     int
	sparsity float64
	centered bool
	fitted   bool
}

// Fit decomposes the pivot matrix into global mean, user/item biases and a
// truncated SVD of the (possibly centered) residual.
func Fit(pivot *neighborhood.PivotMatrix, cfg Config, log *logger.Logger) (*Model, error) {
	if pivot == nil {
		return nil, fmt.Errorf("%w: nil pivot matrix", ErrFactorization)
	}
	rows, cols := pivot.Data.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: empty pivot matrix (%dx%d)", ErrFactorization, rows, cols)
	}
	nonZero := pivot.NonZero()
	if nonZero == 0 {
		return nil, fmt.Errorf("%w: pivot matrix has no ratings", ErrFactorization)
	}

	m := &Model{
		cfg:      cfg,
		users:    pivot.Users,
		dishes:   pivot.Dishes,
		userBias: make([]float64, rows),
		itemBias: make([]float64, cols),
		sparsity: pivot.Sparsity(),
	}

	m.ratedMask = make([]bool, rows*cols)

	// Global mean and per-user / per-dish deviations over rated cells only.
	var sum float64
	userSum := make([]float64, rows)
	userCnt := make([]int, rows)
	itemSum := make([]float64, cols)
	itemCnt := make([]int, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := pivot.Data.At(i, j)
			if v == 0 {
				continue
			}
			m.ratedMask[i*cols+j] = true
			sum += v
			userSum[i] += v
			userCnt[i]++
			itemSum[j] += v
			itemCnt[j]++
		}
	}
	m.globalMean = sum / float64(nonZero)
	for i := 0; i < rows; i++ {
		if userCnt[i] > 0 {
			m.userBias[i] = userSum[i]/float64(userCnt[i]) - m.globalMean
		}
	}
	for j := 0; j < cols; j++ {
		if itemCnt[j] > 0 {
			m.itemBias[j] = itemSum[j]/float64(itemCnt[j]) - m.globalMean
		}
	}

	// Centering is numerically unstable at extreme sparsity; factorize the
	// raw matrix instead once past the cutoff.
	working := mat.DenseCopyOf(pivot.Data)
	if m.sparsity <= cfg.ExtremeSparsity {
		m.centered = true
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				v := working.At(i, j)
				if v == 0 {
					continue
				}
				working.Set(i, j, v-(m.globalMean+m.userBias[i]+m.itemBias[j]))
			}
		}
	}

	rank := cfg.NFactors
	if lim := min(rows, cols) - 1; rank > lim {
		rank = lim
	}
	if m.sparsity > cfg.HighSparsity && rank > cfg.SparseFactorCap {
		rank = cfg.SparseFactorCap
	}
	if rank <= 0 {
		return nil, fmt.Errorf("%w: invalid rank %d (users=%d dishes=%d)", ErrFactorization, rank, rows, cols)
	}
	m.rank = rank

	var svd mat.SVD
	if ok := svd.Factorize(working, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: svd did not converge", ErrFactorization)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	// Split the singular values evenly between the two factor matrices.
	m.userFactors = mat.NewDense(rows, rank, nil)
	m.itemFactors = mat.NewDense(cols, rank, nil)
	for c := 0; c < rank; c++ {
		scale := math.Sqrt(values[c])
		for i := 0; i < rows; i++ {
			m.userFactors.Set(i, c, u.At(i, c)*scale)
		}
		for j := 0; j < cols; j++ {
			m.itemFactors.Set(j, c, v.At(j, c)*scale)
		}
	}
	m.fitted = true

	log.Debug("factorization fitted",
		"users", rows,
		"dishes", cols,
		"rank", rank,
		"sparsity", m.sparsity,
		"centered", m.centered,
	)
	return m, nil
}

// Fitted reports whether the model went through a successful Fit.
func (m *Model) Fitted() bool { return m != nil && m.fitted }

// HasUser reports whether the target has a row in the factorized matrix.
func (m *Model) HasUser(userID string) bool {
	_, ok := m.users.Pos(userID)
	return ok
}

// Predict estimates the score user would give dish, clipped to [1,5].
func (m *Model) Predict(userID, dishID string) (float64, bool) {
	raw, ok := m.raw(userID, dishID)
	if !ok {
		return 0, false
	}
	return types.ClampScore(raw), true
}

// PredictWithConfidence blends the raw prediction toward the global mean by
// min(1, sqrt(common/5)): low co-rating evidence regresses to the mean.
func (m *Model) PredictWithConfidence(userID, dishID string, commonItems int) (float64, bool) {
	raw, ok := m.raw(userID, dishID)
	if !ok {
		return 0, false
	}
	conf := math.Min(1, math.Sqrt(float64(commonItems)/confidenceScale))
	blended := m.globalMean + conf*(raw-m.globalMean)
	return types.ClampScore(blended), true
}

func (m *Model) raw(userID, dishID string) (float64, bool) {
	if !m.Fitted() {
		return 0, false
	}
	i, ok := m.users.Pos(userID)
	if !ok {
		return 0, false
	}
	j, ok := m.dishes.Pos(dishID)
	if !ok {
		return 0, false
	}
	dot := floats.Dot(m.userFactors.RawRowView(i), m.itemFactors.RawRowView(j))
	shrink := m.cfg.BiasShrink
	return m.globalMean + shrink*m.userBias[i] + shrink*m.itemBias[j] + dot, true
}

// Recommend scores every dish outside the exclusion set for the target,
// keeps predictions at or above minScore and returns the topN best. Support
// per dish (how many other users rated it) drives confidence weighting.
func (m *Model) Recommend(userID string, exclude map[string]struct{}, minScore float64, topN int) []types.Recommendation {
	if !m.Fitted() || topN < 1 {
		return nil
	}
	i, ok := m.users.Pos(userID)
	if !ok {
		return nil
	}

	type scored struct {
		dishID string
		score  float64
	}
	var candidates []scored
	for j := 0; j < m.dishes.Len(); j++ {
		dishID := m.dishes.ID(j)
		if _, skip := exclude[dishID]; skip {
			continue
		}
		support := 0
		for r := 0; r < m.users.Len(); r++ {
			if r != i && m.underlyingRated(r, j) {
				support++
			}
		}
		score, ok := m.PredictWithConfidence(userID, dishID, support)
		if !ok || score < minScore {
			continue
		}
		candidates = append(candidates, scored{dishID: dishID, score: score})
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].dishID < candidates[b].dishID
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	recs := make([]types.Recommendation, 0, len(candidates))
	for rank, c := range candidates {
		recs = append(recs, types.Recommendation{
			DishID: c.dishID,
			Score:  c.score,
			Rank:   rank + 1,
		})
	}
	return recs
}

// underlyingRated reports whether cell (i,j) held a rating before any
// centering. The factorized matrix alone can't tell: centering maps rated
// cells through zero too.
func (m *Model) underlyingRated(i, j int) bool {
	return m.ratedMask != nil && m.ratedMask[i*m.dishes.Len()+j]
}
