package factorization

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"bocado/pkg/types"
)

// ndcgCutoff is the list depth NDCG is evaluated at.
const ndcgCutoff = 10

// coverageThreshold marks a prediction as "recommendable" for coverage.
const coverageThreshold = 3.0

// Metrics summarizes a held-out evaluation run.
type Metrics struct {
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
	NDCG     float64 `json:"ndcg_at_10"`
	Coverage float64 `json:"coverage"`
	Pairs    int     `json:"pairs"`
}

// Evaluate predicts every held-out (user, dish) pair the model knows about
// and reports MAE, RMSE, mean per-user NDCG@10 and coverage. NDCG is only
// computed for users with at least two held-out ratings; users or dishes
// unknown to the model are skipped.
func (m *Model) Evaluate(heldOut types.RatingTable) Metrics {
	var absErrs, sqErrs []float64
	recommendable := 0
	pairs := 0

	perUserNDCG := make([]float64, 0, len(heldOut))
	users := make([]string, 0, len(heldOut))
	for userID := range heldOut {
		users = append(users, userID)
	}
	sort.Strings(users)

	for _, userID := range users {
		row := heldOut[userID]
		type pair struct {
			actual    float64
			predicted float64
		}
		var known []pair
		for dishID, actual := range row {
			predicted, ok := m.Predict(userID, dishID)
			if !ok {
				continue
			}
			pairs++
			diff := predicted - actual
			absErrs = append(absErrs, math.Abs(diff))
			sqErrs = append(sqErrs, diff*diff)
			if predicted >= coverageThreshold {
				recommendable++
			}
			known = append(known, pair{actual: actual, predicted: predicted})
		}
		if len(known) < 2 {
			continue
		}

		// DCG over the predicted order, IDCG over the ideal order.
		byPredicted := append([]pair(nil), known...)
		sort.Slice(byPredicted, func(i, j int) bool {
			return byPredicted[i].predicted > byPredicted[j].predicted
		})
		byActual := append([]pair(nil), known...)
		sort.Slice(byActual, func(i, j int) bool {
			return byActual[i].actual > byActual[j].actual
		})

		var dcg, idcg float64
		for i := 0; i < len(known) && i < ndcgCutoff; i++ {
			discount := math.Log2(float64(i) + 2)
			dcg += byPredicted[i].actual / discount
			idcg += byActual[i].actual / discount
		}
		if idcg > 0 {
			perUserNDCG = append(perUserNDCG, dcg/idcg)
		}
	}

	metrics := Metrics{Pairs: pairs}
	if pairs > 0 {
		metrics.MAE = stat.Mean(absErrs, nil)
		metrics.RMSE = math.Sqrt(stat.Mean(sqErrs, nil))
		metrics.Coverage = float64(recommendable) / float64(pairs)
	}
	if len(perUserNDCG) > 0 {
		metrics.NDCG = stat.Mean(perUserNDCG, nil)
	}
	return metrics
}
