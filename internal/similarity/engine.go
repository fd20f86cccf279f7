package similarity

import (
	"math"

	"bocado/pkg/types"
)

// Method selects the user-to-user similarity measure.
type Method string

const (
	MethodCosine  Method = "cosine"
	MethodJaccard Method = "jaccard"
)

// Engine computes raw pairwise similarity between a target user and every
// other user of a rating table. It reports values only for users sharing at
// least MinCommon rated dishes with the target; thresholding is the caller's
// policy, not the engine's.
type Engine struct {
	Method    Method
	MinCommon int
}

func NewEngine(method Method, minCommon int) Engine {
	if method != MethodJaccard {
		method = MethodCosine
	}
	if minCommon < 1 {
		minCommon = 1
	}
	return Engine{Method: method, MinCommon: minCommon}
}

// Similarities maps every qualifying other user to a similarity in (0,1].
// An absent target yields an empty map.
func (e Engine) Similarities(table types.RatingTable, targetID string) map[string]float64 {
	target, ok := table[targetID]
	if !ok || len(target) == 0 {
		return map[string]float64{}
	}

	out := make(map[string]float64)
	for userID, row := range table {
		if userID == targetID {
			continue
		}
		var sim float64
		switch e.Method {
		case MethodJaccard:
			sim = jaccard(target, row, e.MinCommon)
		default:
			sim = cosine(target, row, e.MinCommon)
		}
		if sim > 0 {
			out[userID] = sim
		}
	}
	return out
}

// cosine restricts both vectors to the co-rated dish subset before taking
// the cosine. Both restricted vectors being all-zero is degenerate and
// reports 0, as does an empty intersection.
func cosine(a, b map[string]float64, minCommon int) float64 {
	var dot, normA, normB float64
	common := 0
	for dish, ra := range a {
		rb, ok := b[dish]
		if !ok {
			continue
		}
		common++
		dot += ra * rb
		normA += ra * ra
		normB += rb * rb
	}
	if common < minCommon {
		return 0
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Guard float drift past 1.0 so the documented range holds.
	return math.Min(sim, 1)
}

// jaccard is intersection-over-union of the rated-dish sets; score
// magnitudes are ignored.
func jaccard(a, b map[string]float64, minCommon int) float64 {
	common := 0
	for dish := range a {
		if _, ok := b[dish]; ok {
			common++
		}
	}
	if common < minCommon {
		return 0
	}
	union := len(a) + len(b) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}
