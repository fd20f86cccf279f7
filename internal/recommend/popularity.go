package recommend

import (
	"sort"

	"bocado/pkg/types"
)

// popularFromSnapshot ranks dishes by raw rating count (average rating and
// dish id break ties) and returns up to topN entries outside the exclusion
// set. This is the terminal fallback tier: it succeeds whenever the snapshot
// holds any dish at all.
func popularFromSnapshot(snap *snapshot, exclude map[string]struct{}, topN int) []types.Recommendation {
	if snap == nil || topN < 1 {
		return nil
	}

	type agg struct {
		count int
		sum   float64
	}
	byDish := make(map[string]*agg)
	for _, r := range snap.dishRatings {
		a := byDish[r.ItemID]
		if a == nil {
			a = &agg{}
			byDish[r.ItemID] = a
		}
		a.count++
		a.sum += types.ClampScore(r.Value)
	}

	dishes := make([]string, 0, len(byDish))
	for dishID := range byDish {
		if _, skip := exclude[dishID]; skip {
			continue
		}
		dishes = append(dishes, dishID)
	}
	sort.Slice(dishes, func(i, j int) bool {
		ai, aj := byDish[dishes[i]], byDish[dishes[j]]
		if ai.count != aj.count {
			return ai.count > aj.count
		}
		mi, mj := ai.sum/float64(ai.count), aj.sum/float64(aj.count)
		if mi != mj {
			return mi > mj
		}
		return dishes[i] < dishes[j]
	})
	if len(dishes) > topN {
		dishes = dishes[:topN]
	}

	recs := make([]types.Recommendation, 0, len(dishes))
	for rank, dishID := range dishes {
		a := byDish[dishID]
		recs = append(recs, types.Recommendation{
			DishID: dishID,
			Score:  types.ClampScore(a.sum / float64(a.count)),
			Rank:   rank + 1,
		})
	}
	return recs
}
