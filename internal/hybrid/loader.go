package hybrid

import (
	"bocado/internal/platform/logger"
	"bocado/pkg/types"
)

// Loader merges per-dish and per-venue ratings into one scalar training score
// per (user, dish). With hybrid mode on, a dish rating is blended with the
// same user's rating of the dish's venue:
//
//	score = alpha*dish + (1-alpha)*venue
//
// When the user never rated the venue, the dish rating stands alone.
type Loader struct {
	Alpha  float64
	Hybrid bool
	log    *logger.Logger
}

func NewLoader(alpha float64, hybrid bool, log *logger.Logger) *Loader {
	return &Loader{Alpha: alpha, Hybrid: hybrid, log: log}
}

// Load produces one HybridScore per dish rating. No dish ratings at all is
// not an error: callers treat an empty table as "no data".
func (l *Loader) Load(dishRatings, venueRatings []types.Rating, dishVenue map[string]string) []types.HybridScore {
	if len(dishRatings) == 0 {
		return nil
	}

	// userID -> venueID -> rating
	byVenue := make(map[string]map[string]float64, len(venueRatings))
	for _, r := range venueRatings {
		if r.Kind != types.KindVenue {
			continue
		}
		row := byVenue[r.UserID]
		if row == nil {
			row = make(map[string]float64)
			byVenue[r.UserID] = row
		}
		row[r.ItemID] = r.Value
	}

	scores := make([]types.HybridScore, 0, len(dishRatings))
	blended := 0
	for _, r := range dishRatings {
		if r.Kind != types.KindDish {
			continue
		}
		score := r.Value
		hasVenue := false
		if l.Hybrid {
			if venueID, ok := dishVenue[r.ItemID]; ok {
				if vr, ok := byVenue[r.UserID][venueID]; ok {
					score = l.Alpha*r.Value + (1-l.Alpha)*vr
					hasVenue = true
					blended++
				}
			}
		}
		scores = append(scores, types.HybridScore{
			UserID:   r.UserID,
			DishID:   r.ItemID,
			Score:    types.ClampScore(score),
			HasVenue: hasVenue,
		})
	}

	if len(scores) > 0 {
		coverage := 100 * float64(blended) / float64(len(scores))
		l.log.Debug("hybrid scores loaded",
			"scores", len(scores),
			"venue_coverage_pct", coverage,
			"alpha", l.Alpha,
			"hybrid", l.Hybrid,
		)
	}
	return scores
}

// Table converts a score list to the userID -> dishID -> score form the rest
// of the pipeline works on. Later entries for the same (user, dish) win.
func Table(scores []types.HybridScore) types.RatingTable {
	table := make(types.RatingTable, 64)
	for _, s := range scores {
		row := table[s.UserID]
		if row == nil {
			row = make(map[string]float64)
			table[s.UserID] = row
		}
		row[s.DishID] = s.Score
	}
	return table
}
