package types

// ItemKind distinguishes the two independent rating sources.
type ItemKind string

const (
	KindDish  ItemKind = "dish"
	KindVenue ItemKind = "venue"
)

// Rating is one immutable record from the rating store. ItemID refers to a
// dish or a venue depending on Kind.
type Rating struct {
	UserID string   `bson:"userId" json:"user_id"`
	ItemID string   `bson:"itemId" json:"item_id"`
	Value  float64  `bson:"value" json:"value"`
	Kind   ItemKind `bson:"kind" json:"kind"`
}

// HybridScore is the per-(user, dish) training value produced by blending a
// dish rating with the venue rating of the same user, when one exists.
type HybridScore struct {
	UserID   string  `json:"user_id"`
	DishID   string  `json:"dish_id"`
	Score    float64 `json:"score"`
	HasVenue bool    `json:"has_venue_component"`
}

// RatingTable maps userID -> dishID -> score. A missing entry means unrated;
// stored scores are always in [1,5], so 0 never appears as a value.
type RatingTable = map[string]map[string]float64

// Recommendation is one ranked entry of a recommend() response.
type Recommendation struct {
	DishID string  `json:"dish_id"`
	Score  float64 `json:"predicted_score"`
	Rank   int     `json:"rank"`
}

const (
	// MinRating and MaxRating bound every valid rating and prediction.
	MinRating = 1.0
	MaxRating = 5.0
)

// ClampScore clips v into the valid rating range.
func ClampScore(v float64) float64 {
	if v < MinRating {
		return MinRating
	}
	if v > MaxRating {
		return MaxRating
	}
	return v
}
