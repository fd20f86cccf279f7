package catalog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"bocado/pkg/types"
)

// Dish is the catalog projection used for result enrichment.
type Dish struct {
	DishID   string   `bson:"dishId" json:"dishId"`
	Name     string   `bson:"name" json:"name"`
	VenueID  string   `bson:"venueId" json:"venueId"`
	Category string   `bson:"category" json:"category"`
	Tags     []string `bson:"tags" json:"tags"`
}

// PopularDish is one row of the system-wide popularity ranking.
type PopularDish struct {
	DishID    string  `bson:"dishId" json:"dishId"`
	Name      string  `bson:"name" json:"name"`
	AvgRating float64 `bson:"avgRating" json:"avgRating"`
	Ratings   int     `bson:"ratings" json:"ratings"`
}

// Source is what the recommender consumes from the rating/catalog store.
type Source interface {
	DishRatings(ctx context.Context) ([]types.Rating, error)
	VenueRatings(ctx context.Context) ([]types.Rating, error)
	DishVenues(ctx context.Context) (map[string]string, error)
	DishesByIDs(ctx context.Context, ids []string) ([]Dish, error)
	PopularDishes(ctx context.Context, topN int) ([]PopularDish, error)
}

type MongoRepository struct {
	dishes       *mongo.Collection
	dishRatings  *mongo.Collection
	venueRatings *mongo.Collection
}

func NewMongoRepository(dishes, dishRatings, venueRatings *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		dishes:       dishes,
		dishRatings:  dishRatings,
		venueRatings: venueRatings,
	}
}

type ratingDoc struct {
	UserID  string  `bson:"userId"`
	DishID  string  `bson:"dishId"`
	VenueID string  `bson:"venueId"`
	Value   float64 `bson:"value"`
}

func (r *MongoRepository) DishRatings(ctx context.Context) ([]types.Rating, error) {
	return r.ratings(ctx, r.dishRatings, types.KindDish)
}

func (r *MongoRepository) VenueRatings(ctx context.Context) ([]types.Rating, error) {
	return r.ratings(ctx, r.venueRatings, types.KindVenue)
}

func (r *MongoRepository) ratings(ctx context.Context, coll *mongo.Collection, kind types.ItemKind) ([]types.Rating, error) {
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("finding %s ratings: %w", kind, err)
	}
	defer cursor.Close(ctx)

	var out []types.Rating
	for cursor.Next(ctx) {
		var doc ratingDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding %s rating: %w", kind, err)
		}
		id := doc.DishID
		if kind == types.KindVenue {
			id = doc.VenueID
		}
		if doc.UserID == "" || id == "" {
			continue
		}
		out = append(out, types.Rating{
			UserID: doc.UserID,
			ItemID: id,
			Value:  doc.Value,
			Kind:   kind,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s ratings: %w", kind, err)
	}
	return out, nil
}

func (r *MongoRepository) DishVenues(ctx context.Context) (map[string]string, error) {
	cursor, err := r.dishes.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("finding dishes: %w", err)
	}
	defer cursor.Close(ctx)

	venues := make(map[string]string)
	for cursor.Next(ctx) {
		var dish Dish
		if err := cursor.Decode(&dish); err != nil {
			return nil, fmt.Errorf("decoding dish: %w", err)
		}
		if dish.DishID != "" && dish.VenueID != "" {
			venues[dish.DishID] = dish.VenueID
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating dishes: %w", err)
	}
	return venues, nil
}

func (r *MongoRepository) DishesByIDs(ctx context.Context, ids []string) ([]Dish, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.dishes.Find(ctx, bson.D{{Key: "dishId", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, fmt.Errorf("finding dishes by ids: %w", err)
	}
	defer cursor.Close(ctx)

	var dishes []Dish
	if err := cursor.All(ctx, &dishes); err != nil {
		return nil, fmt.Errorf("decoding dishes: %w", err)
	}
	return dishes, nil
}

// PopularDishes ranks dishes by rating count, then average rating.
func (r *MongoRepository) PopularDishes(ctx context.Context, topN int) ([]PopularDish, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$dishId"},
			{Key: "ratings", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$value"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "ratings", Value: -1}, {Key: "avgRating", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: topN}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: r.dishes.Name()},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "dishId"},
			{Key: "as", Value: "details"},
		}}},
		{{Key: "$unwind", Value: bson.D{{Key: "path", Value: "$details"}, {Key: "preserveNullAndEmptyArrays", Value: true}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "dishId", Value: "$_id"},
			{Key: "name", Value: "$details.name"},
			{Key: "avgRating", Value: "$avgRating"},
			{Key: "ratings", Value: "$ratings"},
		}}},
	}

	cursor, err := r.dishRatings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregating popular dishes: %w", err)
	}
	defer cursor.Close(ctx)

	var dishes []PopularDish
	if err := cursor.All(ctx, &dishes); err != nil {
		return nil, fmt.Errorf("decoding popular dishes: %w", err)
	}
	return dishes, nil
}
