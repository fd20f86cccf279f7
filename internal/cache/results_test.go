package cache

import (
	"context"
	"testing"

	"bocado/pkg/types"
)

func TestKeyCoversTrainingKnobs(t *testing.T) {
	base := Key("u1", 0.7, true, 10)
	if base != "reco:u1:a=0.700:h=true:n=10" {
		t.Fatalf("unexpected key layout: %s", base)
	}
	for _, other := range []string{
		Key("u2", 0.7, true, 10),
		Key("u1", 0.5, true, 10),
		Key("u1", 0.7, false, 10),
		Key("u1", 0.7, true, 5),
	} {
		if other == base {
			t.Fatalf("key collision: %s", other)
		}
	}
}

func TestNilResultsIsSafe(t *testing.T) {
	var r *Results
	ctx := context.Background()
	if _, ok := r.Get(ctx, "any"); ok {
		t.Fatalf("nil cache must always miss")
	}
	r.Set(ctx, "any", []types.Recommendation{{DishID: "d1", Score: 4.5, Rank: 1}})

	// A Results without a client behaves the same way.
	empty := NewResults(nil, 0, nil)
	if _, ok := empty.Get(ctx, "any"); ok {
		t.Fatalf("clientless cache must always miss")
	}
	empty.Set(ctx, "any", nil)
}
