package neighborhood

import (
	"errors"
	"testing"

	"bocado/internal/platform/logger"
	"bocado/internal/similarity"
	"bocado/pkg/types"
)

func testOptions() Options {
	return Options{
		TopK:                50,
		SimilarityThreshold: 0.2,
		MinUserRatings:      1,
		MinDishRatings:      1,
	}
}

// Three users rating the same dishes identically: everyone is everyone's
// neighbor at similarity 1.
func denseTable() types.RatingTable {
	return types.RatingTable{
		"u1": {"d1": 4, "d2": 3, "d3": 5},
		"u2": {"d1": 4, "d2": 3, "d3": 5},
		"u3": {"d1": 4, "d2": 3, "d3": 5},
	}
}

func newTestBuilder(table types.RatingTable, opts Options) *Builder {
	engine := similarity.NewEngine(similarity.MethodCosine, 2)
	return NewBuilder(table, engine, opts, logger.NewNop())
}

func TestBuildTargetIsMember(t *testing.T) {
	b := newTestBuilder(denseTable(), testOptions())
	nb, pivot, err := b.Build("u1")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if nb.TargetID != "u1" {
		t.Fatalf("target: want=u1 got=%s", nb.TargetID)
	}
	if nb.Members[0] != "u1" {
		t.Fatalf("target must lead the member list, got %v", nb.Members)
	}
	if _, ok := pivot.Users.Pos("u1"); !ok {
		t.Fatalf("target missing from pivot rows")
	}
	if nb.Fallback {
		t.Fatalf("dense table should not need the fallback dataset")
	}
}

func TestBuildOrdersNeighborsBySimilarity(t *testing.T) {
	table := types.RatingTable{
		"u1": {"d1": 5, "d2": 5, "d3": 5},
		"u2": {"d1": 5, "d2": 5, "d3": 5}, // identical to u1
		"u3": {"d1": 5, "d2": 1, "d3": 1}, // diverges
		"u4": {"d1": 5, "d2": 5, "d3": 4}, // close to u1
	}
	b := newTestBuilder(table, testOptions())
	nb, _, err := b.Build("u1")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if nb.Members[1] != "u2" {
		t.Fatalf("closest neighbor: want=u2 got=%s (members=%v)", nb.Members[1], nb.Members)
	}
	prev := 2.0
	for _, m := range nb.Members[1:] {
		sim := nb.Similarities[m]
		if sim > prev {
			t.Fatalf("members not ordered by similarity: %v", nb.Members)
		}
		prev = sim
	}
}

func TestBuildUnknownUserUsesFallbackDataset(t *testing.T) {
	b := newTestBuilder(denseTable(), testOptions())
	nb, pivot, err := b.Build("ghost")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !nb.Fallback {
		t.Fatalf("expected fallback dataset for unknown user")
	}
	if nb.TargetID != "ghost" || nb.Members[0] != "ghost" {
		t.Fatalf("target must stay a member even in fallback, got %v", nb.Members)
	}
	if rows, _ := pivot.Data.Dims(); rows != 3 {
		t.Fatalf("fallback pivot rows: want=3 got=%d", rows)
	}
}

func TestBuildTooFewNeighborsUsesFallbackDataset(t *testing.T) {
	// u2 shares nothing with u1; u3 shares a single dish, below min common.
	table := types.RatingTable{
		"u1": {"d1": 4, "d2": 3},
		"u2": {"d8": 4, "d9": 3},
		"u3": {"d1": 4, "d7": 3},
	}
	b := newTestBuilder(table, testOptions())
	nb, pivot, err := b.Build("u1")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !nb.Fallback {
		t.Fatalf("expected fallback dataset when neighbors < 2")
	}
	if pivot == nil {
		t.Fatalf("fallback pivot must not be nil while ratings exist")
	}
}

func TestBuildEmptyTable(t *testing.T) {
	b := newTestBuilder(types.RatingTable{}, testOptions())
	if _, _, err := b.Build("u1"); !errors.Is(err, ErrNoRatings) {
		t.Fatalf("want ErrNoRatings, got %v", err)
	}
}

func TestBuildAppliesSparsityFilterOnce(t *testing.T) {
	table := types.RatingTable{
		"u1": {"d1": 4, "d2": 3, "d3": 5},
		"u2": {"d1": 4, "d2": 3, "d3": 5},
		"u3": {"d1": 2}, // below MinUserRatings
	}
	opts := testOptions()
	opts.MinUserRatings = 2
	b := newTestBuilder(table, opts)

	filtered := b.Filtered()
	if _, ok := filtered["u3"]; ok {
		t.Fatalf("u3 should have been filtered out")
	}
	// Same instance, same filtered table.
	if len(b.Filtered()) != len(filtered) {
		t.Fatalf("filtered table should be stable across calls")
	}
}

func TestBuildRespectsTopK(t *testing.T) {
	table := types.RatingTable{}
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		table[u] = map[string]float64{"d1": 4, "d2": 3, "d3": 5}
	}
	opts := testOptions()
	opts.TopK = 3
	b := newTestBuilder(table, opts)
	nb, _, err := b.Build("u1")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := len(nb.Members) - 1; got != 3 {
		t.Fatalf("neighbors: want=3 got=%d", got)
	}
}

func TestPivotMatrixDimensionsMatchIndexes(t *testing.T) {
	table := denseTable()
	pivot := NewPivotMatrix(table, []string{"u1", "u2"})
	rows, cols := pivot.Data.Dims()
	if rows != pivot.Users.Len() {
		t.Fatalf("rows: want=%d got=%d", pivot.Users.Len(), rows)
	}
	if cols != pivot.Dishes.Len() {
		t.Fatalf("cols: want=%d got=%d", pivot.Dishes.Len(), cols)
	}
	if pivot.Score("u1", "d2") != 3 {
		t.Fatalf("score(u1,d2): want=3 got=%.3f", pivot.Score("u1", "d2"))
	}
	if pivot.Score("u1", "unknown") != 0 {
		t.Fatalf("unknown dish must read as the unrated sentinel")
	}
}

func TestPivotMatrixDeduplicatesUsers(t *testing.T) {
	pivot := NewPivotMatrix(denseTable(), []string{"u1", "u1", "u2"})
	if rows, _ := pivot.Data.Dims(); rows != 2 {
		t.Fatalf("duplicate member rows: want=2 got=%d", rows)
	}
}

func TestPivotMatrixSparsity(t *testing.T) {
	table := types.RatingTable{
		"u1": {"d1": 4},
		"u2": {"d2": 5},
	}
	pivot := NewPivotMatrix(table, []string{"u1", "u2"})
	if got := pivot.Sparsity(); got != 0.5 {
		t.Fatalf("sparsity: want=0.5 got=%.3f", got)
	}
	if got := pivot.NonZero(); got != 2 {
		t.Fatalf("non-zero cells: want=2 got=%d", got)
	}
}
