package similarity

import (
	"math"
	"testing"

	"bocado/pkg/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCosineRestrictedToCoRatedItems(t *testing.T) {
	// u1 and u2 share d1, d2; u2's extra dish must not affect the score.
	table := types.RatingTable{
		"u1": {"d1": 4, "d2": 2},
		"u2": {"d1": 4, "d2": 2, "d3": 5},
	}
	engine := NewEngine(MethodCosine, 2)
	sims := engine.Similarities(table, "u1")

	if !almostEqual(sims["u2"], 1) {
		t.Fatalf("identical restricted vectors: want=1 got=%.6f", sims["u2"])
	}
}

func TestCosineValue(t *testing.T) {
	table := types.RatingTable{
		"u1": {"d1": 3, "d2": 4},
		"u2": {"d1": 4, "d2": 3},
	}
	engine := NewEngine(MethodCosine, 2)
	sims := engine.Similarities(table, "u1")

	want := (3.0*4 + 4.0*3) / (5.0 * 5.0)
	if !almostEqual(sims["u2"], want) {
		t.Fatalf("cosine: want=%.6f got=%.6f", want, sims["u2"])
	}
}

func TestJaccardIgnoresMagnitude(t *testing.T) {
	table := types.RatingTable{
		"u1": {"d1": 1, "d2": 1, "d3": 1},
		"u2": {"d2": 5, "d3": 5, "d4": 5},
	}
	engine := NewEngine(MethodJaccard, 2)
	sims := engine.Similarities(table, "u1")

	// |{d2,d3}| / |{d1,d2,d3,d4}|
	if !almostEqual(sims["u2"], 0.5) {
		t.Fatalf("jaccard: want=0.5 got=%.6f", sims["u2"])
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	table := types.RatingTable{
		"a": {"d1": 5, "d2": 1, "d3": 4},
		"b": {"d1": 2, "d2": 4, "d4": 3},
	}
	for _, method := range []Method{MethodCosine, MethodJaccard} {
		engine := NewEngine(method, 1)
		fromA := engine.Similarities(table, "a")["b"]
		fromB := engine.Similarities(table, "b")["a"]
		if !almostEqual(fromA, fromB) {
			t.Fatalf("%s not symmetric: sim(a,b)=%.6f sim(b,a)=%.6f", method, fromA, fromB)
		}
	}
}

func TestMinCommonItemsGate(t *testing.T) {
	table := types.RatingTable{
		"u1": {"d1": 4, "d2": 3},
		"u2": {"d1": 4, "d9": 5},
	}
	engine := NewEngine(MethodCosine, 2)
	if sims := engine.Similarities(table, "u1"); len(sims) != 0 {
		t.Fatalf("one common item should not qualify, got %v", sims)
	}
}

func TestSimilarityRange(t *testing.T) {
	table := types.RatingTable{
		"u1": {"d1": 5, "d2": 5, "d3": 1},
		"u2": {"d1": 1, "d2": 5, "d3": 5},
		"u3": {"d1": 5, "d2": 5, "d3": 1},
	}
	for _, method := range []Method{MethodCosine, MethodJaccard} {
		engine := NewEngine(method, 1)
		for user, sim := range engine.Similarities(table, "u1") {
			if sim <= 0 || sim > 1 {
				t.Fatalf("%s sim(u1,%s)=%.6f outside (0,1]", method, user, sim)
			}
		}
	}
}

func TestUnknownTargetYieldsEmptyMap(t *testing.T) {
	table := types.RatingTable{"u1": {"d1": 4}}
	engine := NewEngine(MethodCosine, 1)
	if sims := engine.Similarities(table, "ghost"); len(sims) != 0 {
		t.Fatalf("unknown target: want empty map, got %v", sims)
	}
}

func TestNewEngineDefaults(t *testing.T) {
	engine := NewEngine(Method("nonsense"), 0)
	if engine.Method != MethodCosine {
		t.Fatalf("method default: want=cosine got=%s", engine.Method)
	}
	if engine.MinCommon != 1 {
		t.Fatalf("min common default: want=1 got=%d", engine.MinCommon)
	}
}
