package neighborhood

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"bocado/pkg/types"
)

// Index is a bidirectional id <-> position map, built once per neighborhood
// and treated as immutable afterwards.
type Index struct {
	ids []string
	pos map[string]int
}

func NewIndex(ids []string) *Index {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	pos := make(map[string]int, len(sorted))
	for i, id := range sorted {
		pos[id] = i
	}
	return &Index{ids: sorted, pos: pos}
}

func (ix *Index) Len() int { return len(ix.ids) }

func (ix *Index) ID(i int) string { return ix.ids[i] }

func (ix *Index) Pos(id string) (int, bool) {
	i, ok := ix.pos[id]
	return i, ok
}

func (ix *Index) IDs() []string { return append([]string(nil), ix.ids...) }

// PivotMatrix is the users x dishes score matrix of one neighborhood.
// A 0 cell means unrated; stored scores are clamped to [1,5] so the sentinel
// is unambiguous.
type PivotMatrix struct {
	Data   *mat.Dense
	Users  *Index
	Dishes *Index
}

// NewPivotMatrix lays out the given users' rows of the table as a dense
// matrix over every dish any of them rated. Returns nil when the selection
// holds no scores.
func NewPivotMatrix(table types.RatingTable, users []string) *PivotMatrix {
	dishSet := make(map[string]struct{})
	kept := make([]string, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		row, ok := table[u]
		if !ok || len(row) == 0 {
			continue
		}
		kept = append(kept, u)
		for dish := range row {
			dishSet[dish] = struct{}{}
		}
	}
	if len(kept) == 0 || len(dishSet) == 0 {
		return nil
	}

	dishes := make([]string, 0, len(dishSet))
	for dish := range dishSet {
		dishes = append(dishes, dish)
	}

	userIndex := NewIndex(kept)
	dishIndex := NewIndex(dishes)
	data := mat.NewDense(userIndex.Len(), dishIndex.Len(), nil)
	for _, u := range kept {
		i, _ := userIndex.Pos(u)
		for dish, score := range table[u] {
			j, _ := dishIndex.Pos(dish)
			data.Set(i, j, types.ClampScore(score))
		}
	}
	return &PivotMatrix{Data: data, Users: userIndex, Dishes: dishIndex}
}

// Score returns the stored value with 0 meaning unrated.
func (p *PivotMatrix) Score(userID, dishID string) float64 {
	i, ok := p.Users.Pos(userID)
	if !ok {
		return 0
	}
	j, ok := p.Dishes.Pos(dishID)
	if !ok {
		return 0
	}
	return p.Data.At(i, j)
}

// NonZero counts rated cells.
func (p *PivotMatrix) NonZero() int {
	n := 0
	rows, cols := p.Data.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if p.Data.At(i, j) != 0 {
				n++
			}
		}
	}
	return n
}

// Sparsity is the fraction of unrated cells.
func (p *PivotMatrix) Sparsity() float64 {
	rows, cols := p.Data.Dims()
	total := rows * cols
	if total == 0 {
		return 1
	}
	return 1 - float64(p.NonZero())/float64(total)
}
