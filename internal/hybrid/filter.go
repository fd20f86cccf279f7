package hybrid

import "bocado/pkg/types"

// maxFilterPasses caps the remove-and-recheck loop. In practice the fixed
// point arrives in 2-3 passes.
const maxFilterPasses = 5

// FilterSparse repeatedly drops users with fewer than minUserRatings entries
// and dishes rated by fewer than minDishRatings users until nothing changes.
// Removing one class can push the other below threshold, so counts are
// re-checked after every pass. The input table is not mutated, and the
// operation is idempotent.
func FilterSparse(table types.RatingTable, minUserRatings, minDishRatings int) types.RatingTable {
	out := cloneTable(table)

	for pass := 0; pass < maxFilterPasses; pass++ {
		changed := false

		for user, row := range out {
			if len(row) < minUserRatings {
				delete(out, user)
				changed = true
			}
		}

		dishCounts := make(map[string]int)
		for _, row := range out {
			for dish := range row {
				dishCounts[dish]++
			}
		}
		for _, row := range out {
			for dish := range row {
				if dishCounts[dish] < minDishRatings {
					delete(row, dish)
					changed = true
				}
			}
		}

		if !changed {
			break
		}
	}

	// Dropping dishes can leave empty rows behind.
	for user, row := range out {
		if len(row) == 0 {
			delete(out, user)
		}
	}
	return out
}

func cloneTable(table types.RatingTable) types.RatingTable {
	out := make(types.RatingTable, len(table))
	for user, row := range table {
		cp := make(map[string]float64, len(row))
		for dish, score := range row {
			cp[dish] = score
		}
		out[user] = cp
	}
	return out
}
