package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
)

const (
	KeyRegion = "region"
	KeyState  = "state"

	TopStatesLimit = 10
)

var ErrUnknownGroupKey = errors.New("unknown group key")

// AggregateBy sums every numeric column of the view per group. Groups keep
// the order in which their key first appears. With topN > 0 the groups are
// ranked by total, descending, and truncated; equal totals keep that order.
func AggregateBy(view models.FilteredView, key string, topN int) (models.AggregateTable, error) {
	var keyOf func(models.FilteredRow) string
	switch key {
	case KeyRegion:
		keyOf = func(r models.FilteredRow) string { return r.Region }
	case KeyState:
		keyOf = func(r models.FilteredRow) string { return r.State }
	default:
		return models.AggregateTable{}, fmt.Errorf("%w: %q", ErrUnknownGroupKey, key)
	}

	table := models.AggregateTable{
		Key:      key,
		Products: view.Products,
		Rows:     []models.AggregateRow{},
	}
	if view.Empty() {
		return table, nil
	}

	positions := make(map[string]int)
	for _, row := range view.Rows {
		k := keyOf(row)
		pos, ok := positions[k]
		if !ok {
			pos = len(table.Rows)
			positions[k] = pos
			table.Rows = append(table.Rows, models.AggregateRow{
				Key:    k,
				Values: make([]float64, len(view.Products)),
			})
		}

		group := &table.Rows[pos]
		for j, v := range row.Values {
			group.Values[j] += v
		}
		group.Total += row.Total
		group.Count++
	}

	if topN > 0 {
		slices.SortStableFunc(table.Rows, func(a, b models.AggregateRow) int {
			if a.Total > b.Total {
				return -1
			}
			if a.Total < b.Total {
				return 1
			}
			return 0
		})
		if len(table.Rows) > topN {
			table.Rows = table.Rows[:topN]
		}
	}

	return table, nil
}

// RegionTotals groups the view by region without ranking, for the full
// region comparison charts.
func RegionTotals(view models.FilteredView) models.AggregateTable {
	table, _ := AggregateBy(view, KeyRegion, 0)
	return table
}

// TopStates is the state leaderboard: the ten states with the highest totals.
func TopStates(view models.FilteredView) models.AggregateTable {
	table, _ := AggregateBy(view, KeyState, TopStatesLimit)
	return table
}
