// Package pipeline holds the pure computations behind the dashboard: filtering
// the loaded records, grouping them for the bar charts and resampling them into
// a monthly series for forecasting. Nothing here mutates its inputs.
package pipeline

import (
	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
)

// ApplyFilter keeps the records whose region and state are both selected and
// derives the total of the selected product fields for each of them.
// An empty product selection always yields an empty view.
func ApplyFilter(records []models.SalesRecord, hasDate bool, sel models.FilterSelection) models.FilteredView {
	products := dedupeProducts(sel.Products)

	if len(products) == 0 {
		return models.NewFilteredView(
			[]string{models.ColumnState, models.ColumnRegion},
			products,
			[]models.FilteredRow{},
			records, nil, hasDate,
		)
	}

	regions := toSet(sel.Regions)
	states := toSet(sel.States)

	rows := make([]models.FilteredRow, 0)
	indices := make([]int, 0)
	for i, rec := range records {
		if _, ok := regions[rec.Region]; !ok {
			continue
		}
		if _, ok := states[rec.State]; !ok {
			continue
		}

		values := make([]float64, len(products))
		var total float64
		for j, p := range products {
			values[j] = rec.Product(p)
			total += values[j]
		}

		rows = append(rows, models.FilteredRow{
			State:  rec.State,
			Region: rec.Region,
			Values: values,
			Total:  total,
		})
		indices = append(indices, i)
	}

	return models.NewFilteredView(displayColumns(products), products, rows, records, indices, hasDate)
}

func displayColumns(products []models.ProductField) []string {
	columns := make([]string, 0, len(products)+3)
	columns = append(columns, models.ColumnState, models.ColumnRegion)
	for _, p := range products {
		columns = append(columns, string(p))
	}
	return append(columns, models.ColumnTotalSales)
}

func dedupeProducts(products []models.ProductField) []models.ProductField {
	seen := make(map[models.ProductField]struct{}, len(products))
	out := make([]models.ProductField, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
