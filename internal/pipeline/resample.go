package pipeline

import (
	"errors"
	"slices"
	"time"

	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
)

// ErrMissingDateField means the dataset has no date column at all. Rows that
// merely lack a usable date are skipped instead.
var ErrMissingDateField = errors.New("dataset has no Date column")

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ResampleMonthly sums the total product sales of the view per calendar month.
// Months without rows are left out rather than reported as zero.
func ResampleMonthly(view models.FilteredView) ([]models.MonthlyPoint, error) {
	if !view.HasDate() {
		return nil, ErrMissingDateField
	}

	buckets := make(map[time.Time]float64)
	for i, row := range view.Rows {
		date := view.Source(i).Date
		if date == nil {
			continue
		}
		buckets[MonthStart(*date)] += row.Total
	}

	series := make([]models.MonthlyPoint, 0, len(buckets))
	for period, total := range buckets {
		series = append(series, models.MonthlyPoint{Period: period, Total: total})
	}
	slices.SortFunc(series, func(a, b models.MonthlyPoint) int {
		return a.Period.Compare(b.Period)
	})
	return series, nil
}

// ScatterPoints pairs each row's total product sales with the services
// revenue of the same record.
func ScatterPoints(view models.FilteredView) []models.ScatterPoint {
	points := make([]models.ScatterPoint, 0, view.Len())
	for i, row := range view.Rows {
		points = append(points, models.ScatterPoint{
			State:             row.State,
			Region:            row.Region,
			TotalProductSales: row.Total,
			ServicesRevenue:   view.Source(i).ServicesRevenue,
		})
	}
	return points
}
