package models

import "time"

type FilteredRow struct {
	State  string    `json:"state"`
	Region string    `json:"region"`
	Values []float64 `json:"values"`
	Total  float64   `json:"total_product_sales"`
}

// FilteredView is the subset of loaded records matching a FilterSelection.
// It holds indices into the source records instead of copies, so it must not
// outlive a reload of the dataset it was built from.
type FilteredView struct {
	Columns  []string       `json:"columns"`
	Products []ProductField `json:"products"`
	Rows     []FilteredRow  `json:"rows"`

	source  []SalesRecord
	indices []int
	hasDate bool
}

func NewFilteredView(columns []string, products []ProductField, rows []FilteredRow, source []SalesRecord, indices []int, hasDate bool) FilteredView {
	return FilteredView{
		Columns:  columns,
		Products: products,
		Rows:     rows,
		source:   source,
		indices:  indices,
		hasDate:  hasDate,
	}
}

func (v FilteredView) Len() int { return len(v.Rows) }

func (v FilteredView) Empty() bool { return len(v.Rows) == 0 }

// HasDate reports whether the dataset behind the view carried a date column.
func (v FilteredView) HasDate() bool { return v.hasDate }

// Source returns the loaded record behind row i.
func (v FilteredView) Source(i int) SalesRecord {
	return v.source[v.indices[i]]
}

type AggregateRow struct {
	Key    string    `json:"key"`
	Values []float64 `json:"values"`
	Total  float64   `json:"total_product_sales"`
	Count  int       `json:"count"`
}

type AggregateTable struct {
	Key      string         `json:"key"`
	Products []ProductField `json:"products"`
	Rows     []AggregateRow `json:"rows"`
}

func (t AggregateTable) Empty() bool { return len(t.Rows) == 0 }

type MonthlyPoint struct {
	Period time.Time `json:"period"`
	Total  float64   `json:"total"`
}

type ForecastPoint struct {
	Period     time.Time `json:"period"`
	Predicted  float64   `json:"predicted"`
	Trend      float64   `json:"trend"`
	Seasonal   float64   `json:"seasonal"`
	Lower      float64   `json:"lower"`
	Upper      float64   `json:"upper"`
	Historical bool      `json:"historical"`
}

type ForecastResult struct {
	Points       []ForecastPoint `json:"points"`
	History      []MonthlyPoint  `json:"history"`
	Horizon      int             `json:"horizon"`
	HistoryStart time.Time       `json:"history_start"`
	HistoryEnd   time.Time       `json:"history_end"`
}

// Future returns the trailing points that lie after the last historical month.
func (r *ForecastResult) Future() []ForecastPoint {
	if r == nil || r.Horizon > len(r.Points) {
		return nil
	}
	return r.Points[len(r.Points)-r.Horizon:]
}
