// Package charts renders the dashboard's charts as PNG images with gonum/plot.
package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
)

const (
	NameRegions    = "regions"
	NameProducts   = "products"
	NameTopStates  = "top-states"
	NameScatter    = "scatter"
	NameForecast   = "forecast"
	NameComponents = "components"
)

var (
	regionBlue  = color.RGBA{R: 0x34, G: 0x98, B: 0xdb, A: 0xff}
	stateGreen  = color.RGBA{R: 0x2e, G: 0xcc, B: 0x71, A: 0xff}
	historyDark = color.RGBA{R: 0x2c, G: 0x3e, B: 0x50, A: 0xff}
	intervalRed = color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff}
)

// Render writes p as a PNG of the given size in inches.
func Render(w io.Writer, p *plot.Plot, widthInches, heightInches float64) error {
	wt, err := p.WriterTo(vg.Length(widthInches)*vg.Inch, vg.Length(heightInches)*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func markEmpty(p *plot.Plot) *plot.Plot {
	p.Title.Text += " (no data)"
	return p
}

func keys(table models.AggregateTable) []string {
	names := make([]string, len(table.Rows))
	for i, row := range table.Rows {
		names[i] = row.Key
	}
	return names
}

func totals(table models.AggregateTable) plotter.Values {
	values := make(plotter.Values, len(table.Rows))
	for i, row := range table.Rows {
		values[i] = row.Total
	}
	return values
}

func totalsBar(table models.AggregateTable, title, xLabel string, fill color.Color) (*plot.Plot, error) {
	p := newPlot(title, xLabel, "Total Sales (Million Units)")
	if table.Empty() {
		return markEmpty(p), nil
	}

	bars, err := plotter.NewBarChart(totals(table), vg.Points(30))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = fill
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(keys(table)...)
	return p, nil
}

func RegionTotals(table models.AggregateTable) (*plot.Plot, error) {
	return totalsBar(table, "Total Apple Product Sales by Region", "Region", regionBlue)
}

func TopStates(table models.AggregateTable) (*plot.Plot, error) {
	return totalsBar(table, "Top 10 States by Total Apple Product Sales", "State", stateGreen)
}

// ProductComparison draws one bar per selected product next to each other
// for every region of the table.
func ProductComparison(table models.AggregateTable) (*plot.Plot, error) {
	p := newPlot("Comparison of Apple Product Sales by Region", "Region", "Sales (Million Units)")
	if table.Empty() || len(table.Products) == 0 {
		return markEmpty(p), nil
	}

	n := len(table.Products)
	width := vg.Points(math.Max(4, 60/float64(n)))
	for j, product := range table.Products {
		values := make(plotter.Values, len(table.Rows))
		for i, row := range table.Rows {
			values[i] = row.Values[j]
		}

		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return nil, fmt.Errorf("bar chart for %s: %w", product, err)
		}
		bars.Color = plotutil.Color(j)
		bars.LineStyle.Width = 0
		bars.Offset = vg.Length(float64(j)-float64(n-1)/2) * width

		p.Add(bars)
		p.Legend.Add(string(product), bars)
	}
	p.Legend.Top = true
	p.NominalX(keys(table)...)
	return p, nil
}

func Scatter(points []models.ScatterPoint) (*plot.Plot, error) {
	p := newPlot("Total Product Sales vs. Services Revenue", "Total Product Sales (Million Units)", "Services Revenue (Billion $)")
	if len(points) == 0 {
		return markEmpty(p), nil
	}

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = pt.TotalProductSales
		xys[i].Y = pt.ServicesRevenue
	}

	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	s.GlyphStyle.Color = color.RGBA{B: 0xff, A: 0x80}
	s.GlyphStyle.Radius = vg.Points(3)
	s.GlyphStyle.Shape = draw.CircleGlyph{}

	p.Add(s)
	return p, nil
}

// Forecast overlays the observed monthly totals with the model's predictions
// and its 80% interval.
func Forecast(result *models.ForecastResult) (*plot.Plot, error) {
	p := newPlot("Forecasted Total Product Sales", "Month", "Total Sales (Million Units)")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	if result == nil || len(result.Points) == 0 {
		return markEmpty(p), nil
	}

	history := make(plotter.XYs, len(result.History))
	for i, h := range result.History {
		history[i].X = float64(h.Period.Unix())
		history[i].Y = h.Total
	}

	predicted := make(plotter.XYs, len(result.Points))
	lower := make(plotter.XYs, len(result.Points))
	upper := make(plotter.XYs, len(result.Points))
	for i, pt := range result.Points {
		x := float64(pt.Period.Unix())
		predicted[i] = plotter.XY{X: x, Y: pt.Predicted}
		lower[i] = plotter.XY{X: x, Y: pt.Lower}
		upper[i] = plotter.XY{X: x, Y: pt.Upper}
	}

	if len(history) > 0 {
		s, err := plotter.NewScatter(history)
		if err != nil {
			return nil, fmt.Errorf("history scatter: %w", err)
		}
		s.GlyphStyle.Color = historyDark
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add("observed", s)
	}

	line, err := plotter.NewLine(predicted)
	if err != nil {
		return nil, fmt.Errorf("prediction line: %w", err)
	}
	line.LineStyle.Color = regionBlue
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("predicted", line)

	for _, band := range []plotter.XYs{lower, upper} {
		l, err := plotter.NewLine(band)
		if err != nil {
			return nil, fmt.Errorf("interval line: %w", err)
		}
		l.LineStyle.Color = intervalRed
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(l)
	}
	p.Legend.Top = true
	return p, nil
}

// Components plots the trend and the yearly seasonal term separately from
// the combined prediction.
func Components(result *models.ForecastResult) (*plot.Plot, error) {
	p := newPlot("Forecast Components", "Month", "Contribution (Million Units)")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	if result == nil || len(result.Points) == 0 {
		return markEmpty(p), nil
	}

	trend := make(plotter.XYs, len(result.Points))
	seasonal := make(plotter.XYs, len(result.Points))
	for i, pt := range result.Points {
		x := float64(pt.Period.Unix())
		trend[i] = plotter.XY{X: x, Y: pt.Trend}
		seasonal[i] = plotter.XY{X: x, Y: pt.Seasonal}
	}

	if err := plotutil.AddLines(p, "trend", trend, "yearly", seasonal); err != nil {
		return nil, fmt.Errorf("component lines: %w", err)
	}
	p.Legend.Top = true
	return p, nil
}
