package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
)

const (
	DefaultSeasonalOrder     = 3
	DefaultSeasonalMinMonths = 24

	// Fourier terms above 5 alias at monthly resolution (sin(πm) is always 0).
	maxSeasonalOrder = 5
	// z-score of an 80% two-sided interval.
	interval80 = 1.2815515655446004
)

// AdditiveFitter fits y = a + b·t + Σ (c_k·cos(2πk·m/12) + d_k·sin(2πk·m/12))
// by least squares, where t is the scaled month offset from the first period
// and m the calendar month. Yearly seasonality is only fitted when the history
// covers at least SeasonalMinMonths months.
type AdditiveFitter struct {
	SeasonalOrder     int
	SeasonalMinMonths int
	IntervalZ         float64
}

func NewAdditiveFitter(seasonalOrder int) *AdditiveFitter {
	if seasonalOrder < 0 {
		seasonalOrder = DefaultSeasonalOrder
	}
	return &AdditiveFitter{
		SeasonalOrder:     seasonalOrder,
		SeasonalMinMonths: DefaultSeasonalMinMonths,
		IntervalZ:         interval80,
	}
}

func (f *AdditiveFitter) Fit(series []models.MonthlyPoint) (Model, error) {
	n := len(series)
	if n < MinHistory {
		return nil, fmt.Errorf("%w: got %d monthly points", ErrInsufficientHistory, n)
	}

	origin := series[0].Period
	span := monthsBetween(origin, series[n-1].Period)
	if span <= 0 {
		return nil, fmt.Errorf("%w: history covers a single month", ErrForecastFittingFailed)
	}

	y := mat.NewVecDense(n, nil)
	for i, p := range series {
		y.SetVec(i, p.Total)
	}

	// Drop Fourier terms one at a time when gaps in the history leave the
	// seasonal columns collinear.
	var lastErr error
	for order := f.order(n, span); order >= 0; order-- {
		model, err := f.fitOrder(series, y, origin, span, order)
		if err == nil {
			return model, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", ErrForecastFittingFailed, lastErr)
}

func (f *AdditiveFitter) order(n, span int) int {
	if span+1 < f.SeasonalMinMonths {
		return 0
	}
	return max(0, min(f.SeasonalOrder, maxSeasonalOrder, (n-3)/2))
}

func (f *AdditiveFitter) fitOrder(series []models.MonthlyPoint, y *mat.VecDense, origin time.Time, span, order int) (*additiveModel, error) {
	n := len(series)
	p := 2 + 2*order

	x := mat.NewDense(n, p, nil)
	for i, pt := range series {
		x.SetRow(i, features(origin, pt.Period, span, order))
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, err
	}

	coef := make([]float64, p)
	for i := range coef {
		coef[i] = beta.AtVec(i)
		if math.IsNaN(coef[i]) || math.IsInf(coef[i], 0) {
			return nil, fmt.Errorf("non-finite coefficient at %d", i)
		}
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	residuals := make([]float64, n)
	for i := range residuals {
		residuals[i] = y.AtVec(i) - fitted.AtVec(i)
	}

	sigma := 0.0
	if n > p {
		sigma = stat.StdDev(residuals, nil)
	}

	return &additiveModel{
		origin: origin,
		span:   span,
		order:  order,
		coef:   coef,
		sigma:  sigma,
		z:      f.IntervalZ,
	}, nil
}

type additiveModel struct {
	origin time.Time
	span   int
	order  int
	coef   []float64
	sigma  float64
	z      float64
}

func (m *additiveModel) Predict(periods []time.Time) ([]models.ForecastPoint, error) {
	points := make([]models.ForecastPoint, len(periods))
	for i, period := range periods {
		x := features(m.origin, period, m.span, m.order)
		trend := m.coef[0] + m.coef[1]*x[1]
		seasonal := floats.Dot(m.coef[2:], x[2:])
		predicted := trend + seasonal

		points[i] = models.ForecastPoint{
			Period:    period,
			Predicted: predicted,
			Trend:     trend,
			Seasonal:  seasonal,
			Lower:     predicted - m.z*m.sigma,
			Upper:     predicted + m.z*m.sigma,
		}
	}
	return points, nil
}

// features returns the design row [1, t, cos₁, sin₁, …] for period.
func features(origin, period time.Time, span, order int) []float64 {
	row := make([]float64, 2+2*order)
	row[0] = 1
	row[1] = float64(monthsBetween(origin, period)) / float64(span)

	moy := float64(int(period.Month()) - 1)
	for k := 1; k <= order; k++ {
		angle := 2 * math.Pi * float64(k) * moy / 12
		row[2*k] = math.Cos(angle)
		row[2*k+1] = math.Sin(angle)
	}
	return row
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
