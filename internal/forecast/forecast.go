// Package forecast fits a model on a monthly sales series and projects it a
// number of months ahead. The regression itself sits behind Fitter and Model;
// Forecaster only guards the boundary: it validates the input, never lets
// future periods reach the fit, and aligns the returned periods.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
	"github.com/bisongoscar/apple-sales-dashboard/internal/observability"
	"github.com/bisongoscar/apple-sales-dashboard/internal/pipeline"
)

const (
	MinHistory        = 2
	DefaultMaxHorizon = 12
)

var (
	ErrInvalidHorizon        = errors.New("forecast horizon out of range")
	ErrInsufficientHistory   = errors.New("insufficient history")
	ErrForecastFittingFailed = errors.New("forecast fitting failed")
)

// Fitter fits a model on a historical monthly series.
type Fitter interface {
	Fit(series []models.MonthlyPoint) (Model, error)
}

// Model predicts the value and its trend/seasonal decomposition for each
// requested period, in the order given.
type Model interface {
	Predict(periods []time.Time) ([]models.ForecastPoint, error)
}

type Forecaster struct {
	fitter     Fitter
	maxHorizon int
	logger     *slog.Logger
}

func NewForecaster(fitter Fitter, maxHorizon int, logger *slog.Logger) *Forecaster {
	if maxHorizon <= 0 {
		maxHorizon = DefaultMaxHorizon
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{
		fitter:     fitter,
		maxHorizon: maxHorizon,
		logger:     logger,
	}
}

func (f *Forecaster) MaxHorizon() int { return f.maxHorizon }

// Forecast fits on series and returns one point per historical month followed
// by horizon points for the months right after the last historical one.
func (f *Forecaster) Forecast(ctx context.Context, series []models.MonthlyPoint, horizon int) (*models.ForecastResult, error) {
	if horizon < 1 || horizon > f.maxHorizon {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidHorizon, horizon, f.maxHorizon)
	}
	if len(series) < MinHistory {
		return nil, fmt.Errorf("%w: got %d monthly points, need at least %d", ErrInsufficientHistory, len(series), MinHistory)
	}

	history := slices.Clone(series)
	for i, p := range history {
		if math.IsNaN(p.Total) || math.IsInf(p.Total, 0) {
			return nil, fmt.Errorf("%w: non-finite total for %s", ErrForecastFittingFailed, p.Period.Format("2006-01"))
		}
		if i > 0 && !p.Period.After(history[i-1].Period) {
			return nil, fmt.Errorf("%w: periods must be strictly ascending", ErrForecastFittingFailed)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	periods := Periods(history, horizon)
	points, err := f.fitAndPredict(ctx, history, periods)
	if err != nil {
		return nil, err
	}

	for i := range points {
		points[i].Period = periods[i]
		points[i].Historical = i < len(history)
	}

	return &models.ForecastResult{
		Points:       points,
		History:      history,
		Horizon:      horizon,
		HistoryStart: history[0].Period,
		HistoryEnd:   history[len(history)-1].Period,
	}, nil
}

func (f *Forecaster) fitAndPredict(ctx context.Context, history []models.MonthlyPoint, periods []time.Time) (points []models.ForecastPoint, err error) {
	ctx, span := observability.StartSpan(ctx, "forecast.fit")
	span.SetAttr("history", len(history))
	span.SetAttr("periods", len(periods))
	defer func() {
		span.End(err)
		f.logger.DebugContext(ctx, "forecast computed", "span", span)
	}()

	model, err := f.fitter.Fit(history)
	if err != nil {
		return nil, wrapFitError(err)
	}

	points, err = model.Predict(periods)
	if err != nil {
		return nil, wrapFitError(err)
	}
	if len(points) != len(periods) {
		return nil, fmt.Errorf("%w: model returned %d points for %d periods", ErrForecastFittingFailed, len(points), len(periods))
	}
	return points, nil
}

// Periods lists the historical periods of series followed by horizon
// consecutive month starts after the last one.
func Periods(series []models.MonthlyPoint, horizon int) []time.Time {
	periods := make([]time.Time, 0, len(series)+horizon)
	for _, p := range series {
		periods = append(periods, p.Period)
	}
	if len(series) == 0 {
		return periods
	}
	last := pipeline.MonthStart(series[len(series)-1].Period)
	for k := 1; k <= horizon; k++ {
		periods = append(periods, last.AddDate(0, k, 0))
	}
	return periods
}

func wrapFitError(err error) error {
	if errors.Is(err, ErrForecastFittingFailed) || errors.Is(err, ErrInsufficientHistory) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrForecastFittingFailed, err)
}
