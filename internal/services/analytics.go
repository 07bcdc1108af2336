package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bisongoscar/apple-sales-dashboard/internal/config"
	"github.com/bisongoscar/apple-sales-dashboard/internal/dataset"
	"github.com/bisongoscar/apple-sales-dashboard/internal/forecast"
	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
	"github.com/bisongoscar/apple-sales-dashboard/internal/pipeline"
)

// Overview bundles everything the overview tab renders for one selection.
type Overview struct {
	View      models.FilteredView   `json:"view"`
	Regions   models.AggregateTable `json:"regions"`
	TopStates models.AggregateTable `json:"top_states"`
	Scatter   []models.ScatterPoint `json:"scatter"`
}

// Analytics owns the loaded dataset and runs the pipeline for each request.
// The dataset is only replaced wholesale, never modified.
type Analytics struct {
	mu             sync.RWMutex
	data           *dataset.Dataset
	loader         *dataset.Loader
	forecaster     *forecast.Forecaster
	defaultHorizon int
	logger         *slog.Logger
}

// NewAnalytics wires the loader and forecaster from cfg. A nil fitter selects
// the additive trend + seasonal model.
func NewAnalytics(cfg *config.Config, fitter forecast.Fitter, logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	if fitter == nil {
		fitter = forecast.NewAdditiveFitter(cfg.Forecast.SeasonalOrder)
	}
	return &Analytics{
		data:           &dataset.Dataset{},
		loader:         dataset.NewLoader(cfg.Data, logger),
		forecaster:     forecast.NewForecaster(fitter, cfg.Forecast.MaxHorizon, logger),
		defaultHorizon: cfg.Forecast.DefaultHorizon,
		logger:         logger,
	}
}

func (a *Analytics) LoadFromFile(ctx context.Context, path string) error {
	ds, err := a.loader.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	a.mu.Lock()
	a.data = ds
	a.mu.Unlock()
	return nil
}

func (a *Analytics) SetData(records []models.SalesRecord, hasDate bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.data = &dataset.Dataset{
		Records:  records,
		HasDate:  hasDate,
		LoadedAt: time.Now(),
	}
}

func (a *Analytics) snapshot() *dataset.Dataset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data
}

func (a *Analytics) MaxHorizon() int { return a.forecaster.MaxHorizon() }

func (a *Analytics) Options() models.FilterOptions {
	ds := a.snapshot()
	return models.FilterOptions{
		Regions:        ds.Regions(),
		States:         ds.States(),
		Products:       models.AllProducts(),
		HasDate:        ds.HasDate,
		DefaultHorizon: a.defaultHorizon,
		MaxHorizon:     a.forecaster.MaxHorizon(),
	}
}

// DefaultSelection selects every region, state and product, like the
// dashboard's initial filter state.
func (a *Analytics) DefaultSelection() models.FilterSelection {
	ds := a.snapshot()
	return models.FilterSelection{
		Regions:  ds.Regions(),
		States:   ds.States(),
		Products: models.AllProducts(),
	}
}

func (a *Analytics) Filter(sel models.FilterSelection) models.FilteredView {
	ds := a.snapshot()
	return pipeline.ApplyFilter(ds.Records, ds.HasDate, sel)
}

func (a *Analytics) RegionTotals(sel models.FilterSelection) models.AggregateTable {
	return pipeline.RegionTotals(a.Filter(sel))
}

func (a *Analytics) TopStates(sel models.FilterSelection) models.AggregateTable {
	return pipeline.TopStates(a.Filter(sel))
}

func (a *Analytics) Scatter(sel models.FilterSelection) []models.ScatterPoint {
	return pipeline.ScatterPoints(a.Filter(sel))
}

func (a *Analytics) Overview(sel models.FilterSelection) Overview {
	view := a.Filter(sel)
	return Overview{
		View:      view,
		Regions:   pipeline.RegionTotals(view),
		TopStates: pipeline.TopStates(view),
		Scatter:   pipeline.ScatterPoints(view),
	}
}

func (a *Analytics) MonthlySales(sel models.FilterSelection) ([]models.MonthlyPoint, error) {
	return pipeline.ResampleMonthly(a.Filter(sel))
}

// Forecast resamples the selection monthly and projects it horizon months
// ahead. A horizon of 0 uses the configured default.
func (a *Analytics) Forecast(ctx context.Context, sel models.FilterSelection, horizon int) (*models.ForecastResult, error) {
	if horizon == 0 {
		horizon = a.defaultHorizon
	}

	series, err := a.MonthlySales(sel)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.forecaster.Forecast(ctx, series, horizon)
	if err != nil {
		a.logger.Debug("forecast unavailable", "months", len(series), "horizon", horizon, "error", err)
		return nil, err
	}

	a.logger.Debug("forecast complete",
		"months", len(series),
		"horizon", horizon,
		"duration", time.Since(start),
	)
	return result, nil
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	ds := a.snapshot()
	return map[string]any{
		"record_count":   len(ds.Records),
		"skipped_rows":   ds.Skipped,
		"source":         ds.Source,
		"last_processed": ds.LoadedAt,
		"has_date":       ds.HasDate,
		"regions":        len(ds.Regions()),
		"states":         len(ds.States()),
	}
}
