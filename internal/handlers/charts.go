package handlers

import (
	"bytes"
	"log/slog"
	"net/http"

	"gonum.org/v1/plot"

	"github.com/bisongoscar/apple-sales-dashboard/internal/charts"
	"github.com/bisongoscar/apple-sales-dashboard/internal/config"
	"github.com/bisongoscar/apple-sales-dashboard/internal/errors"
	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
	"github.com/bisongoscar/apple-sales-dashboard/internal/services"
)

type ChartHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	size      config.ChartConfig
}

func NewChartHandlers(analytics *services.Analytics, logger *slog.Logger, size config.ChartConfig) *ChartHandlers {
	return &ChartHandlers{
		analytics: analytics,
		logger:    logger,
		size:      size,
	}
}

func (h *ChartHandlers) build(r *http.Request, name string, sel models.FilterSelection) (*plot.Plot, error) {
	switch name {
	case charts.NameRegions:
		return charts.RegionTotals(h.analytics.RegionTotals(sel))
	case charts.NameProducts:
		return charts.ProductComparison(h.analytics.RegionTotals(sel))
	case charts.NameTopStates:
		return charts.TopStates(h.analytics.TopStates(sel))
	case charts.NameScatter:
		return charts.Scatter(h.analytics.Scatter(sel))
	case charts.NameForecast, charts.NameComponents:
		horizon, err := parseHorizon(r)
		if err != nil {
			return nil, err
		}
		result, err := h.analytics.Forecast(r.Context(), sel, horizon)
		if err != nil {
			return nil, err
		}
		if name == charts.NameForecast {
			return charts.Forecast(result)
		}
		return charts.Components(result)
	default:
		return nil, errors.NotFound("unknown chart " + name)
	}
}

func (h *ChartHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	sel, err := parseSelection(r, h.analytics)
	if err != nil {
		errors.WriteError(w, r, h.logger, err)
		return
	}

	p, err := h.build(r, name, sel)
	if err != nil {
		errors.WriteError(w, r, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := charts.Render(&buf, p, h.size.WidthInches, h.size.HeightInches); err != nil {
		errors.WriteError(w, r, h.logger, errors.InternalWrap(err, "failed to render chart"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.WarnContext(r.Context(), "write chart", "chart", name, "error", err)
	}
}
