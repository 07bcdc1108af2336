package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bisongoscar/apple-sales-dashboard/internal/errors"
	"github.com/bisongoscar/apple-sales-dashboard/internal/services"
)

var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, r, h.logger, err)
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Options(), cacheHeaders)
}

func (h *APIHandlers) HandleSales(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r, h.analytics)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.Filter(sel), cacheHeaders)
}

func (h *APIHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r, h.analytics)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.RegionTotals(sel), cacheHeaders)
}

func (h *APIHandlers) HandleTopStates(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r, h.analytics)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.TopStates(sel), cacheHeaders)
}

func (h *APIHandlers) HandleScatter(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r, h.analytics)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.Scatter(sel), cacheHeaders)
}

func (h *APIHandlers) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r, h.analytics)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data, err := h.analytics.MonthlySales(sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r, h.analytics)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	horizon, err := parseHorizon(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.analytics.Forecast(r.Context(), sel, horizon)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, result, cacheHeaders)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
