package handlers

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bisongoscar/apple-sales-dashboard/internal/config"
)

func chartRequest(name, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/charts/"+name+query, nil)
	req.SetPathValue("name", name)
	return req
}

func TestChartHandlers_HandleChart(t *testing.T) {
	handlers := NewChartHandlers(createTestAnalytics(), testLogger(), config.ChartConfig{WidthInches: 4, HeightInches: 3})

	for _, name := range []string{"regions", "products", "top-states", "scatter", "forecast", "components"} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleChart(w, chartRequest(name, "?horizon=3"))

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("expected content-type 'image/png', got %q", ct)
			}
			if _, err := png.Decode(bytes.NewReader(w.Body.Bytes())); err != nil {
				t.Errorf("body is not a PNG: %v", err)
			}
		})
	}
}

func TestChartHandlers_HandleChart_Errors(t *testing.T) {
	handlers := NewChartHandlers(createTestAnalytics(), testLogger(), config.Default().Charts)

	tests := []struct {
		name   string
		chart  string
		query  string
		status int
	}{
		{"unknown chart", "pie", "", http.StatusNotFound},
		{"unknown product", "regions", "?product=ipod", http.StatusBadRequest},
		{"horizon too large", "forecast", "?horizon=99", http.StatusBadRequest},
		{"no history", "forecast", "?product=", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleChart(w, chartRequest(tt.chart, tt.query))

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestChartHandlers_EmptySelectionStillRenders(t *testing.T) {
	handlers := NewChartHandlers(createTestAnalytics(), testLogger(), config.Default().Charts)

	w := httptest.NewRecorder()
	handlers.HandleChart(w, chartRequest("regions", "?region="))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}
