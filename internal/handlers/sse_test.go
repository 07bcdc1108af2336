package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bisongoscar/apple-sales-dashboard/internal/config"
	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
	"github.com/bisongoscar/apple-sales-dashboard/internal/services"
)

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}

	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}

	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_renderSalesTable(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewSSEHandlers(analytics, testLogger())

	sel := analytics.DefaultSelection()
	sel.States = []string{"California"}
	sel.Products = []models.ProductField{models.ProductIPhone}

	html, err := handlers.renderSalesTable(analytics.Filter(sel))
	if err != nil {
		t.Fatalf("renderSalesTable() failed: %v", err)
	}

	// Check that HTML contains expected elements
	expectedContent := []string{
		`<div id="sales-table">`,
		`<table class="modern-table">`,
		"<th>State</th>",
		"<th>Region</th>",
		"<th>iPhone Sales (in million units)</th>",
		"<th>Total Product Sales</th>",
		"California",
		"North America",
		"10.00",
	}

	for _, content := range expectedContent {
		if !strings.Contains(html, content) {
			t.Errorf("expected HTML to contain %q", content)
		}
	}

	if strings.Contains(html, "Showing") {
		t.Error("24 rows should not be truncated")
	}
}

func TestSSEHandlers_renderSalesTable_LargeDataset(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewSSEHandlers(analytics, testLogger())

	// 72 rows, more than maxTableRows (50)
	view := analytics.Filter(analytics.DefaultSelection())

	html, err := handlers.renderSalesTable(view)
	if err != nil {
		t.Fatalf("renderSalesTable() failed: %v", err)
	}

	// Count table rows - should be limited to maxTableRows (50)
	rowCount := strings.Count(html, "<tr>") - 1 // Subtract header row
	if rowCount != maxTableRows {
		t.Errorf("expected %d rows, got %d", maxTableRows, rowCount)
	}

	if !strings.Contains(html, "Showing 50 of 72 rows") {
		t.Error("expected a truncation note")
	}
}

func TestSSEHandlers_renderSalesTable_EscapesValues(t *testing.T) {
	a := services.NewAnalytics(config.Default(), nil, testLogger())
	a.SetData([]models.SalesRecord{{Region: "<b>R</b>", State: "S", IPhone: 1}}, false)
	handlers := NewSSEHandlers(a, testLogger())

	html, err := handlers.renderSalesTable(a.Filter(a.DefaultSelection()))
	if err != nil {
		t.Fatalf("renderSalesTable() failed: %v", err)
	}
	if strings.Contains(html, "<b>R</b>") {
		t.Error("region name should be HTML-escaped")
	}
}

func TestSSEHandlers_renderCharts(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	sel := models.FilterSelection{
		Regions:  []string{"Europe"},
		States:   []string{"Germany"},
		Products: []models.ProductField{models.ProductMac},
	}
	html, err := handlers.renderCharts("forecast-content", forecastCharts, sel, 4)
	if err != nil {
		t.Fatalf("renderCharts() failed: %v", err)
	}

	for _, want := range []string{`<div id="forecast-content">`, "/charts/forecast?", "/charts/components?", "horizon=4", "region=Europe"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected HTML to contain %q", want)
		}
	}
}

func TestSSEHandlers_readSelection(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	signals := `{"regions":["Europe"],"states":["Germany"],"products":["iPad Sales (in million units)"],"horizon":5}`
	req := httptest.NewRequest(http.MethodGet, "/sse/refresh-all?datastar="+url.QueryEscape(signals), nil)

	sel, horizon, err := handlers.readSelection(req)
	if err != nil {
		t.Fatalf("readSelection() error = %v", err)
	}

	if len(sel.Regions) != 1 || sel.Regions[0] != "Europe" {
		t.Errorf("regions = %v", sel.Regions)
	}
	if len(sel.Products) != 1 || sel.Products[0] != models.ProductIPad {
		t.Errorf("products = %v", sel.Products)
	}
	if horizon != 5 {
		t.Errorf("horizon = %d, want 5", horizon)
	}
}

func TestSSEHandlers_readSelection_Defaults(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewSSEHandlers(analytics, testLogger())

	sel, horizon, err := handlers.readSelection(httptest.NewRequest(http.MethodGet, "/sse/overview", nil))
	if err != nil {
		t.Fatalf("readSelection() error = %v", err)
	}
	if len(sel.Regions) != 2 || len(sel.States) != 3 || len(sel.Products) != 4 {
		t.Errorf("expected the full default selection, got %+v", sel)
	}
	if horizon != 0 {
		t.Errorf("horizon = %d, want 0 so the service default applies", horizon)
	}
}

func TestSSEHandlers_HandleOverview(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/overview", nil)
	w := httptest.NewRecorder()

	handlers.HandleOverview(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{"<table", "overview-charts", "/charts/regions?", "regionsData", "topStatesData", "scatterData"} {
		if !strings.Contains(body, want) {
			t.Errorf("response should contain %q", want)
		}
	}
}

func TestSSEHandlers_HandleOverview_NoData(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/overview?product=", nil)
	w := httptest.NewRecorder()

	handlers.HandleOverview(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "No data available to display charts") {
		t.Error("response should contain the no-data notice")
	}
	if strings.Contains(body, "/charts/regions") {
		t.Error("no chart images should be patched for an empty view")
	}
}

func TestSSEHandlers_HandleForecast(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/forecast?horizon=2", nil)
	w := httptest.NewRecorder()

	handlers.HandleForecast(w, req)

	body := w.Body.String()
	for _, want := range []string{"forecast-content", "/charts/forecast?", "forecastData", "forecastFuture"} {
		if !strings.Contains(body, want) {
			t.Errorf("response should contain %q", want)
		}
	}
}

func TestSSEHandlers_HandleForecast_Unavailable(t *testing.T) {
	a := services.NewAnalytics(config.Default(), nil, testLogger())
	a.SetData([]models.SalesRecord{{Region: "Europe", State: "France", IPhone: 1}}, false)
	handlers := NewSSEHandlers(a, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/forecast", nil)
	w := httptest.NewRecorder()

	handlers.HandleForecast(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "No &#39;Date&#39; column found") {
		t.Errorf("response should explain the missing date column, got %q", body)
	}
	if strings.Contains(body, "forecastData") {
		t.Error("no forecast signals should be sent")
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/refresh-all", nil)
	w := httptest.NewRecorder()

	handlers.HandleRefreshAll(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	body := w.Body.String()

	// Should contain all data signals
	expectedSignals := []string{
		"regionsData",
		"topStatesData",
		"scatterData",
		"forecastData",
	}

	for _, signal := range expectedSignals {
		if !strings.Contains(body, signal) {
			t.Errorf("response should contain %q signal", signal)
		}
	}

	if !strings.Contains(body, "<table") {
		t.Error("response should contain HTML table for the filtered sales")
	}
}

// Test SSE headers consistency
func TestSSEHandlers_HeaderConsistency(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	sseEndpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"overview", handlers.HandleOverview},
		{"forecast", handlers.HandleForecast},
		{"refresh-all", handlers.HandleRefreshAll},
	}

	for _, endpoint := range sseEndpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			endpoint.handler(w, req)

			// All SSE endpoints should have consistent headers
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("expected cache-control 'no-cache', got %q", cc)
			}

			// Should return some SSE data
			body := w.Body.String()
			if !strings.Contains(body, "event:") || !strings.Contains(body, "data:") {
				t.Error("response should contain SSE event format")
			}
		})
	}
}
