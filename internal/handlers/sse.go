package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/bisongoscar/apple-sales-dashboard/internal/errors"
	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
	"github.com/bisongoscar/apple-sales-dashboard/internal/services"
)

const maxTableRows = 50

var salesTableTemplate = template.Must(template.New("salesTable").Parse(`
<div id="sales-table">
<table class="modern-table">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range $i, $row := .Rows}}{{if lt $i $.MaxRows}}<tr>
<td>{{$row.State}}</td>
<td>{{$row.Region}}</td>
{{range $row.Values}}<td>{{printf "%.2f" .}}</td>{{end}}
<td><strong>{{printf "%.2f" $row.Total}}</strong></td>
</tr>{{end}}{{end}}
</tbody>
</table>
{{if gt .RowCount .MaxRows}}<p class="table-note">Showing {{.MaxRows}} of {{.RowCount}} rows</p>{{end}}
</div>`))

var chartImagesTemplate = template.Must(template.New("chartImages").Parse(`
<div id="{{.ID}}">
{{range .Charts}}<figure class="chart"><img src="/charts/{{.Name}}?{{$.Query}}" alt="{{.Title}}"><figcaption>{{.Title}}</figcaption></figure>
{{end}}</div>`))

type chartImage struct {
	Name  string
	Title string
}

var overviewCharts = []chartImage{
	{Name: "regions", Title: "Total Apple Product Sales by Region"},
	{Name: "products", Title: "Comparison of Apple Product Sales by Region"},
	{Name: "scatter", Title: "Total Product Sales vs. Services Revenue"},
	{Name: "top-states", Title: "Top 10 States by Total Apple Product Sales"},
}

var forecastCharts = []chartImage{
	{Name: "forecast", Title: "Forecasted Total Product Sales"},
	{Name: "components", Title: "Forecast Components"},
}

// dashboardSignals mirrors the filter state the dashboard page keeps in its
// datastar signals. A nil slice means the signal was never set.
type dashboardSignals struct {
	Regions  *[]string `json:"regions"`
	States   *[]string `json:"states"`
	Products *[]string `json:"products"`
	Horizon  int       `json:"horizon"`
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type tableData struct {
	Columns  []string
	Rows     []models.FilteredRow
	RowCount int
	MaxRows  int
}

func (h *SSEHandlers) renderSalesTable(view models.FilteredView) (string, error) {
	var buf strings.Builder

	rows := view.Rows
	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}

	err := salesTableTemplate.Execute(&buf, tableData{
		Columns:  view.Columns,
		Rows:     rows,
		RowCount: view.Len(),
		MaxRows:  maxTableRows,
	})
	return buf.String(), err
}

func (h *SSEHandlers) renderCharts(id string, images []chartImage, sel models.FilterSelection, horizon int) (string, error) {
	var buf strings.Builder
	err := chartImagesTemplate.Execute(&buf, map[string]any{
		"ID":     id,
		"Charts": images,
		"Query":  template.URL(selectionQuery(sel, horizon).Encode()),
	})
	return buf.String(), err
}

// readSelection prefers the page's datastar signals and falls back to query
// parameters for plain requests.
func (h *SSEHandlers) readSelection(r *http.Request) (models.FilterSelection, int, error) {
	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return models.FilterSelection{}, 0, errors.BadRequestWrap(err, "invalid datastar signals")
	}

	sel, err := parseSelection(r, h.analytics)
	if err != nil {
		return sel, 0, err
	}
	horizon, err := parseHorizon(r)
	if err != nil {
		return sel, 0, err
	}

	if signals.Regions != nil {
		sel.Regions = nonEmpty(*signals.Regions)
	}
	if signals.States != nil {
		sel.States = nonEmpty(*signals.States)
	}
	if signals.Products != nil {
		products, err := models.ParseProducts(*signals.Products)
		if err != nil {
			return sel, 0, errors.BadRequestWrap(err, err.Error())
		}
		sel.Products = products
	}
	if signals.Horizon != 0 {
		horizon = signals.Horizon
	}
	return sel, horizon, nil
}

func (h *SSEHandlers) patchOverview(sse *datastar.ServerSentEventGenerator, sel models.FilterSelection) {
	overview := h.analytics.Overview(sel)

	html, err := h.renderSalesTable(overview.View)
	if err != nil {
		h.logger.Error("render sales table", "error", err)
		return
	}
	sse.PatchElements(html)

	if overview.View.Empty() {
		sse.PatchElements(`<div id="overview-charts"><p class="notice">No data available to display charts and analysis based on the current filters.</p></div>`)
	} else {
		charts, err := h.renderCharts("overview-charts", overviewCharts, sel, 0)
		if err != nil {
			h.logger.Error("render overview charts", "error", err)
			return
		}
		sse.PatchElements(charts)
	}

	jsonData, err := json.Marshal(map[string]any{
		"regionsData":   overview.Regions,
		"topStatesData": overview.TopStates,
		"scatterData":   overview.Scatter,
	})
	if err != nil {
		h.logger.Error("marshal overview data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)
}

func (h *SSEHandlers) patchForecast(r *http.Request, sse *datastar.ServerSentEventGenerator, sel models.FilterSelection, horizon int) {
	result, err := h.analytics.Forecast(r.Context(), sel, horizon)
	if err != nil {
		appErr := errors.FromDomain(err)
		h.logger.DebugContext(r.Context(), "forecast unavailable", "code", appErr.Code, "error", err)
		sse.PatchElements(`<div id="forecast-content"><p class="notice">` + template.HTMLEscapeString(appErr.Message) + `</p></div>`)
		return
	}

	charts, err := h.renderCharts("forecast-content", forecastCharts, sel, result.Horizon)
	if err != nil {
		h.logger.Error("render forecast charts", "error", err)
		return
	}
	sse.PatchElements(charts)

	jsonData, err := json.Marshal(map[string]any{
		"forecastData":   result.Points,
		"forecastFuture": result.Future(),
	})
	if err != nil {
		h.logger.Error("marshal forecast data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	sel, _, err := h.readSelection(r)
	if err != nil {
		h.logger.Warn("invalid selection", "error", err)
		sel = h.analytics.DefaultSelection()
	}

	sse := datastar.NewSSE(w, r)
	h.patchOverview(sse, sel)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	sel, horizon, err := h.readSelection(r)
	if err != nil {
		h.logger.Warn("invalid selection", "error", err)
		sel, horizon = h.analytics.DefaultSelection(), 0
	}

	sse := datastar.NewSSE(w, r)
	h.patchForecast(r, sse, sel, horizon)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sel, horizon, err := h.readSelection(r)
	if err != nil {
		h.logger.Warn("invalid selection", "error", err)
		sel, horizon = h.analytics.DefaultSelection(), 0
	}

	sse := datastar.NewSSE(w, r)
	h.patchOverview(sse, sel)
	h.patchForecast(r, sse, sel, horizon)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
