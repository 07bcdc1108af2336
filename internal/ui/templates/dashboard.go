// Package templates holds the dashboard page. The page only lays out the
// filters and empty targets; every table, chart and forecast is patched in
// over datastar SSE from /sse/refresh-all.
package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
)

type DashboardData struct {
	Title   string
	Options models.FilterOptions
}

func Dashboard(data DashboardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`+
			templ.EscapeString(data.Title)+`</title>`+
			`<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>`+
			`<style>`+dashboardCSS+`</style></head>`); err != nil {
			return err
		}

		signals, err := initialSignals(data.Options)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<body data-signals='`+templ.EscapeString(signals)+`' data-on-load="@get('/sse/refresh-all')">`+
			`<div class="main-header"><h1>`+templ.EscapeString(data.Title)+`</h1></div><div class="layout">`); err != nil {
			return err
		}

		for _, c := range []templ.Component{filters(data.Options), tabs()} {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}

		_, err = io.WriteString(w, `</div></body></html>`)
		return err
	})
}

func initialSignals(opts models.FilterOptions) (string, error) {
	products := make([]string, len(opts.Products))
	for i, p := range opts.Products {
		products[i] = string(p)
	}
	b, err := json.Marshal(map[string]any{
		"regions":  opts.Regions,
		"states":   opts.States,
		"products": products,
		"horizon":  opts.DefaultHorizon,
	})
	if err != nil {
		return "", fmt.Errorf("marshal dashboard signals: %w", err)
	}
	return string(b), nil
}

func filters(opts models.FilterOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		products := make([]string, len(opts.Products))
		for i, p := range opts.Products {
			products[i] = string(p)
		}

		if _, err := io.WriteString(w, `<aside class="sidebar" data-on-change="@get('/sse/refresh-all')"><h2>Filters</h2>`); err != nil {
			return err
		}
		groups := []struct {
			label, signal string
			values        []string
		}{
			{"Select Region", "regions", opts.Regions},
			{"Select State", "states", opts.States},
			{"Select Product", "products", products},
		}
		for _, g := range groups {
			if err := checkboxGroup(g.label, g.signal, g.values).Render(ctx, w); err != nil {
				return err
			}
		}

		if opts.HasDate {
			if _, err := io.WriteString(w, `<fieldset><legend>Forecast horizon (months)</legend>`+
				`<input type="range" min="1" max="`+strconv.Itoa(opts.MaxHorizon)+`" data-bind-horizon>`+
				`<span data-text="$horizon"></span></fieldset>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</aside>`)
		return err
	})
}

func checkboxGroup(label, signal string, values []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<fieldset><legend>`+templ.EscapeString(label)+`</legend>`); err != nil {
			return err
		}
		for _, v := range values {
			if _, err := io.WriteString(w, `<label><input type="checkbox" data-bind-`+signal+
				` value="`+templ.EscapeString(v)+`"> `+templ.EscapeString(v)+`</label>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</fieldset>`)
		return err
	})
}

func tabs() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<main>`+
			`<section id="overview"><div class="section-title">Filtered Sales Data</div>`+
			`<div id="sales-table"><p class="notice">Loading…</p></div>`+
			`<div id="overview-charts"></div></section>`+
			`<section id="forecasting"><div class="section-title">Sales Forecasting</div>`+
			`<div id="forecast-content"><p class="notice">Loading…</p></div></section>`+
			`<section id="decisions"><div class="section-title">Supporting Business Decisions</div>`+
			decisionsHTML+`</section></main>`)
		return err
	})
}

const decisionsHTML = `<p class="analysis-text"><strong>Marketing Strategy Recommendations:</strong><br>
- Focus ad spending on Greater China and Europe, the highest-performing markets.<br>
- Promote iPads heavily in professional and student sectors.<br>
- Utilize influencers and digital advertising for wearables.</p>
<p class="analysis-text"><strong>Product Development Strategy:</strong><br>
- Prioritize innovation in iPhones and wearables.<br>
- Introduce more affordable Mac models to expand reach.<br>
- Invest in expanding Apple's digital services for long-term growth.</p>
<p class="analysis-text"><strong>Resource Allocation Strategy:</strong><br>
- Increase manufacturing and retail investment in top-performing regions.<br>
- Expand cloud infrastructure and AI-driven services.<br>
- Optimize costs in underperforming markets like Japan.</p>`

const dashboardCSS = `body{background:#f0f2f6;color:#333;font-family:'Helvetica Neue',Helvetica,Arial,sans-serif;margin:0}
.main-header{text-align:center;padding:20px}.main-header h1{font-size:3em;color:#2c3e50}
.layout{display:flex;gap:24px;padding:0 24px}.sidebar{background:#fff;border-right:1px solid #e6e6e6;padding:16px;min-width:240px}
.sidebar label{display:block}main{flex:1}
.section-title{font-size:2em;color:#2c3e50;margin:20px 0 10px;border-bottom:3px solid #3498db;padding-bottom:5px}
.analysis-text{font-size:1.1em;color:#34495e;line-height:1.6}
.modern-table{border-collapse:collapse;background:#fff;width:100%}.modern-table th{background:#2c3e50;color:#fff}
.modern-table td,.modern-table th{padding:4px 8px;text-align:left}
.chart img{max-width:100%}.notice{color:#7f8c8d}`
