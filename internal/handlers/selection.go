package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bisongoscar/apple-sales-dashboard/internal/errors"
	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
	"github.com/bisongoscar/apple-sales-dashboard/internal/services"
)

// selectionParams reads region, state and product from the query string.
// An absent parameter selects everything; a present but empty one (product=)
// selects nothing.
func selectionParams(q url.Values, analytics *services.Analytics) (models.FilterSelection, error) {
	sel := analytics.DefaultSelection()

	if values, ok := q["region"]; ok {
		sel.Regions = nonEmpty(values)
	}
	if values, ok := q["state"]; ok {
		sel.States = nonEmpty(values)
	}
	if values, ok := q["product"]; ok {
		products, err := models.ParseProducts(values)
		if err != nil {
			return sel, errors.BadRequestWrap(err, err.Error())
		}
		sel.Products = products
	}
	return sel, nil
}

func parseSelection(r *http.Request, analytics *services.Analytics) (models.FilterSelection, error) {
	return selectionParams(r.URL.Query(), analytics)
}

// parseHorizon returns 0 when the parameter is absent so the service default applies.
func parseHorizon(r *http.Request) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get("horizon"))
	if value == "" {
		return 0, nil
	}
	horizon, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.BadRequestWrap(err, "horizon must be an integer number of months")
	}
	if horizon == 0 {
		return 0, errors.Validation("horizon must be at least 1 month")
	}
	return horizon, nil
}

// selectionQuery encodes a selection back into query parameters, used for
// the chart image URLs the dashboard embeds.
func selectionQuery(sel models.FilterSelection, horizon int) url.Values {
	q := url.Values{}
	q["region"] = orBlank(sel.Regions)
	q["state"] = orBlank(sel.States)
	products := make([]string, len(sel.Products))
	for i, p := range sel.Products {
		products[i] = string(p)
	}
	q["product"] = orBlank(products)
	if horizon > 0 {
		q.Set("horizon", strconv.Itoa(horizon))
	}
	return q
}

func orBlank(values []string) []string {
	if len(values) == 0 {
		return []string{""}
	}
	return values
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
