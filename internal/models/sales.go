package models

import (
	"fmt"
	"strings"
	"time"
)

type ProductField string

const (
	ProductIPhone    ProductField = "iPhone Sales (in million units)"
	ProductIPad      ProductField = "iPad Sales (in million units)"
	ProductMac       ProductField = "Mac Sales (in million units)"
	ProductWearables ProductField = "Wearables (in million units)"
)

const (
	ColumnRegion          = "Region"
	ColumnState           = "State"
	ColumnDate            = "Date"
	ColumnServicesRevenue = "Services Revenue (in billion $)"
	ColumnTotalSales      = "Total Product Sales"
)

var productAliases = map[string]ProductField{
	"iphone":    ProductIPhone,
	"ipad":      ProductIPad,
	"mac":       ProductMac,
	"wearables": ProductWearables,
}

// AllProducts returns the product fields in their canonical column order.
func AllProducts() []ProductField {
	return []ProductField{ProductIPhone, ProductIPad, ProductMac, ProductWearables}
}

// ParseProduct accepts either the full column name or a short alias such as "ipad".
func ParseProduct(name string) (ProductField, error) {
	trimmed := strings.TrimSpace(name)
	if p, ok := productAliases[strings.ToLower(trimmed)]; ok {
		return p, nil
	}
	for _, p := range AllProducts() {
		if strings.EqualFold(string(p), trimmed) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown product %q", name)
}

func ParseProducts(names []string) ([]ProductField, error) {
	products := make([]ProductField, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		p, err := ParseProduct(name)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// SalesRecord is one row of the input table. Date is nil when the file has no
// date column or the cell could not be parsed.
type SalesRecord struct {
	Region          string
	State           string
	Date            *time.Time
	IPhone          float64
	IPad            float64
	Mac             float64
	Wearables       float64
	ServicesRevenue float64
}

func (r SalesRecord) Product(p ProductField) float64 {
	switch p {
	case ProductIPhone:
		return r.IPhone
	case ProductIPad:
		return r.IPad
	case ProductMac:
		return r.Mac
	case ProductWearables:
		return r.Wearables
	default:
		return 0
	}
}

type FilterSelection struct {
	Regions  []string       `json:"regions"`
	States   []string       `json:"states"`
	Products []ProductField `json:"products"`
}

type FilterOptions struct {
	Regions        []string       `json:"regions"`
	States         []string       `json:"states"`
	Products       []ProductField `json:"products"`
	HasDate        bool           `json:"has_date"`
	DefaultHorizon int            `json:"default_horizon"`
	MaxHorizon     int            `json:"max_horizon"`
}

type ScatterPoint struct {
	State             string  `json:"state"`
	Region            string  `json:"region"`
	TotalProductSales float64 `json:"total_product_sales"`
	ServicesRevenue   float64 `json:"services_revenue"`
}
