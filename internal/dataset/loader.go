package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/bisongoscar/apple-sales-dashboard/internal/config"
	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
)

const (
	batchSize        = 10000
	maxWorkers       = 10
	maxLoggedSkipped = 5
)

var (
	// ErrSchema means a required column is missing from the input header.
	ErrSchema            = errors.New("schema error")
	ErrNoRecords         = errors.New("no valid records found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"2006-01",
	time.RFC3339,
}

type Loader struct {
	cacheDir     string
	cacheEnabled bool
	logger       *slog.Logger
}

func NewLoader(cfg config.DataConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		cacheDir:     cfg.CacheDir,
		cacheEnabled: cfg.CacheEnabled,
		logger:       logger,
	}
}

// Load reads a .csv or .xlsx sales file. A previously cached parse is reused
// when it is newer than the file.
func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	if l.cacheEnabled {
		if cached, err := l.loadFromCache(path); err == nil {
			fileInfo, err := os.Stat(path)
			if err == nil && fileInfo.ModTime().Before(cached.LoadedAt) {
				l.logger.Info("loaded dataset from cache", "path", path, "records", len(cached.Records))
				return cached, nil
			}
		}
	}

	start := time.Now()
	l.logger.Info("processing sales file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	var ds *Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ds, err = l.ReadCSV(ctx, file)
	case ".xlsx":
		ds, err = l.ReadXLSX(ctx, file)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	ds.Source = path

	if l.cacheEnabled {
		if err := l.saveToCache(path, ds); err != nil {
			l.logger.Warn("failed to save dataset cache", "error", err)
		}
	}

	l.logger.Info("sales file processed",
		"records", len(ds.Records),
		"skipped", ds.Skipped,
		"has_date", ds.HasDate,
		"duration", time.Since(start),
	)
	return ds, nil
}

func (l *Loader) ReadCSV(ctx context.Context, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return l.decode(ctx, rows)
}

// ReadXLSX decodes the first sheet of a workbook.
func (l *Loader) ReadXLSX(ctx context.Context, r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return l.decode(ctx, rows)
}

func (l *Loader) decode(ctx context.Context, rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	s, err := resolveSchema(rows[0])
	if err != nil {
		return nil, err
	}

	body := rows[1:]
	records := make([]models.SalesRecord, len(body))
	rowErrs := make([]error, len(body))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for start := 0; start < len(body); start += batchSize {
		end := min(start+batchSize, len(body))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				records[i], rowErrs[i] = s.parseRow(body[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &Dataset{
		Records:  make([]models.SalesRecord, 0, len(body)),
		HasDate:  s.date >= 0,
		LoadedAt: time.Now(),
	}
	for i, rec := range records {
		if rowErrs[i] != nil {
			if ds.Skipped < maxLoggedSkipped {
				// +2: one for the header, one for 1-based line numbers
				l.logger.Warn("skipping malformed row", "line", i+2, "error", rowErrs[i])
			}
			ds.Skipped++
			continue
		}
		ds.Records = append(ds.Records, rec)
	}

	if len(ds.Records) == 0 {
		return nil, ErrNoRecords
	}
	return ds, nil
}

type schema struct {
	region, state, date                int
	iphone, ipad, mac, wearables, svcs int
}

func resolveSchema(header []string) (schema, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	lookup := func(column string, required bool) int {
		i, ok := index[strings.ToLower(column)]
		if !ok {
			if required {
				missing = append(missing, column)
			}
			return -1
		}
		return i
	}

	s := schema{
		region:    lookup(models.ColumnRegion, true),
		state:     lookup(models.ColumnState, true),
		date:      lookup(models.ColumnDate, false),
		iphone:    lookup(string(models.ProductIPhone), true),
		ipad:      lookup(string(models.ProductIPad), true),
		mac:       lookup(string(models.ProductMac), true),
		wearables: lookup(string(models.ProductWearables), true),
		svcs:      lookup(models.ColumnServicesRevenue, true),
	}
	if len(missing) > 0 {
		return schema{}, fmt.Errorf("%w: missing required columns: %s", ErrSchema, strings.Join(missing, ", "))
	}
	return s, nil
}

func (s schema) parseRow(row []string) (models.SalesRecord, error) {
	rec := models.SalesRecord{
		Region: cell(row, s.region),
		State:  cell(row, s.state),
	}

	var err error
	fields := []struct {
		col int
		dst *float64
	}{
		{s.iphone, &rec.IPhone},
		{s.ipad, &rec.IPad},
		{s.mac, &rec.Mac},
		{s.wearables, &rec.Wearables},
		{s.svcs, &rec.ServicesRevenue},
	}
	for _, f := range fields {
		if *f.dst, err = parseNumber(cell(row, f.col)); err != nil {
			return models.SalesRecord{}, err
		}
	}

	if s.date >= 0 {
		rec.Date = parseDate(cell(row, s.date))
	}
	return rec, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseNumber treats an empty cell as zero, matching how the dashboards sum
// missing values.
func parseNumber(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", value, err)
	}
	return f, nil
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
