package dataset

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bisongoscar/apple-sales-dashboard/internal/models"
)

const cacheVersion = "v1"

// Dataset is the loaded sales table. It is never modified after loading.
type Dataset struct {
	Records  []models.SalesRecord
	HasDate  bool
	Source   string
	Skipped  int
	LoadedAt time.Time
}

// Regions returns distinct regions in first-seen order.
func (d *Dataset) Regions() []string {
	return distinct(d.Records, func(r models.SalesRecord) string { return r.Region })
}

// States returns distinct states in first-seen order.
func (d *Dataset) States() []string {
	return distinct(d.Records, func(r models.SalesRecord) string { return r.State })
}

func distinct(records []models.SalesRecord, key func(models.SalesRecord) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		values = append(values, k)
	}
	return values
}

// Cache management
func (l *Loader) cacheFilename(path string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(path)
	return filepath.Join(l.cacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (l *Loader) saveToCache(path string, ds *Dataset) error {
	if err := os.MkdirAll(l.cacheDir, 0755); err != nil {
		return err
	}

	file, err := os.Create(l.cacheFilename(path))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(ds)
}

func (l *Loader) loadFromCache(path string) (*Dataset, error) {
	file, err := os.Open(l.cacheFilename(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var ds Dataset
	if err := gob.NewDecoder(file).Decode(&ds); err != nil {
		return nil, err
	}
	if ds.Source != path {
		return nil, fmt.Errorf("cache entry belongs to %q", ds.Source)
	}
	return &ds, nil
}
