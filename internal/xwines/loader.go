// Package xwines bulk-loads the external X-Wines reference dataset into
// the xwines_wines table created by the 2->3 schema step. The engine
// guarantees the schema shape only; the freshness and correctness of the
// dataset content is the dataset publisher's concern.
package xwines

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/winebox/dbmigrate/internal/common"
	"github.com/winebox/dbmigrate/internal/schema"
)

// Wine is one row of the X-Wines wines CSV.
type Wine struct {
	ID          int
	Name        string
	WineType    string
	Elaborate   *string
	Grapes      *string
	Harmonize   *string
	ABV         *float64
	Body        *string
	Acidity     *string
	CountryCode *string
	Country     *string
	RegionID    *int
	RegionName  *string
	WineryID    *int
	WineryName  *string
	Website     *string
	Vintages    *string
}

// Loader imports the dataset in batches. A zero BatchSize means 1000 rows
// per insert, matching the upstream importer.
type Loader struct {
	BatchSize int
}

func (l *Loader) batchSize() int {
	if l.BatchSize > 0 {
		return l.BatchSize
	}
	return 1000
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ParseWines reads the wines CSV. Header names follow the official
// X-Wines export (WineID, WineName, Type, ...).
func ParseWines(r io.Reader) ([]Wine, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var wines []Wine
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		id, err := strconv.Atoi(strings.TrimSpace(field(rec, "WineID")))
		if err != nil {
			return nil, fmt.Errorf("invalid WineID %q: %w", field(rec, "WineID"), err)
		}
		w := Wine{
			ID:          id,
			Name:        strings.TrimSpace(field(rec, "WineName")),
			WineType:    strings.TrimSpace(field(rec, "Type")),
			Elaborate:   optString(field(rec, "Elaborate")),
			Grapes:      optString(field(rec, "Grapes")),
			Harmonize:   optString(field(rec, "Harmonize")),
			Body:        optString(field(rec, "Body")),
			Acidity:     optString(field(rec, "Acidity")),
			CountryCode: optString(field(rec, "Code")),
			Country:     optString(field(rec, "Country")),
			RegionName:  optString(field(rec, "RegionName")),
			WineryName:  optString(field(rec, "WineryName")),
			Website:     optString(field(rec, "Website")),
			Vintages:    optString(field(rec, "Vintages")),
		}
		if s := strings.TrimSpace(field(rec, "ABV")); s != "" {
			abv, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid ABV %q for wine %d: %w", s, id, err)
			}
			w.ABV = &abv
		}
		if s := strings.TrimSpace(field(rec, "RegionID")); s != "" {
			if v, err := strconv.Atoi(s); err == nil {
				w.RegionID = &v
			}
		}
		if s := strings.TrimSpace(field(rec, "WineryID")); s != "" {
			if v, err := strconv.Atoi(s); err == nil {
				w.WineryID = &v
			}
		}
		wines = append(wines, w)
	}
	return wines, nil
}

// ParseRatings reads the ratings CSV and aggregates ratings per wine.
func ParseRatings(r io.Reader) (map[int][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ratings header: %w", err)
	}
	wineCol, ratingCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "WineID":
			wineCol = i
		case "Rating":
			ratingCol = i
		}
	}
	if wineCol < 0 || ratingCol < 0 {
		return nil, fmt.Errorf("ratings CSV missing WineID or Rating column")
	}

	out := make(map[int][]float64)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ratings row: %w", err)
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[wineCol]))
		if err != nil {
			continue
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(rec[ratingCol]), 64)
		if err != nil {
			continue
		}
		out[id] = append(out[id], rating)
	}
	return out, nil
}

// ImportWines inserts wines in batches using INSERT OR REPLACE semantics,
// so re-importing the dataset is safe. Returns the number of rows written.
func (l *Loader) ImportWines(ctx context.Context, q schema.Querier, wines []Wine) (int, error) {
	logger := common.GetLogger().WithComponent("xwines")
	const insertSQL = `INSERT OR REPLACE INTO xwines_wines (
		id, name, wine_type, elaborate, grapes, harmonize,
		abv, body, acidity, country_code, country,
		region_id, region_name, winery_id, winery_name,
		website, vintages, avg_rating, rating_count
	) VALUES `
	const valuesClause = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0)"

	count := 0
	size := l.batchSize()
	for start := 0; start < len(wines); start += size {
		end := start + size
		if end > len(wines) {
			end = len(wines)
		}
		batch := wines[start:end]
		clauses := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*17)
		for _, w := range batch {
			clauses = append(clauses, valuesClause)
			args = append(args,
				w.ID, w.Name, w.WineType, w.Elaborate, w.Grapes, w.Harmonize,
				w.ABV, w.Body, w.Acidity, w.CountryCode, w.Country,
				w.RegionID, w.RegionName, w.WineryID, w.WineryName,
				w.Website, w.Vintages)
		}
		if _, err := q.ExecContext(ctx, insertSQL+strings.Join(clauses, ","), args...); err != nil {
			return count, fmt.Errorf("failed to import wines batch at %d: %w", start, err)
		}
		count += len(batch)
	}
	logger.Info("wines imported", "count", count)
	return count, nil
}

// UpdateRatings writes aggregated average rating and rating count per wine.
func (l *Loader) UpdateRatings(ctx context.Context, q schema.Querier, ratings map[int][]float64) (int, error) {
	updated := 0
	for id, rs := range ratings {
		if len(rs) == 0 {
			continue
		}
		sum := 0.0
		for _, r := range rs {
			sum += r
		}
		avg := sum / float64(len(rs))
		res, err := q.ExecContext(ctx,
			"UPDATE xwines_wines SET avg_rating = ?, rating_count = ? WHERE id = ?",
			avg, len(rs), id)
		if err != nil {
			return updated, fmt.Errorf("failed to update ratings for wine %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			updated += int(n)
		}
	}
	return updated, nil
}

// RecordMetadata stores dataset provenance in xwines_metadata from the
// dataset's JSON manifest (version, source) plus the imported row count.
func (l *Loader) RecordMetadata(ctx context.Context, q schema.Querier, manifest []byte, wineCount int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	entries := map[string]string{
		"dataset_version": gjson.GetBytes(manifest, "version").String(),
		"dataset_source":  gjson.GetBytes(manifest, "source").String(),
		"wine_count":      strconv.Itoa(wineCount),
		"imported_at":     now,
	}
	for key, value := range entries {
		if value == "" {
			continue
		}
		_, err := q.ExecContext(ctx,
			"INSERT OR REPLACE INTO xwines_metadata (key, value, updated_at) VALUES (?, ?, ?)",
			key, value, now)
		if err != nil {
			return fmt.Errorf("failed to record metadata %s: %w", key, err)
		}
	}
	return nil
}

// LoadFiles is the whole import in one call: wines CSV, optional ratings
// CSV, optional JSON manifest.
func (l *Loader) LoadFiles(ctx context.Context, q schema.Querier, winesPath, ratingsPath, manifestPath string) (int, error) {
	wf, err := os.Open(winesPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open wines CSV: %w", err)
	}
	defer func() { _ = wf.Close() }()
	wines, err := ParseWines(wf)
	if err != nil {
		return 0, err
	}
	count, err := l.ImportWines(ctx, q, wines)
	if err != nil {
		return count, err
	}

	if ratingsPath != "" {
		rf, err := os.Open(ratingsPath)
		if err != nil {
			return count, fmt.Errorf("failed to open ratings CSV: %w", err)
		}
		ratings, err := ParseRatings(rf)
		_ = rf.Close()
		if err != nil {
			return count, err
		}
		if _, err := l.UpdateRatings(ctx, q, ratings); err != nil {
			return count, err
		}
	}

	var manifest []byte
	if manifestPath != "" {
		manifest, err = os.ReadFile(manifestPath)
		if err != nil {
			return count, fmt.Errorf("failed to read manifest: %w", err)
		}
	}
	if err := l.RecordMetadata(ctx, q, manifest, count); err != nil {
		return count, err
	}
	return count, nil
}
