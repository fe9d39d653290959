package xwines

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

const winesCSV = `WineID,WineName,Type,Elaborate,Grapes,Harmonize,ABV,Body,Acidity,Code,Country,RegionID,RegionName,WineryID,WineryName,Website,Vintages
100001,Espumante Moscatel,Sparkling,Varietal/100%,['Muscat/Moscato'],"['Cake', 'Fruit Dessert']",7.5,Medium-bodied,High,BR,Brazil,1002,Serra Gaucha,10001,Casa Perini,http://www.casaperini.com.br,"[2020, 2019]"
100002,Shiraz Reserve,Red,,,,14.5,Full-bodied,Medium,AU,Australia,,Barossa Valley,,Penfolds,,
100003,Minimal Wine,White,,,,,,,,,,,,,,
`

const ratingsCSV = `RatingID,UserID,WineID,Rating,Date
1,5,100001,4.5,2021-01-01
2,6,100001,3.5,2021-01-02
3,7,100002,5.0,2021-01-03
4,8,999999,2.0,2021-01-04
`

func openDatasetDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xwines.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ddl := []string{
		`CREATE TABLE xwines_wines (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			wine_type TEXT NOT NULL,
			elaborate TEXT,
			grapes TEXT,
			harmonize TEXT,
			abv REAL,
			body TEXT,
			acidity TEXT,
			country_code TEXT,
			country TEXT,
			region_id INTEGER,
			region_name TEXT,
			winery_id INTEGER,
			winery_name TEXT,
			website TEXT,
			vintages TEXT,
			avg_rating REAL,
			rating_count INTEGER DEFAULT 0
		)`,
		`CREATE TABLE xwines_metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

func TestParseWines(t *testing.T) {
	wines, err := ParseWines(strings.NewReader(winesCSV))
	if err != nil {
		t.Fatalf("ParseWines: %v", err)
	}
	if len(wines) != 3 {
		t.Fatalf("parsed %d wines, want 3", len(wines))
	}

	w := wines[0]
	if w.ID != 100001 || w.Name != "Espumante Moscatel" || w.WineType != "Sparkling" {
		t.Errorf("first wine = %+v", w)
	}
	if w.ABV == nil || *w.ABV != 7.5 {
		t.Errorf("ABV = %v, want 7.5", w.ABV)
	}
	if w.RegionID == nil || *w.RegionID != 1002 {
		t.Errorf("RegionID = %v, want 1002", w.RegionID)
	}
	if w.CountryCode == nil || *w.CountryCode != "BR" {
		t.Errorf("CountryCode = %v", w.CountryCode)
	}

	// Empty fields come through as nils, never empty strings.
	m := wines[2]
	if m.ABV != nil || m.Grapes != nil || m.Country != nil || m.RegionID != nil {
		t.Errorf("minimal wine has non-nil optionals: %+v", m)
	}
}

func TestParseWinesRejectsBadID(t *testing.T) {
	bad := "WineID,WineName,Type\nnot-a-number,X,Red\n"
	if _, err := ParseWines(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for non-numeric WineID")
	}
}

func TestParseRatings(t *testing.T) {
	ratings, err := ParseRatings(strings.NewReader(ratingsCSV))
	if err != nil {
		t.Fatalf("ParseRatings: %v", err)
	}
	if len(ratings[100001]) != 2 || len(ratings[100002]) != 1 {
		t.Errorf("ratings grouping wrong: %v", ratings)
	}

	missing := "RatingID,UserID,Score\n1,2,3\n"
	if _, err := ParseRatings(strings.NewReader(missing)); err == nil {
		t.Fatal("expected error for missing WineID/Rating columns")
	}
}

func TestImportWinesAndRatings(t *testing.T) {
	db := openDatasetDB(t)
	ctx := context.Background()
	l := &Loader{BatchSize: 2} // force multiple batches

	wines, err := ParseWines(strings.NewReader(winesCSV))
	if err != nil {
		t.Fatal(err)
	}
	count, err := l.ImportWines(ctx, db, wines)
	if err != nil {
		t.Fatalf("ImportWines: %v", err)
	}
	if count != 3 {
		t.Fatalf("imported %d wines, want 3", count)
	}

	// Re-import replaces, never duplicates.
	if _, err := l.ImportWines(ctx, db, wines); err != nil {
		t.Fatalf("re-ImportWines: %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM xwines_wines").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("row count after re-import = %d, want 3", n)
	}

	ratings, err := ParseRatings(strings.NewReader(ratingsCSV))
	if err != nil {
		t.Fatal(err)
	}
	updated, err := l.UpdateRatings(ctx, db, ratings)
	if err != nil {
		t.Fatalf("UpdateRatings: %v", err)
	}
	// Wine 999999 is not in the table, so only two rows update.
	if updated != 2 {
		t.Errorf("updated %d rows, want 2", updated)
	}

	var avg float64
	var rc int
	err = db.QueryRowContext(ctx, "SELECT avg_rating, rating_count FROM xwines_wines WHERE id = 100001").Scan(&avg, &rc)
	if err != nil {
		t.Fatal(err)
	}
	if avg != 4.0 || rc != 2 {
		t.Errorf("wine 100001 avg=%v count=%d, want 4.0/2", avg, rc)
	}
}

func TestRecordMetadata(t *testing.T) {
	db := openDatasetDB(t)
	ctx := context.Background()
	l := &Loader{}

	manifest := []byte(`{"version": "2.1", "source": "https://github.com/rogerioxavier/X-Wines"}`)
	if err := l.RecordMetadata(ctx, db, manifest, 42); err != nil {
		t.Fatalf("RecordMetadata: %v", err)
	}

	get := func(key string) string {
		var v string
		if err := db.QueryRowContext(ctx, "SELECT value FROM xwines_metadata WHERE key = ?", key).Scan(&v); err != nil {
			t.Fatalf("metadata %s: %v", key, err)
		}
		return v
	}
	if get("dataset_version") != "2.1" {
		t.Errorf("dataset_version = %q", get("dataset_version"))
	}
	if get("wine_count") != "42" {
		t.Errorf("wine_count = %q", get("wine_count"))
	}
	if get("imported_at") == "" {
		t.Error("imported_at missing")
	}

	// No manifest: provenance keys are skipped, counters still recorded.
	if err := l.RecordMetadata(ctx, db, nil, 7); err != nil {
		t.Fatal(err)
	}
	if get("wine_count") != "7" {
		t.Errorf("wine_count after update = %q", get("wine_count"))
	}
}

func TestLoadFiles(t *testing.T) {
	db := openDatasetDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	winesPath := filepath.Join(dir, "wines.csv")
	ratingsPath := filepath.Join(dir, "ratings.csv")
	manifestPath := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(winesPath, []byte(winesCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ratingsPath, []byte(ratingsCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(manifestPath, []byte(`{"version":"2.1","source":"xwines"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	l := &Loader{}
	count, err := l.LoadFiles(ctx, db, winesPath, ratingsPath, manifestPath)
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if count != 3 {
		t.Errorf("LoadFiles imported %d, want 3", count)
	}

	var rc int
	if err := db.QueryRowContext(ctx, "SELECT rating_count FROM xwines_wines WHERE id = 100002").Scan(&rc); err != nil {
		t.Fatal(err)
	}
	if rc != 1 {
		t.Errorf("rating_count = %d, want 1", rc)
	}

	if _, err := l.LoadFiles(ctx, db, filepath.Join(dir, "missing.csv"), "", ""); err == nil {
		t.Error("expected error for missing wines CSV")
	}
}
