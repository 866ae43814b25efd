package dataset

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func writeTestDataset(t *testing.T, dir string) {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE samples (
		region TEXT, soil_type TEXT, crop_name TEXT
	)`); err != nil {
		t.Fatal(err)
	}

	rows := [][3]string{
		{"Punjab", "Alluvial", "Wheat"},
		{"Punjab", "Alluvial", "Rice"},
		{"Kerala", "Laterite", "Rice"},
	}
	for _, r := range rows {
		if _, err := db.Exec(
			"INSERT INTO samples (region, soil_type, crop_name) VALUES (?, ?, ?)",
			r[0], r[1], r[2]); err != nil {
			t.Fatal(err)
		}
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	writeTestDataset(t, dir)

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.Samples != 3 {
		t.Errorf("Expected 3 samples, got %d", stats.Samples)
	}
	if stats.Regions != 2 {
		t.Errorf("Expected 2 regions, got %d", stats.Regions)
	}
	if stats.Crops != 2 {
		t.Errorf("Expected 2 crops, got %d", stats.Crops)
	}
	if stats.CropCounts["Rice"] != 2 {
		t.Errorf("Expected 2 Rice samples, got %d", stats.CropCounts["Rice"])
	}
	if stats.RegionCounts["Punjab"] != 2 {
		t.Errorf("Expected 2 Punjab samples, got %d", stats.RegionCounts["Punjab"])
	}
}

func TestNewStoreMissingFile(t *testing.T) {
	if _, err := NewStore(t.TempDir()); err == nil {
		t.Error("Expected error for missing dataset database")
	}
}

func TestNewStoreWrongSchema(t *testing.T) {
	dir := t.TempDir()

	db, err := sql.Open("sqlite3", filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE other (x TEXT)"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := NewStore(dir); err == nil {
		t.Error("Expected error for database without samples table")
	}
}
