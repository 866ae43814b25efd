// Package dataset provides read-only access to the cleaned training dataset
// shipped alongside the model artifacts. The store is optional: the service
// degrades gracefully when dataset.db is absent, it only backs the
// statistics endpoints, never the prediction paths.
package dataset

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// FileName is the dataset database file inside the data directory.
const FileName = "dataset.db"

// Store reads the training dataset from a read-only SQLite database.
type Store struct {
	db *sql.DB
}

// Stats summarizes the dataset for the UI: how many samples the models were
// trained from and how they distribute over crops and regions.
type Stats struct {
	Samples      int            `json:"samples"`
	Regions      int            `json:"regions"`
	SoilTypes    int            `json:"soil_types"`
	Crops        int            `json:"crops"`
	CropCounts   map[string]int `json:"crop_counts"`
	RegionCounts map[string]int `json:"region_counts"`
}

// NewStore opens the dataset database in the given data directory.
func NewStore(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, FileName)

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to dataset: %w", err)
	}

	// Verify it is actually a dataset database.
	var count int
	err = db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'samples'").Scan(&count)
	if err != nil || count == 0 {
		db.Close()
		return nil, fmt.Errorf("%s has no samples table", path)
	}

	return &Store{db: db}, nil
}

// Stats computes the dataset summary.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{
		CropCounts:   make(map[string]int),
		RegionCounts: make(map[string]int),
	}

	row := s.db.QueryRow(`
		SELECT count(*),
		       count(DISTINCT region),
		       count(DISTINCT soil_type),
		       count(DISTINCT crop_name)
		FROM samples
	`)
	if err := row.Scan(&stats.Samples, &stats.Regions, &stats.SoilTypes, &stats.Crops); err != nil {
		return nil, fmt.Errorf("stats query failed: %w", err)
	}

	if err := s.countsInto(stats.CropCounts, "crop_name"); err != nil {
		return nil, err
	}
	if err := s.countsInto(stats.RegionCounts, "region"); err != nil {
		return nil, err
	}

	return stats, nil
}

// countsInto fills dest with per-value sample counts for one column.
func (s *Store) countsInto(dest map[string]int, column string) error {
	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT %s, count(*) FROM samples GROUP BY %s", column, column))
	if err != nil {
		return fmt.Errorf("count query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			continue
		}
		dest[value] = count
	}
	return rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
