// Package history persists past consultations (crop recommendations and
// nutrient predictions) as JSON files, one per record, so farmers can review
// earlier advice. Records are immutable once written.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Kind distinguishes the two serving paths.
type Kind string

const (
	KindCrop    Kind = "crop"
	KindTargets Kind = "targets"
)

// Record is one stored consultation: the raw inputs and the response served.
type Record struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	CreatedAt string            `json:"createdAt"`
	Inputs    map[string]string `json:"inputs"`
	Result    json.RawMessage   `json:"result"`
}

// Store handles consultation persistence.
type Store struct {
	historyDir string
}

// NewStore creates a history store under the data directory.
func NewStore(dataDir string) (*Store, error) {
	historyDir := filepath.Join(dataDir, "history")
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &Store{historyDir: historyDir}, nil
}

// List returns all records sorted by creation date, newest first.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.historyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		record, err := s.loadRecord(entry.Name())
		if err != nil {
			continue // Skip invalid records
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})

	return records, nil
}

// Get retrieves a record by ID.
func (s *Store) Get(id string) (*Record, error) {
	return s.loadRecord(fmt.Sprintf("%s.json", id))
}

// Append stores a new consultation, assigning its ID and timestamp.
func (s *Store) Append(kind Kind, inputs map[string]string, result any) (*Record, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	record := &Record{
		ID:        uuid.New().String(),
		Kind:      kind,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Inputs:    inputs,
		Result:    raw,
	}

	if err := s.saveRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record.
func (s *Store) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return os.Remove(filepath.Join(s.historyDir, fmt.Sprintf("%s.json", id)))
}

func (s *Store) loadRecord(filename string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.historyDir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read history record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse history record: %w", err)
	}
	return &record, nil
}

func (s *Store) saveRecord(record *Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}

	filename := filepath.Join(s.historyDir, fmt.Sprintf("%s.json", record.ID))
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history record: %w", err)
	}
	return nil
}
