package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	// RecentLimit is how many records Recent returns by default
	RecentLimit = 20
	// MaxRecords bounds the in-memory log; older records are dropped first
	MaxRecords = 10000
)

// Record is one processed image
type Record struct {
	ID               string    `json:"id" yaml:"id" parquet:"id"`
	FileName         string    `json:"original_filename" yaml:"original_filename" parquet:"original_filename"`
	SizeBytes        int64     `json:"original_size_bytes" yaml:"original_size_bytes" parquet:"original_size_bytes"`
	Width            int32     `json:"width" yaml:"width" parquet:"width"`
	Height           int32     `json:"height" yaml:"height" parquet:"height"`
	HD               bool      `json:"is_hd" yaml:"is_hd" parquet:"is_hd"`
	ProcessingTimeMS int64     `json:"processing_time_ms" yaml:"processing_time_ms" parquet:"processing_time_ms"`
	Status           string    `json:"status" yaml:"status" parquet:"status"`
	Error            string    `json:"error,omitempty" yaml:"error,omitempty" parquet:"error"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at" parquet:"created_at"`
}

// Stats are the running counters shown on the landing page
type Stats struct {
	TotalProcessed int64 `json:"total_images_processed" yaml:"total_images_processed"`
	TotalHD        int64 `json:"total_hd_processed" yaml:"total_hd_processed"`
	TotalFailed    int64 `json:"total_failed" yaml:"total_failed"`
}

// Log is an in-memory processing history safe for concurrent use
type Log struct {
	mu      sync.RWMutex
	records []Record
	stats   Stats
}

func NewLog() *Log {
	return &Log{}
}

// Record appends r, filling in its id and timestamp when unset
func (l *Log) Record(r Record) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = StatusCompleted
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	if len(l.records) > MaxRecords {
		l.records = append([]Record(nil), l.records[len(l.records)-MaxRecords:]...)
	}
	l.stats.add(r)
}

// Recent returns up to n records, newest first
func (l *Log) Recent(n int) []Record {
	if n <= 0 {
		n = RecentLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.records) {
		n = len(l.records)
	}
	out := make([]Record, 0, n)
	for i := len(l.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.records[i])
	}
	return out
}

func (l *Log) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Record(nil), l.records...)
}

func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

func (s *Stats) add(r Record) {
	if r.Status != StatusCompleted {
		s.TotalFailed++
		return
	}
	s.TotalProcessed++
	if r.HD {
		s.TotalHD++
	}
}

type yamlReport struct {
	Stats   Stats    `yaml:"stats"`
	Records []Record `yaml:"records"`
}

// Save writes the log to path. The extension picks the format:
// .parquet for parquet, .yaml or .yml for a YAML report.
func (l *Log) Save(path string) error {
	records := l.Records()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		if err := parquet.WriteFile(path, records); err != nil {
			return fmt.Errorf("failed to write parquet file: %w", err)
		}
	case ".yaml", ".yml":
		data, err := yaml.Marshal(yamlReport{Stats: l.Stats(), Records: records})
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	default:
		return fmt.Errorf("unsupported report format: %s", path)
	}

	slog.Debug("Saved processing history", "path", path, "records", len(records))
	return nil
}

// Load reads a log written by Save. Stats are recomputed from the records.
func Load(path string) (*Log, error) {
	var records []Record

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		rows, err := parquet.ReadFile[Record](path)
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet file: %w", err)
		}
		records = rows
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read report: %w", err)
		}
		var r yamlReport
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to parse report: %w", err)
		}
		records = r.Records
	default:
		return nil, fmt.Errorf("unsupported report format: %s", path)
	}

	l := NewLog()
	for _, r := range records {
		l.stats.add(r)
	}
	if len(records) > MaxRecords {
		records = records[len(records)-MaxRecords:]
	}
	l.records = append([]Record(nil), records...)
	return l, nil
}
