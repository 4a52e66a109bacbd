package report

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleLog() *Log {
	l := NewLog()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.Record(Record{FileName: "a.jpg", SizeBytes: 1200, Width: 800, Height: 600, ProcessingTimeMS: 900, CreatedAt: base})
	l.Record(Record{FileName: "a.jpg", SizeBytes: 1200, Width: 800, Height: 600, HD: true, ProcessingTimeMS: 300, CreatedAt: base.Add(time.Minute)})
	l.Record(Record{FileName: "b.png", Status: StatusFailed, Error: "Insufficient credits", CreatedAt: base.Add(2 * time.Minute)})
	return l
}

func TestRecordStats(t *testing.T) {
	l := sampleLog()

	assert.Equal(t, Stats{TotalProcessed: 2, TotalHD: 1, TotalFailed: 1}, l.Stats())

	recent := l.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "b.png", recent[0].FileName)
	assert.True(t, recent[1].HD)

	assert.Len(t, l.Recent(0), 3)
	for _, r := range l.Records() {
		assert.NotEmpty(t, r.ID)
	}
}

func TestSaveLoad(t *testing.T) {
	for _, ext := range []string{".parquet", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			l := sampleLog()
			path := filepath.Join(t.TempDir(), "history"+ext)

			require.NoError(t, l.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, l.Stats(), loaded.Stats())

			want := l.Records()
			got := loaded.Records()
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].ID, got[i].ID)
				assert.Equal(t, want[i].FileName, got[i].FileName)
				assert.Equal(t, want[i].HD, got[i].HD)
				assert.Equal(t, want[i].Status, got[i].Status)
				assert.Equal(t, want[i].Error, got[i].Error)
				assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt), "created_at %v != %v", want[i].CreatedAt, got[i].CreatedAt)
			}
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	assert.Error(t, NewLog().Save(path))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadCapsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.yaml")
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	records := make([]Record, MaxRecords+5)
	for i := range records {
		records[i] = Record{
			ID:        fmt.Sprintf("r%d", i),
			FileName:  fmt.Sprintf("%d.png", i),
			Status:    StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
	}
	data, err := yaml.Marshal(yamlReport{Records: records})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	l, err := Load(path)
	require.NoError(t, err)

	got := l.Records()
	require.Len(t, got, MaxRecords)
	assert.Equal(t, "r5", got[0].ID)
	assert.Equal(t, fmt.Sprintf("r%d", MaxRecords+4), got[len(got)-1].ID)
	assert.Equal(t, int64(MaxRecords+5), l.Stats().TotalProcessed)

	l.Record(Record{FileName: "next.png"})
	assert.Len(t, l.Records(), MaxRecords)
}
