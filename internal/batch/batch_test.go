package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/arxaplan/cutout/internal/removal"
	"github.com/arxaplan/cutout/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type mockRemover struct {
	mu      sync.Mutex
	calls   []string
	active  int
	peak    int
	result  []byte
	errs    map[string]error
	blockOn string
	blocked chan struct{}
	unblock chan struct{}
}

func (m *mockRemover) Remove(ctx context.Context, fileName string, data []byte) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, fileName)
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	err := m.errs[fileName]
	m.mu.Unlock()

	if fileName == m.blockOn {
		m.blocked <- struct{}{}
		<-m.unblock
	} else {
		time.Sleep(5 * time.Millisecond)
	}

	m.mu.Lock()
	m.active--
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return m.result, nil
}

func files(t *testing.T, names ...string) []File {
	out := make([]File, len(names))
	for i, n := range names {
		out[i] = File{Name: n, Data: pngBytes(t, 8, 6)}
	}
	return out
}

type recorder struct {
	mu      sync.Mutex
	records []report.Record
}

func (r *recorder) Record(rec report.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func TestProcessAllSequential(t *testing.T) {
	remover := &mockRemover{
		result: pngBytes(t, 4, 3),
		errs:   map[string]error{"b.png": &removal.ServiceError{StatusCode: 400, Title: "Could not identify foreground"}},
	}
	rec := &recorder{}
	s := New(remover, WithRecorder(rec))

	res, err := s.Add(files(t, "a.png", "b.png", "c.png"))
	require.NoError(t, err)
	require.Len(t, res.Added, 3)

	require.NoError(t, s.ProcessAll(context.Background()))

	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, remover.calls)
	assert.Equal(t, 1, remover.peak)

	items := s.Items()
	assert.Equal(t, StatusDone, items[0].Status)
	assert.Equal(t, StatusError, items[1].Status)
	assert.Equal(t, "Could not identify foreground", items[1].Error)
	assert.Equal(t, StatusDone, items[2].Status)
	assert.Equal(t, Counts{Total: 3, Done: 2, Error: 1}, s.Counts())
	assert.Len(t, rec.records, 3)

	// terminal items are not processed again
	require.NoError(t, s.ProcessAll(context.Background()))
	assert.Len(t, remover.calls, 3)
}

func TestProcessAllWorkers(t *testing.T) {
	remover := &mockRemover{result: pngBytes(t, 4, 3)}
	s := New(remover, WithWorkers(3))
	_, err := s.Add(files(t, "1.png", "2.png", "3.png", "4.png", "5.png", "6.png"))
	require.NoError(t, err)

	require.NoError(t, s.ProcessAll(context.Background()))
	assert.Equal(t, 6, s.Counts().Done)
	assert.LessOrEqual(t, remover.peak, 3)
}

func TestRemoveWhileProcessing(t *testing.T) {
	remover := &mockRemover{
		result:  pngBytes(t, 4, 3),
		blockOn: "b.png",
		blocked: make(chan struct{}),
		unblock: make(chan struct{}),
	}
	s := New(remover)
	res, err := s.Add(files(t, "a.png", "b.png", "c.png"))
	require.NoError(t, err)
	b := res.Added[1]

	done := make(chan error, 1)
	go func() { done <- s.ProcessAll(context.Background()) }()

	<-remover.blocked
	item, ok := s.Item(b.ID)
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, item.Status)

	assert.ErrorIs(t, s.ProcessAll(context.Background()), ErrAlreadyProcessing)

	require.NoError(t, s.Remove(b.ID))
	assert.True(t, b.Original.Released())
	close(remover.unblock)

	require.NoError(t, <-done)
	_, ok = s.Item(b.ID)
	assert.False(t, ok)
	assert.Equal(t, Counts{Total: 2, Done: 2}, s.Counts())
	assert.False(t, s.Processing())
}

func TestSnapshotConsistent(t *testing.T) {
	remover := &mockRemover{
		result:  pngBytes(t, 4, 3),
		blockOn: "b.png",
		blocked: make(chan struct{}),
		unblock: make(chan struct{}),
	}
	s := New(remover)
	_, err := s.Add(files(t, "a.png", "b.png", "c.png"))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, s.ID, snap.ID)
	assert.False(t, snap.Processing)
	assert.Equal(t, Counts{Total: 3, Pending: 3}, snap.Counts)

	done := make(chan error, 1)
	go func() { done <- s.ProcessAll(context.Background()) }()
	<-remover.blocked

	snap = s.Snapshot()
	assert.True(t, snap.Processing)
	require.Len(t, snap.Items, snap.Counts.Total)
	var tally Counts
	tally.Total = len(snap.Items)
	for _, it := range snap.Items {
		switch it.Status {
		case StatusPending:
			tally.Pending++
		case StatusProcessing:
			tally.Processing++
		case StatusDone:
			tally.Done++
		case StatusError:
			tally.Error++
		}
	}
	assert.Equal(t, tally, snap.Counts)
	assert.GreaterOrEqual(t, snap.Counts.Processing, 1)

	close(remover.unblock)
	require.NoError(t, <-done)

	snap = s.Snapshot()
	assert.False(t, snap.Processing)
	assert.Equal(t, Counts{Total: 3, Done: 3}, snap.Counts)
}

func TestAddCapacity(t *testing.T) {
	s := New(&mockRemover{})

	names := make([]string, MaxItems+5)
	for i := range names {
		names[i] = fmt.Sprintf("%02d.png", i)
	}
	res, err := s.Add(files(t, names...))
	require.NoError(t, err)
	assert.Len(t, res.Added, MaxItems)
	assert.Equal(t, names[MaxItems:], res.Rejected)

	_, err = s.Add(files(t, "more.png"))
	assert.ErrorIs(t, err, ErrBatchFull)
}

func TestAddSkipsNonImages(t *testing.T) {
	s := New(&mockRemover{})
	res, err := s.Add([]File{
		{Name: "notes.txt", Data: []byte("hello")},
		{Name: "ok.png", Data: pngBytes(t, 2, 2)},
	})
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Equal(t, []string{"notes.txt"}, res.Skipped)
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusDone, true},
		{StatusProcessing, StatusError, true},
		{StatusPending, StatusDone, false},
		{StatusDone, StatusProcessing, false},
		{StatusError, StatusPending, false},
		{StatusDone, StatusError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			it := &Item{Status: tt.from}
			assert.Equal(t, tt.ok, advance(it, tt.to))
			if !tt.ok {
				assert.Equal(t, tt.from, it.Status)
			}
		})
	}
}

func TestDownloadAll(t *testing.T) {
	remover := &mockRemover{result: pngBytes(t, 4, 3), errs: map[string]error{"b.jpg": errors.New("boom")}}
	s := New(remover)
	_, err := s.Add(files(t, "a.jpg", "b.jpg", "c.webp", "d.png"))
	require.NoError(t, err)
	require.NoError(t, s.ProcessAll(context.Background()))

	var names []string
	start := time.Now()
	err = s.DownloadAll(context.Background(), 20*time.Millisecond, func(name string, data []byte) error {
		names = append(names, name)
		assert.NotEmpty(t, data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"arxaplan_a.png", "arxaplan_c.png", "arxaplan_d.png"}, names)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	plan, err := s.Downloads(0)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Zero(t, plan[0].Delay)
	assert.Equal(t, DefaultStagger, plan[1].Delay)
}

func TestDownloadAllCancelled(t *testing.T) {
	s := New(&mockRemover{result: pngBytes(t, 4, 3)})
	_, err := s.Add(files(t, "a.png", "b.png"))
	require.NoError(t, err)
	require.NoError(t, s.ProcessAll(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err = s.DownloadAll(ctx, time.Hour, func(name string, data []byte) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestClear(t *testing.T) {
	s := New(&mockRemover{})
	res, err := s.Add(files(t, "a.png"))
	require.NoError(t, err)

	s.Clear()
	assert.True(t, res.Added[0].Original.Released())
	assert.Empty(t, s.Items())
	assert.ErrorIs(t, s.Remove(res.Added[0].ID), ErrNotFound)
}
