package stats

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

type memoryStore struct {
	mu    sync.Mutex
	saved []types.SystemStats
	err   error
}

func (m *memoryStore) StoreSystemStats(ctx context.Context, stats *types.SystemStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *stats)
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func conflictsWith(severities ...types.Severity) []types.ConflictRecord {
	out := make([]types.ConflictRecord, len(severities))
	for i, s := range severities {
		out[i] = types.ConflictRecord{MissionID: "drone", Severity: s}
	}
	return out
}

func TestNew(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	if snap.TotalChecks != 0 || snap.TotalConflicts != 0 {
		t.Errorf("Expected zero counters, got %+v", snap)
	}
	if !snap.LastCheckTime.IsZero() {
		t.Error("Expected no last check time before any check")
	}
}

func TestRecordCheck(t *testing.T) {
	s := New()

	s.RecordCheck(types.StatusClear, nil, 2*time.Millisecond)
	s.RecordCheck(types.StatusConflict, conflictsWith(types.SeverityHigh, types.SeverityMedium), 3*time.Millisecond)
	s.RecordCheck(types.StatusConflict, conflictsWith(types.SeverityCritical), time.Millisecond)
	s.RecordFailure()

	snap := s.Snapshot()
	if snap.TotalChecks != 4 {
		t.Errorf("Expected 4 checks, got %d", snap.TotalChecks)
	}
	if snap.ClearChecks != 1 || snap.ConflictedChecks != 2 || snap.FailedChecks != 1 {
		t.Errorf("Unexpected check split: %+v", snap)
	}
	if snap.TotalConflicts != 3 {
		t.Errorf("Expected 3 conflicts, got %d", snap.TotalConflicts)
	}
	if snap.SeverityCounts != [4]uint64{1, 1, 1, 0} {
		t.Errorf("Unexpected severity counts: %v", snap.SeverityCounts)
	}
	if snap.ProcessingTime != 6*time.Millisecond {
		t.Errorf("Expected 6ms processing time, got %v", snap.ProcessingTime)
	}
	if time.Since(snap.LastCheckTime) > 5*time.Second {
		t.Error("LastCheckTime should be recent")
	}
}

func TestRecordCache(t *testing.T) {
	s := New()
	s.RecordCacheHit()
	s.RecordCacheMiss()
	s.RecordCacheMiss()

	snap := s.Snapshot()
	if snap.CacheHits != 1 || snap.CacheMisses != 2 {
		t.Errorf("Expected 1 hit / 2 misses, got %d / %d", snap.CacheHits, snap.CacheMisses)
	}
}

func TestConcurrentRecording(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RecordCheck(types.StatusConflict, conflictsWith(types.SeverityLow), time.Microsecond)
			s.RecordCacheMiss()
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.TotalChecks != 50 || snap.SeverityCounts[3] != 50 || snap.CacheMisses != 50 {
		t.Errorf("Lost updates under concurrency: %+v", snap)
	}
}

func TestPersist(t *testing.T) {
	s := New()
	if err := s.Persist(context.Background()); err == nil {
		t.Error("Persist() should fail without a store")
	}

	store := &memoryStore{}
	s.SetStore(store)
	s.RecordCheck(types.StatusClear, nil, time.Millisecond)

	if err := s.Persist(context.Background()); err != nil {
		t.Fatalf("Persist() failed: %v", err)
	}
	if store.count() != 1 || store.saved[0].TotalChecks != 1 {
		t.Errorf("Unexpected persisted stats: %+v", store.saved)
	}

	store.err = errors.New("database down")
	if err := s.Persist(context.Background()); err == nil {
		t.Error("Persist() should surface store errors")
	}
}

func TestStartPersistence(t *testing.T) {
	s := New()
	store := &memoryStore{}
	s.SetStore(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.StartPersistence(ctx, 10*time.Millisecond, nil)
		close(done)
	}()

	time.Sleep(55 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartPersistence did not return after cancel")
	}

	// Periodic writes plus the final one on shutdown
	if store.count() < 2 {
		t.Errorf("Expected at least 2 persisted snapshots, got %d", store.count())
	}
}

func TestRunPersistence_StopWaitsForFinalWrite(t *testing.T) {
	s := New()
	store := &memoryStore{}
	s.SetStore(store)
	s.RecordCheck(types.StatusClear, nil, time.Millisecond)

	stop := s.RunPersistence(context.Background(), time.Hour, nil)
	stop()

	// No tick can have fired, so this is the shutdown write.
	if store.count() != 1 {
		t.Fatalf("Expected the final snapshot to be stored before stop returned, got %d", store.count())
	}
	if store.saved[0].TotalChecks != 1 {
		t.Errorf("Unexpected final snapshot: %+v", store.saved[0])
	}
}

func TestString(t *testing.T) {
	s := New()
	s.RecordCheck(types.StatusConflict, conflictsWith(types.SeverityCritical), time.Millisecond)

	out := s.String()
	for _, want := range []string{"Total Checks: 1", "Conflicted Checks: 1", "critical 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
}
