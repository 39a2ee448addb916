package stats

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// Store persists snapshots
type Store interface {
	StoreSystemStats(ctx context.Context, stats *types.SystemStats) error
}

// Stats tracks conflict check statistics
type Stats struct {
	totalChecks      atomic.Uint64
	failedChecks     atomic.Uint64
	clearChecks      atomic.Uint64
	conflictedChecks atomic.Uint64
	totalConflicts   atomic.Uint64
	cacheHits        atomic.Uint64
	cacheMisses      atomic.Uint64

	// Indexed like types.Severities
	severityCounts [4]atomic.Uint64

	started time.Time

	mu             sync.RWMutex
	lastCheckTime  time.Time
	processingTime time.Duration
	store          Store
}

// New creates a new Stats instance
func New() *Stats {
	return &Stats{started: time.Now()}
}

// SetStore sets where Persist writes snapshots
func (s *Stats) SetStore(store Store) {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
}

// RecordCheck counts a completed check and its conflicts by severity
func (s *Stats) RecordCheck(status types.Status, conflicts []types.ConflictRecord, elapsed time.Duration) {
	s.totalChecks.Add(1)
	if status == types.StatusConflict {
		s.conflictedChecks.Add(1)
	} else {
		s.clearChecks.Add(1)
	}

	s.totalConflicts.Add(uint64(len(conflicts)))
	for _, c := range conflicts {
		if r := c.Severity.Rank(); r >= 0 && r < len(s.severityCounts) {
			s.severityCounts[r].Add(1)
		}
	}

	s.mu.Lock()
	s.lastCheckTime = time.Now()
	s.processingTime += elapsed
	s.mu.Unlock()
}

// RecordFailure counts a check that could not be completed
func (s *Stats) RecordFailure() {
	s.totalChecks.Add(1)
	s.failedChecks.Add(1)
}

// RecordCacheHit counts a result served from the cache
func (s *Stats) RecordCacheHit() {
	s.cacheHits.Add(1)
}

// RecordCacheMiss counts a cache lookup that found nothing
func (s *Stats) RecordCacheMiss() {
	s.cacheMisses.Add(1)
}

// Snapshot returns a copy of the current statistics
func (s *Stats) Snapshot() types.SystemStats {
	snap := types.SystemStats{
		Time:             time.Now(),
		TotalChecks:      s.totalChecks.Load(),
		FailedChecks:     s.failedChecks.Load(),
		ClearChecks:      s.clearChecks.Load(),
		ConflictedChecks: s.conflictedChecks.Load(),
		TotalConflicts:   s.totalConflicts.Load(),
		CacheHits:        s.cacheHits.Load(),
		CacheMisses:      s.cacheMisses.Load(),
		Uptime:           time.Since(s.started),
	}
	for i := range s.severityCounts {
		snap.SeverityCounts[i] = s.severityCounts[i].Load()
	}

	s.mu.RLock()
	snap.LastCheckTime = s.lastCheckTime
	snap.ProcessingTime = s.processingTime
	s.mu.RUnlock()

	return snap
}

// Persist stores the current statistics
func (s *Stats) Persist(ctx context.Context) error {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return fmt.Errorf("stats store not set")
	}

	snap := s.Snapshot()
	return store.StoreSystemStats(ctx, &snap)
}

// String returns a string representation of the statistics
func (s *Stats) String() string {
	snap := s.Snapshot()
	return fmt.Sprintf(
		"Total Checks: %d\n"+
			"Failed Checks: %d\n"+
			"Clear Checks: %d\n"+
			"Conflicted Checks: %d\n"+
			"Conflicts: %d (critical %d, high %d, medium %d, low %d)\n"+
			"Cache Hits/Misses: %d/%d\n"+
			"Processing Time: %s\n"+
			"Uptime: %s",
		snap.TotalChecks,
		snap.FailedChecks,
		snap.ClearChecks,
		snap.ConflictedChecks,
		snap.TotalConflicts,
		snap.SeverityCounts[0], snap.SeverityCounts[1], snap.SeverityCounts[2], snap.SeverityCounts[3],
		snap.CacheHits, snap.CacheMisses,
		snap.ProcessingTime,
		snap.Uptime.Truncate(time.Second),
	)
}

// StartPersistence persists statistics every interval until ctx is done,
// with a final write on shutdown
func (s *Stats) StartPersistence(ctx context.Context, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// ctx is already cancelled, give the final write its own deadline
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.Persist(finalCtx); err != nil {
				logger.Warn("Failed to persist final statistics", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := s.Persist(ctx); err != nil {
				logger.Warn("Failed to persist statistics", "error", err)
			}
		}
	}
}

// RunPersistence starts StartPersistence in the background. The returned stop
// function cancels it and waits for the final write, so it must be called
// before the store is closed.
func (s *Stats) RunPersistence(ctx context.Context, interval time.Duration, logger *log.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.StartPersistence(ctx, interval, logger)
	}()
	return func() {
		cancel()
		<-done
	}
}
