// Package checker runs conflict checks for the API and the NATS worker and
// fans each result out to the cache, the history store and the statistics.
package checker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saviobatista/uav-deconfliction/internal/deconflict"
	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/parser"
	"github.com/saviobatista/uav-deconfliction/internal/stats"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// Cache stores finished reports by request key
type Cache interface {
	GetResult(ctx context.Context, requestKey string) (*types.CheckReport, error)
	StoreResult(ctx context.Context, report *types.CheckReport) error
}

// History records every check
type History interface {
	StoreCheck(ctx context.Context, report *types.CheckReport) error
}

// Service runs checks with a single engine
type Service struct {
	engine  *deconflict.Engine
	cache   Cache
	history History
	stats   *stats.Stats
	logger  *log.Logger

	newID func() string
	now   func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithCache enables result caching
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithHistory enables check history
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithStats counts every check
func WithStats(st *stats.Stats) Option {
	return func(s *Service) { s.stats = st }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service around engine
func New(engine *deconflict.Engine, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the engine checks run on
func (s *Service) Engine() *deconflict.Engine {
	return s.engine
}

// RequestKey identifies a request under a given set of parameters. Two
// requests with the same key always produce the same conflicts.
func RequestKey(req *types.CheckRequest, params deconflict.Params) (string, error) {
	// Workers changes scheduling, never the result
	params.Workers = 0
	data, err := json.Marshal(struct {
		Request *types.CheckRequest `json:"request"`
		Params  deconflict.Params   `json:"params"`
	}{req, params})
	if err != nil {
		return "", fmt.Errorf("failed to encode request key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CheckRaw decodes a request body and checks it
func (s *Service) CheckRaw(ctx context.Context, requestID, source string, body []byte) (*types.CheckReport, error) {
	req, err := parser.ParseRequest(body)
	if err != nil {
		s.recordFailure()
		return nil, err
	}
	return s.Check(ctx, requestID, source, req)
}

// Check runs the engine on req, serving repeated requests from the cache.
// Cache and history failures are logged and never fail the check.
func (s *Service) Check(ctx context.Context, requestID, source string, req *types.CheckRequest) (*types.CheckReport, error) {
	start := time.Now()

	key, err := RequestKey(req, s.engine.Params())
	if err != nil {
		s.recordFailure()
		return nil, err
	}

	if report := s.lookup(ctx, key); report != nil {
		report.CheckID = s.newID()
		report.RequestID = requestID
		report.Source = source
		report.CheckedAt = s.now()
		report.Duration = time.Since(start)
		report.Cached = true
		s.finish(ctx, report, false)
		return report, nil
	}

	res, err := s.engine.Check(ctx, req.PrimaryMission, req.OtherMissions)
	if err != nil {
		s.recordFailure()
		return nil, fmt.Errorf("conflict check failed: %w", err)
	}

	report := &types.CheckReport{
		CheckID:      s.newID(),
		RequestID:    requestID,
		RequestKey:   key,
		Source:       source,
		CheckedAt:    s.now(),
		Status:       res.Status,
		Dimensions:   res.Dimensions,
		SegmentCount: res.Segments,
		MissionCount: len(req.OtherMissions),
		Conflicts:    res.Conflicts,
		Duration:     time.Since(start),
	}
	s.finish(ctx, report, true)
	return report, nil
}

// FailureReport builds the report published for a request that could not be
// checked
func (s *Service) FailureReport(requestID, source string, err error) *types.CheckReport {
	return &types.CheckReport{
		CheckID:   s.newID(),
		RequestID: requestID,
		Source:    source,
		CheckedAt: s.now(),
		Conflicts: []types.ConflictRecord{},
		Error:     err.Error(),
	}
}

func (s *Service) lookup(ctx context.Context, key string) *types.CheckReport {
	if s.cache == nil {
		return nil
	}
	report, err := s.cache.GetResult(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read cached result", "key", key, "error", err)
	}
	if report == nil {
		if s.stats != nil {
			s.stats.RecordCacheMiss()
		}
		return nil
	}
	if s.stats != nil {
		s.stats.RecordCacheHit()
	}
	return report
}

func (s *Service) finish(ctx context.Context, report *types.CheckReport, store bool) {
	logger := s.logger.With("check_id", report.CheckID, "source", report.Source)

	if store && s.cache != nil {
		if err := s.cache.StoreResult(ctx, report); err != nil {
			logger.Warn("Failed to cache result", "error", err)
		}
	}
	if s.history != nil {
		if err := s.history.StoreCheck(ctx, report); err != nil {
			logger.Warn("Failed to store check history", "error", err)
		}
	}
	if s.stats != nil {
		s.stats.RecordCheck(report.Status, report.Conflicts, report.Duration)
	}

	logger.Debug("Conflict check finished",
		"status", report.Status,
		"conflicts", len(report.Conflicts),
		"missions", report.MissionCount,
		"cached", report.Cached,
		"duration", report.Duration,
	)
}

func (s *Service) recordFailure() {
	if s.stats != nil {
		s.stats.RecordFailure()
	}
}
