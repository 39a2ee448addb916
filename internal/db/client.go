package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// ErrCheckNotFound is returned when no check with the requested id exists
var ErrCheckNotFound = errors.New("check not found")

// Client stores the history of conflict checks. Only results are kept; the
// submitted mission plans are never written.
type Client struct {
	db *sql.DB
}

// CheckSummary is one row of the check history
type CheckSummary struct {
	CheckID       string        `json:"check_id"`
	Source        string        `json:"source"`
	CheckedAt     time.Time     `json:"checked_at"`
	Status        types.Status  `json:"status"`
	Dimensions    int           `json:"dimensions"`
	MissionCount  int           `json:"mission_count"`
	ConflictCount int           `json:"conflict_count"`
	Duration      time.Duration `json:"duration"`
	Cached        bool          `json:"cached"`
}

// MissionConflict is a stored conflict together with the check that found it
type MissionConflict struct {
	CheckID   string               `json:"check_id"`
	CheckedAt time.Time            `json:"checked_at"`
	Conflict  types.ConflictRecord `json:"conflict"`
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// NewWithDB wraps an existing connection pool
func NewWithDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping checks the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// StoreCheck records a check and its conflicts in one transaction
func (c *Client) StoreCheck(ctx context.Context, report *types.CheckReport) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conflict_checks (
			check_id, request_id, request_key, source, checked_at, status,
			dimensions, segment_count, mission_count, conflict_count,
			duration_us, cached, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		report.CheckID, report.RequestID, report.RequestKey, report.Source, report.CheckedAt,
		string(report.Status), int(report.Dimensions), report.SegmentCount, report.MissionCount,
		len(report.Conflicts), report.Duration.Microseconds(), report.Cached, report.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert check: %w", err)
	}

	for i, conflict := range report.Conflicts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conflict_records (
				check_id, seq, mission_id, time, distance, severity,
				primary_position, other_position
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			report.CheckID, i, conflict.MissionID, conflict.Time, conflict.Distance,
			string(conflict.Severity),
			pq.Array(conflict.Location.Primary.Coords()),
			pq.Array(conflict.Location.Other.Coords()),
		)
		if err != nil {
			return fmt.Errorf("failed to insert conflict %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit check: %w", err)
	}
	return nil
}

// GetCheck retrieves a stored check with its conflicts in original order
func (c *Client) GetCheck(ctx context.Context, checkID string) (*types.CheckReport, error) {
	var (
		r          types.CheckReport
		status     string
		dimensions int
		durationUs int64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT check_id, request_id, request_key, source, checked_at, status,
			dimensions, segment_count, mission_count, duration_us, cached, error
		FROM conflict_checks
		WHERE check_id = $1
	`, checkID).Scan(
		&r.CheckID, &r.RequestID, &r.RequestKey, &r.Source, &r.CheckedAt, &status,
		&dimensions, &r.SegmentCount, &r.MissionCount, &durationUs, &r.Cached, &r.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check: %w", err)
	}
	r.Status = types.Status(status)
	r.Dimensions = types.Dimension(dimensions)
	r.Duration = time.Duration(durationUs) * time.Microsecond

	rows, err := c.db.QueryContext(ctx, `
		SELECT mission_id, time, distance, severity, primary_position, other_position
		FROM conflict_records
		WHERE check_id = $1
		ORDER BY seq
	`, checkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conflicts: %w", err)
	}
	defer rows.Close()

	r.Conflicts = []types.ConflictRecord{}
	for rows.Next() {
		conflict, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		r.Conflicts = append(r.Conflicts, *conflict)
	}
	return &r, rows.Err()
}

// GetRecentChecks returns the most recent checks, newest first
func (c *Client) GetRecentChecks(ctx context.Context, limit int) ([]CheckSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT check_id, source, checked_at, status, dimensions,
			mission_count, conflict_count, duration_us, cached
		FROM conflict_checks
		ORDER BY checked_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []CheckSummary
	for rows.Next() {
		var (
			s          CheckSummary
			status     string
			durationUs int64
		)
		if err := rows.Scan(
			&s.CheckID, &s.Source, &s.CheckedAt, &status, &s.Dimensions,
			&s.MissionCount, &s.ConflictCount, &durationUs, &s.Cached,
		); err != nil {
			return nil, err
		}
		s.Status = types.Status(status)
		s.Duration = time.Duration(durationUs) * time.Microsecond
		checks = append(checks, s)
	}
	return checks, rows.Err()
}

// GetConflictsByMission returns conflicts involving the given other mission
// found since the given time, newest check first
func (c *Client) GetConflictsByMission(ctx context.Context, missionID string, since time.Time) ([]MissionConflict, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT c.check_id, c.checked_at,
			r.mission_id, r.time, r.distance, r.severity, r.primary_position, r.other_position
		FROM conflict_records r
		JOIN conflict_checks c ON c.check_id = r.check_id
		WHERE r.mission_id = $1 AND c.checked_at >= $2
		ORDER BY c.checked_at DESC, r.seq
	`, missionID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MissionConflict
	for rows.Next() {
		var (
			mc          MissionConflict
			severity    string
			primaryPos  []float64
			otherPos    []float64
			conflictRec types.ConflictRecord
		)
		if err := rows.Scan(
			&mc.CheckID, &mc.CheckedAt,
			&conflictRec.MissionID, &conflictRec.Time, &conflictRec.Distance, &severity,
			pq.Array(&primaryPos), pq.Array(&otherPos),
		); err != nil {
			return nil, err
		}
		if err := fillLocation(&conflictRec, severity, primaryPos, otherPos); err != nil {
			return nil, err
		}
		mc.Conflict = conflictRec
		out = append(out, mc)
	}
	return out, rows.Err()
}

func scanConflict(rows *sql.Rows) (*types.ConflictRecord, error) {
	var (
		c          types.ConflictRecord
		severity   string
		primaryPos []float64
		otherPos   []float64
	)
	if err := rows.Scan(
		&c.MissionID, &c.Time, &c.Distance, &severity,
		pq.Array(&primaryPos), pq.Array(&otherPos),
	); err != nil {
		return nil, err
	}
	if err := fillLocation(&c, severity, primaryPos, otherPos); err != nil {
		return nil, err
	}
	return &c, nil
}

func fillLocation(c *types.ConflictRecord, severity string, primaryPos, otherPos []float64) error {
	primary, err := types.PointFromCoords(primaryPos)
	if err != nil {
		return fmt.Errorf("invalid stored primary position: %w", err)
	}
	other, err := types.PointFromCoords(otherPos)
	if err != nil {
		return fmt.Errorf("invalid stored other position: %w", err)
	}
	c.Severity = types.Severity(severity)
	c.Location = types.ConflictLocation{Primary: primary, Other: other}
	return nil
}

// StoreSystemStats stores system statistics
func (c *Client) StoreSystemStats(ctx context.Context, stats *types.SystemStats) error {
	query := `
		INSERT INTO system_stats (
			time, total_checks, failed_checks, clear_checks, conflicted_checks,
			total_conflicts, severity_counts, cache_hits, cache_misses,
			processing_time_ms, uptime_seconds
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	severityCounts := make([]int64, len(stats.SeverityCounts))
	for i, v := range stats.SeverityCounts {
		severityCounts[i] = int64(v)
	}

	ts := stats.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := c.db.ExecContext(ctx, query,
		ts,
		int64(stats.TotalChecks),
		int64(stats.FailedChecks),
		int64(stats.ClearChecks),
		int64(stats.ConflictedChecks),
		int64(stats.TotalConflicts),
		pq.Array(severityCounts),
		int64(stats.CacheHits),
		int64(stats.CacheMisses),
		stats.ProcessingTime.Milliseconds(),
		int64(stats.Uptime.Seconds()),
	)
	return err
}

// GetSystemStats retrieves system statistics for a time range
func (c *Client) GetSystemStats(ctx context.Context, start, end time.Time) ([]types.SystemStats, error) {
	query := `
		SELECT
			time, total_checks, failed_checks, clear_checks, conflicted_checks,
			total_conflicts, severity_counts, cache_hits, cache_misses,
			processing_time_ms, uptime_seconds
		FROM system_stats
		WHERE time BETWEEN $1 AND $2
		ORDER BY time DESC
	`

	rows, err := c.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []types.SystemStats
	for rows.Next() {
		var (
			s                types.SystemStats
			totalChecks      int64
			failedChecks     int64
			clearChecks      int64
			conflictedChecks int64
			totalConflicts   int64
			severityCounts   []int64
			cacheHits        int64
			cacheMisses      int64
			processingTimeMs int64
			uptimeSeconds    int64
		)

		if err := rows.Scan(
			&s.Time,
			&totalChecks,
			&failedChecks,
			&clearChecks,
			&conflictedChecks,
			&totalConflicts,
			pq.Array(&severityCounts),
			&cacheHits,
			&cacheMisses,
			&processingTimeMs,
			&uptimeSeconds,
		); err != nil {
			return nil, err
		}

		s.TotalChecks = uint64(totalChecks)
		s.FailedChecks = uint64(failedChecks)
		s.ClearChecks = uint64(clearChecks)
		s.ConflictedChecks = uint64(conflictedChecks)
		s.TotalConflicts = uint64(totalConflicts)
		for i, v := range severityCounts {
			if i < len(s.SeverityCounts) {
				s.SeverityCounts[i] = uint64(v)
			}
		}
		s.CacheHits = uint64(cacheHits)
		s.CacheMisses = uint64(cacheMisses)
		s.ProcessingTime = time.Duration(processingTimeMs) * time.Millisecond
		s.Uptime = time.Duration(uptimeSeconds) * time.Second

		stats = append(stats, s)
	}

	return stats, rows.Err()
}
