package migrations

// InitialSchema creates the check history tables
var InitialSchema = &Migration{
	Name: "001_initial_schema",
	UpSQL: `
		CREATE TABLE IF NOT EXISTS conflict_checks (
			check_id UUID PRIMARY KEY,
			request_id TEXT NOT NULL DEFAULT '',
			request_key TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			checked_at TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			dimensions SMALLINT NOT NULL,
			segment_count INTEGER NOT NULL,
			mission_count INTEGER NOT NULL,
			conflict_count INTEGER NOT NULL,
			duration_us BIGINT NOT NULL,
			cached BOOLEAN NOT NULL DEFAULT FALSE,
			error TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_conflict_checks_checked_at ON conflict_checks (checked_at DESC);
		CREATE INDEX IF NOT EXISTS idx_conflict_checks_request_key ON conflict_checks (request_key);

		-- One row per conflict, seq keeps the engine's ordering
		CREATE TABLE IF NOT EXISTS conflict_records (
			id BIGSERIAL PRIMARY KEY,
			check_id UUID NOT NULL REFERENCES conflict_checks (check_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			mission_id TEXT NOT NULL,
			time DOUBLE PRECISION NOT NULL,
			distance DOUBLE PRECISION NOT NULL,
			severity TEXT NOT NULL,
			primary_position DOUBLE PRECISION[] NOT NULL,
			other_position DOUBLE PRECISION[] NOT NULL,
			UNIQUE (check_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_conflict_records_mission_id ON conflict_records (mission_id);

		CREATE TABLE IF NOT EXISTS system_stats (
			time TIMESTAMPTZ NOT NULL,
			total_checks BIGINT NOT NULL,
			failed_checks BIGINT NOT NULL,
			clear_checks BIGINT NOT NULL,
			conflicted_checks BIGINT NOT NULL,
			total_conflicts BIGINT NOT NULL,
			severity_counts BIGINT[] NOT NULL,
			cache_hits BIGINT NOT NULL,
			cache_misses BIGINT NOT NULL,
			processing_time_ms BIGINT NOT NULL,
			uptime_seconds BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_system_stats_time ON system_stats (time DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS system_stats;
		DROP TABLE IF EXISTS conflict_records;
		DROP TABLE IF EXISTS conflict_checks;
	`,
}
