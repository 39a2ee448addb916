package migrations

// RetentionPolicies adds the history purge function and a daily summary view
var RetentionPolicies = &Migration{
	Name: "002_retention_policies",
	UpSQL: `
	-- Deletes checks (and, by cascade, their conflicts) and stats older than the given age
	CREATE OR REPLACE FUNCTION purge_conflict_history(max_age INTERVAL DEFAULT INTERVAL '90 days')
	RETURNS BIGINT AS $$
	DECLARE
		removed BIGINT;
	BEGIN
		DELETE FROM conflict_checks WHERE checked_at < NOW() - max_age;
		GET DIAGNOSTICS removed = ROW_COUNT;
		DELETE FROM system_stats WHERE time < NOW() - max_age;
		RETURN removed;
	END;
	$$ LANGUAGE plpgsql;

	CREATE OR REPLACE VIEW conflict_checks_daily AS
	SELECT
		date_trunc('day', checked_at) AS day,
		COUNT(*) AS checks,
		COUNT(*) FILTER (WHERE status = 'conflict detected') AS conflicted_checks,
		SUM(conflict_count) AS conflicts,
		AVG(duration_us)::BIGINT AS avg_duration_us
	FROM conflict_checks
	GROUP BY day;
	`,
	DownSQL: `
	DROP VIEW IF EXISTS conflict_checks_daily;
	DROP FUNCTION IF EXISTS purge_conflict_history(INTERVAL);
	`,
}
