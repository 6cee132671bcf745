package storage

// postgresSchemas mirror sqliteSchemas with native serial and boolean columns.
var postgresSchemas = []string{
	`CREATE TABLE IF NOT EXISTS nation_events (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		nation_id TEXT NOT NULL,
		timestamp_ms BIGINT NOT NULL,
		event_type TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		stage_index INTEGER NOT NULL,
		payload JSONB NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_nation_events_nation ON nation_events(nation_id, seq);`,
	`CREATE TABLE IF NOT EXISTS nation_snapshots (
		nation_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		stage_index INTEGER NOT NULL,
		total_messages INTEGER NOT NULL,
		food INTEGER NOT NULL,
		materials INTEGER NOT NULL,
		population INTEGER NOT NULL,
		military_power INTEGER NOT NULL,
		defense_level INTEGER NOT NULL,
		territory_size INTEGER NOT NULL,
		is_decaying BOOLEAN NOT NULL DEFAULT FALSE,
		last_message_ms BIGINT NOT NULL,
		history JSONB NOT NULL,
		updated_ms BIGINT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bio TEXT NOT NULL,
		activities TEXT NOT NULL,
		goals TEXT NOT NULL,
		values_text TEXT NOT NULL,
		survey JSONB NOT NULL,
		created_ms BIGINT NOT NULL
	);`,
}
