package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create providers",
		SQL: `
			CREATE TABLE providers (
				id          TEXT PRIMARY KEY,
				type        TEXT NOT NULL,
				name        TEXT NOT NULL,
				is_default  INTEGER NOT NULL DEFAULT 0,
				endpoint    TEXT NOT NULL DEFAULT '',
				model       TEXT NOT NULL DEFAULT '',
				api_key     TEXT NOT NULL DEFAULT '',
				settings    TEXT,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_providers_type_name ON providers (type, name);
			CREATE INDEX idx_providers_type_default ON providers (type, is_default);
		`,
	},
	{
		Version: 2,
		Name:    "create activations",
		SQL: `
			CREATE TABLE activations (
				id             TEXT PRIMARY KEY,
				agent_id       TEXT NOT NULL,
				agent_version  TEXT NOT NULL DEFAULT '',
				session_id     TEXT NOT NULL DEFAULT '',
				status         TEXT NOT NULL,
				input_data     TEXT,
				output_data    TEXT,
				error_kind     TEXT NOT NULL DEFAULT '',
				error_message  TEXT NOT NULL DEFAULT '',
				instance_mode  TEXT NOT NULL DEFAULT '',
				instance_alias TEXT NOT NULL DEFAULT '',
				created_at     TEXT NOT NULL DEFAULT (datetime('now')),
				started_at     TEXT NOT NULL DEFAULT '',
				completed_at   TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_activations_agent ON activations (agent_id, created_at);
			CREATE INDEX idx_activations_session ON activations (session_id);
			CREATE INDEX idx_activations_status ON activations (status);
		`,
	},
	{
		Version: 3,
		Name:    "create app data",
		SQL: `
			CREATE TABLE app_data (
				agent_id    TEXT NOT NULL,
				collection  TEXT NOT NULL,
				key         TEXT NOT NULL,
				value       TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
				PRIMARY KEY (agent_id, collection, key)
			);

			CREATE INDEX idx_app_data_collection ON app_data (agent_id, collection);
		`,
	},
}
