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
		Name:    "create usage records",
		SQL: `
			CREATE TABLE usage_records (
				identity      TEXT PRIMARY KEY,
				prompt_count  INTEGER NOT NULL DEFAULT 0,
				cap           INTEGER NOT NULL,
				created_at    TEXT NOT NULL DEFAULT (datetime('now')),
				last_seen_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_usage_last_seen ON usage_records (last_seen_at);
		`,
	},
}
