package sqlite

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations. Timestamps are
// stored as Unix milliseconds.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tenants (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	permissions TEXT NOT NULL DEFAULT '{}',
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT REFERENCES tenants(id) ON DELETE SET NULL,
	email      TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	tenant_id    TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL,
	title        TEXT NOT NULL,
	body         TEXT NOT NULL,
	payload      TEXT NOT NULL DEFAULT '{}',
	priority     TEXT NOT NULL DEFAULT 'medium',
	is_read      INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	read_at      INTEGER,
	CHECK ((read_at IS NOT NULL) = (is_read = 1))
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created
	ON notifications(recipient_id, created_at DESC);

CREATE TABLE IF NOT EXISTS notification_preferences (
	user_id    TEXT PRIMARY KEY,
	email      INTEGER NOT NULL DEFAULT 1,
	push       INTEGER NOT NULL DEFAULT 0,
	in_app     INTEGER NOT NULL DEFAULT 1,
	frequency  TEXT NOT NULL DEFAULT 'immediate',
	categories TEXT NOT NULL DEFAULT '[]',
	updated_at INTEGER NOT NULL
);
`,
	},
}
