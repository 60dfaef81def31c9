package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id          TEXT PRIMARY KEY,
	message_id  TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	author      TEXT NOT NULL DEFAULT '',
	recipients  TEXT NOT NULL DEFAULT '[]',
	date        DATETIME NOT NULL,
	raw         BLOB NOT NULL,
	size        INTEGER NOT NULL DEFAULT 0,
	imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mail_tags (
	key        TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	color      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS message_tags (
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	tag_key    TEXT NOT NULL REFERENCES mail_tags(key) ON DELETE CASCADE,
	PRIMARY KEY (message_id, tag_key)
);

CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_message_id
	ON messages(message_id) WHERE message_id != '';

CREATE INDEX IF NOT EXISTS idx_message_tags_tag_key
	ON message_tags(tag_key);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
