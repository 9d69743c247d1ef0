package db

// migrationsSQL holds the schema. Statements are split on ';' by InitDB, so
// none of them may contain an embedded semicolon.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS terms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	term TEXT NOT NULL,
	canonical TEXT NOT NULL UNIQUE,
	definition TEXT,
	example TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL UNIQUE,
	description TEXT,
	website TEXT,
	url TEXT,
	added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_imported_row INTEGER NOT NULL DEFAULT -1
);

CREATE TABLE IF NOT EXISTS term_sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	term_id INTEGER NOT NULL,
	source_id INTEGER NOT NULL,
	linked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(term_id, source_id)
);

CREATE INDEX IF NOT EXISTS idx_term_sources_term ON term_sources(term_id);

CREATE INDEX IF NOT EXISTS idx_term_sources_source ON term_sources(source_id)
`
