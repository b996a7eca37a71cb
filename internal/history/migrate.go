package history

import "database/sql"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    at          DATETIME NOT NULL,
    processed   INTEGER NOT NULL DEFAULT 0,
    created     INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    dry_run     BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS outcomes (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id    INTEGER NOT NULL REFERENCES runs(id),
    name      TEXT NOT NULL DEFAULT '',
    category  TEXT NOT NULL DEFAULT '',
    action    TEXT NOT NULL DEFAULT '',
    policy_id TEXT NOT NULL DEFAULT '',
    error     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_name ON outcomes(name);
`

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
