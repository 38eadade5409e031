package qbank

// Schema is the question bank DDL.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    source_path      TEXT NOT NULL,
    subject          TEXT NOT NULL,
    subject_name     TEXT NOT NULL DEFAULT '',
    pages            INTEGER NOT NULL DEFAULT 0,
    native_pages     INTEGER NOT NULL DEFAULT 0,
    recognized_pages INTEGER NOT NULL DEFAULT 0,
    fallback_pages   INTEGER NOT NULL DEFAULT 0,
    questions        INTEGER NOT NULL DEFAULT 0,
    csv_path         TEXT NOT NULL DEFAULT '',
    started_at       INTEGER NOT NULL,
    finished_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source_path, started_at);

CREATE TABLE IF NOT EXISTS questions (
    id            TEXT PRIMARY KEY,
    run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq           INTEGER NOT NULL,
    paper_id      TEXT NOT NULL,
    question_type TEXT NOT NULL,
    number        TEXT NOT NULL,
    content       TEXT NOT NULL,
    tags          TEXT NOT NULL DEFAULT '[]',
    difficulty    TEXT NOT NULL,
    provenance    TEXT NOT NULL,
    page_index    INTEGER NOT NULL DEFAULT 0,
    UNIQUE(run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_questions_run ON questions(run_id, seq);
`
