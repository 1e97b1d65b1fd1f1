// Package repo реализует хранение в PostgreSQL.
//
// Два репозитория:
//   - RunbookRepo — конфигурации runbook (JSONB)
//   - RunRepo     — архив завершённых run'ов с отчётами по задачам;
//     реализует orchestrator.Recorder
//
// Ожидаемая схема:
//
//	CREATE TABLE runbooks (
//	    id         TEXT PRIMARY KEY,
//	    name       TEXT NOT NULL,
//	    config     JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE runs (
//	    id              UUID PRIMARY KEY,
//	    runbook_id      TEXT NOT NULL,
//	    runbook_name    TEXT NOT NULL DEFAULT '',
//	    state           TEXT NOT NULL,
//	    triggered_by    TEXT NOT NULL,
//	    variables       JSONB,
//	    started_at      TIMESTAMPTZ,
//	    finished_at     TIMESTAMPTZ,
//	    error           TEXT,
//	    total_tasks     INT NOT NULL DEFAULT 0,
//	    completed_tasks INT NOT NULL DEFAULT 0,
//	    failed_tasks    INT NOT NULL DEFAULT 0,
//	    skipped_tasks   INT NOT NULL DEFAULT 0,
//	    report          JSONB,
//	    created_at      TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX runs_runbook_created_idx ON runs (runbook_id, created_at DESC);
package repo
