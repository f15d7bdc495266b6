package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/zdircomp/zdircomp/outcome"
)

// Store records outcomes in the history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Run is one recorded invocation.
type Run struct {
	ID           int64           `json:"id" yaml:"id"`
	StartedAt    time.Time       `json:"started_at" yaml:"started_at"`
	Command      outcome.Command `json:"command" yaml:"command"`
	Path         string          `json:"path" yaml:"path"`
	Kind         outcome.Kind    `json:"kind" yaml:"kind"`
	DeletedFiles int             `json:"deleted_files" yaml:"deleted_files"`
	RemovedDirs  int             `json:"removed_dirs" yaml:"removed_dirs"`
	Terminated   int             `json:"terminated" yaml:"terminated"`
	Failures     int             `json:"failures" yaml:"failures"`
	DryRun       bool            `json:"dry_run" yaml:"dry_run"`
	ExitCode     int             `json:"exit_code" yaml:"exit_code"`
	Summary      string          `json:"summary" yaml:"summary"`
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Record inserts o as a new run.
func (s *Store) Record(o outcome.Outcome) error {
	l := sub()
	res, err := s.db.Exec(`
		INSERT INTO runs (started_at, command, path, kind, deleted_files, removed_dirs,
		                  terminated, failures, dry_run, exit_code, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.clock().UnixMilli(), string(o.Command), o.Path, string(o.Kind), o.DeletedFiles, o.RemovedDirs,
		o.Terminated, len(o.Failures), o.DryRun, o.ExitCode(), o.Summary())
	if err != nil {
		l.Error("record run failed", "path", o.Path, "err", err)
		return fmt.Errorf("record run: %w", err)
	}
	id, _ := res.LastInsertId()
	l.Debug("run recorded", "id", id, "kind", o.Kind)
	return nil
}

// Recent returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, started_at, command, path, kind, deleted_files, removed_dirs,
		       terminated, failures, dry_run, exit_code, summary
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt int64
		var command, kind string
		if err := rows.Scan(&r.ID, &startedAt, &command, &r.Path, &kind, &r.DeletedFiles, &r.RemovedDirs,
			&r.Terminated, &r.Failures, &r.DryRun, &r.ExitCode, &r.Summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedAt)
		r.Command = outcome.Command(command)
		r.Kind = outcome.Kind(kind)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes runs older than cutoff and returns how many were removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		sub().Info("pruned history", "runs", n, "before", cutoff.Format(time.RFC3339))
	}
	return n, nil
}
