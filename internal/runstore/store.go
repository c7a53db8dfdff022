// Package runstore persists pipeline run history in SQLite.
package runstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pathogenwatch/amrpipe/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed run persistence
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts a new run record
func (s *Store) SaveRun(run *domain.Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, input_dir, output_dir, species, kingdom, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.InputDir,
		run.OutputDir,
		run.Species,
		string(run.Kingdom),
		string(run.Status),
		run.StartedAt,
	)
	return err
}

// FinishRun marks a run as finished with its final status
func (s *Store) FinishRun(id string, status domain.RunStatus, finishedAt time.Time) error {
	_, err := s.db.Exec(`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		string(status), finishedAt, id)
	return err
}

// SaveStageResult records the aggregated outcome of one stage of a run
func (s *Store) SaveStageResult(runID string, report *domain.Report) error {
	var details []string
	for _, f := range report.Failures {
		details = append(details, f.Error())
	}
	_, err := s.db.Exec(`
		INSERT INTO stage_results (run_id, stage, items, failures, warnings, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		runID,
		string(report.Stage),
		report.Total,
		len(report.Failures),
		len(report.Warnings),
		strings.Join(details, "; "),
	)
	return err
}

// StageSummary is the persisted aggregate of one stage
type StageSummary struct {
	Stage    domain.StageKind
	Items    int
	Failures int
	Warnings int
	Detail   string
}

// ListRecentRuns returns the most recent runs, newest first
func (s *Store) ListRecentRuns(limit int) ([]*domain.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, input_dir, output_dir, species, kingdom, status, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		var run domain.Run
		var kingdom, status string
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.InputDir, &run.OutputDir, &run.Species,
			&kingdom, &status, &run.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.Kingdom = domain.Kingdom(kingdom)
		run.Status = domain.RunStatus(status)
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// StageResults returns the stage summaries recorded for a run
func (s *Store) StageResults(runID string) ([]StageSummary, error) {
	rows, err := s.db.Query(`
		SELECT stage, items, failures, warnings, detail
		FROM stage_results WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StageSummary
	for rows.Next() {
		var r StageSummary
		var stage string
		var detail sql.NullString
		if err := rows.Scan(&stage, &r.Items, &r.Failures, &r.Warnings, &detail); err != nil {
			return nil, err
		}
		r.Stage = domain.StageKind(stage)
		r.Detail = detail.String
		results = append(results, r)
	}

	return results, rows.Err()
}
