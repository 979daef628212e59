// Package store persists finished optimization runs to SQLite so experiments
// can be listed and reloaded for reporting.
package store

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
	"github.com/XiaoConstantine/tunelab/pkg/optimize"
	"github.com/XiaoConstantine/tunelab/pkg/stats"
)

// SQLiteStore is a run store backed by SQLite.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	initialized sync.Once
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	RunID      string
	UseCaseID  string
	Iterations int
	EndTime    time.Time
}

// NewSQLiteStore opens (or creates) the run database at path. ":memory:"
// creates an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to open SQLite database"),
			errors.Fields{"path": path},
		)
	}

	store := &SQLiteStore{
		db:   db,
		path: path,
	}
	if err := store.ensureInitialized(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureInitialized() error {
	var initErr error
	s.initialized.Do(func() {
		// Enable WAL mode for better concurrency
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.StorageFailed, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS optimization_runs (
            run_id TEXT PRIMARY KEY,
            use_case_id TEXT NOT NULL,
            treatment_factor TEXT NOT NULL,
            objective TEXT NOT NULL,
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            termination_cause TEXT,
            termination_description TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );

        CREATE TABLE IF NOT EXISTS optimization_iterations (
            run_id TEXT NOT NULL,
            iteration INTEGER NOT NULL,
            status TEXT NOT NULL,
            score REAL NOT NULL,
            failure_reason TEXT,
            factor_suit TEXT NOT NULL,
            sample_count INTEGER NOT NULL,
            success_count INTEGER NOT NULL,
            total_tokens INTEGER NOT NULL,
            mean_latency_ms REAL NOT NULL,
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            PRIMARY KEY (run_id, iteration),
            FOREIGN KEY (run_id) REFERENCES optimization_runs(run_id)
        );
        `

		if _, err := s.db.Exec(query); err != nil {
			initErr = errors.Wrap(err, errors.StorageFailed, "failed to initialize database")
			return
		}
	})
	return initErr
}

// Save persists a finalized history, replacing any previous run with the same
// id.
func (s *SQLiteStore) Save(history *optimize.History) error {
	if history == nil {
		return errors.New(errors.InvalidInput, "history is required")
	}
	if err := s.ensureInitialized(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var cause, description sql.NullString
	if reason := history.TerminationReason(); reason != nil {
		cause = sql.NullString{String: reason.Cause.String(), Valid: true}
		description = sql.NullString{String: reason.Description, Valid: true}
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO optimization_runs
         (run_id, use_case_id, treatment_factor, objective, start_time, end_time, termination_cause, termination_description)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		history.RunID(),
		history.UseCaseID(),
		history.TreatmentFactor(),
		history.Objective().String(),
		history.StartTime().Format(time.RFC3339Nano),
		history.EndTime().Format(time.RFC3339Nano),
		cause,
		description,
	); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to save run")
	}

	if _, err := tx.Exec(`DELETE FROM optimization_iterations WHERE run_id = ?`, history.RunID()); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to clear stale iterations")
	}

	for _, rec := range history.Records() {
		suitJSON, err := json.Marshal(rec.Aggregate.Suit.Map())
		if err != nil {
			return errors.Wrap(err, errors.StorageFailed, "failed to encode factor suit")
		}

		if _, err := tx.Exec(
			`INSERT INTO optimization_iterations
             (run_id, iteration, status, score, failure_reason, factor_suit,
              sample_count, success_count, total_tokens, mean_latency_ms, start_time, end_time)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			history.RunID(),
			rec.Aggregate.Iteration,
			rec.Status.String(),
			rec.Score,
			rec.FailureReason,
			string(suitJSON),
			rec.Aggregate.Stats.SampleCount,
			rec.Aggregate.Stats.SuccessCount,
			rec.Aggregate.Stats.TotalTokens,
			rec.Aggregate.Stats.MeanLatencyMs,
			rec.Aggregate.StartTime.Format(time.RFC3339Nano),
			rec.Aggregate.EndTime.Format(time.RFC3339Nano),
		); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.StorageFailed, "failed to save iteration"),
				errors.Fields{"iteration": rec.Aggregate.Iteration},
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to commit run")
	}
	return nil
}

// Load rebuilds a persisted run.
func (s *SQLiteStore) Load(runID string) (*optimize.History, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT use_case_id, treatment_factor, objective, start_time, end_time, termination_cause, termination_description
         FROM optimization_runs WHERE run_id = ?`, runID)

	var (
		useCaseID, treatmentFactor, objectiveStr string
		startStr, endStr                         string
		cause, description                       sql.NullString
	)
	if err := row.Scan(&useCaseID, &treatmentFactor, &objectiveStr, &startStr, &endStr, &cause, &description); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.WithFields(
				errors.New(errors.InvalidInput, "run not found"),
				errors.Fields{"run_id": runID},
			)
		}
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to load run")
	}

	objective, err := optimize.ParseObjective(objectiveStr)
	if err != nil {
		return nil, err
	}
	start, err := parseTime(startStr)
	if err != nil {
		return nil, err
	}
	end, err := parseTime(endStr)
	if err != nil {
		return nil, err
	}

	var reason *optimize.TerminationReason
	if cause.Valid {
		parsedCause, err := parseCause(cause.String)
		if err != nil {
			return nil, err
		}
		reason = &optimize.TerminationReason{Cause: parsedCause, Description: description.String}
	}

	records, err := s.loadIterations(runID, treatmentFactor)
	if err != nil {
		return nil, err
	}

	return optimize.RestoreHistory(runID, useCaseID, treatmentFactor, objective, records, start, end, reason), nil
}

func (s *SQLiteStore) loadIterations(runID, treatmentFactor string) ([]optimize.IterationRecord, error) {
	rows, err := s.db.Query(
		`SELECT iteration, status, score, failure_reason, factor_suit,
                sample_count, success_count, total_tokens, mean_latency_ms, start_time, end_time
         FROM optimization_iterations WHERE run_id = ? ORDER BY iteration`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to load iterations")
	}
	defer rows.Close()

	var records []optimize.IterationRecord
	for rows.Next() {
		var (
			iteration, sampleCount, successCount int
			statusStr, reason, suitJSON          string
			score, meanLatency                   float64
			totalTokens                          int64
			startStr, endStr                     string
		)
		if err := rows.Scan(&iteration, &statusStr, &score, &reason, &suitJSON,
			&sampleCount, &successCount, &totalTokens, &meanLatency, &startStr, &endStr); err != nil {
			return nil, errors.Wrap(err, errors.StorageFailed, "failed to scan iteration")
		}

		var suitValues map[string]interface{}
		if err := json.Unmarshal([]byte(suitJSON), &suitValues); err != nil {
			return nil, errors.Wrap(err, errors.StorageFailed, "failed to decode factor suit")
		}

		batch, err := stats.FromCounts(sampleCount, successCount, totalTokens, meanLatency)
		if err != nil {
			return nil, err
		}
		start, err := parseTime(startStr)
		if err != nil {
			return nil, err
		}
		end, err := parseTime(endStr)
		if err != nil {
			return nil, err
		}

		agg, err := optimize.NewIterationAggregate(iteration, factors.New(suitValues), treatmentFactor, batch, start, end)
		if err != nil {
			return nil, err
		}

		status, err := parseStatus(statusStr)
		if err != nil {
			return nil, err
		}

		var rec optimize.IterationRecord
		if status == optimize.IterationSuccess {
			rec = optimize.NewSuccessRecord(agg, score)
		} else {
			rec, err = optimize.NewFailureRecord(agg, status, reason)
			if err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListRuns returns summaries of all stored runs, most recent first.
func (s *SQLiteStore) ListRuns() ([]RunSummary, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT r.run_id, r.use_case_id, r.end_time, COUNT(i.iteration)
         FROM optimization_runs r
         LEFT JOIN optimization_iterations i ON i.run_id = r.run_id
         GROUP BY r.run_id
         ORDER BY r.end_time DESC`)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to list runs")
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var (
			summary RunSummary
			endStr  string
		)
		if err := rows.Scan(&summary.RunID, &summary.UseCaseID, &endStr, &summary.Iterations); err != nil {
			return nil, errors.Wrap(err, errors.StorageFailed, "failed to scan run summary")
		}
		end, err := parseTime(endStr)
		if err != nil {
			return nil, err
		}
		summary.EndTime = end
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.StorageFailed, "failed to parse stored timestamp")
	}
	return t, nil
}

func parseStatus(s string) (optimize.IterationStatus, error) {
	switch s {
	case "SUCCESS":
		return optimize.IterationSuccess, nil
	case "EXECUTION_FAILED":
		return optimize.IterationExecutionFailed, nil
	case "SCORING_FAILED":
		return optimize.IterationScoringFailed, nil
	default:
		return 0, errors.Newf(errors.StorageFailed, "unknown iteration status %q", s)
	}
}

func parseCause(s string) (optimize.TerminationCause, error) {
	switch s {
	case "MAX_ITERATIONS":
		return optimize.CauseMaxIterations, nil
	case "NO_IMPROVEMENT":
		return optimize.CauseNoImprovement, nil
	case "TIME_BUDGET":
		return optimize.CauseTimeBudget, nil
	case "EXECUTION_FAILURE":
		return optimize.CauseExecutionFailure, nil
	case "SCORING_FAILURE":
		return optimize.CauseScoringFailure, nil
	case "MUTATION_FAILURE":
		return optimize.CauseMutationFailure, nil
	default:
		return 0, errors.Newf(errors.StorageFailed, "unknown termination cause %q", s)
	}
}
