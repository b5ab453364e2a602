package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/optimize"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
)

// Store provides persistence for solves, prompt versions, and
// optimization runs.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an opened database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SolveRecord is one persisted solve, as read back from the database.
type SolveRecord struct {
	ID              int64                  `json:"id"`
	Problem         string                 `json:"problem"`
	ProblemType     string                 `json:"problem_type"`
	Answer          string                 `json:"answer"`
	Confidence      float64                `json:"confidence"`
	AgreementRatio  float64                `json:"agreement_ratio"`
	Method          string                 `json:"method"`
	ArbitrationUsed bool                   `json:"arbitration_used"`
	Elapsed         time.Duration          `json:"elapsed"`
	Diagnostic      string                 `json:"diagnostic,omitempty"`
	Paths           []reasoning.PathResult `json:"paths"`
	CreatedAt       string                 `json:"created_at"`
}

// SaveSolve inserts a completed solve with its path breakdown.
func (s *Store) SaveSolve(ctx context.Context, result reasoning.SolveResult) error {
	pathsJSON, err := json.Marshal(result.Final.Sources)
	if err != nil {
		return fmt.Errorf("marshal paths: %w", err)
	}
	createdAt := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `INSERT INTO solves(problem, problem_type, answer, confidence, agreement, method, arbitration, elapsed_ms, diagnostic, paths_json, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.Problem.Text, string(result.Problem.Normalized()), result.Final.Answer,
		result.Final.Confidence, result.Final.AgreementRatio, result.Final.Method,
		boolToInt(result.Final.ArbitrationUsed), result.Elapsed.Milliseconds(),
		nullableString(result.Diagnostic), string(pathsJSON), createdAt)
	if err != nil {
		return fmt.Errorf("insert solve: %w", err)
	}
	return nil
}

// RecentSolves returns the newest solves, most recent first.
func (s *Store) RecentSolves(ctx context.Context, limit int) ([]SolveRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, problem, problem_type, answer, confidence, agreement, method, arbitration, elapsed_ms, diagnostic, paths_json, created_at
		FROM solves ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query solves: %w", err)
	}
	defer rows.Close()

	var out []SolveRecord
	for rows.Next() {
		var rec SolveRecord
		var arbitration int
		var elapsedMS int64
		var diagnostic sql.NullString
		var pathsJSON string
		if err := rows.Scan(&rec.ID, &rec.Problem, &rec.ProblemType, &rec.Answer, &rec.Confidence,
			&rec.AgreementRatio, &rec.Method, &arbitration, &elapsedMS, &diagnostic, &pathsJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan solve: %w", err)
		}
		rec.ArbitrationUsed = arbitration != 0
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if diagnostic.Valid {
			rec.Diagnostic = diagnostic.String
		}
		if err := json.Unmarshal([]byte(pathsJSON), &rec.Paths); err != nil {
			return nil, fmt.Errorf("parse paths: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate solves: %w", err)
	}
	return out, nil
}

// SolveStats is an aggregate over everything in the solves table.
type SolveStats struct {
	Solves        int64            `json:"solves"`
	AvgConfidence float64          `json:"avg_confidence"`
	Arbitrated    int64            `json:"arbitrated"`
	ByType        map[string]int64 `json:"by_type"`
}

// Stats aggregates the persisted solve history.
func (s *Store) Stats(ctx context.Context) (SolveStats, error) {
	stats := SolveStats{ByType: map[string]int64{}}
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(AVG(confidence), 0), COALESCE(SUM(arbitration), 0) FROM solves`)
	if err := row.Scan(&stats.Solves, &stats.AvgConfidence, &stats.Arbitrated); err != nil {
		return SolveStats{}, fmt.Errorf("aggregate solves: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT problem_type, COUNT(*) FROM solves GROUP BY problem_type`)
	if err != nil {
		return SolveStats{}, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pt string
		var n int64
		if err := rows.Scan(&pt, &n); err != nil {
			return SolveStats{}, fmt.Errorf("scan type count: %w", err)
		}
		stats.ByType[pt] = n
	}
	if err := rows.Err(); err != nil {
		return SolveStats{}, fmt.Errorf("iterate type counts: %w", err)
	}
	return stats, nil
}

// SaveVersion records a prompt version in the lineage table. Re-saving
// an already recorded version is a no-op.
func (s *Store) SaveVersion(ctx context.Context, v prompts.Version) error {
	createdAt := v.CreatedAt.UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO prompt_versions(strategy, variant, version_id, template, backup_of, created_at)
		VALUES(?, ?, ?, ?, ?, ?)`,
		v.Strategy, v.Variant, v.ID, v.Template, nullableInt(v.BackupOf), createdAt)
	if err != nil {
		return fmt.Errorf("insert prompt version: %w", err)
	}
	return nil
}

// Versions returns the recorded lineage for a strategy, oldest first.
// An empty strategy returns all versions.
func (s *Store) Versions(ctx context.Context, strategy string) ([]prompts.Version, error) {
	query := `SELECT strategy, variant, version_id, template, backup_of, created_at FROM prompt_versions`
	args := []any{}
	if strategy != "" {
		query += " WHERE strategy=?"
		args = append(args, strategy)
	}
	query += " ORDER BY id"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prompt versions: %w", err)
	}
	defer rows.Close()

	var out []prompts.Version
	for rows.Next() {
		var v prompts.Version
		var backupOf sql.NullInt64
		var createdAt string
		if err := rows.Scan(&v.Strategy, &v.Variant, &v.ID, &v.Template, &backupOf, &createdAt); err != nil {
			return nil, fmt.Errorf("scan prompt version: %w", err)
		}
		if backupOf.Valid {
			v.BackupOf = int(backupOf.Int64)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			v.CreatedAt = ts
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt versions: %w", err)
	}
	return out, nil
}

// SaveRun records a finalized optimization run.
func (s *Store) SaveRun(ctx context.Context, run optimize.Run) error {
	stepsJSON, err := json.Marshal(run.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO optimization_runs(id, trigger_reason, steps_json, outcome, candidate_score, baseline_score, notes, started_at, ended_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Trigger, string(stepsJSON), string(run.Outcome),
		run.CandidateScore, run.BaselineScore, nullableString(run.Notes),
		run.StartedAt.UTC().Format(time.RFC3339), run.EndedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert optimization run: %w", err)
	}
	return nil
}

// Runs returns recorded optimization runs, most recent first.
func (s *Store) Runs(ctx context.Context, limit int) ([]optimize.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, trigger_reason, steps_json, outcome, candidate_score, baseline_score, notes, started_at, ended_at
		FROM optimization_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query optimization runs: %w", err)
	}
	defer rows.Close()

	var out []optimize.Run
	for rows.Next() {
		var run optimize.Run
		var stepsJSON string
		var outcome string
		var notes sql.NullString
		var startedAt, endedAt string
		if err := rows.Scan(&run.ID, &run.Trigger, &stepsJSON, &outcome,
			&run.CandidateScore, &run.BaselineScore, &notes, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan optimization run: %w", err)
		}
		run.Outcome = optimize.Outcome(outcome)
		if notes.Valid {
			run.Notes = notes.String
		}
		if err := json.Unmarshal([]byte(stepsJSON), &run.Steps); err != nil {
			return nil, fmt.Errorf("parse steps: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, startedAt); err == nil {
			run.StartedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339, endedAt); err == nil {
			run.EndedAt = ts
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate optimization runs: %w", err)
	}
	return out, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
