package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/acord-review/backend/internal/models"
	"github.com/charmbracelet/log"
	"github.com/marcboeker/go-duckdb"
)

// JournalStats aggregates the journaled transitions.
type JournalStats struct {
	Transitions     int
	Completions     int
	AvgCompletionMs float64
}

// Journal records every status transition in an in-memory DuckDB database.
// Nothing survives a restart.
type Journal struct {
	db  *sql.DB
	log *log.Logger

	mu  sync.Mutex
	seq int64
}

// NewJournal opens an in-memory journal. memoryLimit is a DuckDB size string
// such as "256MB"; empty keeps the DuckDB default.
func NewJournal(memoryLimit string, logger *log.Logger) (*Journal, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("[Journal]")

	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=1",
			"PRAGMA enable_progress_bar=false",
		}
		if memoryLimit != "" {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", memoryLimit))
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE transitions (
			seq         BIGINT PRIMARY KEY,
			record_id   VARCHAR NOT NULL,
			from_status VARCHAR NOT NULL,
			to_status   VARCHAR NOT NULL,
			progress    INTEGER NOT NULL,
			at_ms       BIGINT NOT NULL,
			reason      VARCHAR NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Debug("journal ready")
	return &Journal{db: db, log: logger}, nil
}

// Append writes one transition.
func (j *Journal) Append(ctx context.Context, t models.Transition) error {
	j.mu.Lock()
	j.seq++
	seq := j.seq
	j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO transitions VALUES (?, ?, ?, ?, ?, ?, ?)`,
		seq, t.RecordID, string(t.From), string(t.To), t.Progress, t.AtMs, t.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// RecordTransition appends t and logs a failure instead of returning it, so a
// journal problem never blocks the lifecycle.
func (j *Journal) RecordTransition(t models.Transition) {
	if err := j.Append(context.Background(), t); err != nil {
		j.log.Error("failed to journal transition", "record", t.RecordID, "to", t.To, "err", err)
	}
}

// History returns the transitions of one record in journal order.
func (j *Journal) History(ctx context.Context, recordID string) ([]models.Transition, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT record_id, from_status, to_status, progress, at_ms, reason
		FROM transitions
		WHERE record_id = ?
		ORDER BY seq
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	history := make([]models.Transition, 0, 4)
	for rows.Next() {
		var t models.Transition
		var from, to string
		if err := rows.Scan(&t.RecordID, &from, &to, &t.Progress, &t.AtMs, &t.Reason); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		t.From = models.Status(from)
		t.To = models.Status(to)
		history = append(history, t)
	}
	return history, rows.Err()
}

// Stats returns transition totals and the average virtual time from intake to completion.
func (j *Journal) Stats(ctx context.Context) (JournalStats, error) {
	var stats JournalStats

	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transitions`).Scan(&stats.Transitions); err != nil {
		return stats, fmt.Errorf("count query failed: %w", err)
	}

	var avg sql.NullFloat64
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(c.at_ms - u.at_ms)
		FROM transitions c
		JOIN transitions u ON u.record_id = c.record_id AND u.reason = ?
		WHERE c.to_status = ?
	`, models.ReasonIntake, string(models.StatusCompleted)).Scan(&stats.Completions, &avg)
	if err != nil {
		return stats, fmt.Errorf("completion query failed: %w", err)
	}
	if avg.Valid {
		stats.AvgCompletionMs = avg.Float64
	}

	return stats, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
