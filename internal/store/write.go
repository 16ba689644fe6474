package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/craftloop/internal/knowledge"
)

// Commit writes a knowledge delta in a single transaction. Either every
// mutation in the delta is durable after Commit returns nil, or none is.
//
// Writes are idempotent:
//   - attempts upsert on (pair_a, pair_b), keeping their original position
//   - recipes, discoveries and achievements ignore duplicates, so an existing
//     recipe is never overwritten
//   - conflicts and reward events are appended
func (s *Store) Commit(ctx context.Context, d knowledge.Delta) error {
	if d.Empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, a := range d.Attempts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attempts (pair_a, pair_b, seq, run_id, outcome, result)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(pair_a, pair_b) DO UPDATE SET
				outcome = excluded.outcome,
				result = excluded.result
		`, string(a.Pair.A), string(a.Pair.B), a.Seq, a.RunID, string(a.Outcome), string(a.Result))
		if err != nil {
			return fmt.Errorf("commit: write attempt %s: %w", a.Pair, err)
		}
	}

	for _, r := range d.Recipes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recipes (pair_a, pair_b, result, seq, run_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(pair_a, pair_b) DO NOTHING
		`, string(r.Pair.A), string(r.Pair.B), string(r.Result), r.Seq, r.RunID)
		if err != nil {
			return fmt.Errorf("commit: write recipe %s: %w", r.Pair, err)
		}
	}

	for _, c := range d.Conflicts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_conflicts (pair_a, pair_b, existing, observed, seq, run_id)
			VALUES (?, ?, ?, ?, ?, ?)
		`, string(c.Pair.A), string(c.Pair.B), string(c.Existing), string(c.Observed), c.Seq, c.RunID)
		if err != nil {
			return fmt.Errorf("commit: write conflict %s: %w", c.Pair, err)
		}
	}

	for _, disc := range d.Discoveries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO discoveries (element, source, seq, run_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(element) DO NOTHING
		`, string(disc.Element), string(disc.Source), disc.Seq, disc.RunID)
		if err != nil {
			return fmt.Errorf("commit: write discovery %q: %w", disc.Element, err)
		}
	}

	for _, a := range d.Achievements {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO achievements (item, category, seq, run_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(item) DO NOTHING
		`, string(a.Item), a.Category, a.Seq, a.RunID)
		if err != nil {
			return fmt.Errorf("commit: write achievement %q: %w", a.Item, err)
		}
	}

	for _, ev := range d.Rewards {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reward_events (kind, element, category, points, seq, run_id)
			VALUES (?, ?, ?, ?, ?, ?)
		`, string(ev.Kind), string(ev.Element), ev.Category, ev.Points, ev.Seq, ev.RunID)
		if err != nil {
			return fmt.Errorf("commit: write reward %q: %w", ev.Element, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Run is one process invocation of the discovery loop.
type Run struct {
	ID            string
	Mode          string
	EngineVersion string
	StartedSeq    int64
	FinishedSeq   int64 // Zero while the run is in progress or if it crashed
	Cycles        int64
	StopReason    string
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, engine_version, started_seq)
		VALUES (?, ?, ?, ?)
	`, r.ID, r.Mode, r.EngineVersion, r.StartedSeq)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun records how a run ended.
func (s *Store) FinishRun(ctx context.Context, id string, finishedSeq, cycles int64, stopReason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_seq = ?, cycles = ?, stop_reason = ?
		WHERE id = ?
	`, finishedSeq, cycles, stopReason, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}
