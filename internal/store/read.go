package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/craftloop/internal/ir"
	"github.com/roach88/craftloop/internal/knowledge"
)

// Load reads the complete persisted knowledge into a fresh State.
// Malformed rows fail with an error wrapping ErrCorrupt.
func (s *Store) Load(ctx context.Context) (*knowledge.State, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	st, err := knowledge.Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return st, nil
}

// Snapshot reads every table in insertion order.
func (s *Store) Snapshot(ctx context.Context) (knowledge.Snapshot, error) {
	var snap knowledge.Snapshot
	var err error

	if snap.Recipes, err = s.readRecipes(ctx); err != nil {
		return snap, err
	}
	if snap.Attempts, err = s.readAttempts(ctx); err != nil {
		return snap, err
	}
	if snap.Discoveries, err = s.readDiscoveries(ctx); err != nil {
		return snap, err
	}
	if snap.Achievements, err = s.readAchievements(ctx); err != nil {
		return snap, err
	}
	if snap.Conflicts, err = s.readConflicts(ctx); err != nil {
		return snap, err
	}
	if snap.Rewards, err = s.readRewards(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// scanPair validates a stored pair. Both names must be non-empty and in
// canonical order.
func scanPair(a, b string) (ir.Pair, error) {
	if a == "" || b == "" {
		return ir.Pair{}, fmt.Errorf("%w: empty element in pair (%q, %q)", ErrCorrupt, a, b)
	}
	p := ir.Pair{A: ir.Element(a), B: ir.Element(b)}
	if !p.IsCanonical() {
		return ir.Pair{}, fmt.Errorf("%w: pair (%q, %q) is not canonical", ErrCorrupt, a, b)
	}
	return p, nil
}

func (s *Store) readRecipes(ctx context.Context) ([]ir.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair_a, pair_b, result, seq, run_id
		FROM recipes
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	var out []ir.Recipe
	for rows.Next() {
		var a, b, result, runID string
		var seq int64
		if err := rows.Scan(&a, &b, &result, &seq, &runID); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		p, err := scanPair(a, b)
		if err != nil {
			return nil, fmt.Errorf("read recipe: %w", err)
		}
		if result == "" {
			return nil, fmt.Errorf("read recipe %s: %w: empty result", p, ErrCorrupt)
		}
		out = append(out, ir.Recipe{Pair: p, Result: ir.Element(result), Seq: seq, RunID: runID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return out, nil
}

func (s *Store) readAttempts(ctx context.Context) ([]ir.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair_a, pair_b, seq, run_id, outcome, result
		FROM attempts
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []ir.Attempt
	for rows.Next() {
		var a, b, runID, outcome, result string
		var seq int64
		if err := rows.Scan(&a, &b, &seq, &runID, &outcome, &result); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		p, err := scanPair(a, b)
		if err != nil {
			return nil, fmt.Errorf("read attempt: %w", err)
		}
		kind := ir.OutcomeKind(outcome)
		if !ir.ValidOutcomeKinds[kind] {
			return nil, fmt.Errorf("read attempt %s: %w: unknown outcome %q", p, ErrCorrupt, outcome)
		}
		out = append(out, ir.Attempt{Pair: p, Seq: seq, RunID: runID, Outcome: kind, Result: ir.Element(result)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func (s *Store) readDiscoveries(ctx context.Context) ([]knowledge.Discovery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT element, source, seq, run_id
		FROM discoveries
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query discoveries: %w", err)
	}
	defer rows.Close()

	var out []knowledge.Discovery
	for rows.Next() {
		var element, source, runID string
		var seq int64
		if err := rows.Scan(&element, &source, &seq, &runID); err != nil {
			return nil, fmt.Errorf("scan discovery: %w", err)
		}
		if element == "" {
			return nil, fmt.Errorf("read discovery: %w: empty element", ErrCorrupt)
		}
		out = append(out, knowledge.Discovery{
			Element: ir.Element(element),
			Source:  knowledge.DiscoverySource(source),
			Seq:     seq,
			RunID:   runID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discoveries: %w", err)
	}
	return out, nil
}

func (s *Store) readAchievements(ctx context.Context) ([]knowledge.Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item, category, seq, run_id
		FROM achievements
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	var out []knowledge.Achievement
	for rows.Next() {
		var item, category, runID string
		var seq int64
		if err := rows.Scan(&item, &category, &seq, &runID); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, knowledge.Achievement{Item: ir.Element(item), Category: category, Seq: seq, RunID: runID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achievements: %w", err)
	}
	return out, nil
}

func (s *Store) readConflicts(ctx context.Context) ([]ir.RecipeConflict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair_a, pair_b, existing, observed, seq, run_id
		FROM recipe_conflicts
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()

	var out []ir.RecipeConflict
	for rows.Next() {
		var a, b, existing, observed, runID string
		var seq int64
		if err := rows.Scan(&a, &b, &existing, &observed, &seq, &runID); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		p, err := scanPair(a, b)
		if err != nil {
			return nil, fmt.Errorf("read conflict: %w", err)
		}
		out = append(out, ir.RecipeConflict{
			Pair:     p,
			Existing: ir.Element(existing),
			Observed: ir.Element(observed),
			Seq:      seq,
			RunID:    runID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conflicts: %w", err)
	}
	return out, nil
}

func (s *Store) readRewards(ctx context.Context) ([]knowledge.RewardEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, element, category, points, seq, run_id
		FROM reward_events
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()

	var out []knowledge.RewardEvent
	for rows.Next() {
		var kind, element, category, runID string
		var points, seq int64
		if err := rows.Scan(&kind, &element, &category, &points, &seq, &runID); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		k := knowledge.RewardKind(kind)
		if k != knowledge.RewardDiscovery && k != knowledge.RewardGoal {
			return nil, fmt.Errorf("read reward: %w: unknown kind %q", ErrCorrupt, kind)
		}
		out = append(out, knowledge.RewardEvent{
			Kind:     k,
			Element:  ir.Element(element),
			Category: category,
			Points:   points,
			Seq:      seq,
			RunID:    runID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewards: %w", err)
	}
	return out, nil
}

// MaxSeq returns the highest logical clock value ever persisted, or 0.
// Used to resume the clock on startup.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM (
			SELECT seq FROM attempts
			UNION ALL SELECT seq FROM recipes
			UNION ALL SELECT seq FROM recipe_conflicts
			UNION ALL SELECT seq FROM discoveries
			UNION ALL SELECT seq FROM achievements
			UNION ALL SELECT seq FROM reward_events
			UNION ALL SELECT started_seq FROM runs
			UNION ALL SELECT COALESCE(finished_seq, 0) FROM runs
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, mode, engine_version, started_seq, finished_seq, cycles, stop_reason
		FROM runs
		ORDER BY started_seq DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var finished sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Mode, &r.EngineVersion, &r.StartedSeq, &finished, &r.Cycles, &r.StopReason); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.FinishedSeq = finished.Int64
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Stats summarizes the store for the status command.
type Stats struct {
	Recipes     int64 `json:"recipes"`
	Attempts    int64 `json:"attempts"`
	Discovered  int64 `json:"discovered"`
	Conflicts   int64 `json:"conflicts"`
	Achieved    int64 `json:"goals_achieved"`
	RewardTotal int64 `json:"reward_total"`
	Runs        int64 `json:"runs"`
}

// Stats counts rows in every table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM recipes),
			(SELECT COUNT(*) FROM attempts),
			(SELECT COUNT(*) FROM discoveries),
			(SELECT COUNT(*) FROM recipe_conflicts),
			(SELECT COUNT(*) FROM achievements),
			(SELECT COALESCE(SUM(points), 0) FROM reward_events),
			(SELECT COUNT(*) FROM runs)
	`).Scan(&st.Recipes, &st.Attempts, &st.Discovered, &st.Conflicts, &st.Achieved, &st.RewardTotal, &st.Runs)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
