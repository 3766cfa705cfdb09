package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/nimbus/internal/core"
)

type FactsRepo struct {
	db *sql.DB
}

func NewFactsRepo(db *sql.DB) *FactsRepo {
	return &FactsRepo{db: db}
}

// NormalizeValue is the canonical form used for the upsert key: lowercased,
// whitespace-collapsed.
func NormalizeValue(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

func clampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (r *FactsRepo) UpsertFacts(ctx context.Context, userID string, facts []core.Fact) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO memory_facts (user_id, memory_type, value, normalized_value, importance, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, memory_type, normalized_value)
		DO UPDATE SET
			value = excluded.value,
			importance = max(memory_facts.importance, excluded.importance),
			last_used_at = excluded.last_used_at`

	for _, f := range facts {
		normalized := NormalizeValue(f.Value)
		if f.Type == "" || normalized == "" {
			continue
		}

		now := f.LastUsedAt
		if now.IsZero() {
			now = time.Now().UTC()
		}
		createdAt := f.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		_, err := tx.ExecContext(ctx, query,
			userID, f.Type, f.Value, normalized, clampImportance(f.Importance), createdAt, now)
		if err != nil {
			return fmt.Errorf("failed to upsert fact %q: %w", f.Type, err)
		}
	}

	return tx.Commit()
}

func (r *FactsRepo) ListFacts(ctx context.Context, userID string, limit int) ([]core.Fact, error) {
	const query = `
		SELECT id, user_id, memory_type, value, importance, created_at, last_used_at
		FROM memory_facts
		WHERE user_id = ?
		ORDER BY importance DESC, last_used_at DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var facts []core.Fact
	for rows.Next() {
		var f core.Fact
		if err := rows.Scan(&f.ID, &f.UserID, &f.Type, &f.Value, &f.Importance, &f.CreatedAt, &f.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (r *FactsRepo) TouchFacts(ctx context.Context, ids []int64, usedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`UPDATE memory_facts SET last_used_at = ? WHERE id IN (%s)`, placeholders)

	args := make([]any, 0, len(ids)+1)
	args = append(args, usedAt)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to touch facts: %w", err)
	}
	return nil
}

func (r *FactsRepo) DeleteFacts(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memory_facts WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete facts: %w", err)
	}
	return res.RowsAffected()
}
