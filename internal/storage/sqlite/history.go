package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/pkg/log"
)

type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) AppendTurn(ctx context.Context, userID string, turn core.Turn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	args := ""
	if len(turn.ToolArgs) > 0 {
		args = string(turn.ToolArgs)
	}

	const query = `INSERT INTO conversation_history (user_id, role, content, tool_name, tool_args, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, userID, turn.Role, turn.Content, turn.ToolName, args, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (r *HistoryRepo) RecentTurns(ctx context.Context, userID string, limit int) ([]core.Turn, error) {
	// Fetch the LAST 'limit' turns by ordering DESC
	const query = `SELECT role, content, tool_name, tool_args, created_at FROM conversation_history WHERE user_id = ? ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var t core.Turn
		var toolName, toolArgs sql.NullString

		if err := rows.Scan(&t.Role, &t.Content, &toolName, &toolArgs, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		t.ToolName = toolName.String
		if toolArgs.Valid && toolArgs.String != "" {
			t.ToolArgs = []byte(toolArgs.String)
		}

		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The query returned turns newest-first; reverse back to chronological
	// order for context assembly.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(turns)).Msg("loaded history turns")
	return turns, nil
}

func (r *HistoryRepo) DeleteHistory(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversation_history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete history: %w", err)
	}
	return res.RowsAffected()
}
