package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"aitutor/internal/types"
)

// Session checkpoints are keyed (session_id, turn_number) with a UNIQUE
// constraint, so re-saving the same turn is an idempotent replace rather
// than a duplicate row.

// SaveCheckpoint durably records the session state after a turn.
func (s *Store) SaveCheckpoint(ctx context.Context, sess *types.Session) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_checkpoints (session_id, turn_number, state_json)
		 VALUES (?, ?, ?)
		 ON CONFLICT(session_id, turn_number) DO UPDATE SET state_json = excluded.state_json`,
		sess.ID, sess.TurnCount, string(blob))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	s.log.Debug("checkpoint saved",
		zap.String("session", sess.ID),
		zap.Int("turn", sess.TurnCount))
	return nil
}

// LoadLatest returns the most recent committed snapshot for a session,
// or nil when the session has never been checkpointed.
func (s *Store) LoadLatest(ctx context.Context, sessionID string) (*types.Session, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM session_checkpoints
		 WHERE session_id = ? ORDER BY turn_number DESC LIMIT 1`,
		sessionID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var sess types.Session
	if err := json.Unmarshal([]byte(blob), &sess); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	return &sess, nil
}
