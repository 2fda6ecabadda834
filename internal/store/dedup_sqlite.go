package store

import (
	"context"
	"fmt"
	"log/slog"
)

// RecordInbound inserts messageID unless it is already present.
func (s *SQLiteStore) RecordInbound(ctx context.Context, messageID, sessionID string) (bool, error) {
	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM inbound_dedup WHERE received_at <= ?`, now.Add(-DefaultDedupWindow)); err != nil {
		slog.Warn("SQLiteStore dedup purge failed", "error", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO inbound_dedup (message_id, session_id, received_at) VALUES (?, ?, ?)`,
		messageID, sessionID, now)
	if err != nil {
		slog.Error("SQLiteStore RecordInbound failed", "error", err, "messageID", messageID)
		return false, fmt.Errorf("failed to record inbound message %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record inbound message %s: %w", messageID, err)
	}
	return n == 1, nil
}

// ForgetInbound deletes messageID.
func (s *SQLiteStore) ForgetInbound(ctx context.Context, messageID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inbound_dedup WHERE message_id = ?`, messageID); err != nil {
		return fmt.Errorf("failed to forget inbound message %s: %w", messageID, err)
	}
	return nil
}
