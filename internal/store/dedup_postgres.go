package store

import (
	"context"
	"fmt"
	"log/slog"
)

// RecordInbound inserts messageID unless it is already present.
func (s *PostgresStore) RecordInbound(ctx context.Context, messageID, sessionID string) (bool, error) {
	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM inbound_dedup WHERE received_at <= $1`, now.Add(-DefaultDedupWindow)); err != nil {
		slog.Warn("PostgresStore dedup purge failed", "error", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO inbound_dedup (message_id, session_id, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id) DO NOTHING`,
		messageID, sessionID, now)
	if err != nil {
		slog.Error("PostgresStore RecordInbound failed", "error", err, "messageID", messageID)
		return false, fmt.Errorf("failed to record inbound message %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record inbound message %s: %w", messageID, err)
	}
	return n == 1, nil
}

// ForgetInbound deletes messageID.
func (s *PostgresStore) ForgetInbound(ctx context.Context, messageID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inbound_dedup WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("failed to forget inbound message %s: %w", messageID, err)
	}
	return nil
}
