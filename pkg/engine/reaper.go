package engine

import (
	"context"
	"fmt"

	"github.com/ha1tch/meditactive/pkg/storage"
)

// OrphanReaper removes a member's link rows and any session left without links
type OrphanReaper struct{}

// ClearSessionLinks deletes the member's session links, then deletes every
// previously linked session that no member references any more. It returns
// the number of sessions deleted.
func (OrphanReaper) ClearSessionLinks(ctx context.Context, h storage.Handle, memberID int64) (int, error) {
	rows, err := h.QueryContext(ctx,
		"SELECT session_id FROM member_sessions WHERE member_id = ?", memberID)
	if err != nil {
		return 0, fmt.Errorf("failed to read session links: %w", err)
	}
	var sessionIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		sessionIDs = append(sessionIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if _, err := h.ExecContext(ctx, "DELETE FROM member_sessions WHERE member_id = ?", memberID); err != nil {
		return 0, fmt.Errorf("failed to clear session links: %w", err)
	}

	reaped := 0
	for _, id := range sessionIDs {
		result, err := h.ExecContext(ctx, `
			DELETE FROM sessions
			WHERE id = ?
			  AND NOT EXISTS (SELECT 1 FROM member_sessions WHERE session_id = ?)
		`, id, id)
		if err != nil {
			return 0, fmt.Errorf("failed to reap session %d: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		reaped += int(n)
	}
	return reaped, nil
}

// ClearGoalLinks deletes the member's goal links. Goals are catalog rows and
// are never reaped.
func (OrphanReaper) ClearGoalLinks(ctx context.Context, h storage.Handle, memberID int64) error {
	if _, err := h.ExecContext(ctx, "DELETE FROM member_goals WHERE member_id = ?", memberID); err != nil {
		return fmt.Errorf("failed to clear goal links: %w", err)
	}
	return nil
}
