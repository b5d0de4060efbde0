package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ha1tch/meditactive/pkg/catalog"
	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/storage"
)

// GoalSynchronizer reconciles member_goals for one member by full replace
type GoalSynchronizer struct {
	resolver *catalog.Resolver
	logger   zerolog.Logger
}

// NewGoalSynchronizer creates a synchronizer
func NewGoalSynchronizer(resolver *catalog.Resolver, logger zerolog.Logger) *GoalSynchronizer {
	return &GoalSynchronizer{resolver: resolver, logger: logger}
}

// ReplaceGoals makes the member's goal links exactly the resolvable subset of
// refs. An empty refs clears every link. Unresolvable refs come back as
// warnings and do not abort the call.
func (s *GoalSynchronizer) ReplaceGoals(ctx context.Context, h storage.Handle, memberID int64, refs []models.CatalogRef) ([]models.Warning, error) {
	resolved, err := s.resolver.ResolveGoals(ctx, h, refs)
	if err != nil {
		return nil, err
	}

	if _, err := h.ExecContext(ctx, "DELETE FROM member_goals WHERE member_id = ?", memberID); err != nil {
		return nil, fmt.Errorf("failed to clear goal links: %w", err)
	}

	for _, g := range resolved.Goals {
		if _, err := h.ExecContext(ctx,
			"INSERT INTO member_goals (member_id, goal_id) VALUES (?, ?)", memberID, g.ID); err != nil {
			return nil, fmt.Errorf("failed to link goal %d: %w", g.ID, err)
		}
	}

	warnings := make([]models.Warning, 0, len(resolved.Skipped))
	for _, sk := range resolved.Skipped {
		s.logger.Warn().
			Int64("member_id", memberID).
			Str("ref", sk.Ref.String()).
			Msg("Skipping unresolvable goal reference")
		warnings = append(warnings, models.Warning{
			Kind:   models.WarningInvalidReference,
			Field:  "goals",
			Ref:    sk.Ref.String(),
			Reason: sk.Reason,
		})
	}
	return warnings, nil
}

// ListGoals returns the goals linked to a member ordered by goal id
func ListGoals(ctx context.Context, h storage.Handle, memberID int64) ([]models.Goal, error) {
	rows, err := h.QueryContext(ctx, `
		SELECT g.id, g.title
		FROM member_goals mg
		JOIN goals g ON g.id = mg.goal_id
		WHERE mg.member_id = ?
		ORDER BY g.id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member goals: %w", err)
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		var g models.Goal
		if err := rows.Scan(&g.ID, &g.Title); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
