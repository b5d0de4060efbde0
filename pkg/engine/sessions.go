package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ha1tch/meditactive/pkg/catalog"
	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/storage"
)

// Accepted layouts for explicit session dates, tried in order
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// SessionMaterializer turns session specs into session rows linked to a member
type SessionMaterializer struct {
	resolver *catalog.Resolver
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSessionMaterializer creates a materializer. now defaults to time.Now.
func NewSessionMaterializer(resolver *catalog.Resolver, logger zerolog.Logger, now func() time.Time) *SessionMaterializer {
	if now == nil {
		now = time.Now
	}
	return &SessionMaterializer{resolver: resolver, logger: logger, now: now}
}

// MaterializeSessions creates one session and one link per resolvable spec.
// It only adds; replacing a member's sessions means clearing links first.
func (m *SessionMaterializer) MaterializeSessions(ctx context.Context, h storage.Handle, memberID int64, specs []models.SessionSpec) ([]models.Session, []models.Warning, error) {
	var created []models.Session
	var warnings []models.Warning

	for _, spec := range specs {
		st, ok, err := m.resolver.ResolveSessionType(ctx, h, spec.SessionType)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			m.logger.Warn().
				Int64("member_id", memberID).
				Str("ref", spec.SessionType.String()).
				Msg("Skipping unresolvable session type reference")
			warnings = append(warnings, models.Warning{
				Kind:   models.WarningInvalidReference,
				Field:  "sessions",
				Ref:    spec.SessionType.String(),
				Reason: "no session type matches reference",
			})
			continue
		}

		start, end, dateWarnings := m.window(spec, st)
		warnings = append(warnings, dateWarnings...)
		if !end.After(start) {
			return nil, nil, fmt.Errorf("%w: session type %q has duration %d minutes",
				ErrInvalidRange, st.Name, st.DurationMinutes)
		}

		id, err := storage.InsertID(ctx, h, `
			INSERT INTO sessions (start_date, end_date, session_type_id)
			VALUES (?, ?, ?)
		`, start, end, st.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to insert session: %w", err)
		}

		if _, err := h.ExecContext(ctx,
			"INSERT INTO member_sessions (member_id, session_id) VALUES (?, ?)", memberID, id); err != nil {
			return nil, nil, fmt.Errorf("failed to link session %d: %w", id, err)
		}

		created = append(created, models.Session{
			ID:              id,
			StartDate:       start,
			EndDate:         end,
			SessionTypeID:   st.ID,
			SessionTypeName: st.Name,
		})
	}

	return created, warnings, nil
}

// window computes start and end for a spec. Explicit dates win when they
// parse; an end that does not come after start falls back to the template.
func (m *SessionMaterializer) window(spec models.SessionSpec, st models.SessionType) (time.Time, time.Time, []models.Warning) {
	var warnings []models.Warning
	invalid := func(field, value, reason string) {
		warnings = append(warnings, models.Warning{
			Kind:   models.WarningInvalidDate,
			Field:  field,
			Ref:    value,
			Reason: reason,
		})
	}

	start := m.now().UTC().Truncate(time.Second)
	if spec.StartDate != "" {
		if t, ok := parseTimestamp(spec.StartDate); ok {
			start = t
		} else {
			invalid("startDate", spec.StartDate, "unparseable timestamp; using current time")
		}
	}

	end := start.Add(st.Duration())
	if spec.EndDate != "" {
		t, ok := parseTimestamp(spec.EndDate)
		switch {
		case !ok:
			invalid("endDate", spec.EndDate, "unparseable timestamp; using session type duration")
		case !t.After(start):
			invalid("endDate", spec.EndDate, "not after startDate; using session type duration")
		default:
			end = t
		}
	}

	return start, end, warnings
}

// ListSessions returns the sessions linked to a member ordered by session id
func ListSessions(ctx context.Context, h storage.Handle, memberID int64) ([]models.Session, error) {
	rows, err := h.QueryContext(ctx, `
		SELECT s.id, s.start_date, s.end_date, s.session_type_id, st.name
		FROM member_sessions ms
		JOIN sessions s ON s.id = ms.session_id
		JOIN session_types st ON st.id = s.session_type_id
		WHERE ms.member_id = ?
		ORDER BY s.id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.StartDate, &s.EndDate, &s.SessionTypeID, &s.SessionTypeName); err != nil {
			return nil, err
		}
		s.StartDate = s.StartDate.UTC()
		s.EndDate = s.EndDate.UTC()
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Second), true
		}
	}
	return time.Time{}, false
}
