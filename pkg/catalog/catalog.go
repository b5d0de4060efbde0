// Package catalog resolves goal and session type references against the
// read-only catalog tables.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/storage"
)

// Skipped is a reference that matched no catalog row
type Skipped struct {
	Ref    models.CatalogRef
	Reason string
}

// GoalResolution is the outcome of resolving a batch of goal references
type GoalResolution struct {
	Goals   []models.Goal
	Skipped []Skipped
}

// Resolver looks up catalog rows by id or display name. Catalog rows never
// change under the engine, so hits are cached.
type Resolver struct {
	goals        *lru.LRU[string, models.Goal]
	sessionTypes *lru.LRU[string, models.SessionType]
}

// NewResolver creates a resolver. A size of zero disables caching.
func NewResolver(cacheSize int, ttl time.Duration) *Resolver {
	r := &Resolver{}
	if cacheSize > 0 {
		r.goals = lru.NewLRU[string, models.Goal](cacheSize, nil, ttl)
		r.sessionTypes = lru.NewLRU[string, models.SessionType](cacheSize, nil, ttl)
	}
	return r
}

// ResolveGoal resolves one reference. ok is false when nothing matches.
func (r *Resolver) ResolveGoal(ctx context.Context, h storage.Handle, ref models.CatalogRef) (models.Goal, bool, error) {
	if r.goals != nil {
		if g, hit := r.goals.Get(ref.String()); hit {
			return g, true, nil
		}
	}

	var g models.Goal
	found, err := lookup(ref, func(id int64) error {
		return h.QueryRowContext(ctx, "SELECT id, title FROM goals WHERE id = ?", id).Scan(&g.ID, &g.Title)
	}, func(name string) error {
		return h.QueryRowContext(ctx, "SELECT id, title FROM goals WHERE title = ?", name).Scan(&g.ID, &g.Title)
	})
	if err != nil || !found {
		return models.Goal{}, false, err
	}

	if r.goals != nil {
		r.goals.Add(ref.String(), g)
	}
	return g, true, nil
}

// ResolveSessionType resolves one reference. ok is false when nothing matches.
func (r *Resolver) ResolveSessionType(ctx context.Context, h storage.Handle, ref models.CatalogRef) (models.SessionType, bool, error) {
	if r.sessionTypes != nil {
		if st, hit := r.sessionTypes.Get(ref.String()); hit {
			return st, true, nil
		}
	}

	const cols = "SELECT id, name, duration_minutes, description FROM session_types"
	var st models.SessionType
	scan := func(row *sql.Row) error {
		return row.Scan(&st.ID, &st.Name, &st.DurationMinutes, &st.Description)
	}
	found, err := lookup(ref, func(id int64) error {
		return scan(h.QueryRowContext(ctx, cols+" WHERE id = ?", id))
	}, func(name string) error {
		return scan(h.QueryRowContext(ctx, cols+" WHERE name = ?", name))
	})
	if err != nil || !found {
		return models.SessionType{}, false, err
	}

	if r.sessionTypes != nil {
		r.sessionTypes.Add(ref.String(), st)
	}
	return st, true, nil
}

// ResolveGoals resolves a batch, returning the distinct resolved goals in
// first-seen order and the references that matched nothing.
func (r *Resolver) ResolveGoals(ctx context.Context, h storage.Handle, refs []models.CatalogRef) (*GoalResolution, error) {
	res := &GoalResolution{}
	seen := make(map[int64]bool, len(refs))

	for _, ref := range refs {
		g, ok, err := r.ResolveGoal(ctx, h, ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Skipped = append(res.Skipped, Skipped{Ref: ref, Reason: "no goal matches reference"})
			continue
		}
		if seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		res.Goals = append(res.Goals, g)
	}
	return res, nil
}

// ListGoals returns the goal catalog ordered by id
func (r *Resolver) ListGoals(ctx context.Context, h storage.Handle) ([]models.Goal, error) {
	rows, err := h.QueryContext(ctx, "SELECT id, title FROM goals ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		var g models.Goal
		if err := rows.Scan(&g.ID, &g.Title); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// ListSessionTypes returns the session type catalog ordered by id
func (r *Resolver) ListSessionTypes(ctx context.Context, h storage.Handle) ([]models.SessionType, error) {
	rows, err := h.QueryContext(ctx, "SELECT id, name, duration_minutes, description FROM session_types ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list session types: %w", err)
	}
	defer rows.Close()

	types := []models.SessionType{}
	for rows.Next() {
		var st models.SessionType
		if err := rows.Scan(&st.ID, &st.Name, &st.DurationMinutes, &st.Description); err != nil {
			return nil, fmt.Errorf("failed to scan session type: %w", err)
		}
		types = append(types, st)
	}
	return types, rows.Err()
}

// lookup tries byID when the reference is a positive integer, then byName.
// sql.ErrNoRows from either lookup means "try the next one".
func lookup(ref models.CatalogRef, byID func(int64) error, byName func(string) error) (bool, error) {
	if id, ok := ref.ID(); ok {
		err := byID(id)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("failed to resolve %q by id: %w", ref, err)
		}
	}

	err := byName(ref.String())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("failed to resolve %q by name: %w", ref, err)
}
