// Package member persists the root row of the member aggregate.
package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/storage"
)

// ErrRequiredField is returned when a patch nulls a non-nullable column
var ErrRequiredField = errors.New("field cannot be null")

const selectMember = "SELECT id, first_name, last_name, email, goal FROM members"

// Page size bounds for List
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// Repository performs CRUD on the members table through a caller-supplied
// handle, so every call joins the caller's transaction.
type Repository struct{}

// NewRepository creates a member repository
func NewRepository() *Repository {
	return &Repository{}
}

// Create inserts a member and returns it with its assigned id
func (r *Repository) Create(ctx context.Context, h storage.Handle, f models.MemberFields) (*models.Member, error) {
	taken, err := r.EmailTaken(ctx, h, f.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, storage.ErrDuplicateIdentity
	}

	id, err := storage.InsertID(ctx, h, `
		INSERT INTO members (first_name, last_name, email, goal)
		VALUES (?, ?, ?, ?)
	`, f.FirstName, f.LastName, f.Email, nullString(f.Goal))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, storage.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("failed to insert member: %w", err)
	}

	return &models.Member{
		ID:        id,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Goal:      copyString(f.Goal),
	}, nil
}

// Get returns a member or storage.ErrNotFound
func (r *Repository) Get(ctx context.Context, h storage.Handle, id int64) (*models.Member, error) {
	var m models.Member
	var goal sql.NullString
	err := h.QueryRowContext(ctx, selectMember+" WHERE id = ?", id).
		Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &goal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query member: %w", err)
	}
	if goal.Valid {
		m.Goal = &goal.String
	}
	return &m, nil
}

// Exists checks if a member exists
func (r *Repository) Exists(ctx context.Context, h storage.Handle, id int64) (bool, error) {
	var exists bool
	err := h.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM members WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// EmailTaken reports whether another member (id != exceptID) owns email
func (r *Repository) EmailTaken(ctx context.Context, h storage.Handle, email string, exceptID int64) (bool, error) {
	var taken bool
	err := h.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM members WHERE email = ? AND id <> ?)", email, exceptID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

// UpdatePartial writes only the fields present in the patch and returns the
// resulting row. An email colliding with another member yields
// storage.ErrDuplicateIdentity before anything is written.
func (r *Repository) UpdatePartial(ctx context.Context, h storage.Handle, id int64, p models.MemberPatch) (*models.Member, error) {
	var sets []string
	var args []interface{}

	required := []struct {
		col string
		val models.Optional[string]
	}{
		{"first_name", p.FirstName},
		{"last_name", p.LastName},
		{"email", p.Email},
	}
	for _, f := range required {
		if !f.val.Set {
			continue
		}
		if f.val.Null {
			return nil, fmt.Errorf("%w: %s", ErrRequiredField, f.col)
		}
		sets = append(sets, f.col+" = ?")
		args = append(args, f.val.Value)
	}
	if p.Goal.Set {
		sets = append(sets, "goal = ?")
		args = append(args, nullString(p.Goal.Ptr()))
	}

	if p.Email.Set {
		taken, err := r.EmailTaken(ctx, h, p.Email.Value, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, storage.ErrDuplicateIdentity
		}
	}

	if len(sets) == 0 {
		return r.Get(ctx, h, id)
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)
	result, err := h.ExecContext(ctx,
		"UPDATE members SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, storage.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, storage.ErrNotFound
	}

	return r.Get(ctx, h, id)
}

// Delete removes the member row. Link rows must already be gone, otherwise
// the foreign keys reject the delete.
func (r *Repository) Delete(ctx context.Context, h storage.Handle, id int64) error {
	result, err := h.ExecContext(ctx, "DELETE FROM members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns one page of members ordered by id. A limit outside
// 1..MaxListLimit falls back to DefaultListLimit or MaxListLimit, and a
// negative offset reads from the start.
func (r *Repository) List(ctx context.Context, h storage.Handle, limit, offset int) ([]models.Member, error) {
	limit, offset = ClampPage(limit, offset)

	rows, err := h.QueryContext(ctx, selectMember+" ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		var goal sql.NullString
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &goal); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if goal.Valid {
			m.Goal = &goal.String
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ClampPage normalizes paging arguments the way List applies them
func ClampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Count returns the number of members
func (r *Repository) Count(ctx context.Context, h storage.Handle) (int, error) {
	var n int
	if err := h.QueryRowContext(ctx, "SELECT COUNT(*) FROM members").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
