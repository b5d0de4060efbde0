package models

import (
	"time"
)

// Member is the root of the aggregate
type Member struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Goal      *string `json:"goal"` // legacy scalar, unrelated to goal links
}

// Goal is a catalog row
type Goal struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// SessionType is a catalog row supplying the default session duration
type SessionType struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	Description     string `json:"description,omitempty"`
}

// Duration returns the template duration
func (st SessionType) Duration() time.Duration {
	return time.Duration(st.DurationMinutes) * time.Minute
}

// Session is a child row owned by one or more members
type Session struct {
	ID              int64     `json:"id"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	SessionTypeID   int64     `json:"sessionTypeId"`
	SessionTypeName string    `json:"sessionTypeName,omitempty"`
}

// MemberAggregate is a member together with its linked goals and sessions
type MemberAggregate struct {
	Member
	Goals    []Goal    `json:"goals"`
	Sessions []Session `json:"sessions"`
}

// MemberFields holds the root fields supplied on creation
type MemberFields struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Goal      *string `json:"goal,omitempty"`
}

// MemberPatch is a sparse field set. Absent fields are left untouched.
type MemberPatch struct {
	FirstName Optional[string] `json:"firstName"`
	LastName  Optional[string] `json:"lastName"`
	Email     Optional[string] `json:"email"`
	Goal      Optional[string] `json:"goal"`
}

// IsEmpty reports whether no field is present
func (p MemberPatch) IsEmpty() bool {
	return !p.FirstName.Set && !p.LastName.Set && !p.Email.Set && !p.Goal.Set
}

// CreateMemberCommand creates a member with its relations
type CreateMemberCommand struct {
	MemberFields
	Goals    []CatalogRef  `json:"goals"`
	Sessions []SessionSpec `json:"sessions"`
}

// UpdateMemberCommand carries a sparse update. Goals and Sessions are only
// reconciled when present; an empty list clears the relation.
type UpdateMemberCommand struct {
	MemberPatch
	Goals    Optional[[]CatalogRef]  `json:"goals"`
	Sessions Optional[[]SessionSpec] `json:"sessions"`
}

// IsEmpty reports whether the command changes nothing
func (c UpdateMemberCommand) IsEmpty() bool {
	return c.MemberPatch.IsEmpty() && !c.Goals.Set && !c.Sessions.Set
}

// Warning kinds
const (
	WarningInvalidReference = "invalid_reference"
	WarningInvalidDate      = "invalid_date"
)

// Warning is a non-fatal diagnostic produced during a mutation
type Warning struct {
	Kind   string `json:"kind"`
	Field  string `json:"field"`
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// MutationResult is returned by create and update
type MutationResult struct {
	Member   *MemberAggregate `json:"data"`
	Warnings []Warning        `json:"warnings,omitempty"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error struct {
		Message string      `json:"message"`
		Status  int         `json:"status"`
		ErrorID string      `json:"error_id,omitempty"`
		Details interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// PagedResponse wraps a paginated listing
type PagedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// ListResponse wraps catalog listings
type ListResponse struct {
	Data interface{} `json:"data"`
}
