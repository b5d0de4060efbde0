package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CatalogRef points at a catalog row by numeric id or display name.
// JSON numbers and strings are both accepted.
type CatalogRef string

// IDRef builds a reference from a numeric id
func IDRef(id int64) CatalogRef {
	return CatalogRef(strconv.FormatInt(id, 10))
}

// ID returns the positive integer the reference parses as, if any
func (r CatalogRef) ID() (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(r)), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// String returns the raw reference
func (r CatalogRef) String() string {
	return string(r)
}

// UnmarshalJSON accepts a JSON string or number
func (r *CatalogRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("catalog reference cannot be null")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = CatalogRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog reference must be a string or number")
	}
	*r = CatalogRef(n.String())
	return nil
}

// SessionSpec describes a session to materialize: either a bare session type
// reference or an object with optional explicit dates.
type SessionSpec struct {
	SessionType CatalogRef `json:"sessionTypeId"`
	StartDate   string     `json:"startDate,omitempty"`
	EndDate     string     `json:"endDate,omitempty"`
}

// UnmarshalJSON accepts a bare reference or an object
func (s *SessionSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var raw struct {
			SessionTypeID *CatalogRef `json:"sessionTypeId"`
			SessionType   *CatalogRef `json:"sessionType"`
			StartDate     string      `json:"startDate"`
			EndDate       string      `json:"endDate"`
		}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		switch {
		case raw.SessionTypeID != nil:
			s.SessionType = *raw.SessionTypeID
		case raw.SessionType != nil:
			s.SessionType = *raw.SessionType
		default:
			return fmt.Errorf("session spec requires sessionTypeId")
		}
		s.StartDate = raw.StartDate
		s.EndDate = raw.EndDate
		return nil
	}

	var ref CatalogRef
	if err := ref.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	*s = SessionSpec{SessionType: ref}
	return nil
}
