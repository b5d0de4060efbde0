package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/ha1tch/meditactive/pkg/models"
)

const (
	nameMinLength = 2
	nameMaxLength = 50
)

// Validator checks the shape of member commands before they reach the engine
type Validator interface {
	ValidateCreate(cmd models.CreateMemberCommand) (bool, []string)
	ValidateUpdate(cmd models.UpdateMemberCommand) (bool, []string)
}

// MemberValidator enforces field presence, name length and email format
type MemberValidator struct{}

// NewMemberValidator creates a member validator
func NewMemberValidator() *MemberValidator {
	return &MemberValidator{}
}

// ValidateCreate validates a create command
func (v *MemberValidator) ValidateCreate(cmd models.CreateMemberCommand) (bool, []string) {
	errors := []string{}

	errors = append(errors, checkName("firstName", cmd.FirstName, true)...)
	errors = append(errors, checkName("lastName", cmd.LastName, true)...)
	errors = append(errors, checkEmail(cmd.Email, true)...)

	return len(errors) == 0, errors
}

// ValidateUpdate validates a sparse update. Only present fields are checked,
// and explicit null is accepted for goal alone. References are not checked
// here: unresolvable ones become warnings in the engine.
func (v *MemberValidator) ValidateUpdate(cmd models.UpdateMemberCommand) (bool, []string) {
	if cmd.IsEmpty() {
		return false, []string{"update body must contain at least one field"}
	}

	errors := []string{}

	for _, f := range []struct {
		name string
		opt  models.Optional[string]
	}{
		{"firstName", cmd.FirstName},
		{"lastName", cmd.LastName},
		{"email", cmd.Email},
	} {
		if !f.opt.Set {
			continue
		}
		if f.opt.Null {
			errors = append(errors, fmt.Sprintf("field %s: cannot be null", f.name))
			continue
		}
		if f.name == "email" {
			errors = append(errors, checkEmail(f.opt.Value, true)...)
		} else {
			errors = append(errors, checkName(f.name, f.opt.Value, true)...)
		}
	}

	return len(errors) == 0, errors
}

func checkName(field, value string, required bool) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return []string{fmt.Sprintf("missing required field: %s", field)}
		}
		return nil
	}
	n := utf8.RuneCountInString(value)
	if n < nameMinLength {
		return []string{fmt.Sprintf("field %s: string too short (min %d)", field, nameMinLength)}
	}
	if n > nameMaxLength {
		return []string{fmt.Sprintf("field %s: string too long (max %d)", field, nameMaxLength)}
	}
	return nil
}

func checkEmail(value string, required bool) []string {
	if strings.TrimSpace(value) == "" {
		if required {
			return []string{"missing required field: email"}
		}
		return nil
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(addr.Address, "@") {
		return []string{"field email: invalid email address"}
	}
	return nil
}

// NoOpValidator is a validator that always passes. It is selected when
// validation is disabled, leaving the engine and the schema as the only checks.
type NoOpValidator struct{}

// NewNoOpValidator creates a no-op validator
func NewNoOpValidator() *NoOpValidator {
	return &NoOpValidator{}
}

// ValidateCreate accepts every create command
func (n *NoOpValidator) ValidateCreate(models.CreateMemberCommand) (bool, []string) {
	return true, nil
}

// ValidateUpdate accepts every update command
func (n *NoOpValidator) ValidateUpdate(models.UpdateMemberCommand) (bool, []string) {
	return true, nil
}

// New returns a MemberValidator, or a NoOpValidator when enabled is false
func New(enabled bool) Validator {
	if !enabled {
		return NewNoOpValidator()
	}
	return NewMemberValidator()
}
