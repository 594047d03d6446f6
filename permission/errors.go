package permission

import (
	"errors"
	"fmt"
)

// ErrAccessDenied is wrapped by every [*AccessDeniedError].
var ErrAccessDenied = errors.New("access denied")

// ErrUnknownAffordance is returned when an activation names no configured
// affordance.
var ErrUnknownAffordance = errors.New("unknown affordance")

// AccessDeniedError reports the capability the session lacks for Module.
type AccessDeniedError struct {
	Module     string
	Capability string
	Role       string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf(
		"Access Denied: You don't have permission to view this module. Required permission: %s, Your role: %s",
		e.Capability, e.Role,
	)
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }
