package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrMalformedToken is returned when the persisted token cannot be decoded
// into a well-formed session.
var ErrMalformedToken = errors.New("malformed session token")

// ErrSessionExpired is returned when a well-formed session is past its expiry.
var ErrSessionExpired = errors.New("session expired")

// ErrNoSession is returned when no session is persisted.
var ErrNoSession = errors.New("no active session")

// ErrStorageUnavailable wraps failures of the persisted state backend.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// Claims is the wire form of a session. ExpiresAt is an epoch value in
// milliseconds.
type Claims struct {
	Subject     string   `json:"sub,omitempty"`
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	ExpiresAt   int64    `json:"exp"`
}

// Session is a decoded, well-formed set of claims.
//
// Session values are immutable after construction.
type Session struct {
	Subject     string
	DisplayName string
	Role        string
	ExpiresAt   time.Time

	permissions map[string]struct{}
}

// FromClaims validates c and builds a Session. The subject falls back to the
// e-mail claim and the display name falls back to the subject.
func FromClaims(c Claims) (*Session, error) {
	subject := strings.TrimSpace(c.Subject)
	if subject == "" {
		subject = strings.TrimSpace(c.Email)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	if strings.TrimSpace(c.Role) == "" {
		return nil, fmt.Errorf("%w: missing role", ErrMalformedToken)
	}
	if c.ExpiresAt <= 0 {
		return nil, fmt.Errorf("%w: missing expiry", ErrMalformedToken)
	}

	perms := make(map[string]struct{}, len(c.Permissions))
	for _, p := range c.Permissions {
		if p == "" {
			continue
		}
		perms[p] = struct{}{}
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = subject
	}

	return &Session{
		Subject:     subject,
		DisplayName: name,
		Role:        c.Role,
		ExpiresAt:   time.UnixMilli(c.ExpiresAt),
		permissions: perms,
	}, nil
}

// HasPermission reports whether capability is in the session's permission set.
func (s *Session) HasPermission(capability string) bool {
	if s == nil {
		return false
	}
	_, ok := s.permissions[capability]
	return ok
}

// Permissions returns the permission set in sorted order.
func (s *Session) Permissions() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.permissions))
	for p := range s.permissions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Expired reports whether the expiry instant is at or before now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// Claims converts the session back to its wire form.
func (s *Session) Claims() Claims {
	return Claims{
		Subject:     s.Subject,
		Name:        s.DisplayName,
		Role:        s.Role,
		Permissions: s.Permissions(),
		ExpiresAt:   s.ExpiresAt.UnixMilli(),
	}
}
