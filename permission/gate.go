package permission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goConsole/session"
)

// Placement is where an affordance is rendered.
type Placement string

const (
	PlacementSidebar Placement = "sidebar"
	PlacementHeader  Placement = "header"
)

// Affordance is a navigable link. An empty Module is kept so that activating
// it reaches the router's missing-target path.
type Affordance struct {
	ID          string    `yaml:"id"`
	Module      string    `yaml:"module"`
	Requirement string    `yaml:"requirement,omitempty"`
	Placement   Placement `yaml:"placement,omitempty"`
	Label       string    `yaml:"label,omitempty"`

	Locked bool `yaml:"-"`
	Active bool `yaml:"-"`
}

// SessionSource yields the active session without side effects, nil when
// absent or expired.
type SessionSource interface {
	Peek() *session.Session
}

// Gate evaluates capability requirements against the active session.
//
// Gate is not safe for concurrent use; the shell confines it to its event
// loop.
type Gate struct {
	sessions    SessionSource
	affordances []*Affordance
	byID        map[string]*Affordance
	// module -> distinct requirements, in declaration order.
	requirements map[string][]string
}

// NewGate validates affs against registry and returns a Gate. A nil registry
// accepts every requirement.
func NewGate(sessions SessionSource, registry *Registry, affs []Affordance) (*Gate, error) {
	if sessions == nil {
		return nil, errors.New("permission: nil session source")
	}

	g := &Gate{
		sessions:     sessions,
		affordances:  make([]*Affordance, 0, len(affs)),
		byID:         make(map[string]*Affordance, len(affs)),
		requirements: make(map[string][]string),
	}

	for i := range affs {
		a := affs[i]
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			return nil, fmt.Errorf("permission: affordance %d has empty id", i)
		}
		if _, dup := g.byID[a.ID]; dup {
			return nil, fmt.Errorf("permission: duplicate affordance id %q", a.ID)
		}
		if a.Placement == "" {
			a.Placement = PlacementSidebar
		}
		if a.Placement != PlacementSidebar && a.Placement != PlacementHeader {
			return nil, fmt.Errorf("permission: affordance %q has invalid placement %q", a.ID, a.Placement)
		}
		if a.Requirement != "" && registry != nil && !registry.Known(a.Requirement) {
			return nil, fmt.Errorf("permission: affordance %q requires unregistered capability %q", a.ID, a.Requirement)
		}
		a.Locked, a.Active = false, false

		g.affordances = append(g.affordances, &a)
		g.byID[a.ID] = &a
		if a.Module != "" && a.Requirement != "" && !contains(g.requirements[a.Module], a.Requirement) {
			g.requirements[a.Module] = append(g.requirements[a.Module], a.Requirement)
		}
	}

	return g, nil
}

// HasPermission reports whether the active session grants capability. It is
// false when no session is active.
func (g *Gate) HasPermission(capability string) bool {
	return g.sessions.Peek().HasPermission(capability)
}

// Requirements returns the capabilities gating module.
func (g *Gate) Requirements(module string) []string {
	return append([]string(nil), g.requirements[module]...)
}

// Check returns nil when the active session may open module. Every
// capability attached to module must be held. Without a session it returns
// session.ErrNoSession.
func (g *Gate) Check(module string) error {
	sess := g.sessions.Peek()
	if sess == nil {
		return session.ErrNoSession
	}
	for _, capability := range g.requirements[module] {
		if !sess.HasPermission(capability) {
			return &AccessDeniedError{Module: module, Capability: capability, Role: sess.Role}
		}
	}
	return nil
}

// Enforce re-derives the lock state of every affordance and returns the
// number of affordances whose state changed. Without a session every gated
// affordance is locked.
func (g *Gate) Enforce() int {
	sess := g.sessions.Peek()
	changed := 0
	for _, a := range g.affordances {
		locked := a.Requirement != "" && !sess.HasPermission(a.Requirement)
		if locked != a.Locked {
			a.Locked = locked
			changed++
		}
	}
	return changed
}

// Activate resolves a click on the affordance id to the module it targets.
// A denied requirement returns an [*AccessDeniedError] and locks the
// affordance.
func (g *Gate) Activate(id string) (string, error) {
	a, ok := g.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAffordance, id)
	}
	if a.Requirement == "" {
		return a.Module, nil
	}

	sess := g.sessions.Peek()
	if !sess.HasPermission(a.Requirement) {
		a.Locked = true
		role := ""
		if sess != nil {
			role = sess.Role
		}
		return "", &AccessDeniedError{Module: a.Module, Capability: a.Requirement, Role: role}
	}
	a.Locked = false
	return a.Module, nil
}

// SetActive clears every active indicator and marks the affordances that
// target module, in both placements. An empty module clears all.
func (g *Gate) SetActive(module string) {
	for _, a := range g.affordances {
		a.Active = module != "" && a.Module == module
	}
}

// Affordances returns a snapshot of every affordance in declaration order.
func (g *Gate) Affordances() []Affordance {
	out := make([]Affordance, len(g.affordances))
	for i, a := range g.affordances {
		out[i] = *a
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
