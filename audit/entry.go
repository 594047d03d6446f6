package audit

import "time"

// Action is the kind of a recorded entry.
type Action string

const (
	ActionModuleAccessed       Action = "MODULE_ACCESSED"
	ActionSearchResultSelected Action = "SEARCH_RESULT_SELECTED"
	ActionAccessDenied         Action = "ACCESS_DENIED"
	ActionLogout               Action = "LOGOUT"
	ActionPageLoad             Action = "PAGE_LOAD"
)

// Entry is one append-only audit record.
type Entry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	User      string            `json:"user"`
	Role      string            `json:"role"`
	Action    Action            `json:"action"`
	Module    string            `json:"module"`
	Details   map[string]string `json:"details,omitempty"`
}
