package goConsole

import "github.com/MrEthical07/goConsole/audit"

// AuditEntry is one recorded user action.
type AuditEntry = audit.Entry

// AuditAction names the kind of a recorded action.
type AuditAction = audit.Action

// AuditSink receives audit entries. Implementations must be safe for
// concurrent use when audit delivery is asynchronous.
type AuditSink = audit.Sink

const (
	AuditModuleAccessed       = audit.ActionModuleAccessed
	AuditSearchResultSelected = audit.ActionSearchResultSelected
	AuditAccessDenied         = audit.ActionAccessDenied
	AuditLogout               = audit.ActionLogout
	AuditPageLoad             = audit.ActionPageLoad
)
