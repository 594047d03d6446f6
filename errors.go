package goConsole

import (
	"errors"

	"github.com/MrEthical07/goConsole/permission"
	"github.com/MrEthical07/goConsole/router"
	"github.com/MrEthical07/goConsole/search"
	"github.com/MrEthical07/goConsole/session"
)

var (
	// ErrMalformedToken is returned when the persisted token cannot be decoded.
	ErrMalformedToken = session.ErrMalformedToken
	// ErrSessionExpired is returned when the active session passed its expiry.
	ErrSessionExpired = session.ErrSessionExpired
	// ErrNoSession is returned when no session is persisted.
	ErrNoSession = session.ErrNoSession
	// ErrStorageUnavailable is returned when persisted state cannot be read.
	ErrStorageUnavailable = session.ErrStorageUnavailable
	// ErrAccessDenied matches every *permission.AccessDeniedError.
	ErrAccessDenied = permission.ErrAccessDenied
	// ErrUnknownAffordance is returned when activating an unregistered affordance.
	ErrUnknownAffordance = permission.ErrUnknownAffordance
	// ErrMissingTarget is returned when an affordance names no module.
	ErrMissingTarget = router.ErrMissingTarget
	// ErrFragmentRetrieval matches every *router.RetrievalError.
	ErrFragmentRetrieval = router.ErrRetrieval
	// ErrNoSuchResult is returned when selecting outside the visible results.
	ErrNoSuchResult = search.ErrNoSuchResult
	// ErrShellClosed is returned by every Shell method after Close.
	ErrShellClosed = errors.New("shell closed")
	// ErrBuilderUsed is returned by a second Builder.Build call.
	ErrBuilderUsed = errors.New("builder already used")
)
