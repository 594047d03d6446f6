package audit

import (
	"context"
	"maps"

	"github.com/MrEthical07/goConsole/internal/clock"
	"github.com/MrEthical07/goConsole/session"
	"github.com/google/uuid"
)

// SessionSource yields the active session without side effects.
type SessionSource interface {
	Peek() *session.Session
}

// Recorder stamps entries with the acting session and forwards them.
type Recorder struct {
	sessions SessionSource
	sink     Sink
	clock    clock.Clock
	newID    func() string
}

// NewRecorder returns a Recorder. A nil sink drops entries and a nil clk
// uses wall time.
func NewRecorder(sessions SessionSource, sink Sink, clk clock.Clock) *Recorder {
	if sink == nil {
		sink = NoOpSink{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Recorder{
		sessions: sessions,
		sink:     sink,
		clock:    clk,
		newID:    uuid.NewString,
	}
}

// Record appends an entry for action on module. Without an active session
// nothing is recorded and Record returns false.
func (r *Recorder) Record(ctx context.Context, action Action, module string, details map[string]string) bool {
	if r == nil || r.sessions == nil {
		return false
	}
	sess := r.sessions.Peek()
	if sess == nil {
		return false
	}

	r.sink.Emit(ctx, Entry{
		ID:        r.newID(),
		Timestamp: r.clock.Now().UTC(),
		User:      sess.Subject,
		Role:      sess.Role,
		Action:    action,
		Module:    module,
		Details:   maps.Clone(details),
	})
	return true
}
