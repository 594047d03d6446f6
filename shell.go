package goConsole

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goConsole/audit"
	"github.com/MrEthical07/goConsole/internal/clock"
	"github.com/MrEthical07/goConsole/internal/loop"
	"github.com/MrEthical07/goConsole/permission"
	"github.com/MrEthical07/goConsole/router"
	"github.com/MrEthical07/goConsole/search"
	"github.com/MrEthical07/goConsole/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// View is the presentation layer driven by the shell. render.HTML is the
// stock implementation.
type View interface {
	router.View
	search.PanelView
	// Notify surfaces a transient user-visible message.
	Notify(message string)
}

// Hooks expose shell-level signals to the embedding application.
type Hooks struct {
	// RedirectToLogin fires whenever the user must be sent to the login
	// surface: no session, malformed token, expiry or logout.
	RedirectToLogin func()
}

// Shell is the client runtime of the console. Every method is safe for
// concurrent use: calls are serialized onto a single event loop together
// with timer expiries and fragment retrieval completions.
type Shell struct {
	cfg     Config
	logger  *zap.Logger
	clock   clock.Clock
	loop    *loop.Loop
	storage session.Storage
	keys    session.Keys
	view    View
	index   *search.Index
	metrics *Metrics
	hooks   Hooks
	redis   redis.UniversalClient

	store      *session.Store
	gate       *permission.Gate
	recorder   *audit.Recorder
	dispatcher *audit.Dispatcher
	router     *router.Router
	search     *search.Controller

	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
}

// Start performs the page-load sequence: resolve the persisted session,
// derive affordance lock state, arm the session monitor, record PAGE_LOAD
// and open the default module.
//
// Without a valid session Start emits the redirect signal and returns the
// session error. On the login surface it does nothing and returns nil.
// A default module the session may not open is reported through the view
// rather than as an error.
func (s *Shell) Start(ctx context.Context) error {
	var err error
	doErr := s.do(ctx, func() {
		var sess *session.Session
		sess, err = s.store.Current(s.ctx)
		if err != nil || sess == nil {
			return
		}
		s.gate.Enforce()
		s.store.StartMonitor(s.ctx)
		s.recorder.Record(ctx, audit.ActionPageLoad, "app", nil)

		err = s.router.Navigate(ctx, s.cfg.Router.DefaultModule)
		if errors.Is(err, permission.ErrAccessDenied) {
			s.logger.Info("default module not permitted",
				zap.String("module", s.cfg.Router.DefaultModule),
				zap.String("role", sess.Role),
			)
			err = nil
		}
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// Navigate opens module through the permission gate.
func (s *Shell) Navigate(ctx context.Context, module string) error {
	var err error
	if doErr := s.do(ctx, func() {
		if err = s.resolveSession(); err != nil {
			return
		}
		err = s.router.Navigate(ctx, module)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Activate follows the navigable affordance id. Locked affordances are
// denied with the access-denied notice; an affordance without a target
// returns ErrMissingTarget.
func (s *Shell) Activate(ctx context.Context, id string) error {
	var err error
	if doErr := s.do(ctx, func() {
		if err = s.resolveSession(); err != nil {
			return
		}
		var module string
		module, err = s.gate.Activate(id)
		var denied *permission.AccessDeniedError
		if errors.As(err, &denied) {
			s.metrics.Inc(MetricNavigationDenied)
			s.view.ShowDenied(denied)
			if s.cfg.Router.RecordDenials {
				s.recorder.Record(ctx, audit.ActionAccessDenied, denied.Module, map[string]string{
					"capability": denied.Capability,
					"affordance": id,
				})
			}
			return
		}
		if err != nil {
			return
		}
		err = s.router.Navigate(ctx, module)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Input delivers a change of the search field.
func (s *Shell) Input(ctx context.Context, value string) error {
	return s.do(ctx, func() {
		s.search.Input(value)
	})
}

// Select activates the i-th visible search result.
func (s *Shell) Select(ctx context.Context, i int) error {
	var err error
	if doErr := s.do(ctx, func() {
		if err = s.resolveSession(); err != nil {
			return
		}
		err = s.search.Select(ctx, i)
	}); doErr != nil {
		return doErr
	}
	return err
}

// OutsideInteraction reports a pointer interaction outside the search
// surface.
func (s *Shell) OutsideInteraction(ctx context.Context) error {
	return s.do(ctx, func() {
		s.search.OutsideInteraction()
	})
}

// Key delivers a key press and reports whether it was handled.
func (s *Shell) Key(ctx context.Context, k search.Key) (bool, error) {
	var handled bool
	err := s.do(ctx, func() {
		handled = s.search.Key(k)
	})
	return handled, err
}

// Search ranks query immediately, bypassing the debounce. Results are
// flagged Locked for modules the session may not open; the panel is not
// touched.
func (s *Shell) Search(ctx context.Context, query string) ([]search.Scored, error) {
	var out []search.Scored
	err := s.do(ctx, func() {
		out = s.search.Search(query)
	})
	return out, err
}

// SearchState returns the current search surface.
func (s *Shell) SearchState(ctx context.Context) (search.Panel, error) {
	var p search.Panel
	err := s.do(ctx, func() {
		p = s.search.State()
	})
	return p, err
}

// Login accepts a token issued by the external login flow.
func (s *Shell) Login(ctx context.Context, token string) (*session.Session, error) {
	var (
		sess *session.Session
		err  error
	)
	if doErr := s.do(ctx, func() {
		sess, err = s.store.Login(s.ctx, token)
		if err != nil {
			return
		}
		s.metrics.Inc(MetricLogin)
		s.store.StartMonitor(s.ctx)
	}); doErr != nil {
		return nil, doErr
	}
	return sess, err
}

// Logout records LOGOUT, clears persisted session state and emits the
// redirect signal. It is idempotent.
func (s *Shell) Logout(ctx context.Context) error {
	var err error
	if doErr := s.do(ctx, func() {
		if s.store.Peek() != nil {
			s.recorder.Record(ctx, audit.ActionLogout, "auth", nil)
			s.metrics.Inc(MetricLogout)
		}
		err = s.store.Logout(s.ctx)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Session returns the active session, enforcing expiry like every other
// session access.
func (s *Shell) Session(ctx context.Context) (*session.Session, error) {
	var (
		sess *session.Session
		err  error
	)
	if doErr := s.do(ctx, func() {
		sess, err = s.store.Current(s.ctx)
	}); doErr != nil {
		return nil, doErr
	}
	return sess, err
}

// HasPermission reports whether the active session holds capability. An
// expired or missing session yields false together with the session error,
// after the usual logout and redirect.
func (s *Shell) HasPermission(ctx context.Context, capability string) (bool, error) {
	var (
		ok  bool
		err error
	)
	if doErr := s.do(ctx, func() {
		if err = s.resolveSession(); err != nil {
			return
		}
		ok = s.gate.HasPermission(capability)
	}); doErr != nil {
		return false, doErr
	}
	return ok, err
}

// Status returns the router state.
func (s *Shell) Status(ctx context.Context) (router.Status, error) {
	var st router.Status
	err := s.do(ctx, func() {
		st = s.router.Status()
	})
	return st, err
}

// Affordances returns the navigable affordances with current lock and
// active state.
func (s *Shell) Affordances(ctx context.Context) ([]permission.Affordance, error) {
	var out []permission.Affordance
	err := s.do(ctx, func() {
		out = s.gate.Affordances()
	})
	return out, err
}

// AuditLog flushes the asynchronous dispatcher and reads the persisted
// audit log.
func (s *Shell) AuditLog(ctx context.Context) ([]AuditEntry, error) {
	if err := s.dispatcher.Flush(ctx); err != nil {
		return nil, err
	}
	return audit.ReadLog(ctx, s.storage, s.keys.AuditLog)
}

// MetricsSnapshot returns a point-in-time copy of shell counters.
func (s *Shell) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped returns the number of audit entries dropped by the
// dispatcher.
func (s *Shell) AuditDropped() uint64 {
	return s.dispatcher.Dropped()
}

// AuditDelivered returns the number of audit entries handed to the sinks.
func (s *Shell) AuditDelivered() uint64 {
	return s.dispatcher.Delivered()
}

// Close stops timers, abandons in-flight retrievals, drains the event loop
// and flushes buffered audit entries. It is safe to call more than once.
func (s *Shell) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.loop.Do(context.Background(), func() {
			s.store.StopMonitor()
			s.search.Close()
			s.router.Close()
		})
		s.loop.Close()
		s.router.Wait()
		s.dispatcher.Close()
		s.cancel()
		closeClient(s.redis)
	})
}

// resolveSession runs the full session check ahead of a navigation, so an
// expiry found here notifies, logs out and redirects instead of surfacing
// as a bare gate refusal. It must run on the loop.
func (s *Shell) resolveSession() error {
	_, err := s.store.Current(s.ctx)
	return err
}

func (s *Shell) do(ctx context.Context, fn func()) error {
	if s.closed.Load() {
		return ErrShellClosed
	}
	err := s.loop.Do(ctx, fn)
	if errors.Is(err, loop.ErrClosed) {
		return ErrShellClosed
	}
	return err
}

func (s *Shell) sessionHooks() session.Hooks {
	return session.Hooks{
		RedirectToLogin: func() {
			if s.hooks.RedirectToLogin != nil {
				s.hooks.RedirectToLogin()
			}
		},
		Notify: func(message string) {
			s.view.Notify(message)
		},
		Changed: func(*session.Session) {
			if s.gate != nil {
				s.gate.Enforce()
			}
		},
		Expired: func() {
			s.metrics.Inc(MetricSessionExpired)
		},
		Malformed: func(error) {
			s.metrics.Inc(MetricMalformedToken)
		},
	}
}

func (s *Shell) routerHooks() router.Hooks {
	return router.Hooks{
		Navigated:     func(string) { s.metrics.Inc(MetricNavigation) },
		Denied:        func(string) { s.metrics.Inc(MetricNavigationDenied) },
		MissingTarget: func() { s.metrics.Inc(MetricMissingTarget) },
		Loaded: func(_ string, took time.Duration) {
			s.metrics.Inc(MetricModuleLoaded)
			s.metrics.Observe(MetricModuleLoadLatency, took)
		},
		Failed:    func(string, error) { s.metrics.Inc(MetricModuleFailed) },
		Discarded: func(string) { s.metrics.Inc(MetricResultDiscarded) },
	}
}
