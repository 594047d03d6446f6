package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goConsole/internal/clock"
	"go.uber.org/zap"
)

// ExpiredNotice is the user-visible message surfaced before an expiry logout.
const ExpiredNotice = "Session expired. Please log in again."

// Hooks are the caller-visible side effects of the store. Every hook is
// optional.
type Hooks struct {
	// RedirectToLogin is the "navigate to login surface" signal.
	RedirectToLogin func()
	// Notify surfaces a user-visible message.
	Notify func(message string)
	// Changed fires whenever the active session is replaced or cleared.
	Changed func(*Session)
	// Expired and Malformed fire once per detection, before logout.
	Expired   func()
	Malformed func(err error)
}

// Config controls store behavior.
type Config struct {
	Keys Keys
	// LoginSurface is true when the current execution context is the login
	// surface itself; the store then never redirects.
	LoginSurface bool
	// CheckInterval is the background re-validation period. Zero disables it.
	CheckInterval time.Duration
}

// Options carries the store's collaborators.
type Options struct {
	Clock  clock.Clock
	Logger *zap.Logger
	// Schedule runs monitor ticks. The shell passes its event loop so ticks
	// never race with other handlers. Defaults to a direct call.
	Schedule func(func()) bool
}

// Store owns the current session. It is not safe for concurrent use.
type Store struct {
	storage Storage
	codec   TokenCodec
	cfg     Config
	hooks   Hooks
	clock   clock.Clock
	logger  *zap.Logger
	exec    func(func()) bool

	loaded  bool
	current *Session

	monitor    clock.Timer
	monitorGen uint64
}

// NewStore builds a Store over storage using codec to read tokens.
func NewStore(storage Storage, codec TokenCodec, cfg Config, hooks Hooks, opts Options) *Store {
	if codec == nil {
		codec = Base64JSONCodec{}
	}
	if cfg.Keys.Token == "" {
		cfg.Keys = NewKeys("")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Schedule == nil {
		opts.Schedule = func(fn func()) bool {
			fn()
			return true
		}
	}

	return &Store{
		storage: storage,
		codec:   codec,
		cfg:     cfg,
		hooks:   hooks,
		clock:   opts.Clock,
		logger:  opts.Logger,
		exec:    opts.Schedule,
	}
}

// Current returns the active session.
//
// The persisted token is decoded on first access only; later calls re-check
// the decoded expiry. A malformed token or an expired session logs out and
// returns the matching sentinel error. On the login surface Current returns
// nil, nil without side effects.
func (s *Store) Current(ctx context.Context) (*Session, error) {
	if s.cfg.LoginSurface {
		return nil, nil
	}

	if !s.loaded {
		sess, err := s.load(ctx)
		if errors.Is(err, ErrStorageUnavailable) {
			s.logger.Warn("session storage read failed", zap.Error(err))
			return nil, err
		}
		s.loaded = true
		if err != nil {
			return nil, s.invalidate(ctx, err, "")
		}
		if sess != nil && sess.Expired(s.clock.Now()) {
			return nil, s.invalidate(ctx, ErrSessionExpired, sess.Subject)
		}
		s.current = sess
		if sess != nil {
			s.changed(sess)
		}
	}

	if s.current == nil {
		s.redirect()
		return nil, ErrNoSession
	}

	if s.current.Expired(s.clock.Now()) {
		return nil, s.invalidate(ctx, ErrSessionExpired, s.current.Subject)
	}

	return s.current, nil
}

// Peek returns the active session if it is loaded and unexpired, with no
// side effects.
func (s *Store) Peek() *Session {
	if s == nil || s.current == nil || s.current.Expired(s.clock.Now()) {
		return nil
	}
	return s.current
}

// Login persists a token issued by the login surface and makes it the active
// session. Malformed or already expired tokens are rejected without touching
// persisted state.
func (s *Store) Login(ctx context.Context, token string) (*Session, error) {
	sess, err := s.decode(token)
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.clock.Now()) {
		return nil, ErrSessionExpired
	}

	if err := s.persist(ctx, [][2]string{
		{s.cfg.Keys.Token, token},
		{s.cfg.Keys.UserName, sess.DisplayName},
		{s.cfg.Keys.UserRole, sess.Role},
	}); err != nil {
		return nil, err
	}

	s.loaded = true
	s.current = sess
	s.changed(sess)
	return sess, nil
}

// persist writes entries in order. When a write fails the entries already
// written are removed, so a failed login never leaves a partial session.
func (s *Store) persist(ctx context.Context, entries [][2]string) error {
	written := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := s.storage.Set(ctx, e[0], e[1]); err != nil {
			if len(written) > 0 {
				if derr := s.storage.Delete(ctx, written...); derr != nil {
					s.logger.Warn("session rollback failed", zap.Strings("keys", written), zap.Error(derr))
				}
			}
			return err
		}
		written = append(written, e[0])
	}
	return nil
}

// Logout clears every persisted session key and emits the redirect signal.
// Calling it without a session only re-emits the redirect.
func (s *Store) Logout(ctx context.Context) error {
	s.StopMonitor()

	had := s.current != nil
	s.current = nil
	s.loaded = true

	err := s.storage.Delete(ctx, s.cfg.Keys.Token, s.cfg.Keys.UserName, s.cfg.Keys.UserRole)
	if err != nil {
		s.logger.Warn("session storage clear failed", zap.Error(err))
	}

	if had {
		s.changed(nil)
	}
	s.redirect()
	return err
}

// StartMonitor arms the background re-validation. It is a no-op on the login
// surface, when already running, or when CheckInterval is zero.
func (s *Store) StartMonitor(ctx context.Context) {
	if s.cfg.LoginSurface || s.cfg.CheckInterval <= 0 || s.monitor != nil {
		return
	}
	s.monitorGen++
	s.arm(ctx, s.monitorGen)
}

// StopMonitor cancels the background re-validation.
func (s *Store) StopMonitor() {
	s.monitorGen++
	if s.monitor != nil {
		s.monitor.Stop()
		s.monitor = nil
	}
}

// Monitoring reports whether the background re-validation is armed.
func (s *Store) Monitoring() bool {
	return s.monitor != nil
}

func (s *Store) arm(ctx context.Context, gen uint64) {
	s.monitor = s.clock.AfterFunc(s.cfg.CheckInterval, func() {
		s.exec(func() {
			if gen != s.monitorGen {
				return
			}
			s.monitor = nil
			if _, err := s.Current(ctx); err != nil {
				s.logger.Info("session monitor stopped", zap.Error(err))
				return
			}
			s.arm(ctx, gen)
		})
	})
}

func (s *Store) load(ctx context.Context) (*Session, error) {
	token, ok, err := s.storage.Get(ctx, s.cfg.Keys.Token)
	if err != nil {
		if !errors.Is(err, ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s.decode(token)
}

func (s *Store) decode(token string) (*Session, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		if errors.Is(err, ErrMalformedToken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return FromClaims(claims)
}

// invalidate resolves MalformedToken and SessionExpired: both force logout,
// expiry additionally notifies the user first.
func (s *Store) invalidate(ctx context.Context, cause error, subject string) error {
	switch {
	case errors.Is(cause, ErrSessionExpired):
		s.logger.Info("session expired", zap.String("subject", subject))
		if s.hooks.Expired != nil {
			s.hooks.Expired()
		}
		if s.hooks.Notify != nil {
			s.hooks.Notify(ExpiredNotice)
		}
	default:
		s.logger.Warn("invalid session token", zap.Error(cause))
		if s.hooks.Malformed != nil {
			s.hooks.Malformed(cause)
		}
	}

	_ = s.Logout(ctx)
	return cause
}

func (s *Store) redirect() {
	if s.cfg.LoginSurface {
		return
	}
	if s.hooks.RedirectToLogin != nil {
		s.hooks.RedirectToLogin()
	}
}

func (s *Store) changed(sess *Session) {
	if s.hooks.Changed != nil {
		s.hooks.Changed(sess)
	}
}
