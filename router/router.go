package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goConsole/audit"
	"github.com/MrEthical07/goConsole/internal/clock"
	"github.com/MrEthical07/goConsole/permission"
	"go.uber.org/zap"
)

// Fetcher retrieves the fragment of a module.
type Fetcher interface {
	Fetch(ctx context.Context, module string) (string, error)
}

// View renders the content region.
type View interface {
	ShowLoading(module string)
	ShowFragment(module, fragment string)
	ShowError(module string, err error)
	ShowDenied(err *permission.AccessDeniedError)
}

// Gate is the subset of permission.Gate the router consults.
type Gate interface {
	Check(module string) error
	SetActive(module string)
}

// Recorder is the subset of audit.Recorder the router writes to.
type Recorder interface {
	Record(ctx context.Context, action audit.Action, module string, details map[string]string) bool
}

// Executor runs completions on the goroutine that owns the router.
// loop.Loop satisfies it.
type Executor interface {
	Post(fn func()) bool
}

// Hooks observe router transitions. Every hook is optional.
type Hooks struct {
	Navigated     func(module string)
	Denied        func(module string)
	MissingTarget func()
	Loaded        func(module string, took time.Duration)
	Failed        func(module string, err error)
	Discarded     func(module string)
}

// Options configures a Router.
type Options struct {
	Logger   *zap.Logger
	Clock    clock.Clock
	Executor Executor
	Hooks    Hooks
	// RecordDenials records an ACCESS_DENIED entry for every denied Navigate.
	RecordDenials bool
}

// Router is the active-module state machine. It is not safe for concurrent
// use; completions arrive through Options.Executor.
type Router struct {
	fetcher  Fetcher
	gate     Gate
	view     View
	recorder Recorder
	opts     Options

	status Status
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type directExecutor struct{}

func (directExecutor) Post(fn func()) bool {
	fn()
	return true
}

// New returns a Router in the Idle state.
func New(fetcher Fetcher, gate Gate, view View, recorder Recorder, opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Executor == nil {
		opts.Executor = directExecutor{}
	}
	return &Router{
		fetcher:  fetcher,
		gate:     gate,
		view:     view,
		recorder: recorder,
		opts:     opts,
	}
}

// Status returns the current state.
func (r *Router) Status() Status {
	return r.status
}

// Navigate requests module. It returns ErrMissingTarget for an empty module
// and the gate's error when the session may not open it; in both cases the
// state is unchanged. Otherwise the router enters Loading, renders the
// placeholder, records MODULE_ACCESSED and starts retrieval.
func (r *Router) Navigate(ctx context.Context, module string) error {
	module = strings.TrimSpace(module)
	if module == "" {
		r.opts.Logger.Warn("navigation request without target module")
		if r.opts.Hooks.MissingTarget != nil {
			r.opts.Hooks.MissingTarget()
		}
		return ErrMissingTarget
	}

	if err := r.gate.Check(module); err != nil {
		var denied *permission.AccessDeniedError
		if errors.As(err, &denied) {
			r.deny(ctx, denied)
		}
		return err
	}

	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	gen := r.gen
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	r.status = Status{State: Loading, Module: module}
	r.gate.SetActive(module)
	if r.view != nil {
		r.view.ShowLoading(module)
	}
	if r.recorder != nil {
		r.recorder.Record(ctx, audit.ActionModuleAccessed, module, nil)
	}
	if r.opts.Hooks.Navigated != nil {
		r.opts.Hooks.Navigated(module)
	}

	started := r.opts.Clock.Now()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fragment, err := r.fetcher.Fetch(fetchCtx, module)
		posted := r.opts.Executor.Post(func() {
			r.complete(gen, module, started, fragment, err)
		})
		if !posted {
			cancel()
		}
	}()

	return nil
}

// Close cancels the in-flight retrieval; its completion, if it still
// arrives, is discarded.
func (r *Router) Close() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
}

// Wait blocks until every retrieval goroutine has exited. It must not be
// called from the executor's goroutine while completions can still be posted.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) deny(ctx context.Context, denied *permission.AccessDeniedError) {
	r.opts.Logger.Info("navigation denied",
		zap.String("module", denied.Module),
		zap.String("capability", denied.Capability),
		zap.String("role", denied.Role),
	)
	if r.view != nil {
		r.view.ShowDenied(denied)
	}
	if r.opts.Hooks.Denied != nil {
		r.opts.Hooks.Denied(denied.Module)
	}
	if r.opts.RecordDenials && r.recorder != nil {
		r.recorder.Record(ctx, audit.ActionAccessDenied, denied.Module, map[string]string{
			"capability": denied.Capability,
		})
	}
}

func (r *Router) complete(gen uint64, module string, started time.Time, fragment string, err error) {
	if gen != r.gen {
		r.opts.Logger.Debug("discarding superseded module result", zap.String("module", module))
		if r.opts.Hooks.Discarded != nil {
			r.opts.Hooks.Discarded(module)
		}
		return
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	if err != nil {
		rerr := asRetrievalError(module, err)
		r.status = Status{State: Failed, Module: module, Err: rerr}
		r.opts.Logger.Warn("module retrieval failed", zap.String("module", module), zap.Error(rerr))
		if r.view != nil {
			r.view.ShowError(module, rerr)
		}
		if r.opts.Hooks.Failed != nil {
			r.opts.Hooks.Failed(module, rerr)
		}
		return
	}

	r.status = Status{State: Loaded, Module: module}
	if r.view != nil {
		r.view.ShowFragment(module, fragment)
	}
	if r.opts.Hooks.Loaded != nil {
		r.opts.Hooks.Loaded(module, r.opts.Clock.Now().Sub(started))
	}
}
