package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goConsole/audit"
	"github.com/MrEthical07/goConsole/permission"
	"github.com/MrEthical07/goConsole/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

// queueExecutor collects posted completions so tests decide when they run.
type queueExecutor struct {
	posted chan func()
}

func newQueueExecutor() *queueExecutor {
	return &queueExecutor{posted: make(chan func(), 16)}
}

func (q *queueExecutor) Post(fn func()) bool {
	q.posted <- fn
	return true
}

func (q *queueExecutor) next(t *testing.T) {
	t.Helper()
	select {
	case fn := <-q.posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a completion")
	}
}

type fetchResult struct {
	fragment string
	err      error
}

// scriptedFetcher blocks each module's fetch until the test releases it.
type scriptedFetcher struct {
	mu       sync.Mutex
	release  map[string]chan fetchResult
	canceled map[string]bool
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{release: map[string]chan fetchResult{}, canceled: map[string]bool{}}
}

func (f *scriptedFetcher) ch(module string) chan fetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.release[module]
	if !ok {
		c = make(chan fetchResult, 4)
		f.release[module] = c
	}
	return c
}

func (f *scriptedFetcher) Fetch(ctx context.Context, module string) (string, error) {
	res := <-f.ch(module)
	f.mu.Lock()
	f.canceled[module] = ctx.Err() != nil
	f.mu.Unlock()
	return res.fragment, res.err
}

func (f *scriptedFetcher) wasCanceled(module string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canceled[module]
}

type recordingView struct {
	loading   []string
	fragments map[string]string
	errors    map[string]error
	denied    []*permission.AccessDeniedError
}

func newRecordingView() *recordingView {
	return &recordingView{fragments: map[string]string{}, errors: map[string]error{}}
}

func (v *recordingView) ShowLoading(m string)        { v.loading = append(v.loading, m) }
func (v *recordingView) ShowFragment(m, f string)    { v.fragments[m] = f }
func (v *recordingView) ShowError(m string, e error) { v.errors[m] = e }
func (v *recordingView) ShowDenied(e *permission.AccessDeniedError) {
	v.denied = append(v.denied, e)
}

type recordedAction struct {
	action audit.Action
	module string
}

type fakeRecorder struct{ actions []recordedAction }

func (r *fakeRecorder) Record(_ context.Context, a audit.Action, m string, _ map[string]string) bool {
	r.actions = append(r.actions, recordedAction{a, m})
	return true
}

type staticSource struct{ sess *session.Session }

func (s *staticSource) Peek() *session.Session { return s.sess }

type harness struct {
	router  *Router
	exec    *queueExecutor
	fetcher *scriptedFetcher
	view    *recordingView
	rec     *fakeRecorder
	gate    *permission.Gate
}

func newHarness(t *testing.T, perms ...string) *harness {
	t.Helper()
	sess, err := session.FromClaims(session.Claims{
		Subject:     "user@erp.local",
		Role:        "Sales Rep",
		Permissions: perms,
		ExpiresAt:   time.Now().Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)

	gate, err := permission.NewGate(&staticSource{sess: sess}, nil, []permission.Affordance{
		{ID: "hr-nav", Module: "hr", Requirement: "hr.view"},
		{ID: "finance-nav", Module: "finance", Requirement: "finance.view"},
		{ID: "crm-nav", Module: "crm", Requirement: "crm.view"},
		{ID: "billing-nav", Module: "billing"},
		{ID: "crm-header", Module: "crm", Requirement: "crm.view", Placement: permission.PlacementHeader},
	})
	require.NoError(t, err)

	h := &harness{
		exec:    newQueueExecutor(),
		fetcher: newScriptedFetcher(),
		view:    newRecordingView(),
		rec:     &fakeRecorder{},
		gate:    gate,
	}
	h.router = New(h.fetcher, gate, h.view, h.rec, Options{Executor: h.exec, RecordDenials: true})
	t.Cleanup(func() {
		h.router.Close()
		h.router.Wait()
	})
	return h
}

func TestNavigateLoadsFragment(t *testing.T) {
	h := newHarness(t, "hr.view")
	ctx := context.Background()

	assert.Equal(t, Idle, h.router.Status().State)
	require.NoError(t, h.router.Navigate(ctx, "hr"))

	st := h.router.Status()
	assert.Equal(t, Loading, st.State)
	assert.Equal(t, "hr", st.Module)
	assert.Equal(t, []string{"hr"}, h.view.loading)
	assert.Equal(t, []recordedAction{{audit.ActionModuleAccessed, "hr"}}, h.rec.actions)

	h.fetcher.ch("hr") <- fetchResult{fragment: "<h1>HR</h1>"}
	h.exec.next(t)

	assert.Equal(t, Status{State: Loaded, Module: "hr"}, h.router.Status())
	assert.Equal(t, "<h1>HR</h1>", h.view.fragments["hr"])
}

func TestNavigateMarksActiveAffordances(t *testing.T) {
	h := newHarness(t, "crm.view")
	require.NoError(t, h.router.Navigate(context.Background(), "crm"))

	var active []string
	for _, a := range h.gate.Affordances() {
		if a.Active {
			active = append(active, a.ID)
		}
	}
	assert.ElementsMatch(t, []string{"crm-nav", "crm-header"}, active)

	h.fetcher.ch("crm") <- fetchResult{fragment: "crm"}
	h.exec.next(t)
}

func TestSupersededResultIsDiscarded(t *testing.T) {
	h := newHarness(t, "crm.view", "finance.view")
	ctx := context.Background()
	discarded := 0
	h.router.opts.Hooks.Discarded = func(string) { discarded++ }

	require.NoError(t, h.router.Navigate(ctx, "crm"))
	require.NoError(t, h.router.Navigate(ctx, "finance"))

	h.fetcher.ch("finance") <- fetchResult{fragment: "finance"}
	h.exec.next(t)
	require.Equal(t, Status{State: Loaded, Module: "finance"}, h.router.Status())

	h.fetcher.ch("crm") <- fetchResult{fragment: "crm"}
	h.exec.next(t)

	assert.Equal(t, Status{State: Loaded, Module: "finance"}, h.router.Status())
	assert.NotContains(t, h.view.fragments, "crm")
	assert.Equal(t, 1, discarded)
	assert.True(t, h.fetcher.wasCanceled("crm"), "superseded retrieval context must be cancelled")
}

func TestDeniedNavigateLeavesState(t *testing.T) {
	h := newHarness(t, "crm.view")
	ctx := context.Background()

	require.NoError(t, h.router.Navigate(ctx, "crm"))
	h.fetcher.ch("crm") <- fetchResult{fragment: "crm"}
	h.exec.next(t)
	before := h.router.Status()

	err := h.router.Navigate(ctx, "finance")
	var denied *permission.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "finance.view", denied.Capability)
	assert.Equal(t, "Sales Rep", denied.Role)

	assert.Equal(t, before, h.router.Status())
	assert.Len(t, h.view.denied, 1)
	assert.Equal(t, []string{"crm"}, h.view.loading)
	assert.Equal(t, recordedAction{audit.ActionAccessDenied, "finance"}, h.rec.actions[len(h.rec.actions)-1])
	for _, a := range h.rec.actions {
		if a.action == audit.ActionModuleAccessed {
			assert.NotEqual(t, "finance", a.module)
		}
	}
}

func TestMissingTarget(t *testing.T) {
	h := newHarness(t)
	missing := 0
	h.router.opts.Hooks.MissingTarget = func() { missing++ }

	err := h.router.Navigate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrMissingTarget)
	assert.Equal(t, Idle, h.router.Status().State)
	assert.Equal(t, 1, missing)
	assert.Empty(t, h.view.loading)
}

func TestFailureThenSuccessWithoutRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.router.Navigate(ctx, "billing"))
	h.fetcher.ch("billing") <- fetchResult{err: &RetrievalError{Module: "billing", Status: 500}}
	h.exec.next(t)

	st := h.router.Status()
	assert.Equal(t, Failed, st.State)
	assert.ErrorIs(t, st.Err, ErrRetrieval)
	var rerr *RetrievalError
	require.ErrorAs(t, h.view.errors["billing"], &rerr)
	assert.Equal(t, 500, rerr.Status)

	select {
	case <-h.exec.posted:
		t.Fatal("router retried automatically")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, h.router.Navigate(ctx, "billing"))
	h.fetcher.ch("billing") <- fetchResult{fragment: "<p>billing</p>"}
	h.exec.next(t)
	assert.Equal(t, Status{State: Loaded, Module: "billing"}, h.router.Status())
}

func TestTransportFaultIsWrapped(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.router.Navigate(context.Background(), "billing"))
	h.fetcher.ch("billing") <- fetchResult{err: errors.New("connection reset")}
	h.exec.next(t)

	var rerr *RetrievalError
	require.ErrorAs(t, h.router.Status().Err, &rerr)
	assert.Equal(t, "billing", rerr.Module)
	assert.Zero(t, rerr.Status)
	assert.Contains(t, rerr.Error(), "connection reset")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}
