package goConsole

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/MrEthical07/goConsole/internal/clock"
	"github.com/MrEthical07/goConsole/permission"
	"github.com/MrEthical07/goConsole/render"
	"github.com/MrEthical07/goConsole/router"
	"github.com/MrEthical07/goConsole/search"
	"github.com/MrEthical07/goConsole/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shellEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var testModules = fstest.MapFS{
	"hr.html":      {Data: []byte(`<section id="hr">Employees</section>`)},
	"finance.html": {Data: []byte(`<section id="finance">Invoices</section>`)},
	"crm.html":     {Data: []byte(`<section id="crm">Leads</section>`)},
	"billing.html": {Data: []byte(`<section id="billing">Billing</section>`)},
}

type shellFixture struct {
	shell     *Shell
	view      *render.HTML
	storage   *session.MemoryStorage
	clock     *clock.Fake
	redirects atomic.Int32
}

type fixtureOption func(*Config, *Builder)

func withFetcher(f router.Fetcher) fixtureOption {
	return func(_ *Config, b *Builder) { b.WithFetcher(f) }
}

func withConfig(mut func(*Config)) fixtureOption {
	return func(c *Config, _ *Builder) { mut(c) }
}

func newShellFixture(t *testing.T, opts ...fixtureOption) *shellFixture {
	t.Helper()

	f := &shellFixture{
		view:    render.New(nil),
		storage: session.NewMemoryStorage(),
		clock:   clock.NewFake(shellEpoch),
	}

	cfg := DefaultConfig()
	cfg.Audit.Echo = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	b := New().
		WithStorage(f.storage).
		WithView(f.view).
		WithClock(f.clock).
		WithFetcher(router.NewDirFetcher(testModules, "html")).
		WithHooks(Hooks{RedirectToLogin: func() { f.redirects.Add(1) }})
	for _, opt := range opts {
		opt(&cfg, b)
	}
	b.WithConfig(cfg)

	shell, err := b.Build()
	require.NoError(t, err)
	f.shell = shell
	t.Cleanup(shell.Close)
	return f
}

func (f *shellFixture) seed(t *testing.T, perms []string, exp time.Time) {
	t.Helper()
	token, err := session.Base64JSONCodec{}.Encode(session.Claims{
		Subject:     "dana@erp.local",
		Name:        "Dana",
		Role:        "Manager",
		Permissions: perms,
		ExpiresAt:   exp.UnixMilli(),
	})
	require.NoError(t, err)
	require.NoError(t, f.storage.Set(context.Background(), session.NewKeys("erp").Token, token))
}

func (f *shellFixture) waitState(t *testing.T, module string, state router.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := f.shell.Status(context.Background())
		return err == nil && st.Module == module && st.State == state
	}, 2*time.Second, 5*time.Millisecond)
}

func (f *shellFixture) auditActions(t *testing.T) []string {
	t.Helper()
	f.shell.Close()
	entries, err := f.shell.AuditLog(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, string(e.Action)+":"+e.Module)
	}
	return out
}

func affordance(t *testing.T, affs []permission.Affordance, id string) permission.Affordance {
	t.Helper()
	for _, a := range affs {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("affordance %q not found", id)
	return permission.Affordance{}
}

func TestShellStartLoadsDefaultModule(t *testing.T) {
	f := newShellFixture(t)
	f.seed(t, []string{"hr.view", "crm.view"}, shellEpoch.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, f.shell.Start(ctx))
	f.waitState(t, "hr", router.Loaded)
	assert.Contains(t, f.view.Content(), "Employees")

	affs, err := f.shell.Affordances(ctx)
	require.NoError(t, err)
	assert.True(t, affordance(t, affs, "nav-hr").Active)
	assert.True(t, affordance(t, affs, "header-hr").Active)
	assert.True(t, affordance(t, affs, "nav-finance").Locked)
	assert.True(t, affordance(t, affs, "header-finance").Locked)
	assert.False(t, affordance(t, affs, "nav-crm").Locked)
	assert.False(t, affordance(t, affs, "nav-billing").Locked)

	ok, err := f.shell.HasPermission(ctx, "crm.view")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"PAGE_LOAD:app", "MODULE_ACCESSED:hr"}, f.auditActions(t))
}

func TestShellStartWithoutSessionRedirects(t *testing.T) {
	f := newShellFixture(t)

	err := f.shell.Start(context.Background())
	require.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, int32(1), f.redirects.Load())

	st, err := f.shell.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, router.Idle, st.State)
}

func TestShellStartExpiredSessionLogsOutOnce(t *testing.T) {
	for _, offset := range []time.Duration{0, -time.Millisecond, -24 * time.Hour} {
		t.Run(offset.String(), func(t *testing.T) {
			f := newShellFixture(t)
			f.seed(t, []string{"hr.view"}, shellEpoch.Add(offset))

			err := f.shell.Start(context.Background())
			require.ErrorIs(t, err, ErrSessionExpired)
			assert.Equal(t, int32(1), f.redirects.Load())
			assert.Equal(t, []string{session.ExpiredNotice}, f.view.Notices())

			_, ok, err := f.storage.Get(context.Background(), session.NewKeys("erp").Token)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, uint64(1), f.shell.MetricsSnapshot().Counters[MetricSessionExpired])
		})
	}
}

func TestShellStartMalformedToken(t *testing.T) {
	f := newShellFixture(t)
	require.NoError(t, f.storage.Set(context.Background(), session.NewKeys("erp").Token, "%%%not-a-token"))

	err := f.shell.Start(context.Background())
	require.ErrorIs(t, err, ErrMalformedToken)
	assert.Equal(t, int32(1), f.redirects.Load())
	assert.Empty(t, f.view.Notices())
	assert.Equal(t, uint64(1), f.shell.MetricsSnapshot().Counters[MetricMalformedToken])
}

func TestShellLoginSurfaceIsSilent(t *testing.T) {
	f := newShellFixture(t, withConfig(func(c *Config) { c.Session.LoginSurface = true }))

	require.NoError(t, f.shell.Start(context.Background()))
	assert.Zero(t, f.redirects.Load())

	sess, err := f.shell.Session(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestShellNavigateDeniedKeepsState(t *testing.T) {
	f := newShellFixture(t)
	f.seed(t, []string{"hr.view"}, shellEpoch.Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, f.shell.Start(ctx))
	f.waitState(t, "hr", router.Loaded)

	err := f.shell.Navigate(ctx, "finance")
	var denied *permission.AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "finance.view", denied.Capability)
	assert.Equal(t, "Manager", denied.Role)

	st, err := f.shell.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, router.Loaded, st.State)
	assert.Equal(t, "hr", st.Module)
	assert.Contains(t, f.view.Content(), "Employees")
	require.Len(t, f.view.Notices(), 1)
	assert.Contains(t, f.view.Notices()[0], "Required permission: finance.view, Your role: Manager")
	assert.Equal(t, uint64(1), f.shell.MetricsSnapshot().Counters[MetricNavigationDenied])
}

func TestShellActivateAffordances(t *testing.T) {
	f := newShellFixture(t, withConfig(func(c *Config) {
		c.Router.RecordDenials = true
		c.Navigation = append(c.Navigation, permission.Affordance{ID: "nav-broken", Placement: permission.PlacementSidebar})
	}))
	f.seed(t, []string{"hr.view"}, shellEpoch.Add(time.Hour))
	ctx := context.Background()
	require.NoError(t, f.shell.Start(ctx))
	f.waitState(t, "hr", router.Loaded)

	err := f.shell.Activate(ctx, "nav-finance")
	require.ErrorIs(t, err, ErrAccessDenied)

	require.ErrorIs(t, f.shell.Activate(ctx, "nav-broken"), ErrMissingTarget)
	require.ErrorIs(t, f.shell.Activate(ctx, "nav-unknown"), ErrUnknownAffordance)

	require.NoError(t, f.shell.Activate(ctx, "nav-billing"))
	f.waitState(t, "billing", router.Loaded)

	affs, err := f.shell.Affordances(ctx)
	require.NoError(t, err)
	assert.True(t, affordance(t, affs, "nav-billing").Active)
	assert.False(t, affordance(t, affs, "nav-hr").Active)

	snap := f.shell.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.Counters[MetricMissingTarget])

	assert.Equal(t, []string{
		"PAGE_LOAD:app",
		"MODULE_ACCESSED:hr",
		"ACCESS_DENIED:finance",
		"MODULE_ACCESSED:billing",
	}, f.auditActions(t))
}

func TestShellSearchDebounceAndSelect(t *testing.T) {
	f := newShellFixture(t)
	f.seed(t, []string{"hr.view", "finance.view", "crm.view"}, shellEpoch.Add(time.Hour))
	ctx := context.Background()
	require.NoError(t, f.shell.Start(ctx))
	f.waitState(t, "hr", router.Loaded)

	for _, v := range []string{"s", "sa", "sar", "sara"} {
		require.NoError(t, f.shell.Input(ctx, v))
	}
	f.clock.Advance(299 * time.Millisecond)
	panel, err := f.shell.SearchState(ctx)
	require.NoError(t, err)
	assert.False(t, panel.Open)

	f.clock.Advance(time.Millisecond)
	panel, err = f.shell.SearchState(ctx)
	require.NoError(t, err)
	require.True(t, panel.Open)
	assert.Equal(t, "sara", panel.Query)
	require.NotEmpty(t, panel.Results)
	assert.Equal(t, "EMP-2847", panel.Results[0].Record.RecordID())
	assert.GreaterOrEqual(t, panel.Results[0].Score, search.ScorePrefix)
	assert.Equal(t, uint64(1), f.shell.MetricsSnapshot().Counters[MetricSearch])

	markup, open := f.view.Panel()
	assert.True(t, open)
	assert.Contains(t, markup, "Sarah Anderson")

	require.NoError(t, f.shell.Select(ctx, 0))
	panel, err = f.shell.SearchState(ctx)
	require.NoError(t, err)
	assert.False(t, panel.Open)
	assert.Empty(t, panel.Input)
	f.waitState(t, "hr", router.Loaded)

	require.ErrorIs(t, f.shell.Select(ctx, 0), ErrNoSuchResult)

	actions := f.auditActions(t)
	assert.Equal(t, "SEARCH_RESULT_SELECTED:hr", actions[len(actions)-1])
}

func TestShellShortQueryClosesPanel(t *testing.T) {
	f := newShellFixture(t)
	f.seed(t, []string{"hr.view"}, shellEpoch.Add(time.Hour))
	ctx := context.Background()
	require.NoError(t, f.shell.Start(ctx))

	require.NoError(t, f.shell.Input(ctx, "marcus"))
	f.clock.Advance(300 * time.Millisecond)
	panel, err := f.shell.SearchState(ctx)
	require.NoError(t, err)
	require.True(t, panel.Open)

	require.NoError(t, f.shell.Input(ctx, "m"))
	panel, err = f.shell.SearchState(ctx)
	require.NoError(t, err)
	assert.False(t, panel.Open)
	assert.Empty(t, panel.Results)

	handled, err := f.shell.Key(ctx, search.Key{Name: "k", Ctrl: true})
	require.NoError(t, err)
	assert.True(t, handled)
	require.NoError(t, f.shell.OutsideInteraction(ctx))
}

func TestShellImmediateSearchFlagsLockedResults(t *testing.T) {
	f := newShellFixture(t)
	f.seed(t, []string{"hr.view"}, shellEpoch.Add(time.Hour))
	ctx := context.Background()
	require.NoError(t, f.shell.Start(ctx))

	results, err := f.shell.Search(ctx, "corp")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, search.Target(r.Record) != "hr", r.Locked, r.Record.RecordID())
	}
}

func TestShellSessionMonitorExpires(t *testing.T) {
	f := newShellFixture(t)
	f.seed(t, []string{"hr.view"}, shellEpoch.Add(90*time.Second))
	ctx := context.Background()
	require.NoError(t, f.shell.Start(ctx))
	f.waitState(t, "hr", router.Loaded)

	f.clock.Advance(time.Minute)
	sess, err := f.shell.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Zero(t, f.redirects.Load())

	f.clock.Advance(time.Minute)
	_, err = f.shell.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.redirects.Load())
	assert.Equal(t, []string{session.ExpiredNotice}, f.view.Notices())
	assert.Equal(t, uint64(1), f.shell.MetricsSnapshot().Counters[MetricSessionExpired])

	affs, err := f.shell.Affordances(ctx)
	require.NoError(t, err)
	assert.True(t, affordance(t, affs, "nav-hr").Locked)
}

func TestShellNavigationAfterExpiryLogsOut(t *testing.T) {
	for name, act := range map[string]func(ctx context.Context, f *shellFixture) error{
		"navigate": func(ctx context.Context, f *shellFixture) error {
			return f.shell.Navigate(ctx, "crm")
		},
		"activate": func(ctx context.Context, f *shellFixture) error {
			return f.shell.Activate(ctx, "nav-crm")
		},
		"select": func(ctx context.Context, f *shellFixture) error {
			return f.shell.Select(ctx, 0)
		},
	} {
		t.Run(name, func(t *testing.T) {
			f := newShellFixture(t)
			f.seed(t, []string{"hr.view", "crm.view"}, shellEpoch.Add(10*time.Second))
			ctx := context.Background()
			require.NoError(t, f.shell.Start(ctx))
			f.waitState(t, "hr", router.Loaded)

			require.NoError(t, f.shell.Input(ctx, "sara"))
			f.clock.Advance(300 * time.Millisecond)
			panel, err := f.shell.SearchState(ctx)
			require.NoError(t, err)
			require.NotEmpty(t, panel.Results)

			// Past expiry but before the monitor's first check.
			f.clock.Advance(20 * time.Second)
			require.Zero(t, f.redirects.Load())

			require.ErrorIs(t, act(ctx, f), ErrSessionExpired)
			assert.Equal(t, int32(1), f.redirects.Load())
			assert.Equal(t, []string{session.ExpiredNotice}, f.view.Notices())
			assert.Equal(t, uint64(1), f.shell.MetricsSnapshot().Counters[MetricSessionExpired])

			_, ok, err := f.storage.Get(ctx, "erp_auth_token")
			require.NoError(t, err)
			assert.False(t, ok)

			st, err := f.shell.Status(ctx)
			require.NoError(t, err)
			assert.Equal(t, "hr", st.Module)
		})
	}
}

func TestShellLogoutIdempotent(t *testing.T) {
	f := newShellFixture(t)
	f.seed(t, []string{"hr.view"}, shellEpoch.Add(time.Hour))
	ctx := context.Background()
	require.NoError(t, f.shell.Start(ctx))
	f.waitState(t, "hr", router.Loaded)

	require.NoError(t, f.shell.Logout(ctx))
	require.NoError(t, f.shell.Logout(ctx))
	assert.Equal(t, int32(2), f.redirects.Load())
	assert.Equal(t, uint64(1), f.shell.MetricsSnapshot().Counters[MetricLogout])

	for _, key := range []string{"erp_auth_token", "erp_user_name", "erp_user_role"} {
		_, ok, err := f.storage.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}

	actions := f.auditActions(t)
	assert.Equal(t, 1, strings.Count(strings.Join(actions, ","), "LOGOUT"))
}

func TestShellLoginAcceptsToken(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	token, err := session.Base64JSONCodec{}.Encode(session.Claims{
		Subject: "lee@erp.local", Role: "Analyst", Permissions: []string{"crm.view"},
		ExpiresAt: shellEpoch.Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)

	sess, err := f.shell.Login(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "lee@erp.local", sess.DisplayName)

	name, ok, err := f.storage.Get(ctx, "erp_user_role")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Analyst", name)

	affs, err := f.shell.Affordances(ctx)
	require.NoError(t, err)
	assert.False(t, affordance(t, affs, "nav-crm").Locked)
	assert.True(t, affordance(t, affs, "nav-hr").Locked)

	_, err = f.shell.Login(ctx, "garbage")
	require.ErrorIs(t, err, ErrMalformedToken)
}

// flakyFetcher fails the first n retrievals of each module.
type flakyFetcher struct {
	mu       sync.Mutex
	failures map[string]int
	next     router.Fetcher
}

func (f *flakyFetcher) Fetch(ctx context.Context, module string) (string, error) {
	f.mu.Lock()
	n := f.failures[module]
	if n > 0 {
		f.failures[module] = n - 1
	}
	f.mu.Unlock()
	if n > 0 {
		return "", &router.RetrievalError{Module: module, Status: http.StatusInternalServerError}
	}
	return f.next.Fetch(ctx, module)
}

func TestShellBillingFailureThenRetry(t *testing.T) {
	fetcher := &flakyFetcher{
		failures: map[string]int{"billing": 1},
		next:     router.NewDirFetcher(testModules, "html"),
	}
	f := newShellFixture(t, withFetcher(fetcher))
	f.seed(t, []string{"hr.view"}, shellEpoch.Add(time.Hour))
	ctx := context.Background()
	require.NoError(t, f.shell.Start(ctx))
	f.waitState(t, "hr", router.Loaded)

	require.NoError(t, f.shell.Navigate(ctx, "billing"))
	f.waitState(t, "billing", router.Failed)
	assert.Contains(t, f.view.Content(), "Could not load the Billing module. Please try again later.")

	st, err := f.shell.Status(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, st.Err, ErrFragmentRetrieval)

	require.NoError(t, f.shell.Navigate(ctx, "billing"))
	f.waitState(t, "billing", router.Loaded)
	assert.Contains(t, f.view.Content(), `<section id="billing">`)

	snap := f.shell.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.Counters[MetricModuleFailed])
	assert.Equal(t, uint64(2), snap.Counters[MetricModuleLoaded])
}

// gatedFetcher holds retrievals of one module until released.
type gatedFetcher struct {
	module  string
	release chan struct{}
	next    router.Fetcher
}

func (f *gatedFetcher) Fetch(ctx context.Context, module string) (string, error) {
	if module == f.module {
		<-f.release
	}
	return f.next.Fetch(context.WithoutCancel(ctx), module)
}

func TestShellSupersededResultDiscarded(t *testing.T) {
	fetcher := &gatedFetcher{module: "crm", release: make(chan struct{}), next: router.NewDirFetcher(testModules, "html")}
	f := newShellFixture(t, withFetcher(fetcher))
	f.seed(t, []string{"hr.view", "finance.view", "crm.view"}, shellEpoch.Add(time.Hour))
	ctx := context.Background()
	require.NoError(t, f.shell.Start(ctx))
	f.waitState(t, "hr", router.Loaded)

	require.NoError(t, f.shell.Navigate(ctx, "crm"))
	require.NoError(t, f.shell.Navigate(ctx, "finance"))
	f.waitState(t, "finance", router.Loaded)

	close(fetcher.release)
	require.Eventually(t, func() bool {
		return f.shell.MetricsSnapshot().Counters[MetricResultDiscarded] == 1
	}, 2*time.Second, 5*time.Millisecond)

	st, err := f.shell.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "finance", st.Module)
	assert.Contains(t, f.view.Content(), "Invoices")
	assert.NotContains(t, f.view.Content(), "Leads")
}

func TestShellClosedRejectsCalls(t *testing.T) {
	f := newShellFixture(t)
	f.shell.Close()
	f.shell.Close()

	require.ErrorIs(t, f.shell.Navigate(context.Background(), "hr"), ErrShellClosed)
	_, err := f.shell.Session(context.Background())
	require.ErrorIs(t, err, ErrShellClosed)
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithFetcher(router.NewDirFetcher(testModules, "html"))
	shell, err := b.Build()
	require.NoError(t, err)
	defer shell.Close()

	_, err = b.Build()
	require.ErrorIs(t, err, ErrBuilderUsed)
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.Debounce = 0
	_, err := New().WithConfig(cfg).Build()
	require.Error(t, err)
}

func TestShellWithSignedTokens(t *testing.T) {
	now := time.Now()
	f := newShellFixture(t, withConfig(func(c *Config) {
		c.Session.TokenFormat = TokenFormatJWT
		c.JWT.Secret = "integration-secret"
		c.JWT.Issuer = "erp-login"
	}))

	mgr, err := NewJWTManager(JWTConfig{SigningMethod: "hs256", Secret: "integration-secret", Issuer: "erp-login", TTL: time.Hour})
	require.NoError(t, err)
	token, err := mgr.Encode(session.Claims{
		Subject: "dana@erp.local", Role: "Manager", Permissions: []string{"hr.view"},
		ExpiresAt: shellEpoch.Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	require.NoError(t, f.storage.Set(context.Background(), "erp_auth_token", token))

	require.NoError(t, f.shell.Start(context.Background()))
	f.waitState(t, "hr", router.Loaded)

	forged, err := session.Base64JSONCodec{}.Encode(session.Claims{
		Subject: "eve", Role: "Administrator", ExpiresAt: now.Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	_, err = f.shell.Login(context.Background(), forged)
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestShellRedisStorageSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	build := func() *Shell {
		cfg := DefaultConfig()
		cfg.Audit.Echo = false
		shell, err := New().
			WithConfig(cfg).
			WithRedis(client).
			WithClock(clock.NewFake(shellEpoch)).
			WithView(render.New(nil)).
			WithFetcher(router.NewDirFetcher(testModules, "html")).
			Build()
		require.NoError(t, err)
		return shell
	}

	first := build()
	token, err := session.Base64JSONCodec{}.Encode(session.Claims{
		Subject: "dana@erp.local", Role: "Manager", Permissions: []string{"hr.view"},
		ExpiresAt: shellEpoch.Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	_, err = first.Login(ctx, token)
	require.NoError(t, err)
	require.NoError(t, first.Start(ctx))
	first.Close()

	second := build()
	defer second.Close()
	sess, err := second.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dana@erp.local", sess.Subject)

	entries, err := second.AuditLog(ctx)
	require.NoError(t, err)
	var actions []string
	for _, e := range entries {
		actions = append(actions, string(e.Action))
	}
	assert.True(t, slices.Contains(actions, "PAGE_LOAD"), "audit log %v", actions)
	assert.True(t, mr.Exists("erp_audit_log"))
}

func TestErrorsMatchComponentSentinels(t *testing.T) {
	denied := &permission.AccessDeniedError{Module: "crm", Capability: "crm.view", Role: "Viewer"}
	assert.True(t, errors.Is(denied, ErrAccessDenied))
	assert.True(t, errors.Is(&router.RetrievalError{Module: "billing", Status: 503}, ErrFragmentRetrieval))
}
