package goConsole

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/MrEthical07/goConsole/audit"
	"github.com/MrEthical07/goConsole/internal/clock"
	"github.com/MrEthical07/goConsole/internal/loop"
	"github.com/MrEthical07/goConsole/jwt"
	"github.com/MrEthical07/goConsole/permission"
	"github.com/MrEthical07/goConsole/render"
	"github.com/MrEthical07/goConsole/router"
	"github.com/MrEthical07/goConsole/search"
	"github.com/MrEthical07/goConsole/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles a Shell. A Builder is single use.
type Builder struct {
	config Config

	storage session.Storage
	redis   redis.UniversalClient
	codec   session.TokenCodec
	fetcher router.Fetcher
	view    View
	corpus  []search.Record

	auditSink audit.Sink
	logger    *zap.Logger
	clock     clock.Clock
	hooks     Hooks

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the persisted state backend, overriding Storage config.
func (b *Builder) WithStorage(s session.Storage) *Builder {
	b.storage = s
	return b
}

// WithRedis persists state in client. The caller keeps ownership of client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenCodec overrides the codec selected by Session.TokenFormat.
func (b *Builder) WithTokenCodec(c session.TokenCodec) *Builder {
	b.codec = c
	return b
}

// WithFetcher overrides the fragment source selected by Router config.
func (b *Builder) WithFetcher(f router.Fetcher) *Builder {
	b.fetcher = f
	return b
}

// WithView sets the presentation layer. The default is render.HTML.
func (b *Builder) WithView(v View) *Builder {
	b.view = v
	return b
}

// WithCorpus overrides the search corpus.
func (b *Builder) WithCorpus(records []search.Record) *Builder {
	b.corpus = records
	return b
}

// WithAuditSink adds sink to the audit delivery chain.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

func (b *Builder) WithHooks(h Hooks) *Builder {
	b.hooks = h
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. No I/O
// happens until Shell.Start, except reading configured key and corpus files.
func (b *Builder) Build() (*Shell, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := b.clock
	if clk == nil {
		clk = clock.Real{}
	}

	storage, owned := b.storage, redis.UniversalClient(nil)
	if storage == nil {
		switch {
		case b.redis != nil:
			storage = session.NewRedisStorage(b.redis)
		case cfg.Storage.Backend == StorageRedis:
			owned = redis.NewClient(&redis.Options{
				Addr:     cfg.Storage.RedisAddr,
				DB:       cfg.Storage.RedisDB,
				Password: cfg.Storage.RedisPassword,
			})
			storage = session.NewRedisStorage(owned)
		default:
			storage = session.NewMemoryStorage()
		}
	}

	codec := b.codec
	if codec == nil {
		c, err := newTokenCodec(cfg)
		if err != nil {
			closeClient(owned)
			return nil, err
		}
		codec = c
	}

	fetcher := b.fetcher
	if fetcher == nil {
		f, err := newFetcher(cfg.Router)
		if err != nil {
			closeClient(owned)
			return nil, err
		}
		fetcher = f
	}

	corpus := b.corpus
	if corpus == nil {
		corpus = search.DefaultCorpus()
		if cfg.Search.CorpusFile != "" {
			loaded, err := search.LoadCorpus(cfg.Search.CorpusFile)
			if err != nil {
				closeClient(owned)
				return nil, err
			}
			corpus = loaded
		}
	}
	index, err := search.NewIndex(corpus)
	if err != nil {
		closeClient(owned)
		return nil, err
	}

	var registry *permission.Registry
	if len(cfg.Permissions) > 0 {
		registry = permission.NewRegistry()
		for _, p := range cfg.Permissions {
			if err := registry.Register(p); err != nil {
				closeClient(owned)
				return nil, err
			}
		}
		registry.Freeze()
	}

	view := b.view
	if view == nil {
		view = render.New(logger)
	}

	keys := session.NewKeys(cfg.Session.KeyPrefix)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Shell{
		cfg:     cfg,
		logger:  logger,
		clock:   clk,
		loop:    loop.New(cfg.EventQueueSize, logger),
		storage: storage,
		keys:    keys,
		view:    view,
		index:   index,
		metrics: NewMetrics(cfg.Metrics),
		hooks:   b.hooks,
		redis:   owned,
		ctx:     ctx,
		cancel:  cancel,
	}

	s.store = session.NewStore(storage, codec, session.Config{
		Keys:          keys,
		LoginSurface:  cfg.Session.LoginSurface,
		CheckInterval: cfg.Session.CheckInterval,
	}, s.sessionHooks(), session.Options{
		Clock:    clk,
		Logger:   logger.Named("session"),
		Schedule: s.loop.Post,
	})

	gate, err := permission.NewGate(s.store, registry, cfg.Navigation)
	if err != nil {
		s.loop.Close()
		cancel()
		closeClient(owned)
		return nil, err
	}
	s.gate = gate

	var sinks audit.MultiSink
	if cfg.Audit.Persist {
		sinks = append(sinks, audit.NewStorageSink(storage, keys.AuditLog, logger.Named("audit")))
	}
	if cfg.Audit.Echo {
		sinks = append(sinks, audit.NewLogSink(logger.Named("audit")))
	}
	if b.auditSink != nil {
		sinks = append(sinks, b.auditSink)
	}
	var sink audit.Sink = audit.NoOpSink{}
	if cfg.Audit.Enabled {
		s.dispatcher = audit.NewDispatcher(audit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Logger:     logger.Named("audit"),
		}, sinks)
		sink = s.dispatcher
	}
	s.recorder = audit.NewRecorder(s.store, sink, clk)

	s.router = router.New(fetcher, gate, view, s.recorder, router.Options{
		Logger:        logger.Named("router"),
		Clock:         clk,
		Executor:      s.loop,
		Hooks:         s.routerHooks(),
		RecordDenials: cfg.Router.RecordDenials,
	})

	s.search = search.NewController(index, s.router, s.recorder, view, search.ControllerOptions{
		Clock:    clk,
		Debounce: cfg.Search.Debounce,
		Schedule: s.loop.Post,
		Logger:   logger.Named("search"),
		Allowed: func(module string) bool {
			return gate.Check(module) == nil
		},
		Hooks: search.Hooks{
			Searched: func(string, int) { s.metrics.Inc(MetricSearch) },
			Selected: func(string) { s.metrics.Inc(MetricSearchSelected) },
		},
	})

	b.built = true
	return s, nil
}

// NewJWTManager builds the signed token codec described by cfg, reading key
// files when inline keys are absent.
func NewJWTManager(cfg JWTConfig) (*jwt.Manager, error) {
	method := jwt.SigningMethod(cfg.SigningMethod)
	if method == "" {
		method = jwt.MethodHS256
	}

	private := cloneBytes(cfg.PrivateKey)
	public := cloneBytes(cfg.PublicKey)
	if method == jwt.MethodHS256 && len(private) == 0 {
		private = []byte(cfg.Secret)
	}
	if len(private) == 0 && cfg.PrivateKeyFile != "" {
		raw, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt private key: %w", err)
		}
		private = raw
	}
	if len(public) == 0 && cfg.PublicKeyFile != "" {
		raw, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt public key: %w", err)
		}
		public = raw
	}

	return jwt.NewManager(jwt.Config{
		TTL:           cfg.TTL,
		SigningMethod: method,
		PrivateKey:    private,
		PublicKey:     public,
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		KeyID:         cfg.KeyID,
	})
}

func newTokenCodec(cfg Config) (session.TokenCodec, error) {
	if cfg.Session.TokenFormat == TokenFormatJWT {
		return NewJWTManager(cfg.JWT)
	}
	return session.Base64JSONCodec{}, nil
}

func newFetcher(cfg RouterConfig) (router.Fetcher, error) {
	if cfg.FragmentSource == FragmentSourceHTTP {
		return router.NewHTTPFetcher(cfg.BaseURL,
			router.WithExtension(cfg.Extension),
			router.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
		)
	}
	return router.NewDirFetcher(os.DirFS(cfg.FragmentDir), cfg.Extension), nil
}

func closeClient(c redis.UniversalClient) {
	if c != nil {
		_ = c.Close()
	}
}
