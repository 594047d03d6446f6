package goConsole

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/goConsole/permission"
	"github.com/MrEthical07/goConsole/router"
)

// Config is the complete shell configuration.
//
// Config values are cloned by Builder.Build and then treated as immutable.
type Config struct {
	Session SessionConfig `yaml:"session"`
	JWT     JWTConfig     `yaml:"jwt"`
	Router  RouterConfig  `yaml:"router"`
	Search  SearchConfig  `yaml:"search"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Storage StorageConfig `yaml:"storage"`

	// EventQueueSize is the depth of the event loop queue.
	EventQueueSize int `yaml:"event_queue_size"`
	// Permissions lists every capability known to the deployment. When
	// non-empty, navigation requirements must come from this list.
	Permissions []string `yaml:"permissions"`
	// Navigation lists the navigable affordances of the shell.
	Navigation []permission.Affordance `yaml:"navigation"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// Token formats accepted by SessionConfig.TokenFormat.
const (
	TokenFormatBase64JSON = "base64json"
	TokenFormatJWT        = "jwt"
)

// SessionConfig controls the session store.
type SessionConfig struct {
	// KeyPrefix namespaces the persisted keys, e.g. "erp" gives
	// erp_auth_token, erp_user_name, erp_user_role and erp_audit_log.
	KeyPrefix     string        `yaml:"key_prefix"`
	CheckInterval time.Duration `yaml:"check_interval"`
	// LoginSurface marks the login surface itself; the shell then never
	// redirects or validates.
	LoginSurface bool   `yaml:"login_surface"`
	TokenFormat  string `yaml:"token_format"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig is read only when Session.TokenFormat is "jwt".
type JWTConfig struct {
	SigningMethod  string        `yaml:"signing_method"` // "hs256" (default) or "ed25519"
	Secret         string        `yaml:"secret"`
	PrivateKeyFile string        `yaml:"private_key_file"`
	PublicKeyFile  string        `yaml:"public_key_file"`
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	KeyID          string        `yaml:"key_id"`
	TTL            time.Duration `yaml:"ttl"`

	PrivateKey []byte `yaml:"-"`
	PublicKey  []byte `yaml:"-"`
}

/*
====================================
ROUTER CONFIG
====================================
*/

// Fragment sources accepted by RouterConfig.FragmentSource.
const (
	FragmentSourceDir  = "dir"
	FragmentSourceHTTP = "http"
)

// RouterConfig controls module navigation and fragment retrieval.
type RouterConfig struct {
	DefaultModule  string        `yaml:"default_module"`
	FragmentSource string        `yaml:"fragment_source"`
	FragmentDir    string        `yaml:"fragment_dir"`
	BaseURL        string        `yaml:"base_url"`
	Extension      string        `yaml:"extension"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	// RecordDenials audits every denied navigation as ACCESS_DENIED.
	RecordDenials bool `yaml:"record_denials"`
}

/*
====================================
SEARCH CONFIG
====================================
*/

// SearchConfig controls the global search.
type SearchConfig struct {
	Debounce   time.Duration `yaml:"debounce"`
	CorpusFile string        `yaml:"corpus_file"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls audit delivery.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
	// Echo mirrors every entry to the logger.
	Echo bool `yaml:"echo"`
	// Persist appends every entry to the audit log key in storage.
	Persist bool `yaml:"persist"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backends accepted by StorageConfig.Backend.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// StorageConfig selects where session state and the audit log persist.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPassword string `yaml:"redis_password"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the stock configuration: the "erp" key prefix, a
// one minute session check, a 300ms search debounce and the hr, finance,
// crm and billing modules.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			KeyPrefix:     "erp",
			CheckInterval: time.Minute,
			TokenFormat:   TokenFormatBase64JSON,
		},
		JWT: JWTConfig{
			SigningMethod: "hs256",
			TTL:           8 * time.Hour,
		},
		Router: RouterConfig{
			DefaultModule:  "hr",
			FragmentSource: FragmentSourceDir,
			FragmentDir:    "modules",
			Extension:      router.DefaultExtension,
			FetchTimeout:   10 * time.Second,
		},
		Search: SearchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
			Echo:       true,
			Persist:    true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Storage: StorageConfig{
			Backend: StorageMemory,
		},
		EventQueueSize: 256,
		Permissions:    []string{"hr.view", "finance.view", "crm.view"},
		Navigation: []permission.Affordance{
			{ID: "nav-hr", Module: "hr", Requirement: "hr.view", Placement: permission.PlacementSidebar, Label: "HR"},
			{ID: "nav-finance", Module: "finance", Requirement: "finance.view", Placement: permission.PlacementSidebar, Label: "Finance"},
			{ID: "nav-crm", Module: "crm", Requirement: "crm.view", Placement: permission.PlacementSidebar, Label: "CRM"},
			{ID: "nav-billing", Module: "billing", Placement: permission.PlacementSidebar, Label: "Billing"},
			{ID: "header-hr", Module: "hr", Requirement: "hr.view", Placement: permission.PlacementHeader, Label: "People"},
			{ID: "header-finance", Module: "finance", Requirement: "finance.view", Placement: permission.PlacementHeader, Label: "Invoices"},
			{ID: "header-crm", Module: "crm", Requirement: "crm.view", Placement: permission.PlacementHeader, Label: "Leads"},
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Permissions = slices.Clone(cfg.Permissions)
	out.Navigation = slices.Clone(cfg.Navigation)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, if any.
func (c *Config) Validate() error {
	// Session
	if strings.TrimSpace(c.Session.KeyPrefix) == "" {
		return errors.New("Session KeyPrefix must not be empty")
	}
	if c.Session.CheckInterval < 0 {
		return errors.New("Session CheckInterval must be >= 0")
	}
	switch c.Session.TokenFormat {
	case TokenFormatBase64JSON:
	case TokenFormatJWT:
		if err := c.JWT.validate(); err != nil {
			return err
		}
	default:
		return errors.New("Session TokenFormat must be 'base64json' or 'jwt'")
	}

	// Router
	if !router.ValidModuleName(c.Router.DefaultModule) {
		return fmt.Errorf("Router DefaultModule %q is not a valid module name", c.Router.DefaultModule)
	}
	switch c.Router.FragmentSource {
	case FragmentSourceDir:
		if strings.TrimSpace(c.Router.FragmentDir) == "" {
			return errors.New("Router FragmentDir is required for the dir fragment source")
		}
	case FragmentSourceHTTP:
		if strings.TrimSpace(c.Router.BaseURL) == "" {
			return errors.New("Router BaseURL is required for the http fragment source")
		}
	default:
		return errors.New("Router FragmentSource must be 'dir' or 'http'")
	}
	if c.Router.FetchTimeout <= 0 {
		return errors.New("Router FetchTimeout must be > 0")
	}

	// Search
	if c.Search.Debounce <= 0 {
		return errors.New("Search Debounce must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("Storage RedisAddr is required for the redis backend")
		}
		if c.Storage.RedisDB < 0 {
			return errors.New("Storage RedisDB must be >= 0")
		}
	default:
		return errors.New("Storage Backend must be 'memory' or 'redis'")
	}

	if c.EventQueueSize <= 0 {
		return errors.New("EventQueueSize must be > 0")
	}

	// Navigation
	seen := make(map[string]struct{}, len(c.Navigation))
	for _, a := range c.Navigation {
		if strings.TrimSpace(a.ID) == "" {
			return errors.New("Navigation affordance ID must not be empty")
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("Navigation affordance %q is duplicated", a.ID)
		}
		seen[a.ID] = struct{}{}
		if a.Module != "" && !router.ValidModuleName(a.Module) {
			return fmt.Errorf("Navigation affordance %q targets invalid module %q", a.ID, a.Module)
		}
		if a.Requirement != "" && len(c.Permissions) > 0 && !slices.Contains(c.Permissions, a.Requirement) {
			return fmt.Errorf("Navigation affordance %q requires unknown capability %q", a.ID, a.Requirement)
		}
	}

	return nil
}

func (j *JWTConfig) validate() error {
	switch j.SigningMethod {
	case "hs256":
		if j.Secret == "" && len(j.PrivateKey) == 0 {
			return errors.New("hs256 requires Secret or PrivateKey")
		}
	case "ed25519":
		if len(j.PublicKey) == 0 && j.PublicKeyFile == "" {
			return errors.New("ed25519 requires PublicKey or PublicKeyFile")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if j.TTL < 0 {
		return errors.New("JWT TTL must be >= 0")
	}
	return nil
}
