// Command goconsole drives the console runtime from a terminal: it issues
// development session tokens, ranks the search corpus, opens modules, dumps
// the audit log and serves fragments with a live shell for local work.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	redisAddr  string
	verbose    bool

	cfg    goConsole.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "goconsole",
		Short: "Operations console runtime",
		Long: `goconsole runs the console client runtime outside a browser.

Configuration is read from --config, then $` + goConsole.ConfigEnv + `, then
built-in defaults.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config := zap.NewProductionConfig()
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger

			cfg, err := goConsole.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.redisAddr, "redis", "", `redis address for persisted state, or "memory" for an embedded server`)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newTokenCmd(a),
		newSearchCmd(a),
		newNavigateCmd(a),
		newAuditCmd(a),
		newServeCmd(a),
	)
	return root
}

// openStorage resolves the persisted state backend from --redis and config.
// The returned cleanup releases any client or embedded server it started.
func (a *app) openStorage() (session.Storage, func(), error) {
	addr := a.redisAddr
	if addr == "" && a.cfg.Storage.Backend == goConsole.StorageRedis {
		addr = a.cfg.Storage.RedisAddr
	}
	if addr == "" {
		return session.NewMemoryStorage(), func() {}, nil
	}

	var embedded *miniredis.Miniredis
	if addr == "memory" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		embedded = mr
		addr = mr.Addr()
		a.logger.Info("embedded redis started", zap.String("addr", addr))
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       a.cfg.Storage.RedisDB,
		Password: a.cfg.Storage.RedisPassword,
	})
	cleanup := func() {
		_ = client.Close()
		if embedded != nil {
			embedded.Close()
		}
	}
	return session.NewRedisStorage(client), cleanup, nil
}

// buildShell assembles a Shell over storage with the stock HTML view.
func (a *app) buildShell(storage session.Storage, view goConsole.View, hooks goConsole.Hooks) (*goConsole.Shell, error) {
	return goConsole.New().
		WithConfig(a.cfg).
		WithStorage(storage).
		WithView(view).
		WithLogger(a.logger).
		WithHooks(hooks).
		Build()
}
