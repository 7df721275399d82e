package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/paykit/config"
	"github.com/opd-ai/paykit/kvstore"
	"github.com/opd-ai/paykit/metrics"
	"github.com/opd-ai/paykit/replay"
)

// app is the composition root shared by every command.
type app struct {
	out        io.Writer
	configPath string
	envFiles   []string

	cfg      *config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	metrics  *metrics.Replay
	store    kvstore.Store
	guards   map[string]*replay.Guard
	clock    replay.TimeProvider
}

func newApp(out io.Writer) *app {
	return &app{
		out:      out,
		envFiles: []string{".env"},
		logger:   logrus.New(),
		guards:   make(map[string]*replay.Guard),
		clock:    replay.DefaultTimeProvider{},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "paykitctl",
		Short:         "Paykit addressing and replay-ledger tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (env PAYKIT_CONFIG)")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", a.envFiles, "dotenv files loaded before config")

	root.AddCommand(
		newNormalizeCmd(a),
		newScopeCmd(a),
		newContextCmd(a),
		newPathCmd(a),
		newAADCmd(a),
		newNonceCmd(a),
		newNoiseCmd(a),
		newIDCmd(a),
	)
	return root
}

func (a *app) init() error {
	loaded, err := config.LoadDotEnv(a.envFiles...)
	if err != nil {
		return err
	}
	path := a.configPath
	if path == "" {
		path, _ = lookupEnv("PAYKIT_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ConfigureLogger(a.logger); err != nil {
		return err
	}
	a.cfg = cfg

	a.registry = prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewReplay(cfg.Metrics.Namespace)
		if err := a.metrics.Register(a.registry); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	a.logger.WithFields(logrus.Fields{
		"config":    path,
		"env_files": loaded,
		"driver":    cfg.Store.Driver,
		"version":   cfg.Protocol.Version,
	}).Debug("Configuration loaded")
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.guards = make(map[string]*replay.Guard)
	return err
}

// openGuards opens the store on first use, builds a guard per configured
// namespace and sweeps expired records from all of them.
func (a *app) openGuards(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	store, err := kvstore.New(a.cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = store

	entry := logrus.NewEntry(a.logger)
	all := make([]*replay.Guard, 0, len(a.cfg.Replay.Namespaces))
	for _, ns := range a.cfg.Replay.Namespaces {
		g, err := replay.NewGuard(store, ns,
			replay.WithMaxRecords(a.cfg.Replay.MaxRecords),
			replay.WithTimeProvider(a.clock),
			replay.WithLogger(entry),
			replay.WithMetrics(a.metrics),
		)
		if err != nil {
			return err
		}
		a.guards[ns] = g
		all = append(all, g)
	}

	removed, err := replay.CleanupAll(ctx, a.clock.Now().Unix(), all...)
	if err != nil {
		a.logger.WithError(err).Warn("Startup nonce cleanup failed")
		return err
	}
	a.logger.WithField("removed", removed).Debug("Startup nonce cleanup complete")
	return nil
}

func (a *app) guard(ctx context.Context, namespace string) (*replay.Guard, error) {
	if err := a.openGuards(ctx); err != nil {
		return nil, err
	}
	if namespace == "" {
		namespace = a.cfg.Replay.Namespaces[0]
	}
	g, ok := a.guards[namespace]
	if !ok {
		return nil, fmt.Errorf("namespace %q is not configured (have %v)", namespace, a.cfg.Replay.Namespaces)
	}
	return g, nil
}

func (a *app) now() time.Time { return a.clock.Now() }

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func lookupEnv(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
