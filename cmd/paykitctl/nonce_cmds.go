package main

import (
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/paykit/replay"
)

func newNonceCmd(a *app) *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Inspect and update the nonce replay ledger",
	}
	cmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "ledger namespace (default: first configured)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "new",
			Short: "Generate a random nonce",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := replay.NewNonce()
				if err != nil {
					return err
				}
				a.printf("%s\n", n)
				return nil
			},
		},
		newNonceCheckCmd(a, &namespace),
		&cobra.Command{
			Use:   "used <nonce>",
			Short: "Report whether a nonce has been used",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := a.guard(cmd.Context(), namespace)
				if err != nil {
					return err
				}
				used, err := g.IsUsed(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.printf("%t\n", used)
				return nil
			},
		},
		newNonceCleanupCmd(a, &namespace),
		&cobra.Command{
			Use:   "count",
			Short: "Print the number of ledger records",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := a.guard(cmd.Context(), namespace)
				if err != nil {
					return err
				}
				n, err := g.Count(cmd.Context())
				if err != nil {
					return err
				}
				a.printf("%d\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every record in the namespace",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := a.guard(cmd.Context(), namespace)
				if err != nil {
					return err
				}
				return g.Clear(cmd.Context())
			},
		},
		newNonceStatsCmd(a),
	)
	return cmd
}

func newNonceCheckCmd(a *app, namespace *string) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "check <nonce>",
		Short: "Check a nonce and mark it used; exits non-zero on replay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.guard(cmd.Context(), *namespace)
			if err != nil {
				return err
			}
			expiresAt := a.now().Add(ttl).Unix()
			if err := g.Consume(cmd.Context(), args[0], expiresAt); err != nil {
				if errors.Is(err, replay.ErrReplayDetected) {
					a.printf("replay\n")
				}
				return err
			}
			a.printf("fresh\n")
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "how long the nonce stays in the ledger")
	return cmd
}

func newNonceCleanupCmd(a *app, namespace *string) *cobra.Command {
	var (
		before int64
		watch  bool
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.guard(cmd.Context(), *namespace)
			if err != nil {
				return err
			}
			if watch {
				return a.watchCleanup(cmd)
			}
			if before == 0 {
				before = a.now().Unix()
			}
			removed, err := g.CleanupExpired(cmd.Context(), before)
			if err != nil {
				return err
			}
			a.printf("%d\n", removed)
			return nil
		},
	}
	cmd.Flags().Int64Var(&before, "before", 0, "remove records expiring before this unix time (default now)")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running, sweeping every configured namespace each cleanup_interval")
	return cmd
}

// watchCleanup runs a periodic sweep for every namespace until interrupted.
func (a *app) watchCleanup(cmd *cobra.Command) error {
	sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.WithField("interval", a.cfg.Replay.CleanupInterval).Info("Starting periodic nonce cleanup")
	group, ctx := errgroup.WithContext(sigCtx)
	for _, g := range a.guards {
		g := g
		group.Go(func() error {
			return g.RunCleanup(ctx, a.cfg.Replay.CleanupInterval)
		})
	}
	err := group.Wait()
	if sigCtx.Err() != nil {
		a.logger.Info("Periodic nonce cleanup stopped")
		return nil
	}
	return err
}

func newNonceStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print record counts per namespace and replay metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openGuards(cmd.Context()); err != nil {
				return err
			}
			for _, ns := range a.cfg.Replay.Namespaces {
				n, err := a.guards[ns].Count(cmd.Context())
				if err != nil {
					return fmt.Errorf("namespace %s: %w", ns, err)
				}
				a.printf("namespace=%s records=%d\n", ns, n)
			}
			return a.printMetrics()
		},
	}
}

func (a *app) printMetrics() error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			default:
				continue
			}
			name := mf.GetName()
			if pairs := m.GetLabel(); len(pairs) > 0 {
				labels := make([]string, 0, len(pairs))
				for _, lp := range pairs {
					labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
				}
				name += "{" + strings.Join(labels, ",") + "}"
			}
			a.printf("%s %g\n", name, v)
		}
	}
	return nil
}
