package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opd-ai/paykit/addressing"
	"github.com/opd-ai/paykit/identity"
)

func newNormalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <id>",
		Short: "Normalize a public-key identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identity.Normalize(args[0])
			if err != nil {
				return err
			}
			a.printf("%s\n", id)
			return nil
		},
	}
}

func newScopeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scope <id>",
		Short: "Print the v1 recipient scope of an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := addressing.RecipientScope(args[0])
			if err != nil {
				return err
			}
			a.printf("%s\n", scope)
			return nil
		},
	}
}

func newContextCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "context <id> <id>",
		Short: "Print the v2 context id of a pair of identifiers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctxID, err := addressing.ContextID(args[0], args[1])
			if err != nil {
				return err
			}
			a.printf("%s\n", ctxID)
			return nil
		},
	}
}

// pathFlags are shared by the path and aad commands.
type pathFlags struct {
	version    string
	sender     string
	recipient  string
	id         string
	objectType string
	dir        bool
}

func (f *pathFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.version, "version", "", "addressing version v1|v2 (default from config)")
	cmd.Flags().StringVar(&f.sender, "sender", "", "sender identifier")
	cmd.Flags().StringVar(&f.recipient, "recipient", "", "recipient identifier")
	cmd.Flags().StringVar(&f.id, "id", "", "object id")
	cmd.Flags().StringVar(&f.objectType, "type", "", "acknowledged object type (ack only)")
}

func (f *pathFlags) strategy(a *app) (addressing.Strategy, error) {
	if f.version == "" {
		return a.cfg.Strategy()
	}
	v, err := addressing.ParseVersion(f.version)
	if err != nil {
		return nil, err
	}
	return addressing.StrategyFor(v)
}

// build returns the path of kind for the flag values.
func (f *pathFlags) build(a *app, kind string) (string, error) {
	if kind == "noise" {
		return addressing.NoisePath(), nil
	}
	if kind == "handoff" {
		if f.dir {
			return addressing.HandoffDir(), nil
		}
		return addressing.HandoffPath(f.id)
	}

	s, err := f.strategy(a)
	if err != nil {
		return "", err
	}
	switch kind {
	case "request":
		if f.dir {
			return addressing.RequestDirFor(s, f.sender, f.recipient)
		}
		return addressing.RequestPathFor(s, f.sender, f.recipient, f.id)
	case "proposal":
		if f.dir {
			return addressing.SubscriptionProposalDirFor(s, f.sender, f.recipient)
		}
		return addressing.SubscriptionProposalPathFor(s, f.sender, f.recipient, f.id)
	case "ack":
		if f.dir {
			segment, err := s.Segment(f.sender, f.recipient)
			if err != nil {
				return "", err
			}
			return addressing.AckDir(f.objectType, segment)
		}
		return addressing.AckPathFor(s, f.objectType, f.sender, f.recipient, f.id)
	default:
		return "", fmt.Errorf("unknown path kind %q (request|proposal|ack|handoff|noise)", kind)
	}
}

func newPathCmd(a *app) *cobra.Command {
	var f pathFlags
	cmd := &cobra.Command{
		Use:       "path <request|proposal|ack|handoff|noise>",
		Short:     "Build a storage path",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"request", "proposal", "ack", "handoff", "noise"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := f.build(a, args[0])
			if err != nil {
				return err
			}
			a.printf("%s\n", p)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&f.dir, "dir", false, "print the listing path instead of an object path")
	return cmd
}

var kindPurposes = map[string]addressing.Purpose{
	"request":  addressing.PurposeRequest,
	"proposal": addressing.PurposeSubscriptionProposal,
	"ack":      addressing.PurposeAck,
	"handoff":  addressing.PurposeHandoff,
}

func newAADCmd(a *app) *cobra.Command {
	var f pathFlags
	cmd := &cobra.Command{
		Use:   "aad <request|proposal|ack|handoff>",
		Short: "Build the AAD string for an object; the owner is the sender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			purpose, ok := kindPurposes[args[0]]
			if !ok {
				return fmt.Errorf("%w: %q", addressing.ErrInvalidPurpose, args[0])
			}
			p, err := f.build(a, args[0])
			if err != nil {
				return err
			}
			s, err := f.strategy(a)
			if err != nil {
				return err
			}
			aad, err := s.AAD(purpose, f.sender, p, f.id)
			if err != nil {
				return err
			}
			a.printf("%s\n", aad)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}
