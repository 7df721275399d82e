package main

import (
	"encoding/hex"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/opd-ai/paykit/noiseendpoint"
)

func newNoiseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noise",
		Short: "Noise endpoint records",
	}

	var (
		host       string
		port       uint16
		secretFile string
	)
	keygen := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a static key and print the endpoint record to publish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := noiseendpoint.GenerateStaticKey()
			if err != nil {
				return err
			}
			defer key.Wipe()

			e, err := key.Endpoint(host, port)
			if err != nil {
				return err
			}
			record, err := noiseendpoint.Encode(e)
			if err != nil {
				return err
			}
			if secretFile != "" {
				if err := os.WriteFile(secretFile, []byte(hex.EncodeToString(key.Private)+"\n"), 0o600); err != nil {
					return err
				}
				a.logger.WithField("file", secretFile).Info("Static secret key written")
			}
			a.printf("%s\n%s\n", e.Path(), record)
			return nil
		},
	}
	keygen.Flags().StringVar(&host, "host", "127.0.0.1", "advertised host")
	keygen.Flags().Uint16Var(&port, "port", 9735, "advertised port")
	keygen.Flags().StringVar(&secretFile, "secret-file", "", "write the hex secret key to this file (0600)")

	inspect := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Validate a fetched endpoint record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			e, err := noiseendpoint.Decode(data)
			if err != nil {
				return err
			}
			a.printf("address=%s public_key=%s version=%d\n", e.Address(), e.PublicKey, e.Version)
			return nil
		},
	}

	cmd.AddCommand(keygen, inspect)
	return cmd
}

func newIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Generate a random object id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printf("%s\n", uuid.NewString())
			return nil
		},
	}
}
