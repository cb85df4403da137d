package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newConfigCmd(g *globalOptions, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "inspect the afctl configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config(cmd)
			if err != nil {
				return err
			}

			b, err := cfg.TOML()
			if err != nil {
				return err
			}

			_, err = out.Write(b)
			return err
		},
	})

	return cmd
}
