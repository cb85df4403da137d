package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/artifactory/client"
)

func newPingCmd(g *globalOptions, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "check that the server is healthy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withClient(cmd, func(c *client.Client) error {
				resp, err := c.Ping(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, resp)
				return nil
			})
		},
	}
}

func newSysInfoCmd(g *globalOptions, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "sysinfo",
		Short: "print the server's system information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withClient(cmd, func(c *client.Client) error {
				info, err := c.SystemInfo(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(out, info)
				if !strings.HasSuffix(info, "\n") {
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
}

type versionOptions struct {
	outfmt string
}

func newVersionCmd(g *globalOptions, out io.Writer) *cobra.Command {
	o := &versionOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "print the server's version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withClient(cmd, func(c *client.Client) error {
				return o.run(cmd.Context(), c, out)
			})
		},
	}

	cmd.Flags().StringVarP(&o.outfmt, "output", "o", "", "output format: json")

	return cmd
}

func (o *versionOptions) run(ctx context.Context, c *client.Client, out io.Writer) error {
	v, err := c.Version(ctx)
	if err != nil {
		return err
	}

	switch o.outfmt {
	case "":
		fmt.Fprintf(out, "Version:  %s\n", v.Version)
		fmt.Fprintf(out, "Revision: %s\n", v.Revision)
		fmt.Fprintf(out, "License:  %s\n", v.License)
		if len(v.Addons) > 0 {
			fmt.Fprintf(out, "Addons:   %s\n", strings.Join(v.Addons, ", "))
		}
		return nil
	case "json":
		return writeJSON(out, v)
	default:
		return fmt.Errorf("unknown output format %q", o.outfmt)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	return nil
}
