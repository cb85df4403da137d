package main

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/artifactory/client"
	"github.com/adamwoolhether/artifactory/client/download"
)

type downloadOptions struct {
	repo         string
	path         string
	dest         string
	verify       bool
	skipExisting bool
	progress     bool
}

func newDownloadCmd(g *globalOptions, out io.Writer) *cobra.Command {
	o := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download REPO PATH [DEST]",
		Short: "download a file",
		Long:  "Download a file. DEST defaults to the file's base name in the current directory.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.repo, o.path = args[0], args[1]
			o.dest = path.Base(o.path)
			if len(args) == 3 {
				o.dest = args[2]
			}
			return g.withClient(cmd, func(c *client.Client) error {
				return o.run(cmd.Context(), c, out)
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&o.verify, "verify", true, "verify the content against the server's checksums")
	f.BoolVar(&o.skipExisting, "skip-existing", false, "do nothing if DEST already exists")
	f.BoolVar(&o.progress, "progress", false, "log download progress")

	return cmd
}

func (o *downloadOptions) run(ctx context.Context, c *client.Client, out io.Writer) error {
	var opts []client.DownloadOption
	if o.skipExisting {
		opts = append(opts, download.WithSkipExisting())
	}
	if o.progress {
		opts = append(opts, download.WithProgress())
	}

	if err := c.Download(ctx, o.repo, o.path, o.dest, o.verify, opts...); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s/%s -> %s\n", o.repo, o.path, o.dest)

	return nil
}
