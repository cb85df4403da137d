package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/adamwoolhether/artifactory/client"
)

var deployHelp = `
Upload one or more local files into REPO under the folder DEST.

Each file keeps its base name: "afctl deploy libs org/acme ./a.jar"
deploys libs/org/acme/a.jar. Files are uploaded concurrently; the first
failure cancels the remaining uploads.
`

type deployOptions struct {
	repo   string
	dest   string
	files  []string
	jobs   int
	logger *slog.Logger
}

func newDeployCmd(g *globalOptions, out io.Writer) *cobra.Command {
	o := &deployOptions{}

	cmd := &cobra.Command{
		Use:   "deploy REPO DEST FILE...",
		Short: "upload files",
		Long:  deployHelp,
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.repo, o.dest, o.files = args[0], args[1], args[2:]
			o.logger = g.logger
			return g.withClient(cmd, func(c *client.Client) error {
				return o.run(cmd.Context(), c, out)
			})
		},
	}

	cmd.Flags().IntVarP(&o.jobs, "jobs", "j", 4, "number of concurrent uploads")

	return cmd
}

func (o *deployOptions) run(ctx context.Context, c *client.Client, out io.Writer) error {
	if o.jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", o.jobs)
	}

	results := make([]client.Deployment, len(o.files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.jobs)
	for i, file := range o.files {
		g.Go(func() error {
			target := path.Join(o.dest, filepath.Base(file))

			d, err := deployFile(ctx, c, o.repo, target, file)
			if err != nil {
				return fmt.Errorf("deploy %s: %w", file, err)
			}
			o.logger.Info("deployed", "file", file, "repo", o.repo, "path", target)

			results[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, d := range results {
		fmt.Fprintf(out, "%s\t%s bytes\t%s\n", path.Join(d.Repo, d.Path), d.Size, d.Checksums["sha256"])
	}

	return nil
}

func deployFile(ctx context.Context, c *client.Client, repo, target, file string) (client.Deployment, error) {
	f, err := os.Open(file)
	if err != nil {
		return client.Deployment{}, err
	}
	defer f.Close()

	return c.DeployFile(ctx, repo, target, f)
}
