package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/artifactory/client"
)

var infoHelp = `
Show the storage info of a repository, folder or file.

With only REPO the repository root is described.
`

type infoOptions struct {
	repo   string
	path   string
	outfmt string
}

func newInfoCmd(g *globalOptions, out io.Writer) *cobra.Command {
	o := &infoOptions{}

	cmd := &cobra.Command{
		Use:   "info REPO [PATH]",
		Short: "show item info",
		Long:  infoHelp,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.repo = args[0]
			if len(args) == 2 {
				o.path = args[1]
			}
			return g.withClient(cmd, func(c *client.Client) error {
				return o.run(cmd.Context(), c, out)
			})
		},
	}

	cmd.Flags().StringVarP(&o.outfmt, "output", "o", "", "output format: json")

	return cmd
}

// itemView is the printable form of an item.
type itemView struct {
	Repo      string            `json:"repo"`
	Path      string            `json:"path"`
	Type      string            `json:"type"`
	Created   time.Time         `json:"created"`
	Modified  time.Time         `json:"lastModified"`
	Updated   time.Time         `json:"lastUpdated"`
	Folders   []string          `json:"folders,omitempty"`
	Files     []string          `json:"files,omitempty"`
	Size      int64             `json:"size,omitempty"`
	MimeType  string            `json:"mimeType,omitempty"`
	Checksums map[string]string `json:"checksums,omitempty"`
}

func (o *infoOptions) run(ctx context.Context, c *client.Client, out io.Writer) error {
	info, err := c.GetItemInfo(ctx, o.repo, o.path)
	if err != nil {
		return err
	}

	v := itemView{
		Repo:      info.Repo,
		Path:      info.Path,
		Type:      "file",
		Created:   info.Created,
		Modified:  info.Modified,
		Updated:   info.Updated,
		Folders:   info.DirChildren,
		Files:     info.FileChildren,
		Size:      info.Size,
		MimeType:  info.MimeType,
		Checksums: info.Checksums,
	}
	if info.IsDir() {
		v.Type = "folder"
	}

	switch o.outfmt {
	case "":
		printItem(out, v)
		return nil
	case "json":
		return writeJSON(out, v)
	default:
		return fmt.Errorf("unknown output format %q", o.outfmt)
	}
}

func printItem(out io.Writer, v itemView) {
	fmt.Fprintf(out, "%s/%s (%s)\n", v.Repo, v.Path, v.Type)
	if !v.Created.IsZero() {
		fmt.Fprintf(out, "  created:  %s\n", v.Created.Format(time.RFC3339))
	}
	if !v.Modified.IsZero() {
		fmt.Fprintf(out, "  modified: %s\n", v.Modified.Format(time.RFC3339))
	}

	if v.Type == "folder" {
		for _, d := range v.Folders {
			fmt.Fprintf(out, "  %s/\n", d)
		}
		for _, f := range v.Files {
			fmt.Fprintf(out, "  %s\n", f)
		}
		return
	}

	fmt.Fprintf(out, "  size:     %d\n", v.Size)
	fmt.Fprintf(out, "  mimeType: %s\n", v.MimeType)
	for _, algo := range []string{"md5", "sha1", "sha256"} {
		if sum, ok := v.Checksums[algo]; ok {
			fmt.Fprintf(out, "  %-8s  %s\n", algo+":", sum)
		}
	}
}

func newDeleteCmd(g *globalOptions, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "delete REPO PATH",
		Short: "delete a file or folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withClient(cmd, func(c *client.Client) error {
				if _, err := c.DeleteItem(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted %s/%s\n", args[0], args[1])
				return nil
			})
		},
	}
}
