package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/artifactory/client"
	"github.com/adamwoolhether/artifactory/client/props"
)

func newPropsCmd(g *globalOptions, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "props",
		Short: "get or set item properties",
	}

	cmd.AddCommand(
		newPropsGetCmd(g, out),
		newPropsSetCmd(g, out),
	)

	return cmd
}

func newPropsGetCmd(g *globalOptions, out io.Writer) *cobra.Command {
	var outfmt string

	cmd := &cobra.Command{
		Use:   "get REPO PATH",
		Short: "print the properties of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withClient(cmd, func(c *client.Client) error {
				p, err := c.GetProperties(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}

				switch outfmt {
				case "":
					keys := make([]string, 0, len(p))
					for k := range p {
						keys = append(keys, k)
					}
					slices.Sort(keys)
					for _, k := range keys {
						fmt.Fprintf(out, "%s=%s\n", k, strings.Join(p[k], ","))
					}
					return nil
				case "json":
					return writeJSON(out, p)
				default:
					return fmt.Errorf("unknown output format %q", outfmt)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&outfmt, "output", "o", "", "output format: json")

	return cmd
}

var propsSetHelp = `
Attach properties to an item. Each PROPERTY is "key=value" or
"key=v1,v2" for a list; a literal "," "=" or "|" is escaped with a
backslash. Several properties can also be given at once separated by ";".

	afctl props set libs org/acme/app build.number=42 'tags=stable,lts'
`

type propsSetOptions struct {
	repo      string
	path      string
	props     props.Properties
	recursive bool
}

func newPropsSetCmd(g *globalOptions, out io.Writer) *cobra.Command {
	o := &propsSetOptions{}

	cmd := &cobra.Command{
		Use:   "set REPO PATH PROPERTY...",
		Short: "set properties on an item",
		Long:  propsSetHelp,
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.repo, o.path = args[0], args[1]

			p, err := parseProperties(args[2:])
			if err != nil {
				return err
			}
			o.props = p

			return g.withClient(cmd, func(c *client.Client) error {
				return o.run(cmd.Context(), c, out)
			})
		},
	}

	cmd.Flags().BoolVarP(&o.recursive, "recursive", "r", false, "apply to every item below a folder")

	return cmd
}

func (o *propsSetOptions) run(ctx context.Context, c *client.Client, out io.Writer) error {
	if err := c.SetProperties(ctx, o.repo, o.path, o.props, o.recursive); err != nil {
		return err
	}

	fmt.Fprintf(out, "set %d properties on %s/%s\n", len(o.props), o.repo, o.path)

	return nil
}

// parseProperties merges the wire-form arguments into one set. A single
// value stays a scalar.
func parseProperties(args []string) (props.Properties, error) {
	out := make(props.Properties)
	for _, arg := range args {
		parsed, err := props.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid property %q: %w", arg, err)
		}
		for k, v := range parsed {
			if len(v) == 1 {
				out[k] = v[0]
				continue
			}
			out[k] = v
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no properties given")
	}

	return out, nil
}
