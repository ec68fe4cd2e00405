package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/loom/internal/demo"
	"github.com/vango-dev/loom/pkg/export"
	"github.com/vango-dev/loom/pkg/fiber"
	"github.com/vango-dev/loom/pkg/surface/memdom"
)

func renderCmd(g *globalFlags) *cobra.Command {
	var (
		tree   bool
		dom    bool
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "render [app]",
		Short: "Print a demo's HTML or fiber tree",
		Long: `Render a demo application once and print the result.

By default the full HTML page is printed. --tree prints the committed
fiber tree instead, and --dom prints the host node tree.

Examples:
  loom render
  loom render todo --pretty
  loom render counter --tree`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "counter"
			if len(args) == 1 {
				name = args[0]
			}
			app, err := demo.Lookup(name)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			opts := fiberOptions(cfg, g, cmd)

			out := cmd.OutOrStdout()
			if tree || dom {
				return printTrees(out, app, opts, tree, dom)
			}
			html, err := export.Render(app(), export.Options{
				Title:  name,
				Pretty: pretty,
				Engine: opts,
			})
			if err != nil {
				return err
			}
			_, err = out.Write(html)
			return err
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "Print the fiber tree")
	cmd.Flags().BoolVar(&dom, "dom", false, "Print the host node tree")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the HTML output")

	return cmd
}

// printTrees renders app into an in-memory document and prints the
// requested dumps.
func printTrees(w io.Writer, app demo.App, opts fiber.Options, tree, dom bool) error {
	doc := memdom.New()
	body := doc.NewRoot("body")
	eng := fiber.New(doc, opts)
	defer eng.Close()

	if err := eng.Render(app(), body); err != nil {
		return err
	}
	if err := eng.Flush(); err != nil {
		return err
	}
	if tree {
		fmt.Fprint(w, fiber.Dump(eng.Current()))
	}
	if dom {
		fmt.Fprint(w, memdom.Dump(body))
	}
	return nil
}
