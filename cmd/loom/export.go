package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vango-dev/loom/internal/config"
	"github.com/vango-dev/loom/internal/demo"
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/export"
)

func exportCmd(g *globalFlags) *cobra.Command {
	var (
		key    string
		out    string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "export [app]",
		Short: "Write a static snapshot of a demo",
		Long: `Render a demo application once and store the HTML.

Snapshots are written to the export directory (export.dir, default
"dist"), or to S3 when export.s3Bucket is configured.

Examples:
  loom export
  loom export todo --key=index.html
  loom export counter --out=public`,
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
			if out != "" {
				cfg.Export.Dir = out
				cfg.Export.S3Bucket = ""
			}
			if key == "" {
				key = name + ".html"
			}

			store, where, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			err = export.Snapshot(cmd.Context(), store, key, app(), export.Options{
				Title:  name,
				Pretty: pretty,
				Engine: fiberOptions(cfg, g, cmd),
			})
			if err != nil {
				return errors.New("E031").WithDetailf("%s to %s", key, where).Wrap(err)
			}
			success(cmd.OutOrStdout(), "Exported %s to %s", key, where)
			return nil
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Object key or file name (default: <app>.html)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this directory instead of the configured store")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the HTML output")

	return cmd
}

// openStore returns the configured snapshot store and a description of
// where it writes.
func openStore(ctx context.Context, cfg *config.Config) (export.Store, string, error) {
	if cfg.Export.S3Bucket != "" {
		client, err := export.NewS3Client(ctx, cfg.Export.S3Region)
		if err != nil {
			return nil, "", errors.New("E031").WithDetail("cannot configure s3 client").Wrap(err)
		}
		store := export.NewS3Store(client, cfg.Export.S3Bucket, cfg.Export.S3Prefix)
		return store, "s3://" + cfg.Export.S3Bucket + "/" + cfg.Export.S3Prefix, nil
	}
	dir := cfg.ExportPath()
	store, err := export.NewFileStore(dir)
	if err != nil {
		return nil, "", errors.New("E031").WithDetail("cannot create " + dir).Wrap(err)
	}
	return store, dir, nil
}
