package main

import (
	"encoding/json"
	"fmt"

	"github.com/FranksOps/sift/internal/report"
	"github.com/FranksOps/sift/internal/storage/backends"
	"github.com/spf13/cobra"
)

func newSearchCommand() *cobra.Command {
	var (
		title  string
		kind   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and print the matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			table, err := cfg.Table()
			if err != nil {
				return err
			}
			cat, err := table.Lookup(kind)
			if err != nil {
				return err
			}

			agg, err := newAggregator(cfg)
			if err != nil {
				return err
			}

			res := agg.Search(ctx, title, cat)

			archive, err := backends.Open(ctx, cfg.Archive.Backend, cfg.Archive.DSN)
			if err != nil {
				return err
			}
			if archive != nil {
				defer archive.Close()
				if err := archive.Save(ctx, res.Archive()); err != nil {
					logger.Error("failed to archive search", "id", res.ID, "err", err)
				}
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res.Records)
			case "text":
				return report.WriteMatches(out, res.Archive())
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "title substring to match, case-insensitive")
	cmd.Flags().StringVar(&kind, "type", "", "category key, e.g. films or series")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or text")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
