package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/FranksOps/sift/internal/report"
	"github.com/FranksOps/sift/internal/storage"
	"github.com/FranksOps/sift/internal/storage/backends"
	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		filter storage.Filter
		since  time.Duration
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarize archived searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := backends.Open(cmd.Context(), cfg.Archive.Backend, cfg.Archive.DSN)
			if err != nil {
				return err
			}
			if archive == nil {
				return errors.New("search archive is disabled; set archive.backend")
			}
			defer archive.Close()

			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}

			records, err := archive.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			summary := report.GenerateSummary(records)
			switch format {
			case "text":
				if err := report.WriteText(out, summary); err != nil {
					return err
				}
				for _, r := range records {
					fmt.Fprintf(out, "\n%s  %s\n", r.CreatedAt.Format(time.RFC3339), r.ID)
					if err := report.WriteMatches(out, r); err != nil {
						return err
					}
				}
				return nil
			case "json":
				return report.WriteJSON(out, summary)
			case "html":
				return report.WriteHTML(out, summary)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&filter.Category, "type", "", "only searches of this category")
	cmd.Flags().StringVar(&filter.Title, "title", "", "only searches whose query contains this")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum searches to include")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "searches to skip, newest first")
	cmd.Flags().DurationVar(&since, "since", 0, "only searches newer than this, e.g. 24h")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or html")
	return cmd
}
