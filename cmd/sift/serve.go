package main

import (
	"context"

	"github.com/FranksOps/sift/internal/metrics"
	"github.com/FranksOps/sift/internal/server"
	"github.com/FranksOps/sift/internal/storage/backends"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve searches over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			table, err := cfg.Table()
			if err != nil {
				return err
			}

			agg, err := newAggregator(cfg)
			if err != nil {
				return err
			}

			archive, err := backends.Open(ctx, cfg.Archive.Backend, cfg.Archive.DSN)
			if err != nil {
				return err
			}
			if archive != nil {
				defer archive.Close()
				logger.Info("search archive enabled", "backend", cfg.Archive.Backend)
			}

			if cfg.Metrics.Addr != "" {
				ms := metrics.Start(cfg.Metrics.Addr, logger)
				defer func() { _ = ms.Stop(context.Background()) }()
			}

			srv := server.New(agg, server.Options{
				Categories:      table,
				Archive:         archive,
				Logger:          logger,
				ReadTimeout:     cfg.Server.ReadTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
