package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/qepting91/idea-collector/internal/dashboard"
	"github.com/qepting91/idea-collector/internal/logger"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run dashboard over the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.outDir
			if dir == "" {
				run, err := a.runSettings()
				if err != nil {
					return err
				}
				dir = run.OutDir
			}

			srv := dashboard.NewServer(dir, a.cfg.DashboardAddr, a.log)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				a.log.Error("dashboard shutdown failed", logger.Error(err))
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&a.cfg.DashboardAddr, "addr", a.cfg.DashboardAddr, "listen address")
	return cmd
}
