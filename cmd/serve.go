// File: cmd/serve.go
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/internal/mcp"
)

func (c *cli) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the browser and serves the crawl tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scfg := c.cfg.Server()
			if addr != "" {
				scfg.Addr = addr
			}

			a, err := c.newApp(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					c.logger.Warn("Failed to stop browser cleanly.", zap.Error(err))
				}
			}()

			// The tools report BROWSER_NOT_RUNNING until the browser is up.
			if err := a.svc.Start(ctx); err != nil {
				c.logger.Error("Browser failed to start; serving anyway.", zap.Error(err))
			}

			handlers := mcp.NewHandlers(c.logger, a.svc, c.cfg.Storage().OutputDir, c.cfg)
			return mcp.NewServer(scfg, handlers, c.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}
