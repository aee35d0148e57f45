// File: cmd/login.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/api/schemas"
	"github.com/xkilldash9x/notecrawl/internal/auth"
	"github.com/xkilldash9x/notecrawl/internal/browser"
)

func (c *cli) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Opens a browser window to sign in by hand and saves the cookies",
		Long: `Opens the explore page in a visible browser window. Sign in there, for
example by scanning the QR code; once the profile link appears the session
cookies are saved and reused by every other command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			bcfg := c.cfg.Browser()
			// Signing in needs a window.
			bcfg.Headless = false

			session, err := browser.NewLauncher(bcfg, c.logger).Launch(ctx)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer func() {
				if err := session.Close(context.Background()); err != nil {
					c.logger.Warn("Failed to close browser.", zap.Error(err))
				}
			}()

			prober := auth.NewProber(c.cfg.Fetch().PageLoadTimeout, c.cfg.Session().LoginProbeWait, c.logger)
			fmt.Fprintf(cmd.ErrOrStderr(), "Sign in in the browser window within %s...\n", c.cfg.Session().LoginWait)
			if err := prober.Login(ctx, session, c.cfg.Session().LoginWait); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), schemas.SessionStatus{
				LoggedIn:       true,
				BrowserRunning: true,
				Message:        "Signed in; cookies saved to " + bcfg.AuthStatePath,
			})
		},
	}
}
