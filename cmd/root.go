// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/internal/config"
	"github.com/xkilldash9x/notecrawl/internal/observability"
)

const envPrefix = "NOTECRAWL"

// cli carries the state shared by one command tree.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger

	// newApp is swapped out in tests.
	newApp func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error)
}

// NewRootCommand builds a fresh command tree, so flags never leak between
// executions.
func NewRootCommand() *cobra.Command {
	c := &cli{v: viper.New(), newApp: newApp}
	return c.rootCommand()
}

func (c *cli) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "notecrawl",
		Short:         "notecrawl harvests notes and comments from xiaohongshu through a signed-in browser.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// This function runs before any command, setting up config and logging.
			if err := c.initializeConfig(cmd); err != nil {
				return err
			}
			observability.InitializeLogger(c.cfg.Logger())
			c.logger = observability.GetLogger()
			c.logger.Debug("Starting notecrawl", zap.String("version", Version))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().Bool("headless", false, "run the browser without a window")
	rootCmd.PersistentFlags().String("output-dir", "", "directory for saved data (default \"data\")")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newVersionCmd(),
		c.newLoginCmd(),
		c.newStatusCmd(),
		c.newSearchCmd(),
		c.newNoteCmd(),
		c.newCrawlCmd(),
		c.newSavedCmd(),
		c.newServeCmd(),
	)
	return rootCmd
}

// initializeConfig reads the config file and NOTECRAWL_* environment variables,
// applies flag overrides and validates the result.
func (c *cli) initializeConfig(cmd *cobra.Command) error {
	v := c.v
	config.SetDefaults(v)

	if c.cfgFile != "" {
		v.SetConfigFile(c.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}

	flags := cmd.Flags()
	if f := flags.Lookup("headless"); f != nil && f.Changed {
		v.Set("browser.headless", f.Value.String() == "true")
	}
	if f := flags.Lookup("output-dir"); f != nil && f.Changed {
		v.Set("storage.output_dir", f.Value.String())
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// Execute runs the command tree with ctx and logs a failure before returning it.
func Execute(ctx context.Context) error {
	return execute(ctx, NewRootCommand())
}

func execute(ctx context.Context, rootCmd *cobra.Command) error {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	if logger := observability.GetLogger(); logger != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Command execution failed", zap.Error(err))
	}
	fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	return err
}

// writeJSON prints v as indented JSON on out.
func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
