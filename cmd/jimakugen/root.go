package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"jimakugen/internal/config"
	"jimakugen/pkg/log"
)

// commandContext carries the flags and lazily loaded configuration shared
// by all subcommands.
type commandContext struct {
	configPath string
	verbose    bool

	cfg *config.Config
}

// ensureConfig loads the configuration once, layering the TOML file and
// environment over the defaults and applying global flags.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	// A .env next to the binary is a convenience for GEMINI_API_KEY.
	_ = godotenv.Load()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	log.InitLogger(log.ParseLevel(cfg.Log.Level))
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err == nil {
			if f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
				log.GetLogger().SetOutput(f)
			} else {
				log.Warn("Cannot log to %s: %v", cfg.Log.File, err)
			}
		}
	}

	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "jimakugen",
		Short:         "Generate Japanese subtitles from a video's audio and English subtitle track",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newDaemonCommand(ctx))
	rootCmd.AddCommand(newContextCommand(ctx))

	return rootCmd
}
