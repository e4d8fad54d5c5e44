package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeline/forgeline/config"
	"github.com/forgeline/forgeline/internal"
	"github.com/forgeline/forgeline/logging"
)

var (
	cfgFile    string
	logLevel   string
	noCache    bool
	model      string
	serviceURL string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "forgeline",
	Short: "Local model assistance for project scaffolding",
	Long: `forgeline answers build and scaffolding questions with a locally
running Ollama model. Responses are cached on disk, the service is probed
before every request, and outages degrade to static guidance instead of
errors.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .forgeline.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "model to use instead of the configured default")
	rootCmd.PersistentFlags().StringVar(&serviceURL, "service-url", "", "Ollama server address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-request timeout (e.g. 30s)")
}

// loadConfiguration layers defaults, the config file, environment variables
// and command line flags, in that order.
func loadConfiguration() (*config.Config, error) {
	loader := config.NewLoader()

	if cfgFile != "" {
		loader.AddSource(config.NewFileSource(cfgFile))
	} else {
		for _, path := range config.ConfigPaths() {
			if _, err := os.Stat(path); err == nil {
				loader.AddSource(config.NewFileSource(path))
				break
			}
		}
	}

	loader.AddSource(config.NewEnvSource(config.EnvPrefix))
	loader.AddSource(config.NewFlagSource(rootCmd.PersistentFlags()))
	loader.AddValidator(config.NewStandardValidator())

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	// Bool flags bypass the sparse merge.
	if noCache {
		cfg.Cache.Enabled = false
	}

	return cfg, nil
}

// newApp builds the application and installs the global logger.
func newApp() (*internal.App, error) {
	cfg, err := loadConfiguration()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logging.InitGlobalLogger(cfg.App.LogLevel, cfg.App.LogFile); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return internal.NewApp(cfg)
}
