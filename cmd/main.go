package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/blobstream/config"
	"github.com/angeloszaimis/blobstream/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "blobstream",
		Short:         "Range-aware chunked streaming of stored media over HTTP",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./config/config.yaml or ./config.yaml)")

	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newRegisterCommand(&configPath))

	return root
}

// loadConfig reads the configuration and builds the logger every command
// uses.
func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:       cfg.Logging.Level,
		Environment: cfg.Server.Environment,
		AddSource:   cfg.Logging.AddSource,
	})

	return cfg, log, nil
}
