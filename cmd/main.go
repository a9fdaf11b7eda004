package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"clinic/internal/catalog"
	"clinic/internal/config"
	"clinic/internal/logging"

	_ "clinic/docs"
)

var (
	cfg    = config.Load()
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clinic",
	Short: "Clinic service-order pricing and completion service",
	Long: `Manages dental clinic service orders: material selection, intake forms,
live pricing and validated completion with a frozen total.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.LogLevel, _ = flags.GetString("log-level")
		}
		if flags.Changed("log-format") {
			cfg.LogFormat, _ = flags.GetString("log-format")
		}
		if flags.Changed("catalog") {
			cfg.CatalogPath, _ = flags.GetString("catalog")
		}

		l, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		logger = l
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.String("log-format", cfg.LogFormat, "log format (json, text)")
	pf.String("catalog", cfg.CatalogPath, "TOML catalog file; built-in catalog when empty")
}

// loadCatalog returns the configured catalog.
func loadCatalog() (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogPath, err)
	}
	logger.WithField("path", cfg.CatalogPath).Info("Catalog loaded")
	return c, nil
}

// @title Clinic Orders API
// @version 1.0
// @description Service orders, material selection, pricing and completion for a dental clinic.
// @BasePath /api/v1
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
