// Package main is the mrcprep command line tool. It prepares long-document
// machine reading comprehension training records read as newline-delimited
// JSON on stdin and writes the transformed records to stdout.
//
//	mrcprep window 500 < train.json > train.windowed.json
//	mrcprep ner --endpoint http://localhost:8080/tag < train.windowed.json > train.ner.json
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mrc_prep/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	slog.SetDefault(newLogger(config.LoggingConfig{Level: "info", Format: "json"}, os.Stderr))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "mrcprep",
		Short:        "Prepare long-document MRC training records",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("MRCPREP_CONFIG"), "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")

	rootCmd.AddCommand(
		buildWindowCmd(opts),
		buildNERCmd(opts),
		buildVersionCmd(),
	)
	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mrcprep %s (commit: %s)\n", version, commit)
		},
	}
}

// loadConfig reads the configuration and installs the configured logger.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.logLevel) != "" {
		cfg.Logging.Level = opts.logLevel
	}
	slog.SetDefault(newLogger(cfg.Logging, cmd.ErrOrStderr()))
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}
