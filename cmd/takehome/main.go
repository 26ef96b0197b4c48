// Package main is the takehome binary: a console salary calculator, rule
// file tooling and the HTTP API server.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"takehome/internal/platform/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "takehome"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	global := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Take-home pay calculator",
		Long: `takehome turns a gross salary package into superannuation, levies,
income tax, net income and a per-period pay packet. Deductions come from
editable threshold rule files or the rule_sets table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&global.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&global.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		calcCmd(global),
		payslipCmd(global),
		rulesCmd(global),
		serveCmd(global),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// setup loads configuration and installs the default logger.
func (g *globalOptions) setup(stderr io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(g.configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cfg.LogLevel, stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel}))
}
