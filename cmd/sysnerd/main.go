// Package main provides the sysNERD CLI entry point.
//
// sysNERD is a terminal assistant that diagnoses Linux problems by driving
// a local Ollama model through a bounded loop of shell-command executions,
// then summarizes using only the observed output.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sysnerd/internal/agent"
	"sysnerd/internal/config"
	"sysnerd/internal/executor"
	"sysnerd/internal/gateway"
	"sysnerd/internal/logging"
	"sysnerd/internal/safety"
)

var (
	flagConfig   string
	flagModel    string
	flagBaseURL  string
	flagDryRun   bool
	flagLogLevel string
	flagMaxExec  string
	flagQuery    string
)

var rootCmd = &cobra.Command{
	Use:   "sysnerd",
	Short: "sysNERD - Linux diagnostic assistant driven by a local Ollama model",
	Long: `sysNERD turns a natural-language problem description into a bounded
sequence of diagnostic shell commands, executed locally under safety and
timeout constraints, and answers with a summary grounded strictly in the
observed command output.

Run without arguments for an interactive session, or use --query for a
single-shot diagnosis.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Path to a yaml config file")
	rootCmd.Flags().StringVar(&flagModel, "model", "", "Ollama model to use (default mistral:latest)")
	rootCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "Ollama base URL (default http://localhost:11434)")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Don't actually execute commands, just show what would be run")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warning, error")
	rootCmd.Flags().StringVar(&flagMaxExec, "max-execution-time", "", "Maximum duration for a single command (e.g. 30s)")
	rootCmd.Flags().StringVar(&flagQuery, "query", "", "Run a single query instead of interactive mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLogs, err := logging.New(logging.Options{
		Level: cfg.Logging.Level,
		Dir:   cfg.Logging.Dir,
		File:  cfg.Logging.File,
	})
	if err != nil {
		return err
	}
	defer closeLogs()

	logger.Info("starting sysNERD",
		zap.String("model", cfg.Ollama.Model),
		zap.Bool("dry_run", cfg.Execution.DryRun),
		zap.Duration("max_execution_time", cfg.GetExecutionTimeout()))

	client := gateway.New(gateway.Options{
		BaseURL:     cfg.Ollama.BaseURL,
		Model:       cfg.Ollama.Model,
		Temperature: cfg.Ollama.Temperature,
		TopP:        cfg.Ollama.TopP,
		Timeout:     cfg.GetRequestTimeout(),
	}, logger.Named("gateway"))

	// Backend unreachable is the one fatal startup condition.
	if err := client.CheckConnection(context.Background()); err != nil {
		logger.Error("cannot connect to Ollama", zap.Error(err))
		return fmt.Errorf("%w\nMake sure Ollama is running with: ollama serve", err)
	}

	filter := safety.NewFilter(safety.DefaultPolicy().Merge(safety.Policy{
		Commands:     cfg.Safety.Commands,
		FlagPatterns: cfg.Safety.FlagPatterns,
	}))
	exec := executor.New(filter, cfg.GetExecutionTimeout(), cfg.Execution.DryRun, logger.Named("executor"))

	ui := newSession(newStyles())
	assistant := agent.New(client, exec, agent.Options{
		MaxIterations:  cfg.Loop.MaxIterations,
		MaxHistory:     cfg.Loop.MaxHistory,
		OnCommandStart: ui.commandStarted,
		OnCommand:      ui.commandFinished,
	}, logger.Named("agent"))

	if flagQuery != "" {
		return ui.runSingleQuery(context.Background(), assistant, flagQuery)
	}

	// Interrupt ends the session cleanly, exit code 0.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nGoodbye!")
		closeLogs()
		os.Exit(0)
	}()

	return ui.runInteractive(context.Background(), assistant)
}

// applyFlagOverrides lets explicit flags win over file and environment.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("model") {
		cfg.Ollama.Model = flagModel
	}
	if cmd.Flags().Changed("base-url") {
		cfg.Ollama.BaseURL = flagBaseURL
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Execution.DryRun = flagDryRun
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = flagLogLevel
	}
	if cmd.Flags().Changed("max-execution-time") {
		cfg.Execution.MaxExecutionTime = flagMaxExec
	}
}
