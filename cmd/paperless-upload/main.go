package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

type rootFlags struct {
	configPath string
	verbose    bool
	logJSON    bool
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	a := &app{flags: flags}

	root := &cobra.Command{
		Use:           "paperless-upload",
		Short:         "Upload emails and attachments to Paperless-ngx",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.logger = newLogger(flags.verbose, flags.logJSON)
			slog.SetDefault(a.logger)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		fmt.Sprintf("path to config.yaml (default: %s)", defaultConfigPath()))
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "log as JSON")

	root.AddCommand(uploadCmd(a))
	root.AddCommand(messagesCmd(a))
	root.AddCommand(lookupCmd(a))
	root.AddCommand(checkCmd(a))
	root.AddCommand(tokenCmd(a))
	root.AddCommand(configCmd(a))
	root.AddCommand(serveSMTPCmd(a))
	return root
}

func newLogger(verbose, asJSON bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
