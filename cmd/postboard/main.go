package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/postboard/internal/config"
	"github.com/vango-dev/postboard/internal/errors"
	"github.com/vango-dev/postboard/pkg/store"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	serve := serveCmd(&envFile)
	root := &cobra.Command{
		Use:   "postboard",
		Short: "A small social posting board server",
		Long: `Postboard serves accounts, posts, likes and comments over a
binary RPC endpoint backed by SQLite or PostgreSQL.

Without a subcommand it runs "serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", config.EnvFileName, "Env file with KEY=VALUE settings")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		migrateCmd(&envFile),
		rollbackCmd(&envFile),
		versionCmd(),
	)
	return root
}

// loadConfig loads and validates the configuration.
func loadConfig(envFile string) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured database.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{Logger: logger})
	if err != nil {
		if stderrors.Is(err, store.ErrUnreachable) {
			return nil, errors.FromError(err, errors.CodeStorePing)
		}
		return nil, errors.FromError(err, errors.CodeStoreOpen)
	}
	return st, nil
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
