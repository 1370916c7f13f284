package main

import (
	stderrors "errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/postboard/internal/errors"
	"github.com/vango-dev/postboard/pkg/server"
)

func serveCmd(envFile *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Apply pending migrations, then serve until SIGINT or SIGTERM.

Examples:
  postboard serve
  postboard serve --addr=0.0.0.0:9004
  DATABASE_URL=postgres://localhost/postboard postboard serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			logger := cfg.Logger(os.Stderr)
			ctx := cmd.Context()

			st, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			applied, err := st.Migrate(ctx)
			if err != nil {
				return errors.FromError(err, errors.CodeMigrate)
			}
			if len(applied) > 0 {
				logger.Info("applied migrations", "versions", applied)
			}

			srv := server.New(st, &server.Config{
				Address:         cfg.Addr,
				Debug:           cfg.Debug,
				ShutdownTimeout: cfg.ShutdownTimeout,
			}, server.WithLogger(logger))

			if err := srv.Run(ctx); err != nil {
				if stderrors.Is(err, server.ErrShutdown) {
					return errors.FromError(err, errors.CodeShutdown)
				}
				return errors.FromError(err, errors.CodeListen)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from ADDR)")
	return cmd
}
