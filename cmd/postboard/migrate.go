package main

import (
	stderrors "errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/postboard/internal/errors"
	"github.com/vango-dev/postboard/pkg/store"
)

func migrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg, cfg.Logger(os.Stderr))
			if err != nil {
				return err
			}
			defer st.Close()

			applied, err := st.Migrate(ctx)
			if err != nil {
				return errors.FromError(err, errors.CodeMigrate)
			}
			if len(applied) == 0 {
				success(cmd, "schema is up to date")
				return nil
			}
			for _, v := range applied {
				success(cmd, "applied migration %04d", v)
			}
			return nil
		},
	}
}

func rollbackCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg, cfg.Logger(os.Stderr))
			if err != nil {
				return err
			}
			defer st.Close()

			v, err := st.Rollback(ctx)
			if stderrors.Is(err, store.ErrNothingToRollback) {
				return errors.New(errors.CodeNothingApplied)
			}
			if err != nil {
				return errors.FromError(err, errors.CodeRollback)
			}
			success(cmd, "rolled back migration %04d", v)
			return nil
		},
	}
}
