package main

import (
	"github.com/spf13/cobra"

	"github.com/bizhub/socialauth/pkg/config"
	"github.com/bizhub/socialauth/pkg/pg"
	"github.com/bizhub/socialauth/pkg/userstore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending user directory migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			var pgCfg pg.Config
			if err := config.Load(&pgCfg); err != nil {
				return err
			}
			pool, err := pg.Connect(ctx, pgCfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			db := pg.OpenDB(pool)
			defer db.Close()

			if err := pg.Migrate(ctx, db, userstore.Migrations, userstore.MigrationsDir, pgCfg, log); err != nil {
				return err
			}
			log.InfoContext(ctx, "migrations applied")
			return nil
		},
	}
}
