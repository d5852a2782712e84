package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tuition-server-go/config"
	"tuition-server-go/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.conf.Store.Driver != config.DriverPostgres {
				return errors.Errorf("migrate needs the %s store driver, configured driver is %s", config.DriverPostgres, a.conf.Store.Driver)
			}
			ctx := cmd.Context()
			store, err := db.OpenPostgres(ctx, a.conf.Postgres.DSN, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err = store.Migrate(ctx); err != nil {
				return err
			}
			cmd.Println("database migrated")
			return nil
		},
	}
}
