// Package cmd implements the tuition command line: the API server and the
// offline import tools.
package cmd

import (
	"context"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tuition-server-go/config"
	"tuition-server-go/db"
	"tuition-server-go/logging"
)

// app carries what PersistentPreRunE loaded to the subcommands.
type app struct {
	configFile string
	conf       *config.Config
	logger     *zap.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tuition",
		Short:         "Tuition management server and import tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(conf.Log.Level, conf.Debug)
			if err != nil {
				return err
			}
			a.conf, a.logger = conf, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (yaml, json or toml)")

	root.AddCommand(
		newServeCmd(a),
		newImportCmd(a),
		newValidateCmd(a),
		newTemplateCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

// openStore connects to the configured backend.
func (a *app) openStore(ctx context.Context) (db.Repository, error) {
	switch a.conf.Store.Driver {
	case config.DriverMemory:
		a.logger.Warn("using in-memory store; data is lost on exit")
		return db.NewMemoryStore(), nil
	case config.DriverPostgres:
		return db.OpenPostgres(ctx, a.conf.Postgres.DSN, a.logger)
	default:
		client, err := db.NewRedisClient(ctx, db.RedisOptions{
			Addr:     a.conf.Redis.Addr,
			Password: a.conf.Redis.Password,
			DB:       a.conf.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.logger.Info("connected to Redis", zap.String("addr", a.conf.Redis.Addr))
		return db.NewRedisService(client, a.logger), nil
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding output")
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
