package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tuition-server-go/db"
	"tuition-server-go/handlers"
	"tuition-server-go/importer"
	"tuition-server-go/middleware"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if !a.conf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, err := a.openStore(ctx)
	if err != nil {
		return errors.Wrap(err, "opening store")
	}
	defer repo.Close()

	if a.conf.Seed {
		seedIfEmpty(ctx, repo, a.logger)
	}

	apiHandler := handlers.NewAPIHandler(repo, a.logger)
	auth := middleware.Auth(a.conf.Auth.JWTSecret, a.conf.Debug, a.logger)
	router := handlers.NewRouter(apiHandler, auth, a.logger)

	srv := &http.Server{
		Addr:              a.conf.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", a.conf.Store.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "running server")
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedIfEmpty imports the example document when the store has no students yet.
func seedIfEmpty(ctx context.Context, repo db.Repository, logger *zap.Logger) {
	students, err := repo.FindAllStudents(ctx)
	if err != nil {
		logger.Warn("could not check for existing students, skipping seed", zap.Error(err))
		return
	}
	if len(students) > 0 {
		logger.Info("found existing students, skipping seed", zap.Int("count", len(students)))
		return
	}

	logger.Info("no students found, importing example data")
	report, err := importer.New(repo, logger).Import(ctx, importer.Template())
	if err != nil {
		logger.Error("seeding example data", zap.Error(err))
		return
	}
	logger.Info("example data imported",
		zap.Int("students", report.Students.Success),
		zap.Int("classes", report.Classes.Success),
		zap.Int("payments", report.Payments.Success),
		zap.Int("notes", report.Notes.Success),
	)
}
