package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/activity-log/internal/httpserver"
	"github.com/jakechorley/activity-log/internal/httpserver/handler"
	"github.com/jakechorley/activity-log/pkg/core/resync"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var scheduler *resync.Scheduler
			if app.Cfg.ResyncRule != "" {
				var err error
				scheduler, err = resync.New(app.Cfg.ResyncRule, time.Now(), app.Roster, app.Logger)
				if err != nil {
					return err
				}
			}

			router := httpserver.NewRouter(app.Cfg, handler.New(app.Roster, app.Logger), app.Logger)
			server := httpserver.New(app.Cfg, router)

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				app.Logger.Info("Listening", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-gctx.Done()
				app.Logger.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			if scheduler != nil {
				app.Logger.Info("Scheduled resync enabled", zap.String("rrule", app.Cfg.ResyncRule))
				g.Go(func() error {
					if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}

			return g.Wait()
		},
	}
}
