package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vuquang23/steamauto/internal/logger"
	"github.com/vuquang23/steamauto/internal/statusapi"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the automation loop for every configured account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		log := a.Log

		a.SyncClocks(ctx)
		a.Supervisor.StartAll(ctx)

		var srv *http.Server
		if listen := a.Config.Status.Listen; listen != "" {
			srv = &http.Server{
				Addr:              listen,
				Handler:           statusapi.NewRouter(ctx, a.Supervisor, log),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				log.Info("status server listening", logger.String("addr", listen))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("status server failed", logger.Error(err))
				}
			}()
		}

		<-ctx.Done()
		log.Info("shutting down")
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}
		a.Supervisor.StopAll()
		return nil
	},
}
