package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/app"
	"github.com/vsinha/fuelrecon/pkg/interfaces/http/handler"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *Options) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if address != "" {
				a.Config.Server.Address = address
			}
			return serve(ctx, newServer(a), a.Logger)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Listen address (overrides server.address)")
	return cmd
}

func newServer(a *app.App) *http.Server {
	return &http.Server{
		Addr:              a.Config.Server.Address,
		Handler:           handler.NewRouter(a),
		ReadHeaderTimeout: a.Config.Server.Timeout,
		ReadTimeout:       a.Config.Server.Timeout,
		WriteTimeout:      a.Config.Server.Timeout,
	}
}

// serve runs srv until ctx is cancelled, then drains in-flight requests
func serve(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	log.Info("server exited")
	return nil
}
