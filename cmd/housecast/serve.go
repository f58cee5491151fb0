package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/housecast/pkg/errors"
	"github.com/YuminosukeSato/housecast/pkg/log"
	"github.com/YuminosukeSato/housecast/serving"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Serve.Addr = addr
			}
			schema, err := a.cfg.LoadSchema(a.fs)
			if err != nil {
				return err
			}
			store := a.cfg.Store(a.fs, a.logger)
			predictor, err := serving.LoadPredictor(store, schema, a.logger)
			if err != nil {
				return err
			}

			srv := serving.NewServer(predictor, store, a.logger).
				HTTPServer(a.cfg.Serve.Addr, a.cfg.Serve.ReadTimeout, a.cfg.Serve.WriteTimeout)
			return runServer(cmd.Context(), srv, a.logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides serve.addr)")
	return cmd
}

// runServer serves until ctx is cancelled, then drains open requests.
func runServer(ctx context.Context, srv *http.Server, logger log.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
