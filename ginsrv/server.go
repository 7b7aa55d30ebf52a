package ginsrv

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/LeonPucin/dash-core/logger"
)

const shutdownTimeout = 5 * time.Second

// Serve runs handler on l until ctx is done, then shuts the server down
// gracefully. It returns nil after a clean shutdown.
func Serve(ctx context.Context, l net.Listener, handler http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	log.Info("http server listening", logger.String("addr", l.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return log.Error("http server shutdown failed", logger.Err(err))
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("http server stopped")
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, log *logger.Logger) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, l, handler, log)
}
