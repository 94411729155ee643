package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/homepage/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return systemError("listen on %s: %w", addr, err)
			}

			green := color.New(color.FgGreen)
			green.Fprint(cmd.OutOrStdout(), "▶ ")
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", ln.Addr())

			srv := &http.Server{
				Handler: server.NewRouter(&server.Deps{
					Service: svc,
					Store:   a.store,
					Logger:  a.logger.With("component", "server"),
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return run(ctx, srv, ln, a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	return cmd
}

// run serves until ctx is canceled or the server fails, then shuts down.
func run(ctx context.Context, srv *http.Server, ln net.Listener, a *app) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	// The serve context is already canceled here.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	if serveErr != nil {
		return systemError("serve: %w", serveErr)
	}
	return nil
}
