package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rakta/hookload/internal/config"
	"github.com/rakta/hookload/internal/mockserver"
)

const shutdownTimeout = 5 * time.Second

func newMockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a fake backend for trying the load test locally",
		Long: `Start an HTTP server that implements the login, register and webhook
endpoints. Webhook calls need the token issued by login.

  hookload mock --addr :8080 --fail-every 100 --latency 20ms
  hookload run --base-url http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: runMock,
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().String("email", config.DefaultEmail, "Accepted login email (empty accepts any)")
	cmd.Flags().String("password", config.DefaultPassword, "Accepted login password")
	cmd.Flags().String("token", mockserver.DefaultToken, "Token issued on login")
	cmd.Flags().Int("fail-every", 0, "Answer 500 to every Nth webhook call (0 = never)")
	cmd.Flags().Duration("latency", 0, "Delay added to each webhook call")
	cmd.Flags().Bool("validate", true, "Reject webhook bodies that violate the payload schema")
	return cmd
}

func runMock(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	opts := mockserver.Options{}
	opts.Email, _ = cmd.Flags().GetString("email")
	opts.Password, _ = cmd.Flags().GetString("password")
	opts.Token, _ = cmd.Flags().GetString("token")
	opts.FailEvery, _ = cmd.Flags().GetInt("fail-every")
	opts.Latency, _ = cmd.Flags().GetDuration("latency")
	opts.Validate, _ = cmd.Flags().GetBool("validate")

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mockserver.New(opts)
	fmt.Fprintf(cmd.OutOrStdout(), "Mock backend listening on %s\n", listener.Addr())
	err = serve(ctx, listener, server)

	c := server.Counters()
	fmt.Fprintf(cmd.OutOrStdout(), "Served %d logins, %d webhooks (%d rejected, max %d in flight)\n",
		c.Logins, c.Webhooks, c.Rejected, c.MaxInFlight)
	return err
}

// serve runs handler on listener until ctx is done, then shuts down
// gracefully.
func serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
