package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JamaalDavis/holochain-rust/internal/server"
)

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 30 * time.Second
)

var (
	addrFlag            string
	shutdownTimeoutFlag time.Duration
)

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Serve a websocket peer that echoes every message",
	Long: `Serve a websocket peer on /peer. Each connection is driven by its own
threaded relay; messages are echoed back and pings answered with pongs.
Health is reported on /healthz and relay metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEcho(cmd)
	},
}

func init() {
	rootCmd.AddCommand(echoCmd)
	echoCmd.Flags().StringVarP(&addrFlag, "addr", "a", defaultAddr, "Address to listen on")
	echoCmd.Flags().DurationVar(&shutdownTimeoutFlag, "shutdown-timeout", defaultShutdownTimeout,
		"Graceful shutdown timeout")
}

func runEcho(cmd *cobra.Command) error {
	srv := server.NewServer(&server.Options{
		Addr:     addrFlag,
		Relay:    cfg.RelayOptions(logger, metrics),
		Gatherer: registry,
	})

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	srv.Start()
	cmd.Printf("Echo peer listening on %s%s\n", addrFlag, server.PeerPath)
	go func() {
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case err := <-serverErrors:
		_ = srv.Close()
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		cmd.Println("Context cancelled, shutting down...")

	case sig := <-shutdown:
		cmd.Printf("\nReceived signal %v, starting graceful shutdown...\n", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeoutFlag)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		if err := srv.Close(); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}

	cmd.Println("Server stopped gracefully")
	return nil
}
