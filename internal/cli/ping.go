package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JamaalDavis/holochain-rust/internal/config"
	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/netconn"
	"github.com/JamaalDavis/holochain-rust/internal/protocol"
)

const (
	defaultPingCount    = 4
	defaultPingInterval = time.Second
	defaultPingTimeout  = 5 * time.Second
)

var (
	countFlag    int
	intervalFlag time.Duration
	timeoutFlag  time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send pings through a threaded relay and report round-trip times",
	Long: `Build a threaded relay over the configured transport, send pings to the
peer and wait for each pong. The memory transport answers locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPing(cmd)
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVarP(&countFlag, "count", "n", defaultPingCount, "Number of pings to send")
	pingCmd.Flags().DurationVarP(&intervalFlag, "interval", "i", defaultPingInterval, "Wait between pings")
	pingCmd.Flags().DurationVar(&timeoutFlag, "timeout", defaultPingTimeout, "Wait for each pong")
}

func runPing(cmd *cobra.Command) error {
	if countFlag <= 0 {
		return errors.New("count must be positive")
	}

	factory, closer, err := newFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	pongs := make(chan protocol.PongData, countFlag)
	handler := func(msg protocol.Message, err error) error {
		if err != nil {
			logger.Warn("Relay delivery failed", logging.Error(err))
			return nil
		}
		if !msg.IsNamed(protocol.PongName) {
			logger.Debug("Ignoring message", logging.String("message", msg.String()))
			return nil
		}
		var pong protocol.PongData
		if err := msg.Decode(&pong); err != nil {
			return err
		}
		select {
		case pongs <- pong:
		default:
		}
		return nil
	}

	thread, err := netconn.NewThread(handler, factory, cfg.RelayOptions(logger, metrics))
	if err != nil {
		return err
	}
	defer func() {
		if err := thread.Destroy(); err != nil {
			logger.Error("Relay destroy failed", logging.Error(err))
		}
	}()

	cmd.Printf("PING %s via %s relay %s\n", target(), cfg.Transport, thread.ID())

	received := 0
	var total time.Duration
	for seq := 1; seq <= countFlag; seq++ {
		if seq > 1 && intervalFlag > 0 {
			time.Sleep(intervalFlag)
		}

		ping := protocol.Ping(time.Now())
		var sent protocol.PingData
		if err := ping.Decode(&sent); err != nil {
			return err
		}
		if err := thread.Send(ping); err != nil {
			return err
		}

		rtt, ok := awaitPong(pongs, sent.Nonce, timeoutFlag)
		if !ok {
			cmd.Printf("seq=%d timeout after %s\n", seq, timeoutFlag)
			continue
		}
		received++
		total += rtt
		cmd.Printf("pong seq=%d time=%s\n", seq, rtt)
	}

	cmd.Printf("%d sent, %d received", countFlag, received)
	if received > 0 {
		cmd.Printf(", avg %s", total/time.Duration(received))
	}
	cmd.Println()

	if received == 0 {
		return errors.New("no pongs received")
	}
	return nil
}

// awaitPong waits for the pong answering nonce, skipping stale ones
func awaitPong(pongs <-chan protocol.PongData, nonce string, timeout time.Duration) (time.Duration, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case pong := <-pongs:
			if pong.Nonce == nonce {
				return pong.RoundTrip(time.Now()), true
			}
		case <-deadline.C:
			return 0, false
		}
	}
}

func target() string {
	switch cfg.Transport {
	case config.ModeWebSocket:
		return cfg.WebSocketURL
	case config.ModeAzure:
		return fmt.Sprintf("%s/%s", cfg.RelayNamespace, cfg.HybridConnection)
	default:
		return "loopback"
	}
}
