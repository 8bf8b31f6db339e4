package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/evelog/internal/config"
	"firestige.xyz/evelog/internal/log"
	"firestige.xyz/evelog/internal/metrics"
	"firestige.xyz/evelog/internal/output"
	"firestige.xyz/evelog/internal/replay"
	"firestige.xyz/evelog/internal/varstore"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE...",
	Short: "Log every packet of capture files as EVE events",
	Long: `Read pcap or pcapng files in order and log one "packet" event per frame
through the configured sink.

Signals:
  SIGINT, SIGTERM   stop after the queued packets are logged
  SIGHUP            rotate the output file

Examples:
  evelog replay capture.pcap
  evelog replay -c evelog.yaml --sink unix_dgram --community-id a.pcap b.pcapng`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReplay(cmd, args); err != nil {
			slog.Error("replay failed", "error", err)
			os.Exit(1)
		}
	},
}

func runReplay(cmd *cobra.Command, files []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logCloser, err := log.Init(cfg.Log, consoleFor(cfg))
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				slog.Error("error stopping metrics server", "error", err)
			}
		}()
	}

	names := varstore.New()
	out, err := output.New(ctx, cfg, names)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	go handleSignals(ctx, sigChan, out, cancel)

	r := replay.New(cfg.Replay, out, names)
	var total replay.Stats
	var runErr error
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		st, err := r.Run(ctx, f)
		total.Packets += st.Packets
		total.Logged += st.Logged
		total.Skipped += st.Skipped
		total.Errors += st.Errors
		if err != nil {
			runErr = err
			break
		}
	}

	dropped, err := out.Close(context.Background())
	if err != nil {
		slog.Error("error closing sink", "error", err)
	}
	slog.Info("replay done",
		"files", len(files),
		"packets", total.Packets,
		"logged", total.Logged,
		"skipped", total.Skipped,
		"dropped", dropped,
	)
	return runErr
}

// consoleFor keeps log lines out of an event stream on stdout.
func consoleFor(cfg *config.GlobalConfig) io.Writer {
	if cfg.EveLog.WritesStdout() {
		return os.Stderr
	}
	return os.Stdout
}

func handleSignals(ctx context.Context, sigChan <-chan os.Signal, out *output.Output, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				slog.Info("received rotate signal")
				if err := out.Rotate(); err != nil {
					slog.Error("failed to rotate sink", "error", err)
				}
				continue
			}
			slog.Info("received shutdown signal", "signal", sig)
			cancel()
			return
		}
	}
}
