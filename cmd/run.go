package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/resonance/application"
	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/metrics"
)

type runOptions struct {
	eventsPath  string
	interval    time.Duration
	witnesses   int
	statusAddr  string
	drain       bool
	mineTimeout time.Duration
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an in-memory ledger node",
		Long: `Start a ledger with founding witnesses, load signed events (one JSON object
per line, as printed by "resonance sign") and create a block on every tick
until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.interval <= 0 {
				o.interval = root.cfg.Mining.TargetBlockTime
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runNode(ctx, root, o, clock.New())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.eventsPath, "events", "e", "", `Signed events file, "-" for stdin`)
	f.DurationVar(&o.interval, "interval", 0, "Block interval (defaults to mining.target_block_time)")
	f.IntVar(&o.witnesses, "witnesses", 3, "Number of founding witnesses")
	f.StringVar(&o.statusAddr, "status-addr", "", "Serve status and Prometheus metrics on this address")
	f.BoolVar(&o.drain, "drain", false, "Exit once the pending pool is empty")
	f.DurationVar(&o.mineTimeout, "mine-timeout", time.Minute, "Give up on a block after this long")
	return cmd
}

func runNode(ctx context.Context, root *rootOptions, o *runOptions, clk clock.Clock) error {
	log := root.logger
	col := metrics.New()
	node, _, err := bootstrap(ctx, root.cfg, o.witnesses,
		application.WithLogger(log),
		application.WithMetrics(col),
		application.WithClock(clk),
	)
	if err != nil {
		return err
	}

	if o.statusAddr != "" {
		srv := &http.Server{Addr: o.statusAddr, Handler: statusRouter(node, col), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server failed", "addr", o.statusAddr, "error", err)
			}
		}()
		defer srv.Close()
		log.Info("serving status", "addr", o.statusAddr)
	}

	if o.eventsPath != "" {
		r, closeFn, err := openEvents(o.eventsPath)
		if err != nil {
			return err
		}
		accepted, rejected, err := ingest(r, node, log)
		closeFn()
		if err != nil {
			return err
		}
		log.Info("events loaded", "accepted", accepted, "rejected", rejected)
	}

	ticker := clk.Ticker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down", "height", node.Stats().Height)
			return nil
		case <-ticker.C:
			mineOnce(ctx, node, o.mineTimeout, log)
			if o.drain && len(node.Pending()) == 0 {
				s := node.Stats()
				log.Info("pool drained", "height", s.Height, "nodes", s.TotalNodes, "coherence", s.GlobalCoherence)
				return node.Verify()
			}
		}
	}
}

// mineOnce attempts one block. An event that cannot be applied is evicted
// from the pool so the remaining events commit on the next tick.
func mineOnce(ctx context.Context, node *application.Orchestrator, timeout time.Duration, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := node.CreateBlock(ctx)
	var ae *event.ApplyError
	switch {
	case err == nil, errors.Is(err, application.ErrEmptyPool):
	case errors.As(err, &ae):
		if node.RemovePending(ae.EventID) {
			log.Warn("evicted event", "id", ae.EventID, "kind", ae.Kind, "error", ae.Err)
		}
	default:
		log.Warn("no block this round", "error", err)
	}
}

func openEvents(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// ingest submits every event in r, one JSON object per line. Blank lines are
// skipped; lines that fail to decode or validate are logged and counted.
func ingest(r io.Reader, node *application.Orchestrator, log *slog.Logger) (accepted, rejected int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e event.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			rejected++
			log.Warn("undecodable event", "line", line, "error", err)
			continue
		}
		if err := node.SubmitEvent(e); err != nil {
			rejected++
			log.Warn("event refused", "line", line, "error", err)
			continue
		}
		accepted++
	}
	if err := sc.Err(); err != nil {
		return accepted, rejected, fmt.Errorf("reading events: %w", err)
	}
	return accepted, rejected, nil
}
