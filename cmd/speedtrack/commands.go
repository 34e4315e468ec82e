package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/speedtrackorg/libspeedtrack-go/api"
	"github.com/speedtrackorg/libspeedtrack-go/config"
	"github.com/speedtrackorg/libspeedtrack-go/flow"
)

// runStatus reads one wallet from the ledger and prints the result. The
// cache only supplies the last known state when the ledger cannot be read.
func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := a.input(ctx, args[0])
	if err != nil {
		return err
	}
	res := a.reducer.Refresh(ctx, in)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(api.NewFlowResponse(res)); err != nil {
		return err
	}
	if res.Outcome == flow.OutcomeFatal {
		return res.Err
	}
	return nil
}

// runWatch follows one wallet until interrupted, printing each new state.
func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	tracker := flow.NewTracker(a.reducer,
		flow.WithPollInterval(cfg.PollInterval),
		flow.WithTrackerLogger(logger.Named("tracker")))
	states, unsubscribe := tracker.Subscribe()
	defer unsubscribe()

	out := json.NewEncoder(cmd.OutOrStdout())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case s, ok := <-states:
				if !ok {
					return nil
				}
				if err := out.Encode(api.NewStateResponse(s)); err != nil {
					return err
				}
			}
		}
	})
	g.Go(func() error {
		return watchChain(gctx, a, tracker, cfg.PollInterval)
	})
	g.Go(func() error {
		tracker.SetAccount(gctx, args[0], true)
		return tracker.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchChain keeps the tracker's network flag in line with the provider.
// A failed check counts as the wrong network.
func watchChain(ctx context.Context, a *app, tracker *flow.Tracker, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	known := false
	first := true
	for {
		correct, err := a.client.CheckChain(ctx)
		if err != nil {
			logger.Warn("chain check failed", zap.Error(err))
			correct = false
		}
		if first || correct != known {
			known, first = correct, false
			tracker.SetNetwork(ctx, correct)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// runServe serves the HTTP API until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		listen = cfg.ListenAddr
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(listen, a.reducer, a.ledger, a.client, logger.Named("api"))
	return srv.Run(ctx)
}

// runInit writes the effective configuration to the config path.
func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", configPath)
	}

	c := cfg
	if rpcURL != "" {
		c.RPCURL = rpcURL
	}
	if contract != "" {
		c.ContractAddress = contract
	}
	if err := config.ValidateConfig(c); err != nil {
		return err
	}
	if err := config.SaveConfig(configPath, c); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
	return nil
}
