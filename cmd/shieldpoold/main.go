// main.go - Entry point for the shielded pool daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"shieldpool/internal/amm"
	"shieldpool/internal/controller"
	"shieldpool/internal/coordinator"
	"shieldpool/internal/transactions/oracle"
	"shieldpool/p2p"
)

const version = "0.3.0"

var configPath string

func main() {
	root := &cobra.Command{
		Use:     "shieldpoold",
		Short:   "Shielded concentrated-liquidity pool daemon",
		Version: version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "shieldpoold.json", "path to the config file")

	root.AddCommand(serveCmd(), keygenCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pool daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate Groth16 keys for every operation circuit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			log := NewLogger(cfg.LogLevel)
			if err := os.MkdirAll(cfg.KeyDir, 0755); err != nil {
				return err
			}
			for _, kind := range oracle.AllKinds() {
				start := time.Now()
				if _, err := oracle.SetupOrLoadKeys(kind, cfg.KeyDir); err != nil {
					return fmt.Errorf("keygen for %s: %w", kind, err)
				}
				log.Info().Str("kind", kind.String()).Dur("took", time.Since(start)).Msg("keys ready")
			}
			return nil
		},
	}
}

func runServe() error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := NewLogger(cfg.LogLevel)

	if err := os.MkdirAll(cfg.KeyDir, 0755); err != nil {
		return err
	}
	verifier := oracle.New()
	for _, kind := range oracle.AllKinds() {
		start := time.Now()
		keys, err := oracle.SetupOrLoadKeys(kind, cfg.KeyDir)
		if err != nil {
			return fmt.Errorf("keys for %s: %w", kind, err)
		}
		verifier.Register(kind, keys.VK)
		log.Info().Str("kind", kind.String()).Dur("took", time.Since(start)).Msg("verifying key loaded")
	}

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	var (
		node   *p2p.Node
		nodeWG sync.WaitGroup
	)
	if cfg.GossipAddr != "" {
		node = p2p.NewNode(cfg.NodeID, cfg.GossipAddr, cfg.Peers, &nodeWG, log)
	}

	pools := make(map[string]*poolHandle, len(cfg.Pools))
	for _, pc := range cfg.Pools {
		token0, _ := new(big.Int).SetString(pc.Token0, 10)
		token1, _ := new(big.Int).SetString(pc.Token1, 10)
		sqrtPrice, _ := new(big.Int).SetString(pc.SqrtPrice, 10)

		pool, err := amm.NewPool(token0, token1, amm.FeeTier{FeeRate: pc.FeeRate, TickSpacing: pc.TickSpacing})
		if err != nil {
			return fmt.Errorf("pool %s/%s: %w", pc.Token0, pc.Token1, err)
		}
		pool.ProtocolFeeDenom = cfg.ProtocolFeeDenom
		if err := pool.Initialize(sqrtPrice); err != nil {
			return fmt.Errorf("pool %s/%s: %w", pc.Token0, pc.Token1, err)
		}

		name := pc.Token0 + "/" + pc.Token1
		ctrl := controller.New(pool, nil)
		sink := &daemonSink{log: log, metrics: metrics, pool: name, node: node}
		coord := coordinator.New(verifier, ctrl, sink)
		if node != nil {
			node.RegisterPool(name, coord)
		}
		pools[name] = &poolHandle{name: name, coord: coord, ctrl: ctrl}
		log.Info().
			Str("pool", name).
			Uint32("fee_rate", pc.FeeRate).
			Int("tick_spacing", pc.TickSpacing).
			Msg("pool initialized")
	}

	if node != nil {
		ready := make(chan struct{}, 1)
		if err := node.StartServer(ready); err != nil {
			return fmt.Errorf("gossip server: %w", err)
		}
		<-ready
		defer node.Close()
	}

	server := NewServer(log, metrics, registry, cfg, pools, node)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("daemon listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
