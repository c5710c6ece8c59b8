// Command florist runs a single florescence gossip node: dials its seeds,
// accepts connections, and serves an introspection HTTP endpoint alongside
// the gossip traffic. Cobra command wiring grounded on the teacher's
// internal/cli/agent.go style.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/byronwasti/florescence/internal/api"
	"github.com/byronwasti/florescence/internal/daemon"
	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/engine"
	"github.com/byronwasti/florescence/internal/engine/grpcengine"
	"github.com/byronwasti/florescence/internal/engine/httpengine"
	"github.com/byronwasti/florescence/internal/engine/memengine"
	"github.com/byronwasti/florescence/internal/flower"
	"github.com/byronwasti/florescence/internal/message"
)

var (
	flagConfig string
	flagPort   int
	flagPeers  []string
	flagEngine string
	flagWire   string
	flagAPI    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "florist",
	Short: "florist runs and inspects florescence gossip nodes",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&flagConfig, "config", "", "path to a TOML config file (flags override its values)")
	runCmd.Flags().IntVar(&flagPort, "port", 4269, "port (net engines) or world slot (mem engine) to bind to")
	runCmd.Flags().StringArrayVarP(&flagPeers, "peers", "n", nil, "seed peer address (repeatable)")
	runCmd.Flags().StringVar(&flagEngine, "engine", "grpc", "transport engine: mem, grpc, or http")
	runCmd.Flags().StringVar(&flagWire, "wire", "binary", "wire codec: binary or json")
	runCmd.Flags().StringVar(&flagAPI, "api", "127.0.0.1:4270", "introspection API bind address (empty disables it)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a florescence gossip node",
	RunE:  runRun,
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if raw := os.Getenv("FLORESCENCE_LOG"); raw != "" {
		_ = level.UnmarshalText([]byte(raw))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func resolveConfig(cmd *cobra.Command) (daemon.Config, error) {
	cfg := daemon.DefaultConfig()
	if flagConfig != "" {
		var err error
		cfg, err = daemon.Load(flagConfig)
		if err != nil {
			return daemon.Config{}, err
		}
	}
	if cmd.Flags().Changed("engine") {
		cfg.Node.Engine = flagEngine
	}
	if cmd.Flags().Changed("wire") {
		cfg.Node.Wire = flagWire
	}
	if cmd.Flags().Changed("api") {
		cfg.API.Addr = flagAPI
	}
	if len(flagPeers) > 0 {
		cfg.Seeds = flagPeers
	}
	if cmd.Flags().Changed("port") || cfg.Node.BindAddr == "" {
		cfg.Node.BindAddr = fmt.Sprintf("127.0.0.1:%d", flagPort)
	}
	return cfg, nil
}

func gossipConfig(cfg daemon.Config) (flower.Config, error) {
	heartbeat, reap, liveness, propagation, debounce, err := cfg.Gossip.Durations()
	if err != nil {
		return flower.Config{}, err
	}
	return flower.Config{
		HeartbeatInterval:  heartbeat,
		ReapInterval:       reap,
		LivenessTimeout:    liveness,
		PropagationTimeout: propagation,
		DebounceWindow:     debounce,
	}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	fcfg, err := gossipConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Node.Engine {
	case "grpc", "http":
		return runNet(ctx, cfg, fcfg, log)
	case "mem":
		return runMem(ctx, cfg, fcfg, log)
	default:
		return fmt.Errorf("florist: unknown engine %q (want mem, grpc, or http)", cfg.Node.Engine)
	}
}

func runNet(ctx context.Context, cfg daemon.Config, fcfg flower.Config, log *slog.Logger) error {
	addr := domain.NetAddr(cfg.Node.BindAddr)

	wire, err := message.ParseFormat(cfg.Node.Wire)
	if err != nil {
		return err
	}

	var eng engine.Engine[domain.NetAddr]
	switch cfg.Node.Engine {
	case "grpc":
		eng = grpcengine.New(addr, wire)
	case "http":
		eng = httpengine.New(addr, wire)
	}

	seeds := make([]domain.NetAddr, len(cfg.Seeds))
	for i, s := range cfg.Seeds {
		seeds[i] = domain.NetAddr(strings.TrimSpace(s))
	}

	f := flower.New[domain.NetAddr](uuid.New(), eng, seeds, fcfg, log)
	return serve(ctx, f, cfg, log)
}

// runMem backs a node with the process-wide memengine.DefaultWorld, so
// `florist run --engine mem` is useful for spinning up a multi-node demo
// from a handful of goroutines within one process (or one test binary) —
// it cannot reach a node in a different OS process, since memengine's
// World lives only in this process's memory.
func runMem(ctx context.Context, cfg daemon.Config, fcfg flower.Config, log *slog.Logger) error {
	addr := domain.MemAddr(flagPort)
	eng := memengine.New(memengine.DefaultWorld)
	if eng.Addr() != addr {
		log.Warn("mem engine assigned a different slot than --port requested",
			"requested", addr, "assigned", eng.Addr())
	}

	seeds := make([]domain.MemAddr, 0, len(cfg.Seeds))
	for _, s := range cfg.Seeds {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("florist: --engine mem peers must be world slot numbers, got %q: %w", s, err)
		}
		seeds = append(seeds, domain.MemAddr(n))
	}

	f := flower.New[domain.MemAddr](uuid.New(), eng, seeds, fcfg, log)
	return serve(ctx, f, cfg, log)
}

// serve runs f and, if enabled, an introspection API server, until ctx is
// cancelled or either returns an error.
func serve[A comparable](ctx context.Context, f *flower.Flower[A], cfg daemon.Config, log *slog.Logger) error {
	errs := make(chan error, 2)
	go func() { errs <- f.Run(ctx) }()

	if cfg.API.Enabled && cfg.API.Addr != "" {
		srv := &http.Server{Addr: cfg.API.Addr, Handler: api.NewServer[A](f).Handler()}
		go func() {
			log.Info("introspection api listening", "addr", cfg.API.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errs <- err
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	select {
	case err := <-errs:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info("florist shutting down")
	return nil
}
