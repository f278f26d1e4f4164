// Command nexusd is the persistent Nexus daemon: it reads JSON requests on
// stdin and writes JSON responses on stdout, giving an agent a warm process
// to issue UI-automation commands against instead of paying a cold-start
// penalty on every call. Mirrors original_source/nexus's serve.py entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexusdaemon/nexus/internal/cache"
	"github.com/nexusdaemon/nexus/internal/common/config"
	"github.com/nexusdaemon/nexus/internal/common/logger"
	"github.com/nexusdaemon/nexus/internal/daemon"
	"github.com/nexusdaemon/nexus/internal/element"
	"github.com/nexusdaemon/nexus/internal/events/bus"
	gwws "github.com/nexusdaemon/nexus/internal/gateway/websocket"
	"github.com/nexusdaemon/nexus/internal/healing"
	"github.com/nexusdaemon/nexus/internal/memory"
	"github.com/nexusdaemon/nexus/internal/memory/index"
	"github.com/nexusdaemon/nexus/internal/providers"
	"github.com/nexusdaemon/nexus/internal/registry"
	"github.com/nexusdaemon/nexus/internal/telemetry"
	"github.com/nexusdaemon/nexus/internal/trajectory"
	"github.com/nexusdaemon/nexus/internal/watcher"
	"go.uber.org/zap"
)

// noEventSource is the watcher.EventSource used when no real UIA event sink
// is wired in: it simply blocks until the watcher is stopped, so `watch`
// reports "running" but never produces events. A real binding is out of
// scope for this module (see internal/providers's package doc).
type noEventSource struct{}

func (noEventSource) Subscribe(ctx context.Context, kinds []string, emit func(watcher.Event)) ([]string, error) {
	<-ctx.Done()
	return kinds, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	for _, dir := range []string{cfg.Data.CacheDir(), cfg.Data.TrajectoryDir(), cfg.Data.KnowledgeDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal("failed to create data directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal("failed to init telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	ax := providers.NewStubAccessibility()
	screen := providers.NewStubScreen()
	browser := providers.NewStubBrowser()
	healer := healing.New(ax, screen)
	clicker := &element.Clicker{AX: ax, Screen: screen, Healer: healer}

	reg := registry.BuildRegistry(registry.Deps{AX: ax, Browser: browser, Screen: screen, Clicker: clicker})

	memCache := cache.NewMemoryCache()

	eventBus := bus.NewMemoryEventBus(log)
	w := watcher.New(noEventSource{}, eventBus)

	var idx *index.Index
	indexPath := cfg.Data.MemoryIndexPath()
	idx, err = index.Open(indexPath)
	if err != nil {
		log.Warn("failed to open memory index, falling back to JSONL scan", zap.Error(err))
		idx = nil
	} else {
		defer idx.Close()
	}
	var memIndex memory.Index
	if idx != nil {
		memIndex = idx
	}
	memStore := memory.New(cfg.Data.TrajectoryDir(), cfg.Data.KnowledgeDir(), memIndex)

	traj := trajectory.New(cfg.Data.TrajectoryDir(), memStore)

	caps := daemon.ProbeCapabilities(cfg.Capabilities.CDPPort, cfg.Capabilities.VisionURL)

	server := daemon.New(daemon.Server{
		Registry:              reg,
		Cache:                 memCache,
		Trajectory:            traj,
		Memory:                memStore,
		Watcher:               w,
		Log:                   log,
		DefaultTimeout:        cfg.Daemon.DefaultTimeout(),
		Capabilities:          caps,
		CacheTTL:              cfg.Cache.TTL(),
		MaxConcurrentRequests: cfg.Daemon.MaxConcurrentRequests,
	})

	gateway, err := gwws.Provide(ctx, eventBus, log)
	if err != nil {
		log.Fatal("failed to start event-stream gateway", zap.Error(err))
	}
	mux := http.NewServeMux()
	gateway.SetupRoutes(mux)
	httpSrv := &http.Server{Addr: "127.0.0.1:8787", Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("event-stream server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		log.Error("daemon loop exited with error", zap.Error(err))
		os.Exit(1)
	}
}
