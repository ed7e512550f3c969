package command

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/stowage-go/internal/config"
	"github.com/yndnr/stowage-go/internal/infra/confloader"
	"github.com/yndnr/stowage-go/internal/infra/shutdown"
	"github.com/yndnr/stowage-go/internal/manager"
	"github.com/yndnr/stowage-go/internal/telemetry/logger"
	"github.com/yndnr/stowage-go/internal/telemetry/metric"
)

const shutdownTimeout = 15 * time.Second

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the manager open, log changes and serve /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Listen address for /metrics (empty disables)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := Config(c)
			if c.IsSet("metrics-addr") {
				cfg.Metrics.Addr = c.String("metrics-addr")
			}
			return runWatch(c.Context, cfg, configLoader(c), nil)
		},
	}
}

// runWatch blocks until ctx ends or a termination signal arrives. ready,
// when set, receives the metrics listen address ("" when disabled) once
// everything is running.
func runWatch(ctx context.Context, cfg *config.Config, loader *confloader.Loader, ready func(addr string)) error {
	log := logger.L(logger.WithAttrs(ctx, "command", "watch"))

	reg := metric.NewRegistry()
	s, err := openSession(ctx, cfg, reg)
	if err != nil {
		return err
	}

	h := shutdown.NewHandler(shutdownTimeout)
	h.SetLogger(log.Slog())
	h.OnShutdown(func(context.Context) error {
		return s.Close()
	})

	if err := reg.Registerer().Register(metric.NewSizeCollector(s.manager)); err != nil {
		log.Warn("size collector not registered", "error", err)
	}

	unsubscribe := s.manager.Subscribe(func(ev manager.Event) {
		logEvent(log, ev)
	})
	h.OnShutdown(func(context.Context) error {
		unsubscribe()
		return nil
	})

	addr, err := serveMetrics(cfg.Metrics.Addr, reg, h)
	if err != nil {
		h.Trigger()
		return errors.Join(err, h.Wait(ctx))
	}

	reload := func() {
		reloadConfig(loader)
	}
	h.OnReload(reload)
	if path := loader.FilePath(); path != "" {
		w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
		if err != nil {
			log.Warn("config watcher unavailable", "error", err)
		} else if err := w.Watch(path); err != nil {
			w.Stop()
		} else {
			w.OnChange(func(string) { reload() })
			w.StartAsync()
			h.OnShutdown(func(context.Context) error {
				return w.Stop()
			})
		}
	}

	stats, _ := s.manager.Stats(ctx)
	log.Info("watching",
		"primary", stats.Primary,
		"fallbacks", stats.Fallbacks,
		"metrics", addr,
	)
	if ready != nil {
		ready(addr)
	}

	return h.Wait(ctx)
}

// serveMetrics starts the /metrics endpoint and registers its shutdown.
func serveMetrics(addr string, reg *metric.Registry, h *shutdown.Handler) (string, error) {
	if addr == "" {
		return "", nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	h.OnShutdown(srv.Shutdown)

	return ln.Addr().String(), nil
}

// reloadConfig re-reads the configuration and applies the settings that
// can change at runtime. Only the log level is live; other changes need
// a restart.
func reloadConfig(loader *confloader.Loader) {
	cfg := config.Default()
	if err := loader.Reload(cfg); err != nil {
		logger.Warn("config reload failed", "error", err)
		return
	}
	if err := config.Verify(cfg); err != nil {
		logger.Warn("config reload rejected", "error", err)
		return
	}
	if cfg.Log.Level != logger.GetLevel() {
		logger.SetLevel(cfg.Log.Level)
		logger.Info("log level changed", "level", logger.GetLevel())
	}
}

func logEvent(log logger.Logger, ev manager.Event) {
	args := []any{"event", string(ev.Type), "id", ev.ID}
	if ev.Adapter != "" {
		args = append(args, "adapter", string(ev.Adapter))
	}
	if ev.Key != "" {
		args = append(args, "key", ev.Key)
	}
	if ev.Value != nil {
		args = append(args, "value", ev.Value)
	}
	if ev.Count > 0 {
		args = append(args, "count", ev.Count)
	}

	switch {
	case ev.IsChange():
		log.Info("change", args...)
	case ev.Err != nil:
		log.Warn("storage event", append(args, "error", ev.Err)...)
	case ev.Type == manager.EventAdapterEvent:
		log.Debug("adapter event", args...)
	default:
		log.Info("storage event", args...)
	}
}
