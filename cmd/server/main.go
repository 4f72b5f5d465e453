package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stonewarden/stonewarden/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	hostConf := flag.String("conf", envDefault("STONEWARDEN_CONF", ""), "Path to host config file (env: STONEWARDEN_CONF)")
	flag.Parse()

	host, err := server.LoadHost(*hostConf)
	if err != nil {
		os.Stderr.WriteString("stonewarden: " + err.Error() + "\n")
		os.Exit(1)
	}
	cfg := host.Config()

	log, level := server.NewLogger(cfg.Log)
	defer log.Sync()

	metrics := server.NewMetrics(time.Now())
	rt := server.NewRuntime(log, cfg, metrics)

	if err := rt.Load(); err != nil {
		log.Error("load failed", zap.Error(err))
		rt.Unload()
		os.Exit(1)
	}
	log.Info("runtime loaded",
		zap.String("data-dir", cfg.DataDir), zap.String("game-config", cfg.GameConfig))

	// Host config changes apply the new log level in place; everything
	// else needs a restart.
	host.Watch(func(next server.HostConfig) {
		if err := level.UnmarshalText([]byte(next.Log.Level)); err != nil {
			log.Warn("ignoring invalid log level", zap.String("level", next.Log.Level))
		}
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	var saves <-chan time.Time
	if cfg.SaveInterval > 0 {
		ticker := time.NewTicker(cfg.SaveInterval)
		defer ticker.Stop()
		saves = ticker.C
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case <-saves:
			log.Debug("periodic save")
			rt.SaveToDisk()
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				log.Info("reloading")
				if err := rt.Reload(); err != nil {
					log.Error("reload failed, shutting down", zap.Error(err))
					os.Exit(1)
				}
				continue
			}
			log.Info("shutting down", zap.String("signal", sig.String()))
			rt.SaveToDisk()
			rt.Unload()
			return
		}
	}
}
