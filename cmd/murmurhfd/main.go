// Command murmurhfd runs the HF-propagation voice conferencing server: a
// thin entrypoint wiring internal/config, internal/store and
// internal/server together, the role the teacher's root-level
// config.go/db.go/signal.go/end.go play for multiserver's own process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/murmurhf/internal/config"
	"github.com/signalsfoundry/murmurhf/internal/logging"
	"github.com/signalsfoundry/murmurhf/internal/server"
	"github.com/signalsfoundry/murmurhf/internal/store"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code named by spec.md §6: 0 for a clean
// shutdown, 1 for a configuration or startup failure, 2 for a usage error.
func run() int {
	var (
		configPath       string
		databaseOverride string
		metricsAddr      string
		statsDir         string
		logDir           string
	)

	fs := flag.NewFlagSet("murmurhfd", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "config/murmurhfd.yml", "path to the YAML configuration file")
	fs.StringVar(&configPath, "c", "config/murmurhfd.yml", "shorthand for -config")
	fs.StringVar(&databaseOverride, "database", "", "override the config file's database connection string")
	fs.StringVar(&databaseOverride, "d", "", "shorthand for -database")
	fs.StringVar(&metricsAddr, "metrics-addr", ":9090", "address for the Prometheus /metrics endpoint, empty to disable")
	fs.StringVar(&statsDir, "stats-dir", "stats", "directory for per-session usage statistics, empty to disable")
	fs.StringVar(&logDir, "log-dir", "log", "directory for rotated log files")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 2
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := logging.Init(logDir, nil); err != nil {
		fmt.Fprintf(os.Stderr, "murmurhfd: init logging: %v\n", err)
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("murmurhfd: %v", err)
		return 1
	}

	databaseConfig := cfg.Database
	if databaseOverride != "" {
		databaseConfig = databaseOverride
	}
	if databaseConfig == "" {
		databaseConfig = "storage/murmurhfd.sqlite"
	}

	st, err := store.Open(databaseConfig)
	if err != nil {
		log.Printf("murmurhfd: open store: %v", err)
		return 1
	}
	defer st.Close()

	srv, err := server.New(cfg, st, statsDir)
	if err != nil {
		log.Printf("murmurhfd: %v", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(srv.Metrics().Registry, promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("murmurhfd: metrics listener: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			metricsSrv.Close()
		}()
		log.Printf("murmurhfd: metrics on %s", metricsAddr)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		log.Printf("murmurhfd: caught %s, shutting down", sig)
		cancel()
	}()

	log.Printf("murmurhfd: starting, welcome text %q", cfg.WelcomeText)
	if err := srv.Run(ctx); err != nil {
		log.Printf("murmurhfd: %v", err)
		return 1
	}

	log.Print("murmurhfd: stopped")
	return 0
}
