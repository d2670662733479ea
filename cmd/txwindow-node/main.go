// Command txwindow-node runs a transmit window gate in front of a simulated
// mesh radio.
//
// The node loads its window schedule from a YAML file, drives the gate on
// a ticker, optionally generates traffic and serves Prometheus metrics.
// With -interactive it opens an operator console.
//
// Usage:
//
//	txwindow-node [flags]
//
// Flags:
//
//	-config string      Configuration file (default "txwindow.yaml")
//	-log-level string   Override log.level from the configuration
//	-log-format string  Override log.format from the configuration
//	-event-log string   Override log.event_log (decision log file)
//	-metrics string     Override metrics.listen; "off" disables
//	-interactive        Start the operator console
//	-traffic duration   Submit a random packet at this interval (0 = off)
//	-fail-rate float    Share of simulated transmissions that fail
//
// Examples:
//
//	# Run with the defaults and an operator console
//	txwindow-node -interactive
//
//	# Generate traffic every 2s and keep a decision log
//	txwindow-node -config /etc/txwindow.yaml -traffic 2s -event-log node.twlog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/mesh-radio/txwindow/cmd/txwindow-node/interactive"
	"github.com/mesh-radio/txwindow/pkg/config"
	"github.com/mesh-radio/txwindow/pkg/gate"
	twlog "github.com/mesh-radio/txwindow/pkg/log"
	"github.com/mesh-radio/txwindow/pkg/metrics"
	"github.com/mesh-radio/txwindow/pkg/window"
)

// Flags holds the command-line settings.
type Flags struct {
	ConfigFile  string
	LogLevel    string
	LogFormat   string
	EventLog    string
	Metrics     string
	Interactive bool
	Traffic     time.Duration
	FailRate    float64
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", config.DefaultPath, "Configuration file")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.LogFormat, "log-format", "", "Log format: text, json")
	flag.StringVar(&flags.EventLog, "event-log", "", "Decision log file")
	flag.StringVar(&flags.Metrics, "metrics", "", "Metrics listen address, or off")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Start the operator console")
	flag.DurationVar(&flags.Traffic, "traffic", 0, "Submit a random packet at this interval (0 = off)")
	flag.Float64Var(&flags.FailRate, "fail-rate", 0, "Share of simulated transmissions that fail (0-1)")
}

// fileSaver writes window changes back to the configuration file.
type fileSaver struct {
	fs   afero.Fs
	path string
	file *config.File
}

func (s *fileSaver) SaveWindow(cfg window.Config) (string, error) {
	s.file.SetWindowConfig(cfg)
	if err := config.Save(s.fs, s.path, s.file); err != nil {
		return "", err
	}
	return s.path, nil
}

// applyFlags overlays command-line settings onto the file configuration.
func applyFlags(f *config.File, fl Flags) {
	if fl.LogLevel != "" {
		f.Log.Level = fl.LogLevel
	}
	if fl.LogFormat != "" {
		f.Log.Format = fl.LogFormat
	}
	if fl.EventLog != "" {
		f.Log.EventLog = fl.EventLog
	}
	switch fl.Metrics {
	case "":
	case "off":
		f.Metrics.Listen = ""
	default:
		f.Metrics.Listen = fl.Metrics
	}
}

func main() {
	flag.Parse()

	if flags.FailRate < 0 || flags.FailRate > 1 {
		log.Fatalf("fail-rate must be between 0 and 1, got %v", flags.FailRate)
	}

	fs := afero.NewOsFs()
	file, err := config.LoadOrDefault(fs, flags.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyFlags(file, flags)
	if err := file.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cfg, err := file.WindowConfig()
	if err != nil {
		log.Fatalf("Invalid window configuration: %v", err)
	}

	logger := config.NewLogger(file.Log, os.Stderr)

	eventLoggers := []twlog.Logger{}
	var eventFile *twlog.FileLogger
	if file.Log.EventLog != "" {
		eventFile, err = twlog.OpenFileLogger(fs, file.Log.EventLog)
		if err != nil {
			log.Fatalf("Failed to open decision log: %v", err)
		}
		defer eventFile.Close()
		eventLoggers = append(eventLoggers, eventFile)
	}

	radio := newSimRadio(flags.FailRate, !flags.Interactive)
	var gateLogger *slog.Logger
	if lvl, _ := config.ParseLevel(file.Log.Level); lvl <= slog.LevelDebug {
		gateLogger = logger
		eventLoggers = append(eventLoggers, twlog.NewSlogAdapter(logger))
	}

	g, err := gate.New(cfg, radio, gate.Options{
		Budget:       file.DrainBudget(),
		TickInterval: file.Drain.TickInterval,
		Logger:       gateLogger,
		EventLogger:  twlog.NewMultiLogger(eventLoggers...),
		NodeName:     file.Node.Name,
	})
	if err != nil {
		log.Fatalf("Failed to create gate: %v", err)
	}

	logger.Info("transmit window node starting",
		"run_id", g.RunID(),
		"window", cfg.String(),
		"tick", g.TickInterval(),
		"config", flags.ConfigFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector, err := metrics.NewCollector(nil, g)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}
	g.OnEvent(func(ev gate.Event) {
		switch ev.Type {
		case gate.EventWindowOpened:
			collector.ObserveTransition(true)
		case gate.EventWindowClosed:
			collector.ObserveTransition(false)
		case gate.EventDrainCompleted:
			if ev.Drain != nil {
				collector.ObserveDrain(ev.Drain.Transmitted)
			}
		}
	})
	g.OnEvent(func(ev gate.Event) {
		switch ev.Type {
		case gate.EventWindowOpened, gate.EventWindowClosed, gate.EventOverrideExpired:
			logger.Info("window event", "event", ev.Type.String(), "time", ev.Time)
		case gate.EventPacketDropped:
			logger.Warn("packet dropped", "packet", ev.Packet.String(), "reason", ev.Reason.String())
		}
	})

	var srv *http.Server
	if file.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		srv = &http.Server{Addr: file.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("metrics listening", "addr", file.Metrics.Listen)
	}

	go func() {
		if err := g.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("gate stopped", "error", err)
		}
	}()

	packets := newPacketSource()
	if flags.Traffic > 0 {
		go runTraffic(ctx, g, packets, flags.Traffic)
	}

	if flags.Interactive {
		console, err := interactive.New(g, packets, &fileSaver{fs: fs, path: flags.ConfigFile, file: file})
		if err != nil {
			log.Fatalf("Failed to start console: %v", err)
		}
		log.SetOutput(console.Stdout())

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM)
			<-sigCh
			cancel()
		}()
		console.Run(ctx, cancel)
	} else {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()
	}

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		stop()
	}

	s := g.Statistics()
	fmt.Fprintf(os.Stderr, "queued=%d dropped=%d expired=%d transmitted=%d radio=%d\n",
		s.TotalQueued, s.TotalDropped, s.TotalExpired, s.TotalTransmitted, radio.Sent())
	if eventFile != nil {
		fmt.Fprintf(os.Stderr, "decision log: %d events written to %s\n", eventFile.Written(), file.Log.EventLog)
	}
}
