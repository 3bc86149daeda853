package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/cargotrack/routeplay/internal/config"
	"github.com/cargotrack/routeplay/internal/dispatcher"
	"github.com/cargotrack/routeplay/internal/display"
	"github.com/cargotrack/routeplay/internal/frame"
	"github.com/cargotrack/routeplay/internal/handlers"
	"github.com/cargotrack/routeplay/internal/influx"
	"github.com/cargotrack/routeplay/internal/logging"
	"github.com/cargotrack/routeplay/internal/monitor"
	intOtel "github.com/cargotrack/routeplay/internal/otel"
	"github.com/cargotrack/routeplay/internal/parser"
	"github.com/cargotrack/routeplay/internal/playback"
	"github.com/cargotrack/routeplay/internal/server"
	"github.com/cargotrack/routeplay/internal/storage"
	"github.com/cargotrack/routeplay/internal/stream"
)

// BuildDate can be set at build time via ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"

	AppName = "routeplay"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	fs.String("addr", "", "HTTP listen address")
	fs.String("log-level", "", "debug, info, warn or error")
	remoteURL := fs.String("remote", "", "send a command to the hub at this WebSocket URL and exit")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s (built %s)\n", AppName, Version, BuildDate)
		return nil
	}

	configErr := config.Load(*configDir)
	_ = viper.BindPFlag("server.addr", fs.Lookup("addr"))
	_ = viper.BindPFlag("logLevel", fs.Lookup("log-level"))

	if *remoteURL != "" {
		return runRemote(ctx, *remoteURL, viper.GetString("server.secret"), fs.Args(), stdout)
	}

	a, err := newApp(ctx, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	if configErr != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		a.logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}

	return a.serve(ctx)
}

// app holds every long-lived component of a serving process.
type app struct {
	start   time.Time
	logFile *os.File
	slogMgr *logging.SlogManager
	logger  *slog.Logger
	zlog    zerolog.Logger
	otelP   *intOtel.Provider

	backend storage.Backend
	loop    *frame.Loop
	hub     *stream.Hub
	influxM *influx.Manager
	sink    *influx.Sink
	session *playback.Session
	events  *dispatcher.Dispatcher
	mon     *monitor.Service
	srv     *server.Server
}

func newApp(ctx context.Context, stdout io.Writer) (*app, error) {
	a := &app{start: time.Now()}
	if err := a.setupLogging(stdout); err != nil {
		return nil, err
	}
	a.logger.Info("Starting up...", "version", Version, "buildDate", BuildDate)

	checks := map[string]server.Checker{}

	loc, err := time.LoadLocation(viper.GetString("timezone"))
	if err != nil {
		a.logger.Warn("Unknown timezone, schedules are read as UTC", "timezone", viper.GetString("timezone"), "error", err)
		loc = time.UTC
	}
	routeParser := parser.NewParser(a.logger, loc)

	backend, err := initStorage(config.GetStorageConfig(), storageDeps{
		Logger:  a.logger,
		ZLogger: a.zlog.With().Str("component", "storage").Logger(),
		Parser:  routeParser,
		Checks:  checks,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.backend = backend

	pcfg := config.GetPlaybackConfig()
	a.loop = frame.NewLoop(pcfg.FrameInterval, a.logger)
	checks["frameLoop"] = func(context.Context) error {
		if !a.loop.Running() {
			return frame.ErrNotRunning
		}
		return nil
	}

	a.events, err = dispatcher.New(logging.NewDispatcherLogger(a.zlog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	layout := display.NewLayout()
	if viper.GetBool("layout.sidebar") {
		layout = display.DashboardLayout(viper.GetInt("layout.flightCards"))
	}
	a.hub = stream.NewHub(layout,
		stream.WithLogger(a.logger),
		stream.WithSecret(viper.GetString("server.secret")),
		stream.WithCommands(a.events.Run),
	)

	displays := []display.Display{a.hub}
	if viper.GetBool("influx.enabled") {
		a.influxM = influx.NewManager(
			a.zlog.With().Str("component", "influx").Logger(),
			filepath.Join(viper.GetString("logsDir"), "influx_backup.lp.gz"),
		)
		if err := a.influxM.Connect(ctx); err != nil {
			a.logger.Error("Failed to connect to InfluxDB, telemetry disabled", "error", err)
			a.influxM = nil
		} else {
			a.sink = influx.NewSink(a.influxM, viper.GetDuration("influx.sampleInterval"))
			displays = append(displays, a.sink)
			checks["influx"] = func(context.Context) error {
				if !a.influxM.IsValid {
					return errors.New("writing to backup file")
				}
				return nil
			}
		}
	}

	a.session, err = playback.NewSession(a.loop, display.NewMulti(displays...), playback.Config{
		StartDelay:   pcfg.StartDelay,
		SegmentPause: pcfg.SegmentPause,
		LoopDelay:    pcfg.LoopDelay,
		Durations: playback.Durations{
			Ground: pcfg.Ground,
			Air:    pcfg.Air,
		},
		PickupProgress:   pcfg.PickupProgress,
		AirProgress:      pcfg.AirProgress,
		DeliveryProgress: pcfg.DeliveryProgress,
	}, a.logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create playback session: %w", err)
	}

	handlers.NewService(handlers.Dependencies{
		Session:    a.session,
		Runner:     a.loop,
		Backend:    a.backend,
		Parser:     routeParser,
		LogManager: a.slogMgr,
	}).Register(a.events)
	a.logger.Info("Command handlers registered", "commands", a.events.Commands())

	monDeps := monitor.Dependencies{
		Source:     a.session,
		Logger:     a.logger,
		Publisher:  a.hub,
		StatusFile: filepath.Join(viper.GetString("logsDir"), "status.json"),
		Interval:   viper.GetDuration("monitor.interval"),
	}
	if rec, ok := storage.As[storage.StatusRecorder](a.backend); ok {
		monDeps.Recorder = rec
	}
	if a.sink != nil {
		monDeps.Writer = a.sink
	}
	a.mon = monitor.NewService(monDeps)

	a.srv = server.New(viper.GetString("server.addr"), server.Dependencies{
		Logger:   a.logger,
		Commands: a.events.Run,
		Stream:   a.hub,
		Checks:   checks,
	})

	return a, nil
}

// setupLogging opens the per-run log file and builds the slog and zerolog
// loggers, the optional OTel provider and the optional Graylog output.
func (a *app) setupLogging(stdout io.Writer) error {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	logPath := logging.LogFilePath(logsDir, AppName, a.start)
	if _, err := os.Stat(logPath); err == nil {
		os.Rename(logPath, logPath+".old")
	}
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	a.logFile = f
	out := io.MultiWriter(stdout, f)

	level := viper.GetString("logLevel")
	zlevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		zlevel = zerolog.InfoLevel
	}
	a.zlog = zerolog.New(out).Level(zlevel).With().Timestamp().Str("service", AppName).Logger()

	a.otelP, err = intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), f))
	if err != nil {
		a.zlog.Error().Err(err).Msg("Failed to initialize OTel provider")
		a.otelP = nil
	}

	opts := logging.Options{
		File:  out,
		Level: level,
		Playback: func() (logging.PlaybackState, bool) {
			if a.session == nil {
				return logging.PlaybackState{}, false
			}
			st := a.session.Status()
			return logging.PlaybackState{
				Route: st.Route,
				Phase: string(st.Phase),
				Leg:   st.Leg,
				Stop:  st.Index,
				Stops: st.Total,
			}, st.Route != ""
		},
	}
	if a.otelP != nil && a.otelP.Enabled() {
		opts.Provider = a.otelP.LoggerProvider()
	}
	if viper.GetBool("graylog.enabled") {
		w, err := logging.DialGraylog(viper.GetString("graylog.address"))
		if err != nil {
			a.zlog.Error().Err(err).Msg("Graylog output disabled")
		} else {
			opts.Graylog = w
		}
	}

	a.slogMgr = logging.NewSlogManager()
	a.slogMgr.Setup(opts)
	a.logger = a.slogMgr.Logger()
	a.logger.Info("Logging to file", "path", logPath)
	return nil
}

func (a *app) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.loop.Run(gctx)
	})

	g.Go(func() error {
		return a.srv.Run(gctx)
	})

	if err := a.mon.Start(); err != nil {
		return err
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down...")
		a.mon.Stop()
		_ = a.hub.Close()
		return a.srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *app) close() {
	if a.events != nil {
		a.events.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Error closing storage backend", "error", err)
		}
	}
	if a.influxM != nil {
		if err := a.influxM.Close(); err != nil {
			a.logger.Error("Error closing InfluxDB manager", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.slogMgr != nil {
		_ = a.slogMgr.Flush(ctx)
	}
	if a.otelP != nil {
		_ = a.otelP.Shutdown(ctx)
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
