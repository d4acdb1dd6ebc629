package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nami/config"
	"nami/director"
	"nami/drawers"
	"nami/drivers"
	"nami/events"
	"nami/logs"
	"nami/models"
	"nami/store"
	web "nami/web/handlers"
)

func main() {
	flags, wsFlags, serialFlags, replayFlags, err := config.GetFlags()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := logs.ParseLevel(flags.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := logs.New(os.Stderr, level)
	slog.SetDefault(logger)

	fatal := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(flags.ConfigPath)
	if err != nil {
		fatal("couldn't load config", "error", err)
	}
	if flags.DirectorURL != "" {
		cfg.Director.BaseURL = flags.DirectorURL
	}
	if wsFlags.EventsURL != "" {
		cfg.Director.EventsURL = wsFlags.EventsURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventHub := events.NewHub()
	registry, err := store.NewRegistry(cfg.Feeds)
	if err != nil {
		fatal("couldn't create feed registry", "error", err)
	}

	// Subscribe before any driver runs so nothing it delivers is missed.
	_, dispatchEvents, unsubscribe := eventHub.Subscribe(1024)
	defer unsubscribe()
	dispatcher := store.NewDispatcher(registry, logger.With("component", "dispatcher"))
	go dispatcher.Run(ctx, dispatchEvents)

	if flags.Record {
		recorder, err := drivers.NewRecorder(drivers.LOG_DIR, eventHub, logger.With("component", "recorder"))
		if err != nil {
			fatal("couldn't start recorder", "error", err)
		}
		go func() {
			if err := recorder.Run(ctx); err != nil {
				logger.Error("recorder stopped", "error", err)
			}
		}()
	}

	// Create the correct driver
	driverLogger := logger.With("driver", string(flags.Driver))
	var driver drivers.Driver
	switch flags.Driver {
	case config.Websocket:
		driver = drivers.NewWebsocket(cfg.Director.EventsURL, wsFlags.Origin, eventHub, driverLogger)
	case config.Serial:
		driver = drivers.NewSerial(serialFlags, eventHub, driverLogger)
	case config.Replay:
		driver = drivers.NewReplayer(replayFlags, eventHub, driverLogger)
	default:
		fatal("unsupported driver type", "driver", flags.Driver)
	}

	// Start up the driver
	if err := driver.Init(); err != nil {
		fatal("couldn't init driver", "error", err)
	}
	go func() {
		if err := driver.Run(ctx); err != nil {
			logger.Error("error running driver", "error", err)
		}
	}()

	client := director.NewClient(cfg.Director.BaseURL, cfg.Drawers.RequestTimeout)
	go seedLocks(ctx, client, registry, logger)

	// Drawers
	drawerRegistry := drawers.NewRegistry(logger.With("component", "drawers"))
	fragments := drawers.NewFragmentLoader(flags.FragmentsDir, logger.With("component", "fragments"))
	if err := fragments.Watch(ctx); err != nil {
		logger.Warn("fragment hot reload disabled", "error", err)
	}
	drawers.RegisterDefaults(drawerRegistry, fragments, client, cfg.Drawers, logger.With("component", "drawers"))

	// Initialise UI
	sessions := web.NewSessions(drawerRegistry, logger)
	dashboard, err := web.NewDashboard(web.DashboardOptions{
		Registry:   registry,
		Dispatcher: dispatcher,
		EventHub:   eventHub,
		Sender:     drivers.SenderFor(driver),
		Drawers:    drawerRegistry,
		Sessions:   sessions,
		Logger:     logger.With("component", "web"),
		DrawerCtx:  ctx,
	})
	if err != nil {
		fatal("couldn't create dashboard", "error", err)
	}

	// Initialise Server
	server := web.NewServer(dashboard, sessions, logger.With("component", "http"))
	if err := server.Start(ctx, flags.Addr); err != nil {
		fatal("couldn't start server", "error", err)
	}
	logger.Info("shut down", "applied", dispatcher.Applied(), "rejected", dispatcher.Rejected(), "dropped", eventHub.Dropped())
}

// seedLocks copies the director's current lock flags into the panel so a fresh dashboard does not show them unlocked
// until the next suggestion arrives.
func seedLocks(ctx context.Context, client *director.Client, registry *store.Registry, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	locks, err := client.LockStates(ctx)
	if err != nil {
		logger.Warn("couldn't read director lock states", "error", err)
		return
	}
	registry.ApplySuggestion(models.ContextSuggestion{
		StreamerLocked: locks.StreamerLocked,
		ContextLocked:  locks.ContextLocked,
	})
}
