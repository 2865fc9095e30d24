package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/tazhate/gamecal/config"
	"github.com/tazhate/gamecal/internal/bot"
	"github.com/tazhate/gamecal/internal/clients/caldav"
	"github.com/tazhate/gamecal/internal/clients/icsfeed"
	"github.com/tazhate/gamecal/internal/datetime"
	"github.com/tazhate/gamecal/internal/scheduler"
	"github.com/tazhate/gamecal/internal/service"
	"github.com/tazhate/gamecal/internal/storage"
)

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.WithError(err).Warn("set GOMAXPROCS")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg)

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	clock := datetime.SystemClock{Location: cfg.Timezone}
	todoSvc := service.NewTodoService(store, clock)
	calendarSvc := service.NewCalendarService(clock, calendarSources(cfg)...)

	tgBot, err := bot.New(cfg, todoSvc, calendarSvc)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	sched := scheduler.New(cfg, todoSvc, calendarSvc)
	sched.SetSender(tgBot)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.WithError(err).Error("scheduler error")
		}
	}()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.WithError(err).Error("bot error")
		}
	}()

	log.Info("gamecal started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("stop bot")
	}

	log.Info("gamecal stopped")
}

func setupLogging(cfg *config.Config) {
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// calendarSources builds the configured event sources. A CalDAV account
// without CALDAV_CALENDAR uses its first discovered calendar.
func calendarSources(cfg *config.Config) []service.EventSource {
	var sources []service.EventSource

	if cfg.CalDAVURL != "" || cfg.CalDAVUsername != "" {
		client := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
		client.SetCalendarID(cfg.CalDAVCalendar)

		if cfg.CalDAVCalendar == "" && client.IsConfigured() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			cals, err := client.DiscoverCalendars(ctx)
			cancel()
			switch {
			case err != nil:
				log.WithError(err).Warn("discover CalDAV calendars")
			case len(cals) == 0:
				log.Warn("no CalDAV calendars found")
			default:
				client.SetCalendarID(cals[0].ID)
				log.WithField("calendar", cals[0].DisplayName).Info("using CalDAV calendar")
			}
		}

		sources = append(sources, service.NewCalDAVSource(client, "", cfg.Timezone))
	}

	if cfg.ICSURL != "" {
		sources = append(sources, service.NewICSSource(icsfeed.New(cfg.ICSURL, cfg.Timezone)))
	}

	return sources
}
