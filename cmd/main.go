package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/trunov/imageconv/internal/app"
	"github.com/trunov/imageconv/internal/config"
)

const defaultConfigFile = "config.json"

var version = "dev"

func initSentry(cfg *config.SentryConfig, version string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     version,
		BeforeSend:  dropAbortedResponses,
	})
}

// dropAbortedResponses discards the panic that sentryhttp records when a
// handler aborts its response with http.ErrAbortHandler. The handler has
// already reported the cause.
func dropAbortedResponses(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil {
		if rec, ok := hint.RecoveredException.(error); ok && errors.Is(rec, http.ErrAbortHandler) {
			return nil
		}
		if errors.Is(hint.OriginalException, http.ErrAbortHandler) {
			return nil
		}
	}
	for _, ex := range event.Exception {
		if ex.Value == http.ErrAbortHandler.Error() {
			return nil
		}
	}
	return event
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	file := os.Getenv("CONFIG_FILE")
	if file == "" {
		file = defaultConfigFile
	}

	cfg := config.NewConfig()
	if err := cfg.Read(file); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal(err)
		}
		log.Printf("config file %s not found, using defaults", file)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if cfg.Sentry.SentryDSN != "" {
		if err := initSentry(&cfg.Sentry, version); err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Print(err)
		return
	}
}
