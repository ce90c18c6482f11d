package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/trunov/imageconv/internal/config"
	"github.com/trunov/imageconv/internal/jobstore"
	"github.com/trunov/imageconv/internal/metrics"
	"github.com/trunov/imageconv/internal/processor"
	"github.com/trunov/imageconv/internal/redisholder"
	"github.com/trunov/imageconv/internal/transport/handler"
	"github.com/trunov/imageconv/internal/transport/router"
	use_case "github.com/trunov/imageconv/internal/use-case"
)

type App struct {
	HttpServer *http.Server

	store           jobstore.Store
	holder          *redisholder.Holder
	stopHealth      context.CancelFunc
	shutdownTimeout time.Duration
}

func New(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		stopHealth:      cancel,
		shutdownTimeout: cfg.Server.ShutdownTimeout * time.Second,
	}

	switch cfg.Store.Backend {
	case "redis":
		holder, err := redisholder.Build(ctx, &cfg.Redis)
		if err != nil {
			cancel()
			return nil, err
		}
		a.holder = holder
		a.store = jobstore.NewRedisStore(holder, cfg.Store.Namespace, cfg.Retention())
	default:
		a.store = jobstore.NewMemoryStore(cfg.Retention())
	}
	log.Printf("job store: %s, retention %s", cfg.Store.Backend, cfg.Retention())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewProm("imageconv")
	if err := prom.Register(reg); err != nil {
		a.close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	transformer := processor.NewTransformer(processor.NewImageCodec())
	uc := use_case.New(transformer, a.store, prom, cfg.Upload.Workers)

	h := handler.New(uc, cfg, prom)
	r := router.NewRouter(h, cfg.CORS.AllowedOrigins, metrics.Handler(reg))

	a.HttpServer = &http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout * time.Second,
	}

	return a, nil
}

// Run serves until ctx is canceled, then drains in-flight requests and
// releases the job store.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	err := a.HttpServer.Shutdown(shutdownCtx)
	a.close()
	return err
}

func (a *App) close() {
	a.stopHealth()
	if err := a.store.Close(); err != nil {
		log.Printf("job store close: %v", err)
	}
	if a.holder != nil {
		if err := a.holder.Close(); err != nil {
			log.Printf("redis close: %v", err)
		}
	}
}
