package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	"voiceloop/internal/controllers"
	"voiceloop/internal/pipeline"
	"voiceloop/internal/providers"
	"voiceloop/internal/services"
	"voiceloop/internal/storage/interfaces"
	"voiceloop/internal/structures"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Container holds everything the commands need. It is built once per
// process by the injector in internal/di.
type Container struct {
	Config     *structures.Config
	Logger     providers.Logger
	Metrics    providers.MetricsProviderInterface
	Runner     pipeline.RunnerInterface
	Tracker    services.PerformanceTrackerInterface
	Insights   services.InsightAggregatorInterface
	Repository interfaces.PerformanceRepository
	Profiles   interfaces.ProfileStore
	router     providers.RouterProviderInterface
	health     *controllers.HealthController
}

func NewContainer(
	conf *structures.Config,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	runner pipeline.RunnerInterface,
	tracker services.PerformanceTrackerInterface,
	insights services.InsightAggregatorInterface,
	repo interfaces.PerformanceRepository,
	profiles interfaces.ProfileStore,
	router providers.RouterProviderInterface,
	healthController *controllers.HealthController,
) *Container {
	return &Container{
		Config:     conf,
		Logger:     logger,
		Metrics:    metrics,
		Runner:     runner,
		Tracker:    tracker,
		Insights:   insights,
		Repository: repo,
		Profiles:   profiles,
		router:     router,
		health:     healthController,
	}
}

// Handler builds the read-only HTTP surface.
func (c *Container) Handler() http.Handler {
	routes := c.router.GetRoutes()
	apiMux := http.NewServeMux()
	for _, route := range routes {
		apiMux.Handle(route.Url, route.Handler)
	}

	instrumentedAPI := providers.MetricsMiddleware(c.Metrics, c.Logger, routes, apiMux)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", c.health.Health)
	if c.Config.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)
	return mux
}

// Serve listens until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts the server down gracefully.
func (c *Container) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := c.Config.WebServer.Host + ":" + strconv.Itoa(c.Config.WebServer.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      c.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		c.Logger.Infof(providers.TypeApp, "Listening HTTP clients on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		c.Logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	c.Logger.Infof(providers.TypeApp, "gracefully stopped")
	return nil
}
