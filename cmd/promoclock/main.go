package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hanko-field/promoclock/internal/countdown"
	"github.com/hanko-field/promoclock/internal/handlers"
	"github.com/hanko-field/promoclock/internal/platform/config"
	pfirestore "github.com/hanko-field/promoclock/internal/platform/firestore"
	"github.com/hanko-field/promoclock/internal/platform/jobs"
	"github.com/hanko-field/promoclock/internal/platform/observability"
	"github.com/hanko-field/promoclock/internal/presets"
	firestoreRepo "github.com/hanko-field/promoclock/internal/repositories/firestore"
	"github.com/hanko-field/promoclock/internal/services"
)

const meterName = "github.com/hanko-field/promoclock/internal/countdown"

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("promoclock")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	catalog := presets.Default()
	if path := strings.TrimSpace(cfg.Countdown.PresetsFile); path != "" {
		catalog, err = presets.Load(path)
		if err != nil {
			logger.Fatal("failed to load countdown presets", zap.String("path", path), zap.Error(err))
		}
	}
	logger.Info("countdown presets loaded", zap.Strings("variants", catalog.Names()), zap.String("default", catalog.DefaultName()))

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	promotionRepo, err := firestoreRepo.NewPromotionRepository(firestoreProvider, firestoreRepo.WithPromotionLogger(logger.Named("promotions")))
	if err != nil {
		logger.Fatal("failed to initialise promotion repository", zap.Error(err))
	}

	defaultThresholds := countdown.ThresholdsFromDurations(cfg.Countdown.UrgentThreshold, cfg.Countdown.CriticalThreshold)
	countdownService, err := services.NewPromotionCountdownService(services.PromotionCountdownServiceDeps{
		Promotions:        promotionRepo,
		Presets:           catalog,
		DefaultThresholds: defaultThresholds,
		DefaultLanguage:   cfg.Countdown.DefaultLanguage,
	})
	if err != nil {
		logger.Fatal("failed to initialise countdown service", zap.Error(err))
	}

	healthOpts := []handlers.HealthOption{
		handlers.WithHealthVersion(buildVersion()),
		handlers.WithHealthCheck("firestore", firestoreCheck(firestoreClient)),
	}

	var watcher services.CountdownWatcher
	syncCtx, syncCancel := context.WithCancel(context.Background())
	var syncWG sync.WaitGroup
	if cfg.Features.EnableWatcher {
		pubsubClient, err := newPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()

		topic := pubsubClient.Topic(cfg.PubSub.Topic)
		topic.EnableMessageOrdering = true
		defer topic.Stop()
		healthOpts = append(healthOpts, handlers.WithHealthCheck("pubsub", topicCheck(topic)))

		publisher, err := jobs.NewPubSubCountdownEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise countdown event publisher", zap.Error(err))
		}

		scheduler := countdown.NewScheduler(
			countdown.WithLogger(logger.Named("scheduler")),
			countdown.WithMeter(otel.GetMeterProvider().Meter(meterName)),
			countdown.WithRetroactiveStart(cfg.Countdown.RetroactiveStart),
		)
		watcher, err = services.NewCountdownWatcher(services.CountdownWatcherDeps{
			Promotions: promotionRepo,
			Presets:    catalog,
			Scheduler:  scheduler,
			Publisher:  publisher,
			Logger:     logger.Named("watcher"),
			Interval:   cfg.Countdown.TickInterval,
			Lookahead:  cfg.Countdown.WatchLookahead,
			SyncLimit:  cfg.Countdown.WatchLimit,
		})
		if err != nil {
			logger.Fatal("failed to initialise countdown watcher", zap.Error(err))
		}

		syncWG.Add(1)
		go func() {
			defer syncWG.Done()
			runWatchSync(syncCtx, logger.Named("watcher"), watcher, cfg.Countdown.WatchSyncInterval)
		}()
	}

	countdownHandlers := handlers.NewCountdownHandlers(countdownService)
	watchHandlers := handlers.NewWatchHandlers(watcher)

	projectID := strings.TrimSpace(cfg.Firestore.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithCountdownRoutes(countdownHandlers.Routes),
		handlers.WithWatchRoutes(watchHandlers.Routes),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("promoclock listening", zap.Bool("watcher", watcher != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	syncCancel()
	syncWG.Wait()
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Warn("countdown watcher close error", zap.Error(err))
		}
	}
}

// runWatchSync reconciles watches immediately and then every interval.
func runWatchSync(ctx context.Context, logger *zap.Logger, watcher services.CountdownWatcher, interval time.Duration) {
	syncOnce := func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		result, err := watcher.Sync(runCtx)
		if err != nil {
			if !errors.Is(err, services.ErrWatcherClosed) && ctx.Err() == nil {
				logger.Error("countdown watch sync error", zap.Error(err))
			}
			return
		}
		if result.Started > 0 || result.Stopped > 0 || result.Failed > 0 {
			logger.Info("countdown watch sync",
				zap.Int("started", result.Started),
				zap.Int("existing", result.Existing),
				zap.Int("stopped", result.Stopped),
				zap.Int("skipped", result.Skipped),
				zap.Int("failed", result.Failed),
			)
		}
	}

	syncOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			syncOnce()
		case <-ctx.Done():
			return
		}
	}
}

func newPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*pubsub.Client, error) {
	var opts []option.ClientOption
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	return pubsub.NewClient(ctx, cfg.ProjectID, opts...)
}

func firestoreCheck(client *firestore.Client) handlers.HealthCheck {
	return func(ctx context.Context) error {
		iter := client.Collections(ctx)
		_, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		return err
	}
}

func topicCheck(topic *pubsub.Topic) handlers.HealthCheck {
	return func(ctx context.Context) error {
		ok, err := topic.Exists(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("topic %s does not exist", topic.ID())
		}
		return nil
	}
}

func buildVersion() string {
	if v := strings.TrimSpace(os.Getenv("PROMOCLOCK_BUILD_VERSION")); v != "" {
		return v
	}
	return "dev"
}
