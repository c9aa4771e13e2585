package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fahim-bhuiyan/trimslot/libs/config"
	"github.com/fahim-bhuiyan/trimslot/libs/db"
	"github.com/fahim-bhuiyan/trimslot/libs/httpx"
	"github.com/fahim-bhuiyan/trimslot/libs/kafkax"
	otelx "github.com/fahim-bhuiyan/trimslot/libs/otel"
	"github.com/fahim-bhuiyan/trimslot/libs/runtime"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/catalog"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/consumer"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/handlers"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/inbox"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/roster"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/rostergrpc"
	"github.com/fahim-bhuiyan/trimslot/services/availability-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool)

	loc, err := time.LoadLocation(config.String("SHOP_TIMEZONE", "UTC"))
	if err != nil {
		logger.Error("invalid SHOP_TIMEZONE; using UTC", "err", err)
		loc = time.UTC
	}
	policy, err := roster.ParseFallbackPolicy(config.String("ROSTER_FETCH_ERROR_POLICY", "assume_closed"))
	if err != nil {
		logger.Error("invalid ROSTER_FETCH_ERROR_POLICY; assuming closed", "err", err)
	}
	fallbackWindow, err := parseShopHours(
		config.String("SHOP_OPEN", "09:00"),
		config.String("SHOP_CLOSE", "17:00"),
	)
	if err != nil {
		logger.Error("invalid shop hours; assume_open fallback disabled", "err", err)
	}

	// Prefer a live roster-service lookup when a gRPC address is configured
	// and protos are generated; otherwise serve from the event-fed read model.
	rosterSrc, err := rostergrpc.NewSource(config.String("ROSTER_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("roster grpc source init failed; using local read model", "err", err)
		rosterSrc = nil
	}
	if rosterSrc == nil {
		rosterSrc = repo
	}

	durations := catalog.New(repo, mustInt("DEFAULT_DURATION_MINUTES", 30), logger)
	availabilityHandler := handlers.NewAvailabilityHandler(rosterSrc, repo, durations, logger, handlers.Config{
		StepMinutes:    mustInt("SLOT_STEP_MINUTES", 30),
		Location:       loc,
		FallbackPolicy: policy,
		FallbackWindow: fallbackWindow,
		MaxRangeDays:   mustInt("AVAILABILITY_MAX_RANGE_DAYS", 31),
	})

	brokers := config.String("KAFKA_BROKERS", "")
	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})

		inboxRepo := inbox.NewRepository(pool)
		rosterConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "availability-service"),
			Topic:   config.String("KAFKA_ROSTER_TOPIC", "roster.published.v1"),
		}, func(ctx context.Context, msg kafka.Message) error {
			pub, err := consumer.ParseRosterPublished(msg.Value)
			if err != nil {
				// Skip, don't retry: a malformed publication will never parse.
				logger.Error("invalid roster event payload", "err", err, "topic", msg.Topic)
				return nil
			}
			if err := repo.ApplyPublishedRoster(ctx, pub); err != nil {
				return err
			}
			logger.Info("roster applied", "roster_id", pub.ID, "week_start", pub.WeekStart, "shifts", len(pub.Shifts))
			return nil
		})
		go rosterConsumer.Run(ctx)
	} else {
		logger.Warn("roster consumer disabled (no kafka brokers configured)")
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/public/availability", availabilityHandler.Availability)
	mux.HandleFunc("/api/v1/public/slots", availabilityHandler.Slots)

	rateLimit := publicRateLimiter(logger)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ","),
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		rateLimit,
		httpx.WithTimeout(10*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
