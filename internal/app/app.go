package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/bookstore/internal/health"
	"github.com/vladislavdragonenkov/bookstore/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/bookstore/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/bookstore/internal/service/grpc"
	"github.com/vladislavdragonenkov/bookstore/internal/service/inventory"
	"github.com/vladislavdragonenkov/bookstore/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/bookstore/internal/service/outbox"
	"github.com/vladislavdragonenkov/bookstore/internal/service/reporting"
	redisstore "github.com/vladislavdragonenkov/bookstore/internal/storage/redis"
	"github.com/vladislavdragonenkov/bookstore/internal/transport/rest"
	"github.com/vladislavdragonenkov/bookstore/internal/version"
)

const shutdownTimeout = 5 * time.Second

// services собирает прикладной слой поверх выбранных хранилищ.
type services struct {
	lifecycle *lifecycle.Manager
	reports   *reporting.Service
	inventory *inventory.Adjuster
}

func newServices(cfg Config, deps *runtimeDependencies, cache *redisstore.StatsCache, lm *metrics.LifecycleMetrics, logger *log.Entry) services {
	adjuster := inventory.NewAdjuster(deps.books,
		inventory.WithOutbox(deps.outboxRepo),
		inventory.WithMetrics(lm),
		inventory.WithLogger(logger.WithField("layer", "inventory")),
	)
	manager := lifecycle.NewManager(deps.orders, deps.books, adjuster,
		lifecycle.WithOutbox(deps.outboxRepo),
		lifecycle.WithMetrics(lm),
		lifecycle.WithLogger(logger.WithField("layer", "lifecycle")),
		lifecycle.WithShippingFee(cfg.ShippingFeeMinor),
		lifecycle.WithDefaultCurrency(cfg.Currency),
	)
	reportingOpts := []reporting.Option{
		reporting.WithMetrics(lm),
		reporting.WithLogger(logger.WithField("layer", "reporting")),
	}
	if cache != nil {
		reportingOpts = append(reportingOpts, reporting.WithStatsCache(cache))
	}
	return services{
		lifecycle: manager,
		reports:   reporting.NewService(deps.orders, deps.reports, reportingOpts...),
		inventory: adjuster,
	}
}

// Run поднимает REST, gRPC и HTTP-метрики и блокируется до отмены ctx или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDependencies(deps, logger)

	cache, closeCache := initStatsCache(ctx, cfg, logger)
	if closeCache != nil {
		defer func() { _ = closeCache() }()
	}

	svc := newServices(cfg, deps, cache, metrics.NewLifecycleMetrics(), logger)

	// Kafka необязательна: без неё события копятся в outbox.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafkaProducer(kafkaProducer, logger)

	var (
		worker       *outbox.Worker
		outboxCancel context.CancelFunc
		outboxDone   chan struct{}
	)
	if kafkaProducer != nil {
		worker = outbox.NewWorker(
			deps.outboxRepo,
			kafka.NewOutboxPublisher(kafkaProducer, ""),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		)
		var outboxCtx context.Context
		outboxCtx, outboxCancel = context.WithCancel(context.Background())
		outboxDone = make(chan struct{})
		go func() {
			defer close(outboxDone)
			worker.Run(outboxCtx)
		}()
	} else {
		logger.Warn("KAFKA_BROKERS is not set, outbox worker is disabled")
	}

	var consumer *kafka.Consumer
	if kafkaProducer != nil && cache != nil {
		if consumer, err = initStatsConsumer(cfg.KafkaBrokers, kafkaProducer, svc.reports, logger); err == nil {
			if err := consumer.Start(ctx); err != nil {
				logger.WithError(err).Warn("failed to start kafka consumer")
			}
		}
	}

	grpcServer, grpcHealth := newGRPCServer(svc, logger)

	healthHandler := healthcheck.NewHandler(version.Get().Version)
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if cache != nil {
		healthHandler.RegisterChecker("redis", healthcheck.NewOptionalPingChecker("redis", cache))
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		shutdownOutboxWorker(outboxCancel, outboxDone, logger)
		stopKafkaConsumer(consumer, logger)
		return err
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		shutdownHTTP(metricsSrv, logger)
		shutdownOutboxWorker(outboxCancel, outboxDone, logger)
		stopKafkaConsumer(consumer, logger)
		return err
	}

	httpSrv := &http.Server{
		Handler:           rest.NewRouter(rest.NewHandler(svc.lifecycle, svc.reports, svc.inventory), logger.WithField("layer", "http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("REST API слушает %s", httpLis.Addr())
		errCh <- httpSrv.Serve(httpLis)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case err := <-errCh:
		if !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownHTTP(httpSrv, logger)
	stopGRPC(grpcServer, logger)
	stopKafkaConsumer(consumer, logger)
	shutdownOutboxWorker(outboxCancel, outboxDone, logger)
	drainOutbox(worker, logger)
	shutdownHTTP(metricsSrv, logger)

	return runErr
}

func newGRPCServer(svc services, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	grpcsvc.RegisterOrderAdminServer(grpcServer, grpcsvc.NewOrderAdmin(svc.lifecycle, svc.reports, svc.inventory, logger.WithField("layer", "grpc")))
	grpcMetrics.InitializeMetrics(grpcServer)

	// reflection для grpcurl
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer, healthServer
}

// stopGRPC останавливает сервер, не дожидаясь зависших вызовов дольше shutdownTimeout.
func stopGRPC(srv *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

// shutdownOutboxWorker останавливает polling и ждёт завершения текущего цикла.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("outbox worker did not stop in time")
	}
}

// drainOutbox дописывает накопленные события перед выходом.
func drainOutbox(worker *outbox.Worker, logger *log.Entry) {
	if worker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	res := worker.Drain(ctx)
	logger.WithFields(log.Fields{"sent": res.Sent, "failed": res.Failed}).Info("outbox drained")
}

func closeDependencies(deps *runtimeDependencies, logger *log.Entry) {
	if deps == nil || deps.closeFn == nil {
		return
	}
	if err := deps.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}
