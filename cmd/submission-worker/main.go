// cmd/submission-worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	awsclient "lender-submission-workers/internal/common/aws"
	"lender-submission-workers/internal/common/camunda"
	"lender-submission-workers/internal/common/config"
	"lender-submission-workers/internal/common/database"
	httpclient "lender-submission-workers/internal/common/http"
	"lender-submission-workers/internal/common/logger"
	"lender-submission-workers/internal/common/observability"
	"lender-submission-workers/internal/common/sheets"
	"lender-submission-workers/internal/submission"
	"lender-submission-workers/internal/submission/columnmap"
	"lender-submission-workers/internal/submission/profile"
	lendersubmit "lender-submission-workers/internal/workers/submission/lender-submit"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

type connection interface {
	Ping(ctx context.Context) error
	Close() error
}

// openAndPing opens a client once and retries only the ping, so failed
// attempts do not leak connection pools. The client is closed if it never
// becomes reachable.
func openAndPing[C connection](ctx context.Context, open func() (C, error), maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) (C, error) {
	client, err := open()
	if err != nil {
		var zero C
		return zero, fmt.Errorf("%s: %w", operationName, err)
	}

	err = retryWithBackoff(func() error {
		return client.Ping(ctx)
	}, maxRetries, initialDelay, log, operationName)
	if err != nil {
		_ = client.Close()
		var zero C
		return zero, err
	}
	return client, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting submission worker...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	var obsOpts []observability.Option
	if cfg.Tracing.Endpoint != "" {
		obsOpts = append(obsOpts, observability.WithJaegerEndpoint(cfg.Tracing.Endpoint))
	}
	obs := observability.New(cfg.App.Name, obsOpts...)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig: &camunda.RetryConfig{
			MaxRetries: 10,
			BaseDelay:  2 * time.Second,
			MaxDelay:   30 * time.Second,
		},
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	pg, err := openAndPing(ctx, func() (*database.PostgresClient, error) {
		return database.NewPostgres(cfg.Database.Postgres)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis (optional profile cache) ---
	redis, err := openAndPing(ctx, func() (*database.RedisClient, error) {
		return database.NewRedis(cfg.Database.Redis)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	if redis == nil {
		zapLog.Info("Redis not configured, lender profile cache disabled")
	}

	// --- Submission components ---
	columnMaps := columnmap.NewDefaultRegistry()
	if path := cfg.Submission.ColumnMapPath; path != "" {
		if err := columnMaps.LoadFile(path); err != nil {
			zapLog.Fatal("column map file failed to load", zap.String("path", path), zap.Error(err))
		}
	}
	zapLog.Info("Column maps registered", zap.Strings("versions", columnMaps.Versions()))

	store := profile.Store(profile.NewPostgresStore(pg.DB))
	if redis != nil {
		store = profile.NewCachedStore(store, redis.Client, time.Duration(cfg.Submission.ProfileCacheTTL)*time.Second, log)
	}
	resolver := profile.NewResolver(store, columnMaps, log)

	gs := cfg.Integrations.GoogleSheets
	if !gs.HasCredentials() {
		zapLog.Warn("Google Sheets credentials missing, spreadsheet submissions will fail")
	}

	deps := submission.Dependencies{
		Sheets: sheets.NewGoogleConnector(sheets.Credentials{
			ClientEmail: gs.ClientEmail,
			PrivateKey:  gs.PrivateKey,
			TokenURI:    gs.TokenURI,
		}),
		ColumnMaps: columnMaps,
		HTTPClient: httpclient.NewClient(config.GetDuration(cfg.Integrations.PartnerAPI.Timeout), cfg.Integrations.PartnerAPI.UserAgent),
		Logger:     log,
	}

	aws := cfg.Integrations.AWS
	if aws.SES.Enabled {
		ses, err := awsclient.NewSESClient(ctx, aws.Region, aws.SES.FromEmail)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		deps.MailRelay = ses
	}

	var publisher lendersubmit.OutcomePublisher
	if aws.SNS.Enabled {
		sns, err := awsclient.NewSNSClient(ctx, aws.Region, aws.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		publisher = sns
	}

	// --- Worker ---
	var workers []*camunda.CamundaWorker
	wcfg := config.GetWorkerConfig(cfg, lendersubmit.TaskType)
	if wcfg.Enabled {
		handler := lendersubmit.NewHandler(lendersubmit.FromWorkerConfig(wcfg), resolver, deps, publisher, obs, log)
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), lendersubmit.TaskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
			Name:          cfg.App.Name,
		}, handler, zapLog))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", lendersubmit.TaskType))
	}

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr: cfg.Metrics.Address,
		Handler: newRouter(map[string]pinger{
			"zeebe":    zeebe,
			"postgres": pg,
			"redis":    redis,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Submission worker stopped gracefully")
}
