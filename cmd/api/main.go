package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"clinicdesk.org/internal/attachment"
	"clinicdesk.org/internal/audit"
	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/clinic"
	"clinicdesk.org/internal/config"
	"clinicdesk.org/internal/httpapi"
	"clinicdesk.org/internal/identity"
	"clinicdesk.org/internal/migrate"
	"clinicdesk.org/internal/obs"
	"clinicdesk.org/internal/store/memory"
	"clinicdesk.org/internal/store/pg"
	"clinicdesk.org/internal/tracing"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// backend is everything the services need from persistence. Both the
// Postgres and the in-memory stores provide it.
type backend interface {
	identity.Store
	clinic.Store
	clinic.UserChecker
	attachment.Store
	audit.Writer
	audit.Reader
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := obs.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName:  "clinic-api",
		Version:      version,
		Environment:  cfg.Env,
		Enabled:      cfg.OTelEnabled,
		Endpoint:     cfg.OTelEndpoint,
		Insecure:     cfg.OTelInsecure,
		SamplingRate: cfg.OTelSamplingRate,
	})
	if err != nil {
		return err
	}

	store, probe, closeStore, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, err := openStorage(cfg)
	if err != nil {
		return err
	}

	issuer, err := auth.NewIssuer([]byte(cfg.JWTSecret),
		auth.WithIssuerName(cfg.JWTIssuer),
		auth.WithTTL(cfg.JWTTTL),
	)
	if err != nil {
		return err
	}

	trusted, err := httpapi.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	recorder := audit.NewRecorder(store,
		audit.WithLogger(logger),
		audit.WithWriteTimeout(cfg.AuditWriteTimeout),
	)
	users := identity.NewService(store, issuer, recorder, identity.WithBcryptCost(cfg.BcryptCost))

	api := httpapi.New(httpapi.Services{
		Gate:     auth.NewGate(issuer, users),
		Users:    users,
		Clinic:   clinic.NewService(store, store),
		Files:    attachment.NewService(store, blobs, cfg.UploadMaxBytes, logger),
		Activity: audit.NewQuery(store),
	}, httpapi.Options{
		Version:         version,
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
		TrustedProxies:  trusted,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		LoginRatePerSec: cfg.LoginRatePerSec,
		LoginRateBurst:  cfg.LoginRateBurst,
		Ready:           probe,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", "addr", srv.Addr, "version", version, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcSrv = httpapi.NewGRPCServer(probe)
		go func() {
			logger.Info("grpc listening", "addr", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.Error("server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	// Requests are drained; flush the audit writes they started.
	if err := recorder.Close(shutdownCtx); err != nil {
		logger.Warn("audit drain incomplete", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", "error", err)
	}
	logger.Info("stopped")
	return runErr
}

func openBackend(cfg *config.Config, logger *slog.Logger) (backend, httpapi.ReadyProbe, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory stores; data is lost on restart")
		return memory.New(), httpapi.ReadyProbe{}, func() {}, nil
	}

	if cfg.AutoMigrate {
		if err := applyMigrations(cfg.DatabaseURL, logger); err != nil {
			return nil, httpapi.ReadyProbe{}, nil, err
		}
	}

	store, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, httpapi.ReadyProbe{}, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logger.Warn("database not reachable yet", "error", err)
	}
	return store, httpapi.ReadyProbe{DB: store}, func() { _ = store.Close() }, nil
}

func applyMigrations(dsn string, logger *slog.Logger) error {
	runner, err := migrate.New(dsn)
	if err != nil {
		return err
	}
	defer runner.Close()
	if err := runner.Up(); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	v, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	logger.Info("schema migrated", "version", v, "dirty", dirty)
	return nil
}

func openStorage(cfg *config.Config) (attachment.Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		client, err := attachment.NewS3Client(attachment.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return attachment.NewS3Storage(client, cfg.S3Bucket)
	default:
		return attachment.NewLocalStorage(cfg.UploadDir)
	}
}
