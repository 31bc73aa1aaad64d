package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"

	"storefront/backend/internal/app"
	"storefront/backend/internal/config"
	"storefront/backend/internal/credentials"
	healthhandler "storefront/backend/internal/health/handler"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/policy/engine"
	"storefront/backend/internal/security"
	"storefront/backend/internal/server"
	"storefront/backend/internal/server/httpapi"
	telemetryotel "storefront/backend/internal/telemetry/otel"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// zap is not configured yet
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, ServiceName: cfg.OTelServiceName, Development: !cfg.IsProduction()})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTelEndpoint, cfg.OTelServiceName, cfg.OTelInsecure, log)
	if err != nil {
		log.Fatal("telemetry", zap.Error(err))
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	var auditLogs *sdklog.LoggerProvider
	if cfg.OTelEndpoint != "" {
		auditLogs = providers.LoggerProvider
	}
	stack, err := app.BuildTenantStack(ctx, cfg, log, app.Options{AuditLogs: auditLogs})
	if err != nil {
		log.Fatal("tenant stack", zap.Error(err))
	}
	defer func() { _ = stack.Close() }()

	authz, err := engine.NewOPAAuthorizerFromFile(ctx, cfg.AdminPolicyFile, log.Named("policy"))
	if err != nil {
		log.Fatal("admin policy", zap.Error(err))
	}

	var verifier *security.TokenVerifier
	if cfg.JWTPublicKey != "" {
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			log.Fatal("JWT_PUBLIC_KEY", zap.Error(err))
		}
		verifier = security.NewTokenVerifier(pub, cfg.JWTIssuer, cfg.JWTAudience)
	} else {
		log.Warn("JWT_PUBLIC_KEY not set; admin API disabled")
	}

	credRouter := credentials.NewRouter(cfg.Credentials(), log.Named("credentials"))
	if _, err := credRouter.Route(nil); err != nil {
		// Requests still start; each one reports CONFIGURATION_ERROR until this is fixed.
		log.Error("backend credentials not configured", zap.Error(err))
	}

	var dbPinger healthhandler.Pinger
	if stack.DB != nil {
		dbPinger = stack.DB
	}
	var cachePinger healthhandler.CachePinger
	if stack.RedisCache != nil {
		cachePinger = stack.RedisCache
	}
	health := healthhandler.NewServer(dbPinger, authz, cachePinger, cfg.OTelServiceName)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.Deps{
		Store:       stack.Store,
		Resolver:    stack.Resolver,
		Credentials: credRouter,
		Verifier:    verifier,
		Authorizer:  authz,
		AuditRepo:   stack.AuditRepo,
		Health:      health,
		Log:         log.Named("http"),
		ServiceName: cfg.OTelServiceName,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal("grpc listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}
	grpcServer := server.NewGRPCServer(log.Named("grpc"), server.GRPCOptions{
		Health:     health,
		Reflection: !cfg.IsProduction(),
	})

	errCh := make(chan error, 2)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
}
