package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisCache "github.com/ogurasousui/staffing-api/internal/adapters/cache/redis"
	"github.com/ogurasousui/staffing-api/internal/adapters/http/handler"
	"github.com/ogurasousui/staffing-api/internal/adapters/mail/sendgrid"
	"github.com/ogurasousui/staffing-api/internal/core/company"
	"github.com/ogurasousui/staffing-api/internal/core/employee"
	"github.com/ogurasousui/staffing-api/internal/core/staffing"
	"github.com/ogurasousui/staffing-api/internal/core/user"
	"github.com/ogurasousui/staffing-api/internal/platform/auth"
	"github.com/ogurasousui/staffing-api/internal/platform/config"
	"github.com/ogurasousui/staffing-api/internal/platform/logger"
	"github.com/ogurasousui/staffing-api/internal/platform/server"
	"github.com/ogurasousui/staffing-api/internal/platform/telemetry"
	"golang.org/x/sync/errgroup"
)

const healthProbeInterval = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env は任意です。
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("server stopped with error", "error", err)
		lg.Sync()
		os.Exit(1)
	}
	lg.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, lg *logger.Logger) error {
	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Telemetry, lg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			lg.Warn("tracer shutdown failed", "error", err)
		}
	}()

	store, err := openStorage(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer store.close()

	checks := map[string]handler.HealthCheck{"store": store.health}

	var cache company.BudgetCache
	if cfg.Redis.Addr != "" {
		client, err := redisCache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		cache = redisCache.NewBudgetCache(client, cfg.Redis.TTL, lg)
		checks["cache"] = redisCache.HealthCheck(client)
	}

	var mailer user.Mailer
	if cfg.Mail.SendGridAPIKey != "" {
		mailer, err = sendgrid.New(sendgrid.Config{
			APIKey:    cfg.Mail.SendGridAPIKey,
			BaseURL:   cfg.Mail.BaseURL,
			FromEmail: cfg.Mail.FromEmail,
			FromName:  cfg.Mail.FromName,
			Timeout:   cfg.Mail.Timeout,
		}, lg)
		if err != nil {
			return fmt.Errorf("build mailer: %w", err)
		}
	} else {
		lg.Warn("sendgrid api key is not set; signup mails are disabled")
	}

	tokens, err := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("build token issuer: %w", err)
	}

	metrics := telemetry.NewMetrics()

	employeeSvc := employee.NewService(store.employees, nil)
	companySvc := company.NewService(store.companies, employeeSvc, cache, store.tx)
	staffingSvc := staffing.NewService(employeeSvc, companySvc,
		staffing.WithTransactionManager(store.tx),
		staffing.WithLogger(lg),
		staffing.WithRecorder(metrics),
	)
	userSvc := user.NewService(store.users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, mailer, nil, lg)

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         lg,
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
		Authenticator:  userSvc,
		Users:          handler.NewUserHandler(userSvc),
		Employees:      handler.NewEmployeeHandler(staffingSvc, employeeSvc, lg),
		Companies:      handler.NewCompanyHandler(companySvc),
		Health:         handler.NewHealthHandler(checks),
	})

	httpServer := server.NewHTTP(cfg.Server.HTTPAddr, router, cfg.Server.ShutdownTimeout, lg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(gctx) })

	if cfg.Server.GRPCAddr != "" {
		grpcServer := server.NewGRPC(cfg.Server.GRPCAddr, lg)
		g.Go(func() error { return grpcServer.Run(gctx) })
		g.Go(func() error { return grpcServer.MonitorHealth(gctx, store.health, healthProbeInterval) })
	}

	lg.Info("staffing api started", "http_addr", cfg.Server.HTTPAddr, "grpc_addr", cfg.Server.GRPCAddr, "storage", cfg.Storage.Driver)
	return g.Wait()
}
