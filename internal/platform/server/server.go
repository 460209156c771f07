package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ogurasousui/staffing-api/internal/platform/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthCheck は依存先の疎通確認です。
type HealthCheck func(ctx context.Context) error

// GRPCServer は gRPC ヘルスチェックサーバーのライフサイクルを管理します。
type GRPCServer struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
	log        *logger.Logger
}

// NewGRPC は指定されたアドレスで待ち受ける gRPC ヘルスサーバーを構築します。
func NewGRPC(listenAddr string, log *logger.Logger, opts ...grpc.ServerOption) *GRPCServer {
	if log == nil {
		log = logger.NewNop()
	}
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &GRPCServer{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     hs,
		log:        log,
	}
}

// SetServing はヘルスチェックの応答を切り替えます。
func (s *GRPCServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *GRPCServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は lis で待ち受けます。
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}()

	s.log.Info("grpc health server listening", "addr", lis.Addr().String())
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}
	return nil
}

// MonitorHealth は interval ごとに check を実行し、結果をヘルスステータスへ反映します。
// ctx がキャンセルされるまでブロックします。
func (s *GRPCServer) MonitorHealth(ctx context.Context, check HealthCheck, interval time.Duration) error {
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := check(probeCtx); err != nil {
			s.log.Warn("health check failed", "error", err)
			s.SetServing(false)
			return
		}
		s.SetServing(true)
	}

	probe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			probe()
		}
	}
}

// HTTPServer は HTTP サーバーのライフサイクルを管理します。
type HTTPServer struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	log             *logger.Logger
}

// NewHTTP は handler を提供する HTTP サーバーを構築します。
func NewHTTP(listenAddr string, handler http.Handler, shutdownTimeout time.Duration, log *logger.Logger) *HTTPServer {
	if log == nil {
		log = logger.NewNop()
	}
	return &HTTPServer{
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		log:             log,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると Shutdown します。
func (s *HTTPServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は lis で待ち受けます。
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		errCh <- s.srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("http server listening", "addr", lis.Addr().String())
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("shutdown HTTP: %w", err)
	}
	return nil
}
