// Package grpc runs the gRPC listener of the screening service.  It carries
// the standard grpc.health.v1 service, whose overall status follows corpus
// readiness the same way /readyz does, plus optional server reflection.
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/turtacn/ligandscreen/internal/config"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

const (
	defaultMaxMsgSize      = 16 * 1024 * 1024
	defaultGracefulTimeout = 10 * time.Second
)

var defaultKeepaliveParams = keepalive.ServerParameters{
	MaxConnectionIdle:     15 * time.Minute,
	MaxConnectionAge:      30 * time.Minute,
	MaxConnectionAgeGrace: 5 * time.Second,
	Time:                  5 * time.Minute,
	Timeout:               1 * time.Second,
}

var defaultKeepalivePolicy = keepalive.EnforcementPolicy{
	MinTime:             5 * time.Second,
	PermitWithoutStream: true,
}

// Metrics records served calls by service, method and status code.
type Metrics interface {
	RecordGRPCRequest(service, method, code string, duration time.Duration)
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger   logging.Logger
	metrics  Metrics
	listener net.Listener
}

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithMetrics records every call into m.
func WithMetrics(m Metrics) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// WithListener serves on lis instead of listening on the configured address.
func WithListener(lis net.Listener) Option {
	return func(o *serverOptions) { o.listener = lis }
}

// Server is a gRPC server with health reporting and graceful shutdown.
type Server struct {
	grpcServer      *grpc.Server
	listener        net.Listener
	health          *health.Server
	logger          logging.Logger
	gracefulTimeout time.Duration

	mu      sync.Mutex
	started bool
}

// NewServer binds the listener and registers the health service.  Health
// starts as NOT_SERVING; the caller flips it with SetServing once the
// corpus is ready.
func NewServer(cfg config.GRPCConfig, opts ...Option) (*Server, error) {
	o := &serverOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}

	lis := o.listener
	if lis == nil {
		var err error
		if lis, err = net.Listen("tcp", cfg.Addr); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "grpc listen").WithDetail(cfg.Addr)
		}
	}

	maxRecv := defaultMaxMsgSize
	if cfg.MaxRecvMsgSize > 0 {
		maxRecv = cfg.MaxRecvMsgSize
	}
	graceful := cfg.GracefulTimeout
	if graceful <= 0 {
		graceful = defaultGracefulTimeout
	}

	gs := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxRecv),
		grpc.MaxSendMsgSize(defaultMaxMsgSize),
		grpc.KeepaliveParams(defaultKeepaliveParams),
		grpc.KeepaliveEnforcementPolicy(defaultKeepalivePolicy),
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(o.logger),
			loggingUnaryInterceptor(o.logger),
			metricsUnaryInterceptor(o.metrics),
		),
		grpc.ChainStreamInterceptor(
			recoveryStreamInterceptor(o.logger),
			loggingStreamInterceptor(o.logger),
			metricsStreamInterceptor(o.metrics),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	if cfg.Reflection {
		reflection.Register(gs)
		o.logger.Info("grpc reflection enabled")
	}

	return &Server{
		grpcServer:      gs,
		listener:        lis,
		health:          hs,
		logger:          o.logger,
		gracefulTimeout: graceful,
	}, nil
}

// SetServing sets the overall health status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Start serves until Stop.  It returns nil after a clean stop.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeInternal, "grpc server already started")
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("grpc server starting", logging.String("addr", s.Addr()))
	if err := s.grpcServer.Serve(s.listener); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "grpc serve")
	}
	return nil
}

// Stop reports NOT_SERVING, then drains in-flight calls.  Calls still
// running after the graceful timeout, or after ctx ends, are cut off.
func (s *Server) Stop(ctx context.Context) error {
	s.health.Shutdown()

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return s.listener.Close()
	}

	s.logger.Info("grpc server stopping")
	gctx, cancel := context.WithTimeout(ctx, s.gracefulTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("grpc server stopped")
	case <-gctx.Done():
		s.logger.Warn("grpc graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
	}
	return nil
}

// Addr is the bound address; useful with port 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// GRPCServer exposes the underlying server for service registration.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// ─────────────────────────────────────────────────────────────────────────────
// Interceptors
// ─────────────────────────────────────────────────────────────────────────────

func recoveryUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, info.FullMethod, r)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func recoveryStreamInterceptor(logger logging.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, info.FullMethod, r)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(srv, ss)
	}
}

func logPanic(logger logging.Logger, method string, r interface{}) {
	logger.Error("grpc panic recovered",
		logging.String("method", method),
		logging.String("panic", fmt.Sprint(r)),
		logging.String("stack", string(debug.Stack())))
}

// isHealthCheck keeps health checks out of the request log.
func isHealthCheck(method string) bool {
	return strings.HasPrefix(method, "/grpc.health.v1.Health/")
}

func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			logging.String("method", info.FullMethod),
			logging.Duration("elapsed", time.Since(start)),
			logging.String("code", status.Code(err).String()))
		return resp, err
	}
}

func loggingStreamInterceptor(logger logging.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if isHealthCheck(info.FullMethod) {
			return handler(srv, ss)
		}
		start := time.Now()
		err := handler(srv, ss)
		logger.Info("grpc stream",
			logging.String("method", info.FullMethod),
			logging.Duration("elapsed", time.Since(start)),
			logging.String("code", status.Code(err).String()))
		return err
	}
}

func metricsUnaryInterceptor(m Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if m == nil {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)
		service, method := splitMethodName(info.FullMethod)
		m.RecordGRPCRequest(service, method, status.Code(err).String(), time.Since(start))
		return resp, err
	}
}

func metricsStreamInterceptor(m Metrics) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if m == nil {
			return handler(srv, ss)
		}
		start := time.Now()
		err := handler(srv, ss)
		service, method := splitMethodName(info.FullMethod)
		m.RecordGRPCRequest(service, method, status.Code(err).String(), time.Since(start))
		return err
	}
}

// splitMethodName splits "/package.Service/Method".
func splitMethodName(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(fullMethod, "/"); i >= 0 {
		return fullMethod[:i], fullMethod[i+1:]
	}
	return "unknown", fullMethod
}

//Personal.AI order the ending
