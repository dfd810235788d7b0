package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/config"
	"github.com/turtacn/ligandscreen/internal/domain/corpus"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	grpcserver "github.com/turtacn/ligandscreen/internal/interfaces/grpc"
	httpserver "github.com/turtacn/ligandscreen/internal/interfaces/http"
	"github.com/turtacn/ligandscreen/internal/interfaces/http/handlers"
	"github.com/turtacn/ligandscreen/internal/interfaces/http/middleware"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

type serveOptions struct {
	addr     string
	grpcAddr string
	corpus   string
	offline  bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the corpus once and answer screening requests over HTTP; report health over gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "", "listen address (default from server.addr)")
	f.StringVar(&opts.grpcAddr, "grpc-addr", "", "gRPC listen address (default from grpc.addr)")
	f.StringVar(&opts.corpus, "corpus", "", "corpus table (CSV)")
	f.BoolVar(&opts.offline, "offline", false, "skip annotation lookups; every identifier is Unknown")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cc.Config
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.grpcAddr != "" {
		cfg.GRPC.Addr = opts.grpcAddr
	}
	if opts.corpus != "" {
		cfg.Ingest.CorpusPath = opts.corpus
	}
	if opts.offline {
		cfg.Annotation.Offline = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cc.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	router, err := newAPIRouter(a)
	if err != nil {
		return err
	}

	if cc.ConfigPath != "" {
		watchLogLevel(cc.ConfigPath, logger)
	}

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, logger)

	gs, err := newGRPCServer(a)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- errors.Wrap(err, errors.ErrCodeServiceUnavailable, "http server failed")
		}
	}()
	if gs != nil {
		go func() {
			if err := gs.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}
	// Shutdown must outlive the signal context; each server has its own deadline.
	shutdownCtx := context.WithoutCancel(ctx)
	if gs != nil {
		if err := gs.Stop(shutdownCtx); err != nil {
			logger.Warn("grpc stop failed", logging.Err(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// newGRPCServer binds the gRPC listener when enabled.  Its health status
// follows the same corpus rule as /readyz.
func newGRPCServer(a *app) (*grpcserver.Server, error) {
	if !a.cfg.GRPC.Enabled {
		return nil, nil
	}
	opts := []grpcserver.Option{grpcserver.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, grpcserver.WithMetrics(a.metrics))
	}
	gs, err := grpcserver.NewServer(a.cfg.GRPC, opts...)
	if err != nil {
		return nil, err
	}
	gs.SetServing(corpusReady(a.index) == nil)
	return gs, nil
}

// newAPIRouter wraps the engine in a cached service and builds the gin
// router around it.
func newAPIRouter(a *app) (*gin.Engine, error) {
	cfg := a.cfg
	gin.SetMode(cfg.Server.Mode)

	svcOpts := []screening.ServiceOption{
		screening.WithServiceLogger(a.logger),
		screening.WithBatchWorkers(cfg.Screening.QueryWorkers),
	}
	if a.metrics != nil {
		svcOpts = append(svcOpts, screening.WithCacheRecorder(a.metrics))
	}
	svc, err := screening.NewService(a.engine, cfg.Server.ResultCacheSize, svcOpts...)
	if err != nil {
		return nil, err
	}

	checkers := []handlers.HealthChecker{corpusChecker(a.index)}
	if a.redis != nil {
		checkers = append(checkers, handlers.CheckerFunc{ComponentName: "redis", Fn: a.redis.Ping})
	}

	rc := httpserver.RouterConfig{
		ScreenHandler: handlers.NewScreenHandler(svc, a.resolver, handlers.ScreenHandlerConfig{
			MaxQueries:  cfg.Server.MaxQueries,
			MaxBodySize: cfg.Server.MaxBodySize,
		}, a.logger),
		HealthHandler: handlers.NewHealthHandler(Version, checkers...),
		Logging:       middleware.DefaultLoggingConfig(),
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimitRPS,
			BurstSize:         cfg.Server.RateLimitBurst,
			SkipPaths:         []string{"/healthz", "/readyz", cfg.Metrics.Path},
		},
		CORS:   middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...),
		Logger: a.logger,
	}
	if a.metrics != nil {
		rc.HTTPMetrics = a.metrics
		rc.MetricsHandler = a.collector.Handler()
		rc.MetricsPath = cfg.Metrics.Path
	}
	return httpserver.NewRouter(rc), nil
}

func corpusChecker(ix *corpus.Index) handlers.HealthChecker {
	return handlers.CheckerFunc{ComponentName: "corpus", Fn: func(context.Context) error {
		return corpusReady(ix)
	}}
}

// corpusReady is the readiness rule shared by /readyz and gRPC health.
func corpusReady(ix *corpus.Index) error {
	if ix == nil {
		return errors.New(errors.ErrCodeCorpusLoadFailure, "corpus not loaded")
	}
	return nil
}

// watchLogLevel applies log level edits of the config file without a
// restart.  Other settings need a restart.
func watchLogLevel(path string, logger logging.Logger) {
	lc, ok := logger.(logging.LevelController)
	if !ok {
		return
	}
	err := config.Watch(path, func(c *config.Config) {
		if c.Log.Level != lc.Level() {
			lc.SetLevel(c.Log.Level)
			logger.Info("log level changed", logging.String("level", c.Log.Level))
		}
	}, func(err error) {
		logger.Warn("ignoring invalid config edit", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}

//Personal.AI order the ending
