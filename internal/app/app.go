package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/lettertrack/internal/auth"
	"github.com/heartmarshall/lettertrack/internal/config"
	"github.com/heartmarshall/lettertrack/internal/transport/middleware"
	"github.com/heartmarshall/lettertrack/internal/transport/rest"
)

// Run is the server entry point. It loads configuration, opens storage,
// wires the services and serves HTTP until ctx is cancelled, then shuts
// down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("storage", cfg.Storage.NormalizedDriver()),
	)

	st, err := OpenStorage(ctx, cfg, logger, false)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	svc := NewServices(logger, st, cfg)
	jwt := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	limiter := middleware.NewRateLimiter(time.Minute)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      NewHandler(logger, cfg, st, svc, jwt, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// NewHandler builds the full HTTP handler: routes plus the middleware chain.
func NewHandler(
	logger *slog.Logger,
	cfg *config.Config,
	st *Storage,
	svc *Services,
	jwt *auth.JWTManager,
	limiter *middleware.RateLimiter,
) http.Handler {
	var writeLimit middleware.Middleware
	if limiter != nil && cfg.Server.WriteRateLimit > 0 {
		writeLimit = limiter.Limit(cfg.Server.WriteRateLimit)
	}

	return rest.NewRouter(rest.Handlers{
		Health: rest.NewHealthHandler(BuildVersion(),
			rest.Probe{Name: "storage", Driver: st.Driver, Check: st.Ping},
			rest.Probe{Name: "audit_log", Driver: st.Driver, Check: st.CheckAuditLog},
		),
		Letters: rest.NewLetterHandler(svc.Letters, svc.Lifecycle, svc.Ingest, cfg.Letters.MaxListLimit, logger),
		Admin:   rest.NewAdminHandler(svc.Lifecycle, svc.Ingest, logger),
		Auth:    rest.NewAuthHandler(logger),
		Reports: rest.NewReportHandler(svc.Reports, logger),
	},
		writeLimit,
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.CORS(cfg.CORS),
		middleware.Auth(jwt),
	)
}
