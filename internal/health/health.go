package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for the scheduler.
const ServiceName = "interviewsched.Scheduler"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker reports readiness of the store and the optional cache.
type Checker struct {
	db     Pinger
	redis  *redis.Client
	grpc   *health.Server
	logger zerolog.Logger
}

func NewChecker(db Pinger, rdb *redis.Client, logger *zerolog.Logger) *Checker {
	return &Checker{
		db:     db,
		redis:  rdb,
		grpc:   health.NewServer(),
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// Check returns the first dependency that is not ready.
func (c *Checker) Check(ctx context.Context) error {
	ctxPing, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := c.db.PingContext(ctxPing); err != nil {
		return fmt.Errorf("db not ready: %w", err)
	}
	if c.redis != nil {
		if err := c.redis.Ping(ctxPing).Err(); err != nil {
			return fmt.Errorf("redis not ready: %w", err)
		}
	}
	return nil
}

// Handler serves /healthz (liveness) and /readyz (dependency readiness).
func (c *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := c.Check(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}

// HealthServer exposes the gRPC health service mirroring Check.
func (c *Checker) HealthServer() grpc_health_v1.HealthServer {
	return c.grpc
}

// Refresh updates the gRPC serving status from Check.
func (c *Checker) Refresh(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := c.Check(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("readiness check failed")
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	c.grpc.SetServingStatus("", status)
	c.grpc.SetServingStatus(ServiceName, status)
}

// Watch refreshes the gRPC status every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	c.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.grpc.Shutdown()
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// ServeHTTP serves the HTTP probes on port until ctx is done.
func (c *Checker) ServeHTTP(ctx context.Context, port int) error {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: c.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeGRPC serves the gRPC health service on port until ctx is done.
func (c *Checker) ServeGRPC(ctx context.Context, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, c.grpc)

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	c.logger.Info().Int("port", port).Msg("grpc health server listening")
	return srv.Serve(lis)
}
