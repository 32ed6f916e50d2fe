package health

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type fakePinger struct{ err error }

func (f *fakePinger) PingContext(ctx context.Context) error { return f.err }

func TestChecker_HTTP(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db := &fakePinger{}
	c := NewChecker(db, nil, &logger)
	h := c.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	db.err = errors.New("closed")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db not ready")
}

func TestChecker_Redis(t *testing.T) {
	logger := zerolog.New(io.Discard)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewChecker(&fakePinger{}, rdb, &logger)
	require.NoError(t, c.Check(context.Background()))

	mr.Close()
	assert.ErrorContains(t, c.Check(context.Background()), "redis not ready")
}

func TestChecker_GRPCStatus(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db := &fakePinger{}
	c := NewChecker(db, nil, &logger)
	ctx := context.Background()

	c.Refresh(ctx)
	resp, err := c.HealthServer().Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())

	db.err = errors.New("gone")
	c.Refresh(ctx)
	resp, err = c.HealthServer().Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
