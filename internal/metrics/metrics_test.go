package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookingOperations.WithLabelValues("book", "ok"))
	ObserveBookingOperation("book", "ok", 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(bookingOperations.WithLabelValues("book", "ok")))

	beforeExpired := testutil.ToFloat64(slotsExpired)
	AddSlotsExpired(3)
	assert.Equal(t, beforeExpired+3, testutil.ToFloat64(slotsExpired))

	IncHTTP("bookings", 409)
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("bookings", "4xx")))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "2xx", statusText(201))
	assert.Equal(t, "3xx", statusText(304))
	assert.Equal(t, "4xx", statusText(404))
	assert.Equal(t, "5xx", statusText(503))
}
