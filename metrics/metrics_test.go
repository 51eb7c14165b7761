package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ruteri/identity-registry/common"
	"github.com/ruteri/identity-registry/events"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/stretchr/testify/require"
)

func TestMetricsServer(t *testing.T) {
	m, err := New(common.PackageName, "127.0.0.1:0")
	require.NoError(t, err)

	m.ObserveOperation("create_identity", time.Now(), nil)
	m.ObserveOperation("create_identity", time.Now(), interfaces.ErrAlreadyIdentityOwner)
	m.ObserveOperation("create_identity", time.Now(), errors.New("boom"))
	m.Emit(events.IdentityCreated{})
	m.ObserveCheckpoint(nil)
	m.ObserveRateLimited()

	require.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("create_identity", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("create_identity", "AlreadyIdentityOwner")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.operations.WithLabelValues("create_identity", "error")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.events.WithLabelValues("IdentityCreated")))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "identity_registry_events_total")
	require.Contains(t, string(body), "identity_registry_rate_limited_requests_total 1")
}
