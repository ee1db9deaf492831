package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(noncesIssued)
	NonceIssued()
	assert.Equal(t, before+1, testutil.ToFloat64(noncesIssued))

	before = testutil.ToFloat64(verifications.WithLabelValues("replay detected"))
	Verification("replay detected")
	assert.Equal(t, before+1, testutil.ToFloat64(verifications.WithLabelValues("replay detected")))

	before = testutil.ToFloat64(dispatches.WithLabelValues("joule", "lend", "Submitted"))
	Dispatch("joule", "lend", "Submitted", 120*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(dispatches.WithLabelValues("joule", "lend", "Submitted")))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	counter := httpRequests.WithLabelValues(http.MethodGet, "/healthz", "204")
	before := testutil.ToFloat64(counter)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandler(t *testing.T) {
	NonceIssued()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "agentgate_auth_nonces_issued_total")
}
