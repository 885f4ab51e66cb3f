package routes_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/config"
	httproutes "github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/transport/http/routes"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	return httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: logger,
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestEngine()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestReadinessEndpointWithoutChecks(t *testing.T) {
	r := newTestEngine()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/readyz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestEngine()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestUnwiredRoutesAreAbsent(t *testing.T) {
	// With no services supplied, no tenant routes are registered.
	r := newTestEngine()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/tenants/T1/auth/login", strings.NewReader("{}"))

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}
