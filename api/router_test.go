package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/rnp/config"
	"github.com/use-agent/rnp/models"
	"github.com/use-agent/rnp/registry"
)

type fakeQuerier struct {
	calls atomic.Int32
	query func(ctx context.Context, ruc string) models.QueryResult
}

func (f *fakeQuerier) Query(ctx context.Context, ruc string) models.QueryResult {
	f.calls.Add(1)
	return f.query(ctx, ruc)
}

type fakeProber struct {
	result models.ProbeResult
}

func (p fakeProber) Check(_ context.Context, target string) models.ProbeResult {
	r := p.result
	r.URL = target
	return r
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Mode = gin.TestMode
	cfg.Registry.BaseURL = registry.DefaultBaseURL
	cfg.Registry.QueryTimeout = time.Minute
	cfg.Concurrency.MaxConcurrent = 2
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100
	return cfg
}

func newTestRouter(t *testing.T, q *fakeQuerier, cfg *config.Config) *gin.Engine {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRouter(ctx, q, fakeProber{result: models.ProbeResult{Reachable: true, StatusCode: 200}}, cfg, time.Now())
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func successQuerier() *fakeQuerier {
	return &fakeQuerier{query: func(_ context.Context, ruc string) models.QueryResult {
		return models.Success(ruc, []string{"RNP Bienes"}, models.SupplierDetail{
			InfoValue: "ACME S.A.", Email: models.NotAvailable, Region: "LIMA",
		})
	}}
}

func TestRoot(t *testing.T) {
	r := newTestRouter(t, successQuerier(), testConfig())

	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "API de consulta RNP - Bienvenido", decode[map[string]string](t, w)["message"])
}

func TestConsultar_Success(t *testing.T) {
	q := successQuerier()
	r := newTestRouter(t, q, testConfig())

	w := do(r, http.MethodGet, "/consultar/20100047218", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "20100047218", body["ruc"])
	assert.Equal(t, []any{"RNP Bienes"}, body["rnps"])
	assert.Equal(t, "ACME S.A.", body["infoValue"])
	assert.Equal(t, "No disponible", body["email"])
	assert.Equal(t, "LIMA", body["region"])
	assert.Equal(t, "success", body["status"])
	assert.NotContains(t, body, "error")
}

func TestConsultar_InvalidRUC(t *testing.T) {
	q := successQuerier()
	r := newTestRouter(t, q, testConfig())

	invalid := []string{
		"123",
		"2010004721",
		"201000472189",
		"2010004721a",
		"+2010004721",
		"2010004.721",
		"%EF%BC%92%EF%BC%90100047218", // fullwidth digits
		"%D9%A2%D9%A0100047218",       // Arabic-Indic digits
	}
	for _, ruc := range invalid {
		w := do(r, http.MethodGet, "/consultar/"+ruc, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, ruc)
		body := decode[models.ErrorResponse](t, w)
		assert.Equal(t, "RUC debe tener 11 dígitos", body.Detail)
		assert.Equal(t, models.ErrCodeInvalidInput, body.Code)
	}
	assert.Zero(t, q.calls.Load(), "invalid input never reaches the registry")
}

func TestConsultar_ErrorVariant(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.ErrCodeNotFound, http.StatusNotFound},
		{models.ErrCodeTimeout, http.StatusNotFound},
		{models.ErrCodeDetailLoad, http.StatusNotFound},
		{models.ErrCodeBrowserLaunch, http.StatusServiceUnavailable},
		{models.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			q := &fakeQuerier{query: func(_ context.Context, ruc string) models.QueryResult {
				return models.Failure(ruc, models.NewQueryError(tt.code, "no registry entries found", nil))
			}}
			r := newTestRouter(t, q, testConfig())

			w := do(r, http.MethodGet, "/consultar/99999999999", nil)

			assert.Equal(t, tt.want, w.Code)
			body := decode[models.QueryResult](t, w)
			assert.Equal(t, models.StatusError, body.Status)
			assert.Equal(t, "99999999999", body.RUC)
			assert.Equal(t, "no registry entries found", body.Error)
			assert.Equal(t, tt.code, body.Code)
			assert.Empty(t, body.RNPs)
		})
	}
}

func TestConsultar_QueryTimeoutApplied(t *testing.T) {
	cfg := testConfig()
	cfg.Registry.QueryTimeout = 30 * time.Second
	q := &fakeQuerier{query: func(ctx context.Context, ruc string) models.QueryResult {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(30*time.Second), deadline, 5*time.Second)
		return models.Success(ruc, []string{"RNP Bienes"}, models.NewSupplierDetail())
	}}
	r := newTestRouter(t, q, cfg)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/consultar/20100047218", nil).Code)
}

func TestConsultar_Auth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret"}
	r := newTestRouter(t, successQuerier(), cfg)

	w := do(r, http.MethodGet, "/consultar/20100047218", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrCodeUnauthorized, decode[models.ErrorResponse](t, w).Code)

	w = do(r, http.MethodGet, "/consultar/20100047218", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/consultar/20100047218", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "health is public")
}

func TestConsultar_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 0.001
	cfg.RateLimit.Burst = 1
	r := newTestRouter(t, successQuerier(), cfg)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/consultar/20100047218", nil).Code)

	w := do(r, http.MethodGet, "/consultar/20100047218", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.ErrCodeRateLimited, decode[models.ErrorResponse](t, w).Code)
}

func TestConsultar_Overloaded(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency.MaxConcurrent = 1

	started := make(chan struct{})
	release := make(chan struct{})
	q := &fakeQuerier{query: func(_ context.Context, ruc string) models.QueryResult {
		close(started)
		<-release
		return models.Success(ruc, []string{"RNP Bienes"}, models.NewSupplierDetail())
	}}
	r := newTestRouter(t, q, cfg)

	var wg sync.WaitGroup
	wg.Add(1)
	var first *httptest.ResponseRecorder
	go func() {
		defer wg.Done()
		first = do(r, http.MethodGet, "/consultar/20100047218", nil)
	}()
	<-started

	w := do(r, http.MethodGet, "/consultar/20100047218", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, models.ErrCodeOverloaded, decode[models.ErrorResponse](t, w).Code)

	h := decode[models.HealthResponse](t, do(r, http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, models.SessionStats{MaxConcurrent: 1, Active: 1}, h.Sessions)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, int32(1), q.calls.Load())
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, successQuerier(), testConfig())

	h := decode[models.HealthResponse](t, do(r, http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, models.SessionStats{MaxConcurrent: 2}, h.Sessions)
	assert.Nil(t, h.Target)
	assert.NotEmpty(t, h.Version)

	h = decode[models.HealthResponse](t, do(r, http.MethodGet, "/api/v1/health?probe=1", nil))
	require.NotNil(t, h.Target)
	assert.True(t, h.Target.Reachable)
	assert.Equal(t, registry.DefaultBaseURL, h.Target.URL)
	assert.Equal(t, "healthy", h.Status)
}

func TestHealth_UnreachableTargetDegrades(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := NewRouter(ctx, successQuerier(), fakeProber{result: models.ProbeResult{Error: "dial tcp: timeout"}}, testConfig(), time.Now())

	h := decode[models.HealthResponse](t, do(r, http.MethodGet, "/api/v1/health?probe=1", nil))
	assert.Equal(t, "degraded", h.Status)
	require.NotNil(t, h.Target)
	assert.Equal(t, "dial tcp: timeout", h.Target.Error)
}
