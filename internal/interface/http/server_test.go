package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweethome/vacancies-bot/internal/infrastructure/external/telegram"
	"github.com/sweethome/vacancies-bot/internal/interface/http/handlers"
	"github.com/sweethome/vacancies-bot/pkg/logger"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth_IncludesStats(t *testing.T) {
	s := NewServer(DefaultConfig(), Dependencies{
		Version: "1.2.0",
		Stats:   func() any { return map[string]int{"total_requests": 3} },
		Logger:  logger.Discard(),
	})

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.0", body["version"])
	assert.EqualValues(t, 3, body["stats"].(map[string]any)["total_requests"])
}

func TestReady_ReportsFailingStores(t *testing.T) {
	ready := handlers.NewReadiness("dev")
	ready.Add("postgres", handlers.PingCheck(pinger{}))
	ready.Add("redis", handlers.PingCheck(pinger{err: errors.New("connection refused")}))
	ready.Add("mongo", handlers.PingCheck(pinger{err: errors.New("timeout")}))

	s := NewServer(DefaultConfig(), Dependencies{Readiness: ready, Logger: logger.Discard()})
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status handlers.ReadinessStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Ready)
	assert.Equal(t, "failing: mongo, redis", status.Message)
	assert.True(t, status.Checks["postgres"].Healthy)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)
}

func TestReady_AllHealthy(t *testing.T) {
	ready := handlers.NewReadiness("dev")
	ready.Add("neo4j", handlers.PingCheck(pinger{}))

	s := NewServer(DefaultConfig(), Dependencies{Readiness: ready, Logger: logger.Discard()})
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_ChecksSecretAndDispatches(t *testing.T) {
	var got atomic.Int64
	hook := handlers.NewWebhook("s3cret", func(_ context.Context, u *telegram.Update) error {
		got.Store(u.UpdateID)
		return nil
	}, logger.Discard())

	s := NewServer(DefaultConfig(), Dependencies{Webhook: hook, Logger: logger.Discard()})
	h := s.Handler()
	payload := `{"update_id":77,"message":{"message_id":1,"text":"/start"}}`

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(payload))
	assert.Equal(t, http.StatusUnauthorized, do(t, h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader("{"))
	req.Header.Set(handlers.SecretTokenHeader, "s3cret")
	assert.Equal(t, http.StatusBadRequest, do(t, h, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(payload))
	req.Header.Set(handlers.SecretTokenHeader, "s3cret")
	assert.Equal(t, http.StatusOK, do(t, h, req).Code)

	hook.Wait()
	assert.Equal(t, int64(77), got.Load())
}

func TestWebhook_NotMountedWithoutHandler(t *testing.T) {
	s := NewServer(DefaultConfig(), Dependencies{Logger: logger.Discard()})
	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader("{}"))
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), req).Code)
}

func TestRecovery_Returns500(t *testing.T) {
	h := handlers.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), handlers.Recovery(logger.Discard()), handlers.RequestID)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}
