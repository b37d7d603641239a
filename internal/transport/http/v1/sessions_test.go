package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/harness/internal/domain"
	"github.com/xiaot623/gogo/harness/internal/logging"
	"github.com/xiaot623/gogo/harness/internal/service"
	"github.com/xiaot623/gogo/harness/tests/helpers"
)

type fixedCount int

func (n fixedCount) GetConnectionCount() int { return int(n) }

func newTestServer(t *testing.T) (*echo.Echo, *service.Service, *logging.FrontendSink) {
	t.Helper()
	svc := service.New(helpers.NewTestSQLiteStore(t))
	sink, err := logging.NewFrontendSink(t.TempDir(), time.Now())
	require.NoError(t, err)

	e := echo.New()
	NewHandler(svc, fixedCount(2), sink).RegisterRoutes(e)
	return e, svc, sink
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func seed(t *testing.T, svc *service.Service, id, agentType, country string, score float64, at time.Time) {
	t.Helper()
	_, err := svc.Save(context.Background(), domain.TestSession{
		SessionID:      id,
		AgentType:      agentType,
		Country:        country,
		Timestamp:      at,
		OverallScore:   score,
		GeneratedTasks: []domain.Task{{ID: "1", Description: "Test " + id + " questions", Category: "general"}},
	})
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	e, _, _ := newTestServer(t)
	code, body := do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(2), body["activeConnections"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestSaveAndGetSession(t *testing.T) {
	e, _, _ := newTestServer(t)

	code, body := do(t, e, http.MethodPost, "/api/test-sessions", `{"agentType":"home_chat","country":"UK","overallScore":7}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)

	code, body = do(t, e, http.MethodGet, "/api/test-sessions/"+id, "")
	require.Equal(t, http.StatusOK, code)
	session := body["session"].(map[string]interface{})
	assert.Equal(t, id, session["sessionId"])
	assert.Equal(t, "home_chat", session["agentType"])

	code, body = do(t, e, http.MethodGet, "/api/test-sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Session not found", body["error"])
}

func TestSaveSessionRejectsBadBody(t *testing.T) {
	e, _, _ := newTestServer(t)
	code, body := do(t, e, http.MethodPost, "/api/test-sessions", `{"agentType":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
}

func TestListSessions(t *testing.T) {
	e, svc, _ := newTestServer(t)
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		seed(t, svc, id, "home_chat", "UK", 5, base.Add(time.Duration(i)*time.Hour))
	}

	code, body := do(t, e, http.MethodGet, "/api/test-sessions?limit=2", "")
	require.Equal(t, http.StatusOK, code)
	sessions := body["sessions"].([]interface{})
	require.Len(t, sessions, 2)
	assert.Equal(t, "c", sessions[0].(map[string]interface{})["sessionId"])
	assert.Equal(t, true, body["hasMore"])

	code, body = do(t, e, http.MethodGet, "/api/test-sessions?limit=2&offset=2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["sessions"], 1)
	assert.Equal(t, false, body["hasMore"])

	code, _ = do(t, e, http.MethodGet, "/api/test-sessions?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSearchSessions(t *testing.T) {
	e, svc, _ := newTestServer(t)
	now := time.Now().UTC()
	seed(t, svc, "defamation", "home_chat", "UK", 5, now)
	seed(t, svc, "employment", "case_ai", "US", 5, now)

	code, body := do(t, e, http.MethodGet, "/api/test-sessions/search/DEFAMATION", "")
	require.Equal(t, http.StatusOK, code)
	sessions := body["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, "defamation", sessions[0].(map[string]interface{})["sessionId"])
}

func TestFilterSessions(t *testing.T) {
	e, svc, _ := newTestServer(t)
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	seed(t, svc, "low", "home_chat", "UK", 3, base)
	seed(t, svc, "high", "home_chat", "UK", 9, base.Add(24*time.Hour))
	seed(t, svc, "us", "case_ai", "US", 9, base.Add(48*time.Hour))

	code, body := do(t, e, http.MethodPost, "/api/test-sessions/filter", `{"country":"UK","minScore":5}`)
	require.Equal(t, http.StatusOK, code)
	sessions := body["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, "high", sessions[0].(map[string]interface{})["sessionId"])

	code, body = do(t, e, http.MethodPost, "/api/test-sessions/filter", `{"startDate":"2026-04-02T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["sessions"], 1)

	code, body = do(t, e, http.MethodPost, "/api/test-sessions/filter", `{"minScore":9,"maxScore":1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
}

func TestDeleteSessionAndStats(t *testing.T) {
	e, svc, _ := newTestServer(t)
	now := time.Now().UTC()
	seed(t, svc, "a", "home_chat", "UK", 6, now)
	seed(t, svc, "b", "home_chat", "UK", 8, now)

	code, body := do(t, e, http.MethodGet, "/api/test-sessions-stats", "")
	require.Equal(t, http.StatusOK, code)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["totalSessions"])
	assert.Equal(t, float64(7), stats["averageScore"])

	code, body = do(t, e, http.MethodDelete, "/api/test-sessions/a", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, _ = do(t, e, http.MethodDelete, "/api/test-sessions/a", "")
	assert.Equal(t, http.StatusNotFound, code)

	_, body = do(t, e, http.MethodGet, "/api/test-sessions-stats", "")
	assert.Equal(t, float64(1), body["stats"].(map[string]interface{})["totalSessions"])
}

func TestFrontendLog(t *testing.T) {
	e, _, sink := newTestServer(t)

	code, body := do(t, e, http.MethodPost, "/log", `{"timestamp":"2026-04-01T00:00:00Z","level":"error","message":"socket dropped"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	assert.Equal(t, "[2026-04-01T00:00:00Z] [FRONTEND] [ERROR] socket dropped\n", string(data))
}

func TestFrontendLogWithoutSink(t *testing.T) {
	e := echo.New()
	h := NewHandler(service.New(helpers.NewTestSQLiteStore(t)), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/log", bytes.NewBufferString(`{"message":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.FrontendLog(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
