package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/staypoint-backend-go/internal/analysis"
	_ "github.com/jengzang/staypoint-backend-go/internal/analysis/staydetection"
	"github.com/jengzang/staypoint-backend-go/internal/config"
	"github.com/jengzang/staypoint-backend-go/internal/database"
	"github.com/jengzang/staypoint-backend-go/internal/middleware"
	"github.com/jengzang/staypoint-backend-go/internal/repository"
	"github.com/jengzang/staypoint-backend-go/internal/service"
	"github.com/jengzang/staypoint-backend-go/internal/staypoint"
)

const secret = "test-secret"

const records = `{"locations":[
	{"timestampMs":"1511359200000","latitudeE7":225000000,"longitudeE7":1139000000},
	{"timestampMs":"1511359500000","latitudeE7":225000000,"longitudeE7":1139000000},
	{"timestampMs":"1511359800000","latitudeE7":225000000,"longitudeE7":1139000000},
	{"timestampMs":"1511360400000","latitudeE7":225000000,"longitudeE7":1139000000},
	{"timestampMs":"1511361000000","latitudeE7":226000000,"longitudeE7":1139000000},
	{"timestampMs":"1511361060000","latitudeE7":226000000,"longitudeE7":1139000000}
]}`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router http.Handler
	tasks  *service.AnalysisTaskService
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := database.Open(context.Background(), database.Config{Path: database.MemoryPath, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	deps := analysis.Deps{
		Tracks:       repository.NewTrackRepository(conn),
		Stays:        repository.NewStayRepository(conn),
		Tasks:        repository.NewAnalysisTaskRepository(conn),
		Logger:       zerolog.Nop(),
		StayDefaults: staypoint.DefaultOptions(),
	}
	tasks := service.NewAnalysisTaskService(deps)
	t.Cleanup(tasks.Shutdown)

	limiter := middleware.NewRateLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)

	cfg := &config.Config{JWTSecret: secret, MaxUploadBytes: maxUpload}
	router := SetupRouter(cfg, Services{
		Tracks: service.NewTrackService(deps.Tracks, zerolog.Nop()),
		Stays:  service.NewStayService(deps.Stays, deps.StayDefaults),
		Tasks:  tasks,
	}, limiter, zerolog.Nop())

	return &testServer{router: router, tasks: tasks}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body []byte, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) postJSON(t *testing.T, path string, body interface{}, token string) (int, envelope) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return s.do(t, http.MethodPost, path, "application/json", raw, token)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stay_detection"`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, 0)
	code, _ := s.do(t, http.MethodOptions, "/api/v1/stays", "", nil, "")
	assert.Equal(t, http.StatusNoContent, code)
}

func TestImportAndListPoints(t *testing.T) {
	s := newTestServer(t, 1<<20)

	code, env := s.do(t, http.MethodPost, "/api/v1/tracks/import", "application/json", []byte(records), "")
	require.Equal(t, http.StatusCreated, code, env.Message)

	var result struct {
		ImportID   string `json:"importId"`
		PointCount int    `json:"pointCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 6, result.PointCount)
	assert.NotEmpty(t, result.ImportID)

	code, env = s.do(t, http.MethodGet, "/api/v1/tracks/points?pageSize=5&importId="+result.ImportID, "", nil, "")
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Total      int64             `json:"total"`
		TotalPages int               `json:"totalPages"`
		Data       []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(6), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Data, 5)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tracks/points?page=abc", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestImportMultipart(t *testing.T) {
	s := newTestServer(t, 1<<20)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "Records.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(records))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	code, env := s.do(t, http.MethodPost, "/api/v1/tracks/import?keepAllActivities=true", mw.FormDataContentType(), buf.Bytes(), "")
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Contains(t, string(env.Data), `"pointCount":6`)
}

func TestImportRejectsBadInput(t *testing.T) {
	s := newTestServer(t, 64)

	code, env := s.do(t, http.MethodPost, "/api/v1/tracks/import", "application/json", []byte(`{"locations":`), "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, http.StatusBadRequest, env.Code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/tracks/import?keepAllActivities=maybe", "application/json", []byte(records), "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/tracks/import", "application/json", []byte(records), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, code, env.Message)
	assert.Equal(t, http.StatusRequestEntityTooLarge, env.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "Records.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(records))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	code, env = s.do(t, http.MethodPost, "/api/v1/tracks/import", mw.FormDataContentType(), buf.Bytes(), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, code, env.Message)

	code, env = s.do(t, http.MethodPost, "/api/v1/tracks/import", mw.FormDataContentType(), []byte("--x--"), "")
	assert.Equal(t, http.StatusBadRequest, code, env.Message)
}

func TestDetect(t *testing.T) {
	s := newTestServer(t, 0)
	base := time.Date(2017, 11, 22, 14, 0, 0, 0, time.UTC)

	code, env := s.postJSON(t, "/api/v1/staypoints/detect", map[string]interface{}{
		"positions":  [][2]float64{{22.5, 113.9}, {22.5, 113.9}, {22.5, 113.9}, {22.6, 113.9}},
		"timestamps": []time.Time{base, base.Add(10 * time.Minute), base.Add(20 * time.Minute), base.Add(30 * time.Minute)},
	}, "")
	require.Equal(t, http.StatusOK, code, env.Message)

	var out struct {
		Labels             []int   `json:"labels"`
		Sorted             bool    `json:"sorted"`
		MinDurationSeconds float64 `json:"min_duration_seconds"`
		Stays              []struct {
			PointCount      int        `json:"point_count"`
			DurationSeconds float64    `json:"duration_seconds"`
			Center          [2]float64 `json:"center"`
		} `json:"stays"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, []int{0, 0, 0, -1}, out.Labels)
	assert.True(t, out.Sorted)
	assert.Equal(t, 900.0, out.MinDurationSeconds)
	require.Len(t, out.Stays, 1)
	assert.Equal(t, 3, out.Stays[0].PointCount)
	assert.Equal(t, 1200.0, out.Stays[0].DurationSeconds)
	assert.InDelta(t, 22.5, out.Stays[0].Center[0], 1e-9)
}

func TestDetectErrors(t *testing.T) {
	s := newTestServer(t, 0)

	code, env := s.postJSON(t, "/api/v1/staypoints/detect", map[string]interface{}{
		"positions":  [][2]float64{{0, 0}, {0, 0}},
		"timestamps": []time.Time{time.Now()},
	}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "2 positions but 1 timestamps")

	code, _ = s.postJSON(t, "/api/v1/staypoints/detect", map[string]interface{}{"min_duration": "later"}, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/staypoints/detect", "application/json", []byte(`[`), "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTimeSegments(t *testing.T) {
	s := newTestServer(t, 0)
	anchor := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

	code, env := s.postJSON(t, "/api/v1/timesegments", map[string]interface{}{
		"timestamps": []time.Time{anchor.Add(-time.Hour), anchor.Add(-30 * time.Hour), anchor.Add(time.Hour)},
		"intervals": []map[string]interface{}{
			{"name": "today", "min": "0s", "max": "24h", "relative_to": anchor},
			{"name": "yesterday", "min": "24h", "max": "48h", "relative_to": anchor},
		},
	}, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.JSONEq(t, `{"labels":["today","yesterday",""]}`, string(env.Data))

	code, _ = s.postJSON(t, "/api/v1/timesegments", map[string]interface{}{
		"intervals": []map[string]interface{}{{"name": "x", "min": "soon", "max": "1h", "relative_to": anchor}},
	}, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.postJSON(t, "/api/v1/timesegments", map[string]interface{}{
		"intervals": []map[string]interface{}{{"name": "x", "min": "2h", "max": "1h", "relative_to": anchor}},
	}, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t, 0)
	code, _ := s.do(t, http.MethodGet, "/api/v1/admin/analysis/tasks", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	bad, err := middleware.IssueToken("wrong-secret", "admin", time.Hour)
	require.NoError(t, err)
	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/analysis/tasks", "", nil, bad)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestStayDetectionTaskFlow(t *testing.T) {
	s := newTestServer(t, 1<<20)
	token, err := middleware.IssueToken(secret, "admin", time.Hour)
	require.NoError(t, err)

	code, _ := s.do(t, http.MethodPost, "/api/v1/tracks/import", "application/json", []byte(records), "")
	require.Equal(t, http.StatusCreated, code)

	code, env := s.postJSON(t, "/api/v1/admin/analysis/tasks", map[string]interface{}{
		"skill_name": "stay_detection",
		"params":     map[string]interface{}{"distance_km": 0.05, "min_duration": "15m"},
	}, token)
	require.Equal(t, http.StatusCreated, code, env.Message)

	var task struct {
		ID        int64  `json:"id"`
		CreatedBy string `json:"created_by"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, "admin", task.CreatedBy)
	s.tasks.Wait()

	taskPath := "/api/v1/admin/analysis/tasks/" + strconv.FormatInt(task.ID, 10)
	code, env = s.do(t, http.MethodGet, taskPath, "", nil, token)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"completed"`)

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/analysis/tasks?status=completed", "", nil, token)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"skill_name":"stay_detection"`)

	code, env = s.do(t, http.MethodGet, "/api/v1/stays?taskId="+strconv.FormatInt(task.ID, 10), "", nil, "")
	require.Equal(t, http.StatusOK, code)
	var stays struct {
		Total int64 `json:"total"`
		Data  []struct {
			ID         int64 `json:"id"`
			PointCount int   `json:"point_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stays))
	require.Equal(t, int64(1), stays.Total)
	assert.Equal(t, 4, stays.Data[0].PointCount)

	code, _ = s.do(t, http.MethodGet, "/api/v1/stays/"+strconv.FormatInt(stays.Data[0].ID, 10), "", nil, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/stays/999", "", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/stays/abc", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, code)

	// Finished tasks cannot be cancelled, only purged
	code, _ = s.do(t, http.MethodDelete, taskPath, "", nil, token)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = s.do(t, http.MethodDelete, taskPath+"?purge=yes", "", nil, token)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, taskPath, "", nil, token)
	assert.Equal(t, http.StatusOK, code, "a bad purge value leaves the task alone")
	code, _ = s.do(t, http.MethodDelete, taskPath+"?purge=true", "", nil, token)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, taskPath, "", nil, token)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestServer(t, 0)
	token, err := middleware.IssueToken(secret, "admin", time.Hour)
	require.NoError(t, err)

	code, _ := s.postJSON(t, "/api/v1/admin/analysis/tasks", map[string]interface{}{}, token)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.postJSON(t, "/api/v1/admin/analysis/tasks", map[string]interface{}{"skill_name": "astrology"}, token)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, strings.Contains(env.Message, "astrology"))

	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/analysis/tasks/0", "", nil, token)
	assert.Equal(t, http.StatusBadRequest, code)
}
