package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanattend/internal/attendance"
	"scanattend/internal/auth"
	"scanattend/internal/camera"
	"scanattend/internal/metrics"
	"scanattend/internal/scan"
	"scanattend/internal/status"
	"scanattend/internal/store"
	"scanattend/internal/testutil"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "scanattend"
)

type testServer struct {
	router *gin.Engine
	board  *status.Board
	frames *camera.LatestFrame
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewSQLite(t)
	repo := attendance.NewRepository(db.Client)
	registry := attendance.NewRegistry(repo)
	ledger := attendance.NewLedger(repo)
	board := status.NewBoard(time.Minute)
	t.Cleanup(board.Close)

	reg := prometheus.NewRegistry()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := scan.NewCoordinator(registry, ledger, board, scan.Options{
		Location: time.UTC,
		Logger:   log,
		Metrics:  metrics.NewScan(reg),
	})
	frames := &camera.LatestFrame{}

	tok, err := auth.Issue("operator", auth.RoleAdmin, testIssuer, testKey, time.Hour)
	require.NoError(t, err)

	return &testServer{
		router: NewRouter(Deps{
			Scans:         coord,
			Registry:      registry,
			Ledger:        ledger,
			Board:         board,
			Frames:        frames,
			DB:            db,
			Gatherer:      reg,
			JWTSigningKey: testKey,
			JWTIssuer:     testIssuer,
			Logger:        log,
		}),
		board:  board,
		frames: frames,
		token:  tok.Value,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["db"])
	assert.NotContains(t, body, "redis")
}

func TestHealthzReportsRedisBacklog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	_, err := mr.Lpush("attendance.outcomes", "scan.outcome|{}")
	require.NoError(t, err)
	r := store.NewRedis(mr.Addr())
	t.Cleanup(func() { _ = r.Close() })

	router := NewRouter(Deps{
		DB:         testutil.NewSQLite(t),
		Redis:      r,
		OutcomeKey: "attendance.outcomes",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["redis"])
	assert.EqualValues(t, 1, body["outcome_backlog"])

	mr.Close()
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestKeyedScanFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/subjects", enrollRequest{Name: "Alice", Major: "CS", Code: "abc123"}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "ABC123", decode[attendance.Subject](t, w).Code)

	w = s.do(t, http.MethodPost, "/v1/scans", scanRequest{Text: "abc123\n"}, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[scanResponse](t, w)
	assert.Equal(t, scan.KindSuccess, resp.Outcome.Kind)
	assert.Equal(t, scan.SourceKeyed, resp.Outcome.Source)
	assert.Equal(t, "Attendance recorded: Alice - attended 1 times", resp.Message)

	w = s.do(t, http.MethodPost, "/v1/scans", scanRequest{Text: "ABC123"}, false)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["suppressed"])

	w = s.do(t, http.MethodGet, "/v1/status", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[status.State](t, w)
	assert.False(t, st.Idle)
	assert.Equal(t, resp.Message, st.Message)

	w = s.do(t, http.MethodGet, "/v1/subjects/abc123/total", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["total"])
}

func TestScanValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/scans", scanRequest{Text: "   "}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/scans", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = s.do(t, http.MethodPost, "/v1/scans", scanRequest{Text: "ZZZ999"}, false)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[scanResponse](t, w)
	assert.Equal(t, scan.KindUnknownCode, resp.Outcome.Kind)
	assert.Equal(t, "Unknown code: ZZZ999", resp.Message)
}

func TestEnrollErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/subjects", enrollRequest{Name: "Bob", Major: "EE", Code: "SHORT"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/subjects", enrollRequest{Name: "Bob", Major: "EE", Code: "BOB001"}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPost, "/v1/subjects", enrollRequest{Name: "Rob", Major: "EE", Code: "bob001"}, true)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/v1/subjects/NOPE00", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/v1/subjects/bob001", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/v1/subjects", "/v1/records", "/v1/records/export.csv"} {
		w := s.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRecordsAndExport(t *testing.T) {
	s := newTestServer(t)
	for _, code := range []string{"AAA111", "BBB222"} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/subjects", enrollRequest{Name: "N " + code, Major: "M", Code: code}, true).Code)
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/scans", scanRequest{Text: "AAA111"}, false).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/scans", scanRequest{Text: "Name=Walk In;Major=Art;Neptun=WLK001"}, false).Code)

	w := s.do(t, http.MethodGet, "/v1/records", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	records := decode[struct {
		Records []attendance.Record `json:"records"`
	}](t, w).Records
	require.Len(t, records, 2)
	assert.Equal(t, "WLK001", records[0].Code, "newest id first within a day")

	w = s.do(t, http.MethodGet, "/v1/records?code=aaa111", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Records []attendance.Record `json:"records"`
	}](t, w).Records, 1)

	w = s.do(t, http.MethodGet, "/v1/records/export.csv", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance_export.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Name,Major,Neptun,Date,Scans", lines[0])
}

func TestFrame(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/frame.jpg", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.frames.Show(camera.Frame{Seq: 1, At: time.Now(), Image: image.NewGray(image.Rect(0, 0, 4, 4))})
	w = s.do(t, http.MethodGet, "/v1/frame.jpg", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
}

func TestMetricsExposed(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/v1/scans", scanRequest{Text: "ZZZ999"}, false)

	w := s.do(t, http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scan_outcomes_total")
}

func TestStatusStream(t *testing.T) {
	s := newTestServer(t)
	s.board.Publish(scan.Outcome{Kind: scan.KindUnknownCode, Payload: scan.Payload{SubjectCode: "QQQ000"}})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/status/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.router.ServeHTTP(w, req)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end on cancel")
	}
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event:status")
	assert.Contains(t, w.Body.String(), "Unknown code: QQQ000")
}

func TestStatusStreamOutlivesWriteTimeout(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewUnstartedServer(s.router)
	srv.Config.WriteTimeout = 200 * time.Millisecond
	srv.Start()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/status/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	waitFor := func(substr string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q arrived", substr)
				if strings.Contains(line, substr) {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", substr)
			}
		}
	}

	waitFor(status.IdleMessage)
	time.Sleep(2 * srv.Config.WriteTimeout)
	s.board.Publish(scan.Outcome{Kind: scan.KindUnknownCode, Payload: scan.Payload{SubjectCode: "QQQ000"}})
	waitFor("Unknown code: QQQ000")
}
