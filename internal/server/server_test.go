package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"skillmatch/internal/config"
	"skillmatch/internal/controller"
	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	mu        sync.Mutex
	calls     atomic.Int32
	analyze   func(context.Context, types.AnalysisRequest) (types.AnalysisResult, error)
	skillInfo func(context.Context, string) (types.SkillInfo, error)
	unhealthy atomic.Bool
}

func (b *stubBackend) Analyze(ctx context.Context, req types.AnalysisRequest) (types.AnalysisResult, error) {
	b.calls.Add(1)
	b.mu.Lock()
	fn := b.analyze
	b.mu.Unlock()
	return fn(ctx, req)
}

func (b *stubBackend) SkillInfo(ctx context.Context, skill string) (types.SkillInfo, error) {
	b.mu.Lock()
	fn := b.skillInfo
	b.mu.Unlock()
	return fn(ctx, skill)
}

func (b *stubBackend) setAnalyze(fn func(context.Context, types.AnalysisRequest) (types.AnalysisResult, error)) {
	b.mu.Lock()
	b.analyze = fn
	b.mu.Unlock()
}

func (b *stubBackend) setSkillInfo(fn func(context.Context, string) (types.SkillInfo, error)) {
	b.mu.Lock()
	b.skillInfo = fn
	b.mu.Unlock()
}

func (b *stubBackend) Stats() map[string]any {
	return map[string]any{"analyze": map[string]any{"state": "closed"}}
}

func (b *stubBackend) IsHealthy() bool { return !b.unhealthy.Load() }

func newStubBackend() *stubBackend {
	return &stubBackend{
		analyze: func(context.Context, types.AnalysisRequest) (types.AnalysisResult, error) {
			return types.AnalysisResult{Score: 73, MatchedSkills: []string{"SQL", "Python"}, MissingSkills: []string{"Kubernetes"}}, nil
		},
		skillInfo: func(context.Context, string) (types.SkillInfo, error) {
			return types.SkillInfo{Description: "Container orchestration.", Link: "https://x"}, nil
		},
	}
}

type testEnv struct {
	srv     *Server
	ts      *httptest.Server
	backend *stubBackend
}

func newTestEnv(t *testing.T, mutate func(*ServerConfig)) *testEnv {
	t.Helper()
	backend := newStubBackend()
	queue := NewNotificationQueue(0)
	ctrl := controller.New(controller.Options{Backend: backend, Notifier: queue})

	cfg := ServerConfig{
		Version:        "test",
		MaxRequestSize: 1 << 20,
		MaxFileSize:    1 << 20,
		Controller:     ctrl,
		Notifications:  queue,
		Backend:        backend,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv := NewServer(&config.Config{}, cfg, errors.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		if srv.RateLimiter != nil {
			srv.RateLimiter.Close()
		}
	})
	return &testEnv{srv: srv, ts: ts, backend: backend}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeState(t *testing.T, resp *http.Response) StateResponse {
	t.Helper()
	var state StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	return errResp
}

func (e *testEnv) fillText(t *testing.T) {
	t.Helper()
	for _, group := range []string{"resume", "jd"} {
		resp := e.do(t, http.MethodPut, "/inputs/"+group+"/mode", ModeRequest{Mode: types.ModeText})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp = e.do(t, http.MethodPut, "/inputs/"+group+"/text", TextRequest{Text: "SQL, Python"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func makePDF(t *testing.T) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Text(20, 20, "Resume")
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "circuit_breakers")

	env.backend.unhealthy.Store(true)
	resp = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestInitialState(t *testing.T) {
	env := newTestEnv(t, nil)
	state := decodeState(t, env.do(t, http.MethodGet, "/state", nil))

	assert.Equal(t, types.UIStateIdle, state.State)
	assert.True(t, state.Submit.Enabled)
	assert.Equal(t, "No file selected", state.Resume.FileLabel)
	assert.Empty(t, state.Notifications)
}

func TestAnalyzeFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fillText(t)

	resp := env.do(t, http.MethodPost, "/analyze", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeState(t, resp)
	assert.Equal(t, types.UIStateResultsShown, state.State)
	require.NotNil(t, state.Results)
	assert.Equal(t, "73%", state.Results.ScoreText)

	resp = env.do(t, http.MethodPost, "/skills/Kubernetes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state = decodeState(t, resp)
	assert.True(t, state.Modal.Open)
	assert.Equal(t, "https://x", state.Modal.Link)

	resp = env.do(t, http.MethodPost, "/modal/close", ModalCloseRequest{Target: types.TargetContent})
	assert.True(t, decodeState(t, resp).Modal.Open)
	resp = env.do(t, http.MethodPost, "/modal/close", ModalCloseRequest{Target: types.TargetBackdrop})
	assert.False(t, decodeState(t, resp).Modal.Open)

	resp = env.do(t, http.MethodGet, "/report", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "AI_Resume_Analysis_Report.pdf")
	pdfBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF-")))
}

func TestAnalyzeValidationQueuesNotification(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/analyze", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please upload your resume PDF.", decodeError(t, resp).Message)
	assert.Zero(t, env.backend.calls.Load())

	state := decodeState(t, env.do(t, http.MethodGet, "/state", nil))
	assert.Equal(t, []string{"Please upload your resume PDF."}, state.Notifications)

	state = decodeState(t, env.do(t, http.MethodGet, "/state", nil))
	assert.Empty(t, state.Notifications, "notifications are drained")
}

func TestAnalyzeBackendError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fillText(t)
	env.backend.setAnalyze(func(context.Context, types.AnalysisRequest) (types.AnalysisResult, error) {
		return types.AnalysisResult{}, errors.NewHTTPError(500, "HTTP error! status: 500")
	})

	resp := env.do(t, http.MethodPost, "/analyze", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	state := decodeState(t, env.do(t, http.MethodGet, "/state", nil))
	assert.Equal(t, types.UIStateError, state.State)
	assert.True(t, state.Submit.Enabled)
	assert.Equal(t, []string{"An error occurred: HTTP error! status: 500"}, state.Notifications)
}

func TestAnalyzeWhileLoadingIsRefused(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fillText(t)

	started := make(chan struct{})
	release := make(chan struct{})
	env.backend.setAnalyze(func(context.Context, types.AnalysisRequest) (types.AnalysisResult, error) {
		close(started)
		<-release
		return types.AnalysisResult{Score: 1}, nil
	})

	done := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/analyze", nil)
		resp, err := env.ts.Client().Do(req)
		if err != nil {
			done <- 0
			return
		}
		_ = resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-started

	resp := env.do(t, http.MethodPost, "/analyze", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, int32(1), env.backend.calls.Load())
}

func TestConcurrentAnalyzeRequestsRunOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fillText(t)

	release := make(chan struct{})
	env.backend.setAnalyze(func(context.Context, types.AnalysisRequest) (types.AnalysisResult, error) {
		<-release
		return types.AnalysisResult{Score: 1}, nil
	})

	const requests = 5
	type outcome struct {
		status int
		errMsg string
	}
	outcomes := make(chan outcome, requests)
	for range requests {
		go func() {
			req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/analyze", nil)
			resp, err := env.ts.Client().Do(req)
			if err != nil {
				outcomes <- outcome{}
				return
			}
			defer func() { _ = resp.Body.Close() }()
			var errResp ErrorResponse
			if resp.StatusCode != http.StatusOK {
				_ = json.NewDecoder(resp.Body).Decode(&errResp)
			}
			outcomes <- outcome{status: resp.StatusCode, errMsg: errResp.Error}
		}()
	}

	// every request but the one holding the backend is refused before release
	var refused []outcome
	for range requests - 1 {
		refused = append(refused, <-outcomes)
	}
	close(release)
	winner := <-outcomes

	assert.Equal(t, http.StatusOK, winner.status)
	for _, o := range refused {
		assert.Equal(t, http.StatusConflict, o.status)
		assert.Equal(t, "Analysis in progress", o.errMsg)
	}
	assert.Equal(t, int32(1), env.backend.calls.Load())
}

func TestUploadAndClearFile(t *testing.T) {
	env := newTestEnv(t, nil)

	upload := func(name string, data []byte) *http.Response {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/inputs/resume/file", &body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		resp, err := env.ts.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := upload("cv.pdf", makePDF(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeState(t, resp)
	assert.Equal(t, "cv.pdf · 1 page", state.Resume.FileLabel)
	assert.True(t, state.Resume.ClearVisible)

	resp = upload("cv.docx", []byte("not a pdf"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/inputs/resume/file", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "No file selected", decodeState(t, resp).Resume.FileLabel)
}

func TestInputErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPut, "/inputs/cover/mode", ModeRequest{Mode: types.ModeText})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/inputs/resume/mode", ModeRequest{Mode: "voice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPut, env.ts.URL+"/inputs/resume/text", strings.NewReader("plain"))
	require.NoError(t, err)
	plain, err := env.ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = plain.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, plain.StatusCode)

	resp = env.do(t, http.MethodPost, "/modal/close", ModalCloseRequest{Target: "elsewhere"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSkillAndReportPreconditions(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/skills/Kubernetes", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/report", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Please run an analysis first.", decodeError(t, resp).Message)

	resp = env.do(t, http.MethodGet, "/explain", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSkillLookupFailureStaysInModal(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fillText(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/analyze", nil).StatusCode)
	env.backend.setSkillInfo(func(context.Context, string) (types.SkillInfo, error) {
		return types.SkillInfo{}, errors.NewHTTPError(404, "Skill not found")
	})

	resp := env.do(t, http.MethodPost, "/skills/Kubernetes", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeState(t, resp)
	assert.True(t, state.Modal.Failed)
	assert.Equal(t, "Could not fetch learning resources. Skill not found", state.Modal.Description)
}

func TestExplain(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fillText(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/analyze", nil).StatusCode)

	resp := env.do(t, http.MethodGet, "/explain", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rep types.SkillReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	require.Len(t, rep.Explained, 1)
	assert.Equal(t, "Kubernetes", rep.Explained[0].Skill)
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) { c.APIKeys = []string{"secret-key-123"} })

	tests := []struct {
		name    string
		headers []string
		want    int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"invalid", []string{"X-API-Key", "nope"}, http.StatusUnauthorized},
		{"header", []string{"X-API-Key", "secret-key-123"}, http.StatusOK},
		{"bearer", []string{"Authorization", "Bearer secret-key-123"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, "/state", nil, tt.headers...)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).StatusCode, "health is public")

	env.srv.SetAPIKeys([]string{"rotated"})
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/state", nil, "X-API-Key", "secret-key-123").StatusCode)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/state", nil, "X-API-Key", "rotated").StatusCode)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 2, ByIP: true}
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/state", nil).StatusCode)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/state", nil).StatusCode)
	resp := env.do(t, http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Rate limit exceeded", decodeError(t, resp).Error)

	var stats map[string]any
	require.NoError(t, json.NewDecoder(env.do(t, http.MethodGet, "/stats", nil).Body).Decode(&stats))
	assert.Contains(t, stats, "rate_limiting")
}

func TestRequestSizeLimit(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) { c.MaxRequestSize = 16 })
	resp := env.do(t, http.MethodPut, "/inputs/resume/text", TextRequest{Text: strings.Repeat("x", 64)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeError(t, resp).Message, "too large")
}

func TestGetRateLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "bogus, 192.168.1.9")

	assert.Equal(t, "ip:192.168.1.9", getRateLimitKey(req, false, true))
	assert.Equal(t, "ip:192.168.1.9", getRateLimitKey(req, true, true), "no key falls back to IP")
	req.Header.Set("X-API-Key", "k")
	assert.Equal(t, "api:k", getRateLimitKey(req, true, true))
	assert.Empty(t, getRateLimitKey(req, false, false))
}

func TestNotificationQueueLimit(t *testing.T) {
	q := NewNotificationQueue(2)
	q.Notify("a")
	q.Notify("b")
	q.Notify("c")
	assert.Equal(t, []string{"b", "c"}, q.Drain())
	assert.Empty(t, q.Drain())
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.NewValidationError(errors.ErrCodeMissingInput, "x", nil), http.StatusBadRequest},
		{errors.NewPreconditionError(errors.ErrCodeNoResult, "x"), http.StatusConflict},
		{errors.NewNetworkError(errors.ErrCodeServiceUnavailable, "x", nil), http.StatusServiceUnavailable},
		{errors.NewNetworkError(errors.ErrCodeRequestFailed, "x", nil), http.StatusBadGateway},
		{errors.NewHTTPError(500, "x"), http.StatusBadGateway},
		{errors.NewInternalError(errors.ErrCodeUnexpectedPanic, "x", nil), http.StatusInternalServerError},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), tt.err.Error())
	}
}

func TestServerInfo(t *testing.T) {
	env := newTestEnv(t, func(c *ServerConfig) { c.APIKeys = []string{"a", "b"} })
	var buf bytes.Buffer
	env.srv.writeServerInfo(&buf)
	assert.Contains(t, buf.String(), "POST   /analyze")
	assert.Contains(t, buf.String(), "API authentication: ENABLED (2 keys configured)")
	assert.Contains(t, buf.String(), "Rate limiting: DISABLED")
}

func TestServerConfigFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = "8090"
	cfg.Server.APIKeys = []string{"k"}
	cfg.App.MaxFileSize = 42
	cfg.Server.RateLimit.Enabled = true

	sc := ServerConfigFromConfig(cfg, "1.0")
	assert.Equal(t, "8090", sc.Port)
	assert.Equal(t, int64(42), sc.MaxFileSize)
	assert.Equal(t, []string{"k"}, sc.APIKeys)
	require.NotNil(t, sc.RateLimit)
	assert.True(t, sc.RateLimit.Enabled)
}
