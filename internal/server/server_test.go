package server

// Notes:
// - Handlers are exercised through fiber's app.Test with a fake Renderer; the
//   real browser path is covered by the root package integration tests.
// - Logging is silenced for the package in TestMain.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	md2png "github.com/alnah/go-md2png"
	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/logging"
)

func TestMain(m *testing.M) {
	logging.SetLoggerForTest(zerolog.Nop())
	os.Exit(m.Run())
}

var fakePNG = []byte("\x89PNG\r\n\x1a\nfake")

// fakeRenderer records inputs and answers with a fixed result or error.
type fakeRenderer struct {
	mu     sync.Mutex
	inputs []md2png.Input
	err    error
}

func (f *fakeRenderer) Render(_ context.Context, in md2png.Input) (*md2png.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &md2png.Result{PNG: fakePNG, Style: md2png.Style{Width: in.Width}}, nil
}

func (f *fakeRenderer) calls() []md2png.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]md2png.Input(nil), f.inputs...)
}

type fakeStats struct{ s md2png.PoolStats }

func (f fakeStats) Stats() md2png.PoolStats { return f.s }

type fakeReady struct{ err error }

func (f fakeReady) Available() error { return f.err }

func testConfig() config.Config {
	return *config.DefaultConfig()
}

func newTestApp(t *testing.T, cfg config.Config, r md2png.Renderer) *fiber.App {
	t.Helper()
	return New(Deps{Config: cfg, Renderer: r, Storage: memoryStorage.New()})
}

func postJSON(t *testing.T, app *fiber.App, body string, headers ...string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, app *fiber.App, target string, headers ...string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

// ---------------------------------------------------------------------------
// TestHealth - Liveness text and probes
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, testConfig(), &fakeRenderer{})

	resp := get(t, app, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Markdown Renderer is running!", string(body))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	assert.Equal(t, http.StatusOK, get(t, app, "/livez").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, app, "/readyz").StatusCode)
}

func TestReadiness_BrowserMissing(t *testing.T) {
	t.Parallel()

	app := New(Deps{
		Config:   testConfig(),
		Renderer: &fakeRenderer{},
		Ready:    fakeReady{err: errors.New("no chrome")},
	})

	assert.Equal(t, http.StatusServiceUnavailable, get(t, app, "/readyz").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, app, "/livez").StatusCode)
}

// ---------------------------------------------------------------------------
// TestRenderJSON - POST /render
// ---------------------------------------------------------------------------

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantWidth int
	}{
		{"numeric width", `{"markdown":"# Hi","width":900}`, 900},
		{"string width", `{"markdown":"# Hi","width":"900"}`, 900},
		{"fractional width", `{"markdown":"# Hi","width":400.9}`, 400},
		{"unit suffix", `{"markdown":"# Hi","width":"300px"}`, 300},
		{"non-numeric width", `{"markdown":"# Hi","width":"wide"}`, 0},
		{"null width", `{"markdown":"# Hi","width":null}`, 0},
		{"absent width", `{"markdown":"# Hi"}`, 0},
		{"negative width passes through", `{"markdown":"# Hi","width":-5}`, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &fakeRenderer{}
			app := newTestApp(t, testConfig(), r)

			resp := postJSON(t, app, tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
			assert.Equal(t, `inline; filename="render.png"`, resp.Header.Get(fiber.HeaderContentDisposition))

			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, fakePNG, body)

			calls := r.calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "# Hi", calls[0].Markdown)
			assert.Equal(t, tt.wantWidth, calls[0].Width)
		})
	}
}

func TestRenderJSON_Backgrounds(t *testing.T) {
	t.Parallel()

	r := &fakeRenderer{}
	app := newTestApp(t, testConfig(), r)

	resp := postJSON(t, app, `{"markdown":"x","cardBackground":"#123456","outerBackground":"black"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	calls := r.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "#123456", calls[0].CardBackground)
	assert.Equal(t, "black", calls[0].OuterBackground)
	assert.Empty(t, calls[0].SourceDir, "HTTP renders never read local files")
}

func TestRenderJSON_ConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Render.Width = 720
	cfg.Render.CardBackground = "#fafafa"
	cfg.Render.OuterBackground = "navy"

	r := &fakeRenderer{}
	app := newTestApp(t, cfg, r)

	require.Equal(t, http.StatusOK, postJSON(t, app, `{"markdown":"x"}`).StatusCode)
	require.Equal(t, http.StatusOK, postJSON(t, app, `{"markdown":"x","width":500,"cardBackground":"red"}`).StatusCode)

	calls := r.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, md2png.Input{Markdown: "x", Width: 720, CardBackground: "#fafafa", OuterBackground: "navy"}, calls[0])
	assert.Equal(t, md2png.Input{Markdown: "x", Width: 500, CardBackground: "red", OuterBackground: "navy"}, calls[1])
}

func TestRenderJSON_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"missing markdown", `{"width":400}`},
		{"empty markdown", `{"markdown":""}`},
		{"markdown not a string", `{"markdown":42}`},
		{"malformed JSON", `{"markdown":`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &fakeRenderer{}
			app := newTestApp(t, testConfig(), r)

			resp := postJSON(t, app, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Markdown content is missing or invalid.", errorBody(t, resp))
			assert.Empty(t, r.calls(), "renderer must not be called")
		})
	}
}

// ---------------------------------------------------------------------------
// TestRenderQuery - GET /render
// ---------------------------------------------------------------------------

func TestRenderQuery(t *testing.T) {
	t.Parallel()

	r := &fakeRenderer{}
	app := newTestApp(t, testConfig(), r)

	resp := get(t, app, "/render?markdown=%23%20Hi&width=400&cardBackground=%23fff&outerBackground=red")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))

	calls := r.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, md2png.Input{Markdown: "# Hi", Width: 400, CardBackground: "#fff", OuterBackground: "red"}, calls[0])

	resp = get(t, app, "/render?width=400")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Markdown content is missing or invalid.", errorBody(t, resp))
	assert.Len(t, r.calls(), 1)
}

// ---------------------------------------------------------------------------
// TestRenderErrors - RenderError kinds map to status and message
// ---------------------------------------------------------------------------

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "missing input from renderer",
			err:        &md2png.RenderError{Kind: md2png.KindMissingInput, Err: md2png.ErrEmptyMarkdown},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Markdown content is missing or invalid.",
		},
		{
			name:       "render failure carries message",
			err:        &md2png.RenderError{Kind: md2png.KindRenderFailure, Err: errors.New("failed to load page content: boom")},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "failed to load page content: boom",
		},
		{
			name:       "environment unavailable",
			err:        &md2png.RenderError{Kind: md2png.KindEnvironmentUnavailable, Err: md2png.ErrBrowserUnavailable},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    md2png.ErrBrowserUnavailable.Error(),
		},
		{
			name:       "empty message falls back",
			err:        &md2png.RenderError{Kind: md2png.KindRenderFailure, Err: errors.New("")},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "An unexpected error occurred during rendering.",
		},
		{
			name:       "plain error",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    context.DeadlineExceeded.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newTestApp(t, testConfig(), &fakeRenderer{err: tt.err})

			resp := postJSON(t, app, `{"markdown":"  "}`)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "application/json")
			assert.Equal(t, tt.wantMsg, errorBody(t, resp))
		})
	}
}

// ---------------------------------------------------------------------------
// TestNotFound - Unknown routes answer JSON
// ---------------------------------------------------------------------------

func TestNotFound(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, testConfig(), &fakeRenderer{})

	resp := get(t, app, "/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "application/json")
	assert.Equal(t, "Not Found", errorBody(t, resp))
}

// ---------------------------------------------------------------------------
// TestStats - Pool statistics endpoint
// ---------------------------------------------------------------------------

func TestStats(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, testConfig(), &fakeRenderer{})
		resp := get(t, app, "/stats")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, false, body["enabled"])
	})

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()

		app := New(Deps{
			Config:   testConfig(),
			Renderer: &fakeRenderer{},
			Stats:    fakeStats{s: md2png.PoolStats{Size: 4, InUse: 1, Idle: 3, Waiting: 2, Completed: 10, Failed: 1}},
		})
		resp := get(t, app, "/stats")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, true, body["enabled"])
		assert.EqualValues(t, 4, body["size"])
		assert.EqualValues(t, 1, body["in_use"])
		assert.EqualValues(t, 3, body["idle"])
		assert.EqualValues(t, 2, body["waiting"])
		assert.EqualValues(t, 10, body["completed"])
		assert.EqualValues(t, 1, body["failed"])
	})
}

// ---------------------------------------------------------------------------
// TestAPIKeyAuth - Optional key authentication
// ---------------------------------------------------------------------------

func TestAPIKeyAuth(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Keys = []string{"alpha", "beta"}

	r := &fakeRenderer{}
	app := newTestApp(t, cfg, r)

	resp := postJSON(t, app, `{"markdown":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Missing or invalid API key.", errorBody(t, resp))

	resp = postJSON(t, app, `{"markdown":"x"}`, "X-API-Key", "gamma")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, app, `{"markdown":"x"}`, "X-API-Key", "beta")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/stats").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, app, "/").StatusCode, "health stays public")
	assert.Len(t, r.calls(), 1)
}

func TestAPIKeyAuth_CustomHeader(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Header = "Authorization-Key"
	cfg.Auth.Keys = []string{"alpha"}

	app := newTestApp(t, cfg, &fakeRenderer{})

	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/render?markdown=x", "X-API-Key", "alpha").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, app, "/render?markdown=x", "Authorization-Key", "alpha").StatusCode)
}

// ---------------------------------------------------------------------------
// TestRateLimit - Memory and redis backed limiting
// ---------------------------------------------------------------------------

func TestRateLimit_Memory(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Max = 1
	cfg.RateLimit.Window = config.Duration(time.Hour)

	app := newTestApp(t, cfg, &fakeRenderer{})

	assert.Equal(t, http.StatusOK, postJSON(t, app, `{"markdown":"x"}`).StatusCode)

	resp := postJSON(t, app, `{"markdown":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Too many requests.", errorBody(t, resp))

	// Only render routes are limited.
	assert.Equal(t, http.StatusOK, get(t, app, "/").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, app, "/stats").StatusCode)
}

func TestRateLimit_PerAPIKey(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.Keys = []string{"alpha", "beta"}
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Max = 1
	cfg.RateLimit.Window = config.Duration(time.Hour)

	app := newTestApp(t, cfg, &fakeRenderer{})

	assert.Equal(t, http.StatusOK, postJSON(t, app, `{"markdown":"x"}`, "X-API-Key", "alpha").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, postJSON(t, app, `{"markdown":"x"}`, "X-API-Key", "alpha").StatusCode)
	assert.Equal(t, http.StatusOK, postJSON(t, app, `{"markdown":"x"}`, "X-API-Key", "beta").StatusCode)
}

func TestRateLimit_Redis(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Max = 2
	cfg.RateLimit.Window = config.Duration(time.Hour)
	cfg.RateLimit.Storage = "redis"
	cfg.RateLimit.RedisAddr = mr.Addr()

	// Storage left nil: New builds the redis store from config.
	app := New(Deps{Config: cfg, Renderer: &fakeRenderer{}})

	assert.Equal(t, http.StatusOK, get(t, app, "/render?markdown=x").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, app, "/render?markdown=x").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, get(t, app, "/render?markdown=x").StatusCode)

	assert.NotEmpty(t, mr.Keys(), "limiter state should live in redis")
}

// ---------------------------------------------------------------------------
// TestNewStore - Storage selection and fallback
// ---------------------------------------------------------------------------

func TestNewStore(t *testing.T) {
	t.Parallel()

	t.Run("memory by default", func(t *testing.T) {
		t.Parallel()

		s := NewStore(config.RateLimitConfig{Storage: "memory"})
		_, ok := s.(*memoryStorage.Storage)
		assert.True(t, ok, "want memory storage, got %T", s)
	})

	t.Run("redis without address uses memory", func(t *testing.T) {
		t.Parallel()

		s := NewStore(config.RateLimitConfig{Storage: "redis"})
		_, ok := s.(*memoryStorage.Storage)
		assert.True(t, ok, "want memory storage, got %T", s)
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		t.Parallel()

		s := NewStore(config.RateLimitConfig{Storage: "redis", RedisAddr: "127.0.0.1:1"})
		require.NotNil(t, s)
		_, ok := s.(*memoryStorage.Storage)
		assert.True(t, ok, "want memory fallback, got %T", s)
	})

	t.Run("reachable redis", func(t *testing.T) {
		t.Parallel()

		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		s := NewStore(config.RateLimitConfig{Storage: "redis", RedisAddr: mr.Addr()})
		require.NotNil(t, s)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Set("probe", []byte("1"), time.Minute))
		assert.True(t, mr.Exists("probe"))
	})
}

// ---------------------------------------------------------------------------
// TestParseWidth - Lenient width parsing
// ---------------------------------------------------------------------------

func TestParseWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"900", 900},
		{" 900 ", 900},
		{"900.7", 900},
		{"300px", 300},
		{"+12", 12},
		{"-5", -5},
		{"", 0},
		{"abc", 0},
		{"-", 0},
		{"px300", 0},
		{"99999999999999999999999", 0},
	}

	for _, tt := range tests {
		if got := parseWidth(tt.in); got != tt.want {
			t.Errorf("parseWidth(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestMonitor - Optional monitor page
// ---------------------------------------------------------------------------

func TestMonitor(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	assert.Equal(t, http.StatusNotFound, get(t, newTestApp(t, cfg, &fakeRenderer{}), "/monitor").StatusCode)

	cfg.Server.Monitor = true
	assert.Equal(t, http.StatusOK, get(t, newTestApp(t, cfg, &fakeRenderer{}), "/monitor").StatusCode)
}

// ---------------------------------------------------------------------------
// TestRun - Listen and graceful shutdown
// ---------------------------------------------------------------------------

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRun(t *testing.T) {
	t.Run("serves until context is cancelled", func(t *testing.T) {
		addr := freeAddr(t)
		app := newTestApp(t, testConfig(), &fakeRenderer{})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- Run(ctx, app, addr) }()

		client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
		require.Eventually(t, func() bool {
			resp, err := client.Get("http://" + addr + "/")
			if err != nil {
				return false
			}
			_ = resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 5*time.Second, 20*time.Millisecond)

		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(ShutdownTimeout + time.Second):
			t.Fatal("Run did not return after cancellation")
		}
	})

	t.Run("listen error is returned", func(t *testing.T) {
		app := newTestApp(t, testConfig(), &fakeRenderer{})

		err := Run(context.Background(), app, "256.0.0.1:bad")
		require.ErrorIs(t, err, ErrListen)
		assert.Contains(t, err.Error(), "256.0.0.1:bad")
	})
}
