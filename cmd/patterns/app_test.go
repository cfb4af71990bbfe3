package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kweinmeister/agent-design-patterns/api"
	"github.com/kweinmeister/agent-design-patterns/config"
	"github.com/kweinmeister/agent-design-patterns/testutil"
	"github.com/kweinmeister/agent-design-patterns/testutil/fixtures"
	"github.com/kweinmeister/agent-design-patterns/types"
	"github.com/kweinmeister/agent-design-patterns/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// syncBuffer 会话循环与测试并发读写输出
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(t *testing.T, baseURL string) (*app, *syncBuffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Backend.BaseURL = baseURL
	cfg.Render.Live = false
	cfg.Stream.IdleTimeout = 5 * time.Second
	out := &syncBuffer{}
	logger := zaptest.NewLogger(t)
	return &app{
		cfg:    cfg,
		logger: logger,
		out:    out,
		api:    api.NewClient(baseURL, api.WithLogger(logger)),
	}, out
}

// =============================================================================
// 🚀 run
// =============================================================================

func TestRunPattern_Orchestrator(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(fixtures.OrchestratorHello()...)})
	a, out := newTestApp(t, srv.URL)

	state, err := a.runPattern(testutil.TestContext(t), view.Orchestrator, "Say hello")
	require.NoError(t, err)
	assert.True(t, state.Completed)
	assert.False(t, state.Submitting)

	got := out.String()
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "Mission Success")

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/stream_orchestrator", reqs[0].Path)
	assert.Equal(t, "Say hello", reqs[0].Query.Get("prompt"))
}

func TestRunPattern_ReflectionHTML(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(fixtures.ReflectionLoop()...)})
	a, out := newTestApp(t, srv.URL)
	a.cfg.Render.Format = config.FormatHTML

	state, err := a.runPattern(testutil.TestContext(t), view.Reflection, "Write")
	require.NoError(t, err)
	assert.Equal(t, "Longer draft.", state.Final)

	got := out.String()
	assert.Contains(t, got, `<section class="entry"`)
	assert.Contains(t, got, "Longer draft.")
	assert.Contains(t, got, `<div class="banner success">`)
}

func TestRunPattern_OpenFailureShowsBanner(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Status: http.StatusBadGateway, Body: "down"})
	a, out := newTestApp(t, srv.URL)

	state, err := a.runPattern(testutil.TestContext(t), view.Voting, "Slogan")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrTransport))
	assert.False(t, state.Submitting)
	assert.Contains(t, out.String(), view.BannerErrorText)
	assert.Equal(t, "error", runResult(err))
}

func TestRunPattern_InterruptCancels(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{
		Frames: testutil.Data(fixtures.Status("Agents are drafting...")),
		Hold:   true,
	})
	a, out := newTestApp(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		testutil.WaitFor(func() bool { return srv.RequestCount() == 1 }, 2*time.Second)
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := a.runPattern(ctx, view.Voting, "Slogan")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrSuperseded))
	assert.Equal(t, "cancelled", runResult(err))
	assert.Contains(t, out.String(), view.BannerErrorText)

	_, ok := testutil.WaitForChannel(srv.Disconnected(), 2*time.Second)
	assert.True(t, ok, "stream connection closed after interrupt")
}

func TestRunResult(t *testing.T) {
	assert.Equal(t, "complete", runResult(nil))
	assert.Equal(t, "cancelled", runResult(context.Canceled))
	assert.Equal(t, "error", runResult(types.NewError(types.ErrIdleTimeout, "idle")))
}

// =============================================================================
// 📚 非流式命令
// =============================================================================

func jsonHandler(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func TestApp_List(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /patterns.json", jsonHandler([]api.PatternInfo{
		{ID: "voting", Name: "Voting", Icon: "🗳️", Description: "Agents vote\x1b[31m"},
		{ID: "sequential", Name: "Sequential Agent", Icon: "📋"},
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	a, out := newTestApp(t, srv.URL)

	require.NoError(t, a.list(testutil.TestContext(t)))
	got := out.String()
	assert.Contains(t, got, "voting")
	assert.Contains(t, got, "(streaming)")
	assert.Contains(t, got, "Sequential Agent")
	assert.Contains(t, got, "Agents vote")
	assert.NotContains(t, got, "\x1b[31m")
}

func TestApp_Code(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/code/voting", jsonHandler(map[string]string{"agent.py": "x = 1\n", "README.md": "# V"}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	a, out := newTestApp(t, srv.URL)

	require.NoError(t, a.code(testutil.TestContext(t), "voting", "agent.py"))
	assert.Contains(t, out.String(), "agent.py")
	assert.NotContains(t, out.String(), "README.md")

	err := a.code(testutil.TestContext(t), "voting", "missing.py")
	assert.Error(t, err)
}

func TestApp_HITL(t *testing.T) {
	replies := []map[string]any{
		{"history": []map[string]string{{"role": "agent", "content": "Draft v1"}}},
		{"history": []map[string]string{{"role": "agent", "content": "Draft v2"}}},
		{"history": []map[string]string{{"role": "agent", "content": "Published."}}, "is_published": true},
	}
	var mu sync.Mutex
	var prompts []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /hitl/run", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		i := len(prompts)
		prompts = append(prompts, req.Prompt)
		mu.Unlock()
		jsonHandler(replies[i])(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	a, out := newTestApp(t, srv.URL)

	form := api.DraftForm{Company: "Acme", Product: "Skates"}
	in := strings.NewReader("bogus\nreject make it shorter\napprove\n")
	require.NoError(t, a.hitl(testutil.TestContext(t), form, in))

	got := out.String()
	assert.Contains(t, got, "Draft v1")
	assert.Contains(t, got, "Draft v2")
	assert.Contains(t, got, "unknown command: bogus")
	assert.Contains(t, got, "Published! ✅")

	require.Len(t, prompts, 3)
	assert.Contains(t, prompts[1], "Change this: make it shorter.")
	assert.Equal(t, "Looks good. Publish it.", prompts[2])
}

func TestApp_RAG(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rag/knowledge", jsonHandler(map[string]any{"documents": []string{}}))
	mux.HandleFunc("POST /rag/query", jsonHandler(map[string]string{"final": "RAG is **retrieval**."}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	a, out := newTestApp(t, srv.URL)
	ctx := testutil.TestContext(t)

	require.NoError(t, a.rag(ctx, "knowledge", "", time.Millisecond))
	assert.Contains(t, out.String(), "Knowledge base is empty")

	require.NoError(t, a.rag(ctx, "query", "what is rag", time.Millisecond))
	assert.Contains(t, out.String(), "retrieval")

	assert.Error(t, a.rag(ctx, "explode", "", time.Millisecond))
}

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "python", languageFor("agent.py"))
	assert.Equal(t, "javascript", languageFor("static/hitl.JS"))
	assert.Equal(t, "html", languageFor("voting.html.j2"))
	assert.Equal(t, "", languageFor("Makefile"))
}

func TestInitLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger := initLogger(config.LogConfig{Level: "debug", Format: format, OutputPaths: []string{"stderr"}})
		require.NotNil(t, logger)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	}
	logger := initLogger(config.LogConfig{Level: "bogus"})
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
