package stream

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kweinmeister/agent-design-patterns/testutil"
	"github.com/kweinmeister/agent-design-patterns/testutil/fixtures"
	"github.com/kweinmeister/agent-design-patterns/types"
)

// recorder 记录一条流的全部回调
type recorder struct {
	mu        sync.Mutex
	events    []Event
	completes int
	errs      []error
}

func (r *recorder) consumer() Consumer {
	return Consumer{
		OnEvent: func(e Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
		},
		OnComplete: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completes++
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
	}
}

func (r *recorder) snapshot() ([]Event, int, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...), r.completes, append([]error(nil), r.errs...)
}

// fakeObserver 记录观测钩子调用
type fakeObserver struct {
	mu       sync.Mutex
	opened   int
	received []string
	outcomes []string
}

func (o *fakeObserver) StreamOpened(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened++
}

func (o *fakeObserver) EventReceived(_ string, eventType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.received = append(o.received, eventType)
}

func (o *fakeObserver) StreamClosed(_ string, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewClient(NewSSETransport(nil, nil), opts...)
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish")
	}
}

func TestClient_CompleteDispatchesInOrder(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(fixtures.OrchestratorHello()...)})
	obs := &fakeObserver{}
	client := newTestClient(t, WithObserver(obs))

	rec := &recorder{}
	h := client.Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/stream_orchestrator", "prompt", "hi"), rec.consumer())
	waitDone(t, h)

	events, completes, errs := rec.snapshot()
	require.Len(t, events, 6)
	assert.Equal(t, EventPlan, events[0].Type)
	assert.Equal(t, "Hel", events[2].Content)
	assert.Equal(t, "lo", events[3].Content)
	assert.Equal(t, EventComplete, events[5].Type)
	assert.Equal(t, 1, completes)
	assert.Empty(t, errs)
	assert.Equal(t, OutcomeComplete, h.Outcome())
	assert.NotEmpty(t, h.ID())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.opened)
	assert.Len(t, obs.received, 6)
	assert.Equal(t, []string{OutcomeComplete}, obs.outcomes)
}

func TestClient_NothingDispatchedAfterTerminal(t *testing.T) {
	payloads := append(fixtures.OrchestratorHello(), fixtures.Complete(), fixtures.Status("late"))
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(payloads...)})

	rec := &recorder{}
	h := newTestClient(t).Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())
	waitDone(t, h)

	events, completes, errs := rec.snapshot()
	assert.Len(t, events, 6)
	assert.Equal(t, 1, completes)
	assert.Empty(t, errs)
}

func TestClient_FinalRoleTerminates(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(fixtures.ReflectionLoop()...), Hold: true})

	rec := &recorder{}
	h := newTestClient(t).Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/stream_reflection", "prompt", "x"), rec.consumer())
	waitDone(t, h)

	events, completes, errs := rec.snapshot()
	assert.Len(t, events, 4)
	assert.Equal(t, 1, completes)
	assert.Empty(t, errs)
}

func TestClient_MalformedEventAborts(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(
		fixtures.Status("ok"),
		`{"type":"status"`,
		fixtures.Complete(),
	)})

	rec := &recorder{}
	h := newTestClient(t).Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())
	waitDone(t, h)

	events, completes, errs := rec.snapshot()
	assert.Len(t, events, 1)
	assert.Equal(t, 0, completes)
	require.Len(t, errs, 1)
	assert.True(t, types.IsErrorCode(errs[0], types.ErrMalformedEvent))
	assert.Equal(t, OutcomeError, h.Outcome())
}

func TestClient_EOFBeforeTerminalIsTransportError(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(fixtures.Status("working"))})

	rec := &recorder{}
	h := newTestClient(t).Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())
	waitDone(t, h)

	_, completes, errs := rec.snapshot()
	assert.Equal(t, 0, completes)
	require.Len(t, errs, 1)
	assert.True(t, types.IsErrorCode(errs[0], types.ErrTransport))
}

func TestClient_OpenFailureReportedThroughOnError(t *testing.T) {
	tests := []struct {
		name string
		req  func(url string) Request
		code types.ErrorCode
	}{
		{"GET", func(u string) Request { return NewGetRequest(u, "/s", "prompt", "x") }, types.ErrTransport},
		{"POST", func(u string) Request { return NewPostRequest(u+"/s", map[string]string{"prompt": "x"}) }, types.ErrRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewSSEServer(t, testutil.SSEScript{Status: http.StatusServiceUnavailable})
			rec := &recorder{}
			h := newTestClient(t).Open(testutil.TestContext(t), tt.req(srv.URL), rec.consumer())
			waitDone(t, h)

			_, completes, errs := rec.snapshot()
			assert.Equal(t, 0, completes)
			require.Len(t, errs, 1)
			assert.True(t, types.IsErrorCode(errs[0], tt.code), "got %v", errs[0])
		})
	}
}

func TestClient_IdleTimeout(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(fixtures.Status("started")), Hold: true})

	rec := &recorder{}
	h := newTestClient(t, WithIdleTimeout(100*time.Millisecond)).
		Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())
	waitDone(t, h)

	events, completes, errs := rec.snapshot()
	assert.Len(t, events, 1)
	assert.Equal(t, 0, completes)
	require.Len(t, errs, 1)
	assert.True(t, types.IsErrorCode(errs[0], types.ErrIdleTimeout), "got %v", errs[0])
}

func TestClient_IdleTimerResetsOnEachMessage(t *testing.T) {
	frames := []testutil.SSEFrame{
		{Data: fixtures.Status("a"), Delay: 60 * time.Millisecond},
		{Data: fixtures.Status("b"), Delay: 60 * time.Millisecond},
		{Data: fixtures.Status("c"), Delay: 60 * time.Millisecond},
		{Data: fixtures.Complete(), Delay: 60 * time.Millisecond},
	}
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: frames})

	rec := &recorder{}
	h := newTestClient(t, WithIdleTimeout(500*time.Millisecond)).
		Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())
	waitDone(t, h)

	_, completes, errs := rec.snapshot()
	assert.Equal(t, 1, completes)
	assert.Empty(t, errs)
}

func TestIdleGuard(t *testing.T) {
	const timeout = 20 * time.Millisecond

	newGuard := func() (*idleGuard, *atomic.Int32) {
		var fired atomic.Int32
		return &idleGuard{timeout: timeout, onFire: func() { fired.Add(1) }}, &fired
	}

	t.Run("read returning first disarms", func(t *testing.T) {
		g, fired := newGuard()
		g.arm()
		assert.False(t, g.disarm())
		time.Sleep(3 * timeout)
		assert.Zero(t, fired.Load())
	})

	t.Run("timer firing first wins", func(t *testing.T) {
		g, fired := newGuard()
		g.arm()
		testutil.AssertEventuallyTrue(t, func() bool { return fired.Load() == 1 }, time.Second)
		assert.True(t, g.disarm())
	})

	t.Run("callback already waiting is voided by disarm", func(t *testing.T) {
		g, fired := newGuard()
		g.arm()

		// 持锁期间计时器到期，回调阻塞在锁上；随后读取返回并作废本次计时
		g.mu.Lock()
		time.Sleep(3 * timeout)
		g.seq++
		g.mu.Unlock()
		assert.False(t, g.disarm())

		time.Sleep(3 * timeout)
		assert.Zero(t, fired.Load())
	})

	t.Run("each read gets a fresh deadline", func(t *testing.T) {
		g, fired := newGuard()
		for i := 0; i < 5; i++ {
			g.arm()
			time.Sleep(timeout / 4)
			assert.False(t, g.disarm())
		}
		time.Sleep(3 * timeout)
		assert.Zero(t, fired.Load())
	})

	t.Run("nil guard never fires", func(t *testing.T) {
		var g *idleGuard
		g.arm()
		assert.False(t, g.disarm())
	})
}

func TestClient_CloseSuppressesCallbacks(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(fixtures.Status("started")), Hold: true})

	rec := &recorder{}
	h := newTestClient(t).Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())

	testutil.AssertEventuallyTrue(t, func() bool {
		events, _, _ := rec.snapshot()
		return len(events) == 1
	}, 5*time.Second)

	h.Close()
	h.Close()
	waitDone(t, h)

	_, completes, errs := rec.snapshot()
	assert.Equal(t, 0, completes)
	assert.Empty(t, errs)
	assert.Equal(t, OutcomeClosed, h.Outcome())

	_, ok := testutil.WaitForChannel(srv.Disconnected(), 5*time.Second)
	assert.True(t, ok, "server should observe the disconnect")
}

func TestClient_CloseBeforeOpenCompletes(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: []testutil.SSEFrame{
		{Data: fixtures.Complete(), Delay: 200 * time.Millisecond},
	}})

	rec := &recorder{}
	h := newTestClient(t).Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())
	h.Close()
	waitDone(t, h)

	events, completes, errs := rec.snapshot()
	assert.Empty(t, events)
	assert.Equal(t, 0, completes)
	assert.Empty(t, errs)
}

func TestClient_ParentCancellationIsTransportError(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Hold: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	h := newTestClient(t).Open(ctx, NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())

	testutil.AssertEventuallyTrue(t, func() bool { return srv.RequestCount() == 1 }, 5*time.Second)
	cancel()
	waitDone(t, h)

	_, completes, errs := rec.snapshot()
	assert.Equal(t, 0, completes)
	require.Len(t, errs, 1)
	assert.True(t, types.IsErrorCode(errs[0], types.ErrTransport))
}

func TestClient_UpstreamErrorFrame(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: []testutil.SSEFrame{
		{Data: fixtures.Status("thinking")},
		{Event: "error", Data: `{"message":"quota exceeded"}`},
	}})

	rec := &recorder{}
	h := newTestClient(t).Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())
	waitDone(t, h)

	_, _, errs := rec.snapshot()
	require.Len(t, errs, 1)
	assert.True(t, types.IsErrorCode(errs[0], types.ErrUpstreamError))
}

func TestClient_CustomTerminator(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(
		fixtures.Status("one"),
		fixtures.Status("two"),
	), Hold: true})

	rec := &recorder{}
	onStatusTwo := func(e Event) bool { return e.Type == EventStatus && e.Message == "two" }
	h := newTestClient(t, WithTerminator(onStatusTwo)).
		Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "prompt", "x"), rec.consumer())
	waitDone(t, h)

	events, completes, _ := rec.snapshot()
	assert.Len(t, events, 2)
	assert.Equal(t, 1, completes)
}

func TestClient_NilCallbacksTolerated(t *testing.T) {
	srv := testutil.NewSSEServer(t, testutil.SSEScript{Frames: testutil.Data(fixtures.Complete())})
	h := newTestClient(t).Open(testutil.TestContext(t), NewGetRequest(srv.URL, "/s", "", ""), Consumer{})
	waitDone(t, h)
	assert.Equal(t, OutcomeComplete, h.Outcome())
}
