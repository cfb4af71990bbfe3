package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kweinmeister/agent-design-patterns/types"
)

// =============================================================================
// 📡 StreamClient
// =============================================================================

// DefaultIdleTimeout 服务端静默超过该时长即按错误关闭
const DefaultIdleTimeout = 2 * time.Minute

// 流结束的结果标签
const (
	OutcomeComplete = "complete"
	OutcomeError    = "error"
	OutcomeClosed   = "closed"
)

var (
	errIdle   = errors.New("stream idle timeout")
	errClosed = errors.New("stream closed by caller")
)

// Consumer 接收一条流的回调
//
// 回调在该流唯一的读协程中按到达顺序同步调用。
type Consumer struct {
	OnEvent    func(Event)
	OnComplete func()
	OnError    func(error)
}

// Observer 流生命周期观测钩子，由 internal/metrics.Collector 实现
type Observer interface {
	StreamOpened(transport string)
	EventReceived(transport string, eventType string)
	StreamClosed(transport string, outcome string, duration time.Duration)
}

// Client 打开推送通道并把消息分发为事件
type Client struct {
	transport   Transport
	idleTimeout time.Duration
	terminator  Terminator
	logger      *zap.Logger
	observer    Observer
	tracer      trace.Tracer
}

// Option 配置 Client
type Option func(*Client)

// WithIdleTimeout 设置空闲超时；<= 0 表示不启用
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleTimeout = d }
}

// WithTerminator 设置终结判断
func WithTerminator(t Terminator) Option {
	return func(c *Client) {
		if t != nil {
			c.terminator = t
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver 设置观测钩子
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithTracer 设置 tracer，默认取全局 TracerProvider
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// NewClient 创建 StreamClient
func NewClient(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport:   transport,
		idleTimeout: DefaultIdleTimeout,
		terminator:  DefaultTerminator,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("github.com/kweinmeister/agent-design-patterns/stream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "stream_client"))
	return c
}

// Terminator 返回当前终结判断
func (c *Client) Terminator() Terminator {
	return c.terminator
}

// Open 立即返回句柄；打开失败也通过 OnError 报告
func (c *Client) Open(ctx context.Context, req Request, consumer Consumer) *Handle {
	runCtx, cancel := context.WithCancelCause(ctx)
	h := &Handle{
		id:       uuid.NewString(),
		cancel:   cancel,
		done:     make(chan struct{}),
		consumer: consumer,
	}
	go c.run(runCtx, ctx, h, req)
	return h
}

// run 读协程：打开通道、读消息、解码、分发，直到终结、出错或被关闭
func (c *Client) run(ctx, parent context.Context, h *Handle, req Request) {
	defer close(h.done)
	defer h.cancel(nil)

	start := time.Now()
	name := c.transport.Name()
	logger := c.logger.With(
		zap.String("stream_id", h.id),
		zap.String("transport", name),
		zap.String("url", req.URL),
	)

	ctx, span := c.tracer.Start(types.WithRunID(ctx, h.id), "stream.open",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("stream.id", h.id),
			attribute.String("stream.transport", name),
			attribute.String("http.method", req.method()),
			attribute.String("http.url", req.URL),
		),
	)
	events := 0
	outcome := OutcomeClosed
	defer func() {
		span.SetAttributes(
			attribute.Int("stream.events", events),
			attribute.String("stream.outcome", outcome),
		)
		span.End()
		if c.observer != nil {
			c.observer.StreamClosed(name, outcome, time.Since(start))
		}
	}()

	fail := func(err error) {
		if h.settle(OutcomeError) {
			outcome = OutcomeError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("stream failed", zap.Error(err), zap.Int("events", events))
			if h.consumer.OnError != nil {
				h.consumer.OnError(err)
			}
		}
	}

	var idle *idleGuard
	if c.idleTimeout > 0 {
		idle = &idleGuard{timeout: c.idleTimeout, onFire: func() { h.cancel(errIdle) }}
	}

	idle.arm()
	src, err := c.transport.Open(ctx, req)
	expired := idle.disarm()
	if err != nil {
		fail(c.classify(ctx, parent, err))
		return
	}
	defer src.Close()
	if expired {
		fail(errIdleTimeout(nil))
		return
	}

	if c.observer != nil {
		c.observer.StreamOpened(name)
	}
	logger.Debug("stream open")

	for {
		idle.arm()
		data, err := src.Next(ctx)
		expired := idle.disarm()
		if err != nil {
			fail(c.classify(ctx, parent, err))
			return
		}
		if expired {
			// 超时先于本次读取结算，通道已取消，这条消息不再分发
			fail(errIdleTimeout(nil))
			return
		}

		ev, err := DecodeEvent(data)
		if err != nil {
			fail(err)
			return
		}
		if h.closed.Load() {
			return
		}

		events++
		if c.observer != nil {
			c.observer.EventReceived(name, string(ev.Type))
		}
		if h.consumer.OnEvent != nil {
			h.consumer.OnEvent(ev)
		}

		if c.terminator(ev) {
			src.Close()
			if h.settle(OutcomeComplete) {
				outcome = OutcomeComplete
				span.SetStatus(codes.Ok, "")
				logger.Debug("stream complete", zap.Int("events", events))
				if h.consumer.OnComplete != nil {
					h.consumer.OnComplete()
				}
			}
			return
		}
	}
}

// classify 把读取或打开失败映射到错误码
func (c *Client) classify(ctx, parent context.Context, err error) error {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, errIdle):
		return errIdleTimeout(err)
	case errors.Is(cause, errClosed):
		return types.NewTransportError("stream closed", err)
	case parent.Err() != nil:
		return types.NewTransportError("stream cancelled", context.Cause(parent))
	}
	if _, ok := types.AsError(err); ok {
		return err
	}
	if errors.Is(err, io.EOF) {
		return types.NewTransportError("stream ended before a terminal event", nil)
	}
	return types.NewTransportError("stream read failed", err)
}

func errIdleTimeout(cause error) error {
	return types.NewError(types.ErrIdleTimeout, "no message received within idle timeout").WithCause(cause)
}

// idleGuard 单次读取的空闲计时
//
// 每次 arm 启动独立的计时器；读取返回（disarm）与计时器触发以先拿到锁者为准，
// 已被 disarm 作废的回调即使已经开始执行也不会取消通道。nil 表示不计时。
type idleGuard struct {
	mu      sync.Mutex
	timeout time.Duration
	onFire  func()
	seq     uint64
	fired   bool
	timer   *time.Timer
}

func (g *idleGuard) arm() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	seq := g.seq
	g.timer = time.AfterFunc(g.timeout, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.seq != seq || g.fired {
			return
		}
		g.fired = true
		g.onFire()
	})
}

// disarm 结束本次计时，返回计时器是否已先行触发
func (g *idleGuard) disarm() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	return g.fired
}

// =============================================================================
// 🔒 Handle
// =============================================================================

// Handle 一条已打开的通道
//
// OnComplete 与 OnError 恰好触发其一；先调用 Close 则都不触发。
type Handle struct {
	id       string
	cancel   context.CancelCauseFunc
	done     chan struct{}
	consumer Consumer

	mu      sync.Mutex
	closed  atomic.Bool
	settled bool
	outcome string
}

// ID 句柄标识
func (h *Handle) ID() string { return h.id }

// Done 读协程退出后关闭
func (h *Handle) Done() <-chan struct{} { return h.done }

// Outcome 返回结束结果；尚未结束时为空串
func (h *Handle) Outcome() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}

// Close 关闭通道并抑制之后的所有回调，可重复调用，不等待读协程退出
func (h *Handle) Close() {
	h.mu.Lock()
	if !h.closed.Load() {
		h.closed.Store(true)
		if !h.settled {
			h.settled = true
			h.outcome = OutcomeClosed
		}
	}
	h.mu.Unlock()
	h.cancel(errClosed)
}

// settle 首次结束时返回 true
func (h *Handle) settle(outcome string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() || h.settled {
		return false
	}
	h.settled = true
	h.outcome = outcome
	return true
}
