package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kweinmeister/agent-design-patterns/stream"
	"github.com/kweinmeister/agent-design-patterns/types"
	"github.com/kweinmeister/agent-design-patterns/view"
)

// =============================================================================
// 🔄 会话事件循环
// =============================================================================

// DefaultInboxSize 回调转发队列长度
const DefaultInboxSize = 64

// Opener 打开推送通道，*stream.Client 即是实现
type Opener interface {
	Open(ctx context.Context, req stream.Request, consumer stream.Consumer) *stream.Handle
}

type messageKind int

const (
	msgEvent messageKind = iota
	msgComplete
	msgError
)

// message 从读协程转发到事件循环的回调，带代号
type message struct {
	gen   uint64
	kind  messageKind
	event stream.Event
	err   error
}

// command 在事件循环中执行；返回 true 时循环退出
type command func() bool

// Session 单一事件循环持有一个视图状态
//
// 同一会话任一时刻至多一条活动通道：新的提交先关闭旧通道，
// 旧代号的消息在循环中被丢弃，两条通道不会交错写入状态。
type Session struct {
	id      string
	opener  Opener
	pattern *view.Pattern
	binding *view.Binding
	logger  *zap.Logger

	inbox   chan message
	cmds    chan command
	stopped chan struct{}
	once    sync.Once

	// 以下字段只在循环协程中访问
	state  view.State
	gen    uint64
	handle *stream.Handle
	run    *Run
}

// Option 配置 Session
type Option func(*Session)

// WithBinding 每次状态变化都推送到绑定
func WithBinding(b *view.Binding) Option {
	return func(s *Session) { s.binding = b }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInboxSize 设置转发队列长度
func WithInboxSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.inbox = make(chan message, n)
		}
	}
}

// WithID 指定会话 ID，默认随机 UUID
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// New 创建会话并启动事件循环
func New(opener Opener, pattern *view.Pattern, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		opener:  opener,
		pattern: pattern,
		logger:  zap.NewNop(),
		inbox:   make(chan message, DefaultInboxSize),
		cmds:    make(chan command),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(
		zap.String("component", "session"),
		zap.String("session_id", s.id),
		zap.String("pattern", pattern.Name),
	)
	go s.loop()
	return s
}

// ID 会话标识
func (s *Session) ID() string { return s.id }

// Pattern 会话使用的模式
func (s *Session) Pattern() *view.Pattern { return s.pattern }

func (s *Session) loop() {
	defer close(s.stopped)
	for {
		select {
		case cmd := <-s.cmds:
			if cmd() {
				return
			}
		case msg := <-s.inbox:
			s.handleMessage(msg)
		}
	}
}

// do 把命令交给循环执行并等待完成
func (s *Session) do(fn func() bool) error {
	done := make(chan struct{})
	wrapped := func() bool {
		defer close(done)
		return fn()
	}
	select {
	case s.cmds <- wrapped:
	case <-s.stopped:
		return errClosed()
	}
	<-done
	return nil
}

func errClosed() error {
	return types.NewError(types.ErrInvalidRequest, "session is closed")
}

// =============================================================================
// 🚀 提交
// =============================================================================

// Submit 取消当前运行（如有）并开始新的提交
func (s *Session) Submit(ctx context.Context, req stream.Request) (*Run, error) {
	return s.submit(ctx, req, false)
}

// TrySubmit 与 Submit 相同，但提交进行中时以 SUBMISSION_IN_FLIGHT 拒绝
func (s *Session) TrySubmit(ctx context.Context, req stream.Request) (*Run, error) {
	return s.submit(ctx, req, true)
}

// SubmitPrompt 以模式端点和提示词提交
func (s *Session) SubmitPrompt(ctx context.Context, baseURL, prompt string) (*Run, error) {
	return s.Submit(ctx, s.pattern.Request(baseURL, prompt))
}

func (s *Session) submit(ctx context.Context, req stream.Request, refuseBusy bool) (*Run, error) {
	var (
		run    *Run
		reject error
	)
	err := s.do(func() bool {
		if refuseBusy && s.state.Submitting {
			reject = types.NewError(types.ErrSubmissionInFlight, "a submission is already in flight")
			return false
		}

		// 先关闭旧通道再打开新通道
		s.supersede(types.NewError(types.ErrSuperseded, "superseded by a newer submission"))

		gen := s.gen
		s.state = view.Begin(s.pattern)
		s.publish()

		run = newRun(uuid.NewString(), gen)
		s.run = run

		runCtx := types.WithPattern(types.WithSessionID(ctx, s.id), s.pattern.Name)
		s.handle = s.opener.Open(runCtx, req, s.consumer(gen))
		s.logger.Debug("submission started",
			zap.Uint64("generation", gen),
			zap.String("run_id", run.id),
			zap.String("stream_id", s.handle.ID()),
		)
		return false
	})
	if err != nil {
		return nil, err
	}
	if reject != nil {
		return nil, reject
	}
	return run, nil
}

// consumer 把回调转发进循环；会话关闭后丢弃
func (s *Session) consumer(gen uint64) stream.Consumer {
	send := func(m message) {
		select {
		case s.inbox <- m:
		case <-s.stopped:
		}
	}
	return stream.Consumer{
		OnEvent:    func(e stream.Event) { send(message{gen: gen, kind: msgEvent, event: e}) },
		OnComplete: func() { send(message{gen: gen, kind: msgComplete}) },
		OnError:    func(err error) { send(message{gen: gen, kind: msgError, err: err}) },
	}
}

// supersede 关闭当前通道并以 reason 结束当前运行
//
// 代号随之递增，收件箱中尚未处理的旧通道消息全部作废。
func (s *Session) supersede(reason error) {
	s.gen++
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	if s.run != nil && !s.run.resolved() {
		s.logger.Debug("run superseded", zap.String("run_id", s.run.id))
		s.run.resolve(s.state, reason)
	}
	s.run = nil
}

func (s *Session) handleMessage(m message) {
	if m.gen != s.gen {
		// 旧代号的残留消息
		return
	}
	// 先推送再结算，Wait 返回时显示层已看到最终状态
	switch m.kind {
	case msgEvent:
		s.state = view.Reduce(s.pattern, s.state, m.event)
		s.publish()
	case msgComplete:
		s.state = view.Complete(s.pattern, s.state)
		s.publish()
		s.finish(nil)
	case msgError:
		s.logger.Warn("stream failed", zap.Error(m.err))
		s.state = view.Fail(s.state, m.err)
		s.publish()
		s.finish(m.err)
	}
}

func (s *Session) finish(err error) {
	s.handle = nil
	if s.run != nil {
		s.run.resolve(s.state, err)
		s.run = nil
	}
}

func (s *Session) publish() {
	if s.binding != nil {
		s.binding.Update(s.state)
	}
}

// =============================================================================
// 🔍 查询与关闭
// =============================================================================

// State 返回当前状态快照
func (s *Session) State() view.State {
	var st view.State
	if err := s.do(func() bool {
		st = s.state
		return false
	}); err != nil {
		// 已关闭：循环不再写入，最后状态可直接读取
		return s.state
	}
	return st
}

// Cancel 关闭当前通道，运行以 SUPERSEDED 结束，状态进入错误态
func (s *Session) Cancel() error {
	return s.do(func() bool {
		if s.run == nil && s.handle == nil {
			return false
		}
		reason := types.NewError(types.ErrSuperseded, "run cancelled")
		s.state = view.Fail(s.state, reason)
		s.publish()
		s.supersede(reason)
		return false
	})
}

// Close 关闭当前通道并停止事件循环，可重复调用
func (s *Session) Close() error {
	s.once.Do(func() {
		_ = s.do(func() bool {
			s.supersede(types.NewError(types.ErrSuperseded, "session closed"))
			return true
		})
	})
	return nil
}

// Done 事件循环退出后关闭
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}
