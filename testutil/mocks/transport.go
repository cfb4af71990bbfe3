// MockTransport 推送通道的测试模拟实现。
//
// 每次 Open 产生一个 MockSource，测试代码逐条推送负载、结束或注入错误。
package mocks

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/kweinmeister/agent-design-patterns/stream"
)

// --- MockTransport 结构 ---

// MockTransport 是 stream.Transport 的模拟实现
type MockTransport struct {
	mu      sync.Mutex
	sources []*MockSource
	reqs    []stream.Request
	openErr error
}

// NewMockTransport 创建新的 MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// WithOpenError 之后的 Open 都返回该错误
func (m *MockTransport) WithOpenError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
	return m
}

// Name 实现 stream.Transport
func (m *MockTransport) Name() string { return "mock" }

// Open 实现 stream.Transport
func (m *MockTransport) Open(ctx context.Context, req stream.Request) (stream.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	if m.openErr != nil {
		return nil, m.openErr
	}
	src := &MockSource{
		payloads: make(chan []byte, 256),
		errs:     make(chan error, 1),
		closed:   make(chan struct{}),
	}
	m.sources = append(m.sources, src)
	return src, nil
}

// Source 返回第 i 次 Open 产生的源，不存在时返回 nil
func (m *MockTransport) Source(i int) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.sources) {
		return nil
	}
	return m.sources[i]
}

// Requests 返回已收到的请求
func (m *MockTransport) Requests() []stream.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stream.Request(nil), m.reqs...)
}

// WaitSource 等待第 i 个源出现
func (m *MockTransport) WaitSource(i int, timeout time.Duration) *MockSource {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if src := m.Source(i); src != nil {
			return src
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

// --- MockSource ---

// MockSource 是 stream.Source 的模拟实现
type MockSource struct {
	payloads  chan []byte
	errs      chan error
	closed    chan struct{}
	closeOnce sync.Once
	endOnce   sync.Once
}

// Push 推送负载
func (s *MockSource) Push(payloads ...string) *MockSource {
	for _, p := range payloads {
		s.payloads <- []byte(p)
	}
	return s
}

// End 缓冲负载读完后返回 io.EOF
func (s *MockSource) End() {
	s.endOnce.Do(func() { close(s.payloads) })
}

// Fail 下一次读取返回 err
func (s *MockSource) Fail(err error) {
	s.errs <- err
}

// Closed 客户端关闭源之后关闭
func (s *MockSource) Closed() <-chan struct{} {
	return s.closed
}

// IsClosed 客户端是否已关闭源
func (s *MockSource) IsClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Next 实现 stream.Source
func (s *MockSource) Next(ctx context.Context) ([]byte, error) {
	select {
	case err := <-s.errs:
		return nil, err
	default:
	}
	select {
	case data, ok := <-s.payloads:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case err := <-s.errs:
		return nil, err
	case <-s.closed:
		return nil, io.ErrClosedPipe
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close 实现 stream.Source
func (s *MockSource) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
