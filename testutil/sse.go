package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// 📡 SSE 测试服务器
// =============================================================================

// SSEFrame 一个待发送的帧
//
// Raw 非空时原样写出（用于构造畸形帧）；否则按 event/data 组帧，
// Data 中的换行拆分为多行 data:。
type SSEFrame struct {
	Event string
	Data  string
	Raw   string
	Delay time.Duration
}

// SSEScript 单次请求的响应脚本
type SSEScript struct {
	Status      int    // 默认 200
	ContentType string // 默认 text/event-stream
	Body        string // 非 2xx 时的响应体
	Frames      []SSEFrame
	// Hold 发完帧后保持连接直到客户端断开
	Hold bool
}

// RecordedRequest 服务端收到的请求
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// SSEServer 按脚本回放 SSE 帧的 httptest 服务器
//
// 第 i 次请求使用 scripts[i]，超出部分重复最后一个脚本。
type SSEServer struct {
	*httptest.Server

	mu           sync.Mutex
	scripts      []SSEScript
	requests     []RecordedRequest
	disconnected chan int
}

// NewSSEServer 启动服务器并在测试结束时关闭
func NewSSEServer(t *testing.T, scripts ...SSEScript) *SSEServer {
	t.Helper()
	if len(scripts) == 0 {
		scripts = []SSEScript{{}}
	}
	s := &SSEServer{
		scripts:      scripts,
		disconnected: make(chan int, 64),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Data 便捷构造：每个负载一个 data 帧
func Data(payloads ...string) []SSEFrame {
	frames := make([]SSEFrame, 0, len(payloads))
	for _, p := range payloads {
		frames = append(frames, SSEFrame{Data: p})
	}
	return frames
}

func (s *SSEServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	index := len(s.requests)
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	script := s.scripts[min(index, len(s.scripts)-1)]
	s.mu.Unlock()

	status := script.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status < 200 || status > 299 {
		http.Error(w, script.Body, status)
		return
	}

	contentType := script.ContentType
	if contentType == "" {
		contentType = "text/event-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	flush()

	for _, f := range script.Frames {
		if f.Delay > 0 {
			select {
			case <-time.After(f.Delay):
			case <-r.Context().Done():
				s.disconnected <- index
				return
			}
		}
		if _, err := io.WriteString(w, encodeFrame(f)); err != nil {
			s.disconnected <- index
			return
		}
		flush()
	}

	if script.Hold {
		<-r.Context().Done()
		s.disconnected <- index
	}
}

func encodeFrame(f SSEFrame) string {
	if f.Raw != "" {
		return f.Raw
	}
	var b strings.Builder
	if f.Event != "" {
		fmt.Fprintf(&b, "event: %s\n", f.Event)
	}
	for _, line := range strings.Split(f.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	return b.String()
}

// Requests 返回已记录请求的副本
func (s *SSEServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount 已收到的请求数
func (s *SSEServer) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Disconnected 返回客户端断开的请求序号
func (s *SSEServer) Disconnected() <-chan int {
	return s.disconnected
}
