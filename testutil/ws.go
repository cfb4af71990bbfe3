package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/coder/websocket"
)

// =============================================================================
// 🌐 WebSocket 测试服务器
// =============================================================================

// WSScript WebSocket 会话脚本
type WSScript struct {
	// ReadFirst 先读取客户端的一条提交消息再开始推送
	ReadFirst bool
	Messages  []string
	// Hold 推送完成后保持连接直到客户端断开；否则以正常关闭帧结束
	Hold bool
}

// WSServer 按脚本推送文本消息的 WebSocket 服务器
type WSServer struct {
	*httptest.Server

	mu       sync.Mutex
	script   WSScript
	received []string
}

// NewWSServer 启动服务器并在测试结束时关闭
func NewWSServer(t *testing.T, script WSScript) *WSServer {
	t.Helper()
	s := &WSServer{script: script}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		s.serve(r.Context(), conn)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *WSServer) serve(ctx context.Context, conn *websocket.Conn) {
	if s.script.ReadFirst {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, string(data))
		s.mu.Unlock()
	}

	for _, msg := range s.script.Messages {
		if err := conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
			return
		}
	}

	if s.script.Hold {
		// 读到错误说明客户端已断开
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}
	conn.Close(websocket.StatusNormalClosure, "done")
}

// URL 返回 ws:// 形式的地址
func (s *WSServer) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// Received 返回客户端发来的消息
func (s *WSServer) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.received))
	copy(out, s.received)
	return out
}
