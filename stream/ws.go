package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/kweinmeister/agent-design-patterns/types"
)

// =============================================================================
// 🌐 WebSocket 传输
// =============================================================================

// defaultWSReadLimit 单条消息上限，合成结果可能较长
const defaultWSReadLimit = 4 << 20

// WebSocketTransport 通过 WebSocket 接收事件，每条文本消息即一个事件
type WebSocketTransport struct {
	client    *http.Client
	logger    *zap.Logger
	readLimit int64
}

// NewWebSocketTransport 创建 WebSocket 传输
func NewWebSocketTransport(client *http.Client, logger *zap.Logger) *WebSocketTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketTransport{
		client:    client,
		logger:    logger.With(zap.String("component", "ws_transport")),
		readLimit: defaultWSReadLimit,
	}
}

// Name 实现 Transport
func (t *WebSocketTransport) Name() string { return "websocket" }

// Open 拨号并在有 Body 时把它作为第一条文本消息发送
func (t *WebSocketTransport) Open(ctx context.Context, req Request) (Source, error) {
	if req.URL == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "stream URL is required")
	}

	conn, resp, err := websocket.Dial(ctx, toWebSocketURL(req.URL), &websocket.DialOptions{
		HTTPClient: t.client,
		HTTPHeader: req.Header,
	})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, types.NewTransportError("websocket dial failed", err).WithHTTPStatus(status)
	}
	conn.SetReadLimit(t.readLimit)

	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "bad request body")
			return nil, types.NewError(types.ErrInvalidRequest, "failed to marshal request body").WithCause(err)
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			conn.Close(websocket.StatusInternalError, "write failed")
			return nil, types.NewRequestFailedError(0, "failed to send submission").WithCause(err)
		}
	}

	t.logger.Debug("stream opened", zap.String("url", req.URL))
	return &wsSource{conn: conn}, nil
}

// toWebSocketURL http(s) 地址转换为 ws(s)
func toWebSocketURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimPrefix(raw, "https://")
	case strings.HasPrefix(raw, "http://"):
		return "ws://" + strings.TrimPrefix(raw, "http://")
	default:
		return raw
	}
}

// wsSource 把 WebSocket 连接适配为 Source
type wsSource struct {
	conn *websocket.Conn
	mu   sync.Mutex
	done bool
}

// Next 读取下一条消息；正常关闭帧视为流结束
func (w *wsSource) Next(ctx context.Context) ([]byte, error) {
	_, data, err := w.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return nil, io.EOF
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(ctxErr, err)
		}
		return nil, err
	}
	if strings.TrimSpace(string(data)) == doneMarker {
		return nil, io.EOF
	}
	return data, nil
}

// Close 发送正常关闭帧
func (w *wsSource) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	w.done = true
	return w.conn.Close(websocket.StatusNormalClosure, "closing")
}
