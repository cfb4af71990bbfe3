package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kweinmeister/agent-design-patterns/types"
)

// =============================================================================
// 📡 SSE 传输
// =============================================================================

// doneMarker 部分后端以 data: [DONE] 结束流
const doneMarker = "[DONE]"

// SSETransport 通过 HTTP 打开 text/event-stream 通道
type SSETransport struct {
	client *http.Client
	logger *zap.Logger
}

// NewSSETransport 创建 SSE 传输；client 为 nil 时使用不带超时的默认客户端
// （流是长连接，超时由 Client 的空闲计时器负责）
func NewSSETransport(client *http.Client, logger *zap.Logger) *SSETransport {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SSETransport{
		client: client,
		logger: logger.With(zap.String("component", "sse_transport")),
	}
}

// Name 实现 Transport
func (t *SSETransport) Name() string { return "sse" }

// Open 发起请求并校验响应，成功后返回逐帧读取的 Source
func (t *SSETransport) Open(ctx context.Context, req Request) (Source, error) {
	if req.URL == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "stream URL is required")
	}

	var body io.Reader
	if req.isSubmission() && req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidRequest, "failed to marshal request body").WithCause(err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), req.URL, body)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "failed to create request").WithCause(err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, openError(req, 0, "failed to open stream", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, openError(req, resp.StatusCode,
			fmt.Sprintf("stream request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}

	if ct := strings.ToLower(resp.Header.Get("Content-Type")); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		defer resp.Body.Close()
		return nil, types.NewTransportError(fmt.Sprintf("unexpected content type %q", ct), nil)
	}

	t.logger.Debug("stream opened",
		zap.String("method", req.method()),
		zap.String("url", req.URL),
	)

	return &sseSource{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

// openError 按请求方式归类打开失败
func openError(req Request, status int, message string, cause error) error {
	if req.isSubmission() {
		return types.NewRequestFailedError(status, message).WithCause(cause)
	}
	return types.NewTransportError(message, cause).WithHTTPStatus(status)
}

// =============================================================================
// 📜 SSE 帧解析
// =============================================================================

// Frame 一个以空行结束的 SSE 帧
type Frame struct {
	Event string
	Data  []byte
	ID    string
}

// ReadFrame 从 reader 读取下一帧；注释行（以 ':' 开头）和空帧被跳过
func ReadFrame(reader *bufio.Reader) (Frame, error) {
	var f Frame
	seen := false
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// 最后一帧没有空行结尾时仍然交付
			if err == io.EOF && seen && strings.TrimRight(line, "\r\n") == "" {
				return f, nil
			}
			if err == io.EOF && line != "" {
				applyField(&f, strings.TrimRight(line, "\r\n"))
				if len(f.Data) > 0 || f.Event != "" {
					return f, nil
				}
			}
			return Frame{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if !seen {
				continue
			}
			return f, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if applyField(&f, line) {
			seen = true
		}
	}
}

// applyField 解析单行字段，返回该行是否计入当前帧
func applyField(f *Frame, line string) bool {
	name, value, found := strings.Cut(line, ":")
	if !found {
		value = ""
	}
	value = strings.TrimPrefix(value, " ")
	switch name {
	case "event":
		f.Event = value
	case "data":
		if f.Data != nil {
			f.Data = append(f.Data, '\n')
		} else {
			f.Data = []byte{}
		}
		f.Data = append(f.Data, value...)
	case "id":
		f.ID = value
	default:
		// retry 等字段忽略
		return false
	}
	return true
}

// sseSource 逐帧读取的 Source 实现
type sseSource struct {
	body      io.ReadCloser
	reader    *bufio.Reader
	closeOnce sync.Once
	closeErr  error
}

// Next 返回下一条数据负载
func (s *sseSource) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := ReadFrame(s.reader)
		if err != nil {
			return nil, err
		}
		switch frame.Event {
		case "", "message":
		case "error":
			return nil, upstreamError(frame.Data)
		default:
			// 具名事件负载仍按 JSON 事件处理，类型以负载中的 type 为准
		}
		if len(frame.Data) == 0 {
			continue
		}
		if strings.TrimSpace(string(frame.Data)) == doneMarker {
			return nil, io.EOF
		}
		return frame.Data, nil
	}
}

// Close 关闭响应体
func (s *sseSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// upstreamError 把 event: error 帧转换为 UPSTREAM_ERROR
func upstreamError(data []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = "server reported a stream error"
	}
	return types.NewError(types.ErrUpstreamError, msg)
}
