package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kweinmeister/agent-design-patterns/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// 🌐 JSON 接口客户端
// =============================================================================

// DefaultTimeout 单次请求的默认超时
const DefaultTimeout = 60 * time.Second

// maxErrorBody 错误响应体最多读取的字节数
const maxErrorBody = 64 << 10

// Observer 接收每次请求的结果，status 为 0 表示请求未得到响应
type Observer interface {
	RequestCompleted(endpoint string, status int, duration time.Duration)
}

// Client 模式服务端的非流式接口
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	observer Observer
	group    singleflight.Group
}

// Option 配置 Client
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
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

// WithObserver 设置请求观察者（通常是指标收集器）
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient 创建客户端
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "api_client"))
	return c
}

// BaseURL 服务端根地址
func (c *Client) BaseURL() string { return c.baseURL }

// getJSON GET 并解析 JSON 响应
func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	body, err := c.do(ctx, endpoint, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decode(endpoint, body, out)
}

// postJSON POST JSON 并解析响应；out 为 nil 时丢弃响应体
func (c *Client) postJSON(ctx context.Context, endpoint, path string, in, out any) error {
	body, err := c.do(ctx, endpoint, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(endpoint, body, out)
}

// do 执行请求并返回完整响应体；非 2xx 一律视为 REQUEST_FAILED
func (c *Client) do(ctx context.Context, endpoint, method, path string, in any) ([]byte, error) {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidRequest, "encode request body").WithCause(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "build request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		c.logger.Warn("request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return nil, types.NewRequestFailedError(0, endpoint+" request failed").WithCause(err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorMessage(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("request rejected",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return nil, types.NewRequestFailedError(resp.StatusCode,
			fmt.Sprintf("%s returned %d: %s", endpoint, resp.StatusCode, msg))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewRequestFailedError(resp.StatusCode, endpoint+" response read failed").WithCause(err)
	}
	c.logger.Debug("request completed",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
	return data, nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.RequestCompleted(endpoint, status, time.Since(start))
	}
}

// decode 响应体不是预期的 JSON 时返回 UPSTREAM_ERROR
func decode(endpoint string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return types.NewError(types.ErrUpstreamError, endpoint+" returned an unparseable body").WithCause(err)
	}
	return nil
}

// readErrorMessage 读取错误消息：先尝试 {detail} 与 {error}，失败则回退到原始文本
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Detail  any    `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil {
		switch {
		case errResp.Detail != nil:
			if s, ok := errResp.Detail.(string); ok {
				return s
			}
			b, _ := json.Marshal(errResp.Detail)
			return string(b)
		case errResp.Error != "":
			return errResp.Error
		case errResp.Message != "":
			return errResp.Message
		}
	}
	return strings.TrimSpace(string(data))
}
