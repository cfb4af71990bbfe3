package stream

import "context"

// =============================================================================
// 🔌 传输层抽象
// =============================================================================

// Source 已打开的单向推送通道，每次 Next 返回一条消息负载
type Source interface {
	// Next 阻塞直到下一条消息；流正常结束时返回 io.EOF
	Next(ctx context.Context) ([]byte, error)
	// Close 关闭底层连接，可重复调用
	Close() error
}

// Transport 建立推送通道（SSE、WebSocket 等）
type Transport interface {
	// Name 用于日志和指标标签
	Name() string
	// Open 建立通道；ctx 取消时通道随之关闭
	Open(ctx context.Context, req Request) (Source, error)
}
