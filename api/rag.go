package api

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kweinmeister/agent-design-patterns/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📖 RAG：知识库与问答
// =============================================================================

// 入库轮询参数
const (
	DefaultIngestPollInterval = time.Second
	DefaultIngestMaxRetries   = 10
)

// Knowledge 当前知识库中的文档
func (c *Client) Knowledge(ctx context.Context) ([]string, error) {
	var resp struct {
		Documents []string `json:"documents"`
	}
	if err := c.getJSON(ctx, "rag_knowledge", "/rag/knowledge", &resp); err != nil {
		return nil, err
	}
	if resp.Documents == nil {
		return []string{}, nil
	}
	return resp.Documents, nil
}

// Ingest 触发后台入库，立即返回
func (c *Client) Ingest(ctx context.Context) error {
	return c.postJSON(ctx, "rag_ingest", "/rag/ingest", nil, nil)
}

// IngestAndWait 触发入库后按 interval 轮询知识库，
// 出现文档或轮询超过 maxRetries 次后返回最后一次看到的文档。
func (c *Client) IngestAndWait(ctx context.Context, interval time.Duration, maxRetries int) ([]string, error) {
	if interval <= 0 {
		interval = DefaultIngestPollInterval
	}
	if maxRetries <= 0 {
		maxRetries = DefaultIngestMaxRetries
	}
	if err := c.Ingest(ctx); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for retries := 0; ; retries++ {
		select {
		case <-ctx.Done():
			return nil, types.NewTransportError("ingest wait cancelled", ctx.Err())
		case <-ticker.C:
		}

		docs, err := c.Knowledge(ctx)
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 || retries >= maxRetries {
			c.logger.Debug("ingest poll finished",
				zap.Int("documents", len(docs)),
				zap.Int("polls", retries+1))
			return docs, nil
		}
	}
}

// Reset 清空知识库
func (c *Client) Reset(ctx context.Context) error {
	return c.postJSON(ctx, "rag_reset", "/rag/reset", nil, nil)
}

// RAG 一个问答会话，会话 ID 在多轮提问间保持不变
type RAG struct {
	client    *Client
	sessionID string
}

// NewRAG 创建问答会话
func (c *Client) NewRAG() *RAG {
	return &RAG{client: c, sessionID: uuid.NewString()}
}

// SessionID 会话 ID
func (r *RAG) SessionID() string { return r.sessionID }

// Query 提问，返回 Markdown 格式的回答
func (r *RAG) Query(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", types.NewError(types.ErrInvalidRequest, "query is empty")
	}
	var resp struct {
		Final string `json:"final"`
	}
	req := map[string]string{"query": query, "session_id": r.sessionID}
	if err := r.client.postJSON(ctx, "rag_query", "/rag/query", req, &resp); err != nil {
		return "", err
	}
	return resp.Final, nil
}
