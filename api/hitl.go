package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kweinmeister/agent-design-patterns/types"
)

// =============================================================================
// 🛑 Human-in-the-Loop：新闻稿起草与审批
// =============================================================================

// HITLState 审批会话所处阶段
type HITLState string

const (
	// HITLIdle 尚未提交草稿
	HITLIdle HITLState = "idle"
	// HITLReview 草稿已生成，等待用户认可或提出修改
	HITLReview HITLState = "review"
	// HITLConfirm 服务端发起了需要确认的工具调用
	HITLConfirm HITLState = "awaiting_confirmation"
	// HITLPublished 已发布
	HITLPublished HITLState = "published"
)

// 固定的审批话术
const (
	approveMessage  = "Looks good. Publish it."
	confirmApproval = `{"confirmed": true}`
)

// DraftForm 新闻稿要素
type DraftForm struct {
	Company      string
	Product      string
	Features     string
	Audience     string
	Availability string
	Price        string
	Vision       string
	Quote        string
	Location     string
	Assets       string
}

// Prompt 起草提示词
func (f DraftForm) Prompt() string {
	return fmt.Sprintf(`Draft a press release for %s with the following details:
Product: %s
Key Features: %s
Target Audience: %s
Availability: %s
Price: %s
Vision: %s
Quote: %s
Location: %s
Assets: %s

Use this information to create a compelling draft.
IMPORTANT: Return ONLY the press release text. Do not include any conversational preamble like "Here is a draft" or "Sure". Start directly with the headline or dateline.`,
		f.Company, f.Product, f.Features, f.Audience, f.Availability,
		f.Price, f.Vision, f.Quote, f.Location, f.Assets)
}

// Turn 会话历史中的一条消息
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type hitlRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id"`
}

type hitlResponse struct {
	History              []Turn `json:"history"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	IsPublished          bool   `json:"is_published"`
}

// HITLReply 一次交互后的会话快照
type HITLReply struct {
	State    HITLState
	Document string
	History  []Turn
}

// HITL 一个审批会话；同一时刻只允许一个请求在途
type HITL struct {
	client    *Client
	sessionID string

	mu         sync.Mutex
	processing bool
	state      HITLState
	document   string
}

// NewHITL 创建审批会话，会话 ID 为随机 UUID
func (c *Client) NewHITL() *HITL {
	return &HITL{client: c, sessionID: uuid.NewString(), state: HITLIdle}
}

// SessionID 会话 ID
func (h *HITL) SessionID() string { return h.sessionID }

// State 当前阶段
func (h *HITL) State() HITLState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Document 最近一次的草稿
func (h *HITL) Document() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.document
}

// Processing 是否有请求在途
func (h *HITL) Processing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.processing
}

// Draft 按表单起草
func (h *HITL) Draft(ctx context.Context, form DraftForm) (*HITLReply, error) {
	if strings.TrimSpace(form.Company) == "" || strings.TrimSpace(form.Product) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "company and product are required")
	}
	return h.send(ctx, form.Prompt())
}

// Approve 认可当前草稿；等待确认时发送确认载荷
func (h *HITL) Approve(ctx context.Context) (*HITLReply, error) {
	state, err := h.reviewable()
	if err != nil {
		return nil, err
	}
	if state == HITLConfirm {
		return h.send(ctx, confirmApproval)
	}
	return h.send(ctx, approveMessage)
}

// Reject 拒绝当前草稿并附修改意见
func (h *HITL) Reject(ctx context.Context, feedback string) (*HITLReply, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "feedback is required")
	}
	state, err := h.reviewable()
	if err != nil {
		return nil, err
	}
	if state == HITLConfirm {
		payload, err := json.Marshal(struct {
			Confirmed bool   `json:"confirmed"`
			Reason    string `json:"reason"`
		}{false, feedback})
		if err != nil {
			return nil, types.NewError(types.ErrInternalError, "encode rejection").WithCause(err)
		}
		return h.send(ctx, string(payload))
	}
	return h.send(ctx, fmt.Sprintf("I don't like this draft. Change this: %s. Regenerate the draft.", feedback))
}

// reviewable 只有已有草稿且未发布时才能审批
func (h *HITL) reviewable() (HITLState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case HITLIdle:
		return h.state, types.NewError(types.ErrInvalidRequest, "no draft to review")
	case HITLPublished:
		return h.state, types.NewError(types.ErrInvalidRequest, "press release already published")
	}
	return h.state, nil
}

// send 在途期间的重入调用直接拒绝
func (h *HITL) send(ctx context.Context, prompt string) (*HITLReply, error) {
	h.mu.Lock()
	if h.processing {
		h.mu.Unlock()
		return nil, types.NewError(types.ErrSubmissionInFlight, "a request is already in flight")
	}
	h.processing = true
	h.mu.Unlock()

	var resp hitlResponse
	err := h.client.postJSON(ctx, "hitl", "/hitl/run", hitlRequest{Prompt: prompt, SessionID: h.sessionID}, &resp)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.processing = false
	if err != nil {
		return nil, err
	}
	h.apply(resp)
	return &HITLReply{State: h.state, Document: h.document, History: resp.History}, nil
}

// apply 只有最后一条消息来自代理时才更新草稿与阶段
func (h *HITL) apply(resp hitlResponse) {
	if len(resp.History) == 0 {
		return
	}
	last := resp.History[len(resp.History)-1]
	if last.Role == "user" {
		return
	}
	h.document = last.Content
	switch {
	case resp.IsPublished:
		h.state = HITLPublished
	case resp.RequiresConfirmation:
		h.state = HITLConfirm
	default:
		h.state = HITLReview
	}
}
