package stream

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kweinmeister/agent-design-patterns/types"
)

// =============================================================================
// 📨 流事件定义
// =============================================================================

// EventType 事件类型判别字段
type EventType string

const (
	EventStatus         EventType = "status"
	EventPlan           EventType = "plan"
	EventWorkerStart    EventType = "worker_start"
	EventWorkerStep     EventType = "worker_step"
	EventWorkerComplete EventType = "worker_complete"
	EventStep           EventType = "step"
	EventFinal          EventType = "final"
	EventSynthesisStep  EventType = "synthesis_step"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// RoleFinal 标记终结的角色名
const RoleFinal = "final"

// Task 计划中的单个任务
type Task struct {
	WorkerType  string `json:"worker_type,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Label 返回任务的显示名称：优先 worker_type，其次 title
func (t Task) Label() string {
	if t.WorkerType != "" {
		return t.WorkerType
	}
	return t.Title
}

// Plan 任务集合公告
type Plan struct {
	Tasks []Task `json:"tasks"`
}

// Event 服务端推送的单个事件（带标签的联合体）
//
// 解码后即不可变，只被 reducer 消费一次。
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Plan    *Plan     `json:"plan,omitempty"`
	TaskID  *int      `json:"task_id,omitempty"`
	Name    string    `json:"name,omitempty"`
	Role    string    `json:"role,omitempty"`
	Agent   string    `json:"agent,omitempty"`
	Content string    `json:"content,omitempty"`
	Final   string    `json:"final,omitempty"`
}

// Key 返回内容类事件的角色键：agent 优先，否则 role
func (e Event) Key() string {
	if e.Agent != "" {
		return e.Agent
	}
	return e.Role
}

// TaskKey 返回 task_id 的十进制字符串，没有 task_id 时返回空串
func (e Event) TaskKey() string {
	if e.TaskID == nil {
		return ""
	}
	return strconv.Itoa(*e.TaskID)
}

// IntPtr 构造 task_id 字面量的辅助函数
func IntPtr(v int) *int {
	return &v
}

// =============================================================================
// 🔍 解码与校验
// =============================================================================

// wireEvent 用指针字段区分“缺失”和“空值”
type wireEvent struct {
	Type    *string `json:"type"`
	Message *string `json:"message"`
	Plan    *Plan   `json:"plan"`
	TaskID  *int    `json:"task_id"`
	Name    *string `json:"name"`
	Role    *string `json:"role"`
	Agent   *string `json:"agent"`
	Content *string `json:"content"`
	Final   *string `json:"final"`
}

// DecodeEvent 把一条消息负载解析为 Event
//
// 非法 JSON、缺少 type、或缺少该类型必需的伴随字段都返回 MALFORMED_EVENT。
// 未知类型照常解码，由 reducer 忽略。
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, types.NewMalformedEventError("event payload is not valid JSON", err)
	}
	if w.Type == nil || *w.Type == "" {
		return Event{}, types.NewMalformedEventError("event is missing type", nil)
	}

	e := Event{
		Type:    EventType(*w.Type),
		Message: deref(w.Message),
		Plan:    w.Plan,
		TaskID:  w.TaskID,
		Name:    deref(w.Name),
		Role:    deref(w.Role),
		Agent:   deref(w.Agent),
		Content: deref(w.Content),
		Final:   deref(w.Final),
	}

	if missing := missingField(e.Type, &w); missing != "" {
		return Event{}, types.NewMalformedEventError(
			fmt.Sprintf("%s event is missing %s", e.Type, missing), nil)
	}
	return e, nil
}

// missingField 按事件类型检查必需字段，返回缺失字段名
func missingField(t EventType, w *wireEvent) string {
	switch t {
	case EventStatus, EventError:
		if w.Message == nil {
			return "message"
		}
	case EventPlan:
		if w.Plan == nil {
			return "plan"
		}
	case EventWorkerStart, EventWorkerComplete:
		if w.TaskID == nil {
			return "task_id"
		}
	case EventWorkerStep:
		if w.TaskID == nil {
			return "task_id"
		}
		if w.Content == nil {
			return "content"
		}
	case EventStep:
		if w.Role == nil && w.Agent == nil {
			return "role/agent"
		}
		if w.Content == nil {
			return "content"
		}
	case EventFinal:
		if w.Role == nil && w.Agent == nil {
			return "role/agent"
		}
	case EventSynthesisStep:
		if w.Content == nil {
			return "content"
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
