// =============================================================================
// 📦 测试数据工厂 - 流事件负载
// =============================================================================
// 以服务端线上格式（JSON 字符串）提供事件负载，供 SSE/WebSocket
// 测试服务器回放
// =============================================================================
package fixtures

import "encoding/json"

// =============================================================================
// 🎯 单个事件
// =============================================================================

// TaskSpec 计划中的任务
type TaskSpec struct {
	WorkerType  string `json:"worker_type,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func encode(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Status 进度叙述
func Status(message string) string {
	return encode(map[string]any{"type": "status", "message": message})
}

// Plan 任务集合公告
func Plan(tasks ...TaskSpec) string {
	if tasks == nil {
		tasks = []TaskSpec{}
	}
	return encode(map[string]any{"type": "plan", "plan": map[string]any{"tasks": tasks}})
}

// PlanOf 以 worker_type 列表构造计划
func PlanOf(workerTypes ...string) string {
	tasks := make([]TaskSpec, 0, len(workerTypes))
	for _, w := range workerTypes {
		tasks = append(tasks, TaskSpec{WorkerType: w})
	}
	return Plan(tasks...)
}

// WorkerStart 任务开始
func WorkerStart(taskID int) string {
	return encode(map[string]any{"type": "worker_start", "task_id": taskID})
}

// WorkerStep 任务增量内容
func WorkerStep(taskID int, content string) string {
	return encode(map[string]any{"type": "worker_step", "task_id": taskID, "content": content})
}

// WorkerComplete 任务结束
func WorkerComplete(taskID int) string {
	return encode(map[string]any{"type": "worker_complete", "task_id": taskID})
}

// AgentStep 以 agent 字段标识的增量内容
func AgentStep(agent, content string) string {
	return encode(map[string]any{"type": "step", "agent": agent, "content": content})
}

// RoleStep 以 role 字段标识的增量内容
func RoleStep(role, content string) string {
	return encode(map[string]any{"type": "step", "role": role, "content": content})
}

// FinalStep role 为 final 的终结 step
func FinalStep(content string) string {
	return RoleStep("final", content)
}

// Final 部分后端使用的终结变体
func Final(content string) string {
	return encode(map[string]any{"type": "final", "role": "final", "content": content})
}

// SynthesisStep 合成内容
func SynthesisStep(content string) string {
	return encode(map[string]any{"type": "synthesis_step", "content": content})
}

// Error 服务端错误叙述
func Error(message string) string {
	return encode(map[string]any{"type": "error", "message": message})
}

// Complete 显式终结事件
func Complete() string {
	return `{"type":"complete"}`
}

// CompleteWithFinal 携带最终文本的终结事件
func CompleteWithFinal(final string) string {
	return encode(map[string]any{"type": "complete", "final": final})
}

// Unknown 未知类型事件
func Unknown(eventType string) string {
	return encode(map[string]any{"type": eventType, "payload": "ignored"})
}

// =============================================================================
// 🎬 场景序列
// =============================================================================

// OrchestratorHello 单任务编排场景：最终 key 0 内容为 "Hello"
func OrchestratorHello() []string {
	return []string{
		PlanOf("research"),
		WorkerStart(0),
		AgentStep("research", "Hel"),
		AgentStep("research", "lo"),
		WorkerComplete(0),
		Complete(),
	}
}

// OrchestratorFull 两个任务加合成的完整编排场景
func OrchestratorFull() []string {
	return []string{
		Status("Planning tasks..."),
		Plan(TaskSpec{WorkerType: "research", Description: "Gather facts"},
			TaskSpec{WorkerType: "writer", Description: "Draft copy"}),
		WorkerStart(0),
		WorkerStep(0, "Facts "),
		WorkerStep(0, "found."),
		WorkerComplete(0),
		WorkerStart(1),
		WorkerStep(1, "Draft ready."),
		WorkerComplete(1),
		SynthesisStep("# Summary\n"),
		SynthesisStep("All done."),
		Complete(),
	}
}

// VotingRound 三个投票者加裁判
func VotingRound() []string {
	return []string{
		Status("Agents are drafting..."),
		AgentStep("humorous", "Ha."),
		AgentStep("professional", "Dear team."),
		AgentStep("urgent", "Now!"),
		AgentStep("judge", "Professional wins."),
		Complete(),
	}
}

// ReflectionLoop 写作、评审、改写，以 role 为 final 的 step 结束
func ReflectionLoop() []string {
	return []string{
		RoleStep("InitialWriterAgent", "First draft."),
		RoleStep("CriticAgent", "Too short."),
		RoleStep("RefinerAgent", "Longer draft."),
		FinalStep("Longer draft."),
	}
}
