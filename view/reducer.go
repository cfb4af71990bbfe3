package view

import (
	"strconv"

	"github.com/kweinmeister/agent-design-patterns/stream"
	"github.com/kweinmeister/agent-design-patterns/types"
)

// =============================================================================
// 🔁 Reducer
// =============================================================================

// Action 事件对状态的作用
type Action string

const (
	ActStatus   Action = "status"
	ActPlan     Action = "plan"
	ActStart    Action = "start"
	ActFinish   Action = "finish"
	ActAppend   Action = "append"
	ActFail     Action = "fail"
	ActTerminal Action = "terminal"
)

// KeyFunc 从事件推导条目键；返回空串表示丢弃该事件
type KeyFunc func(s State, e stream.Event) string

// ByTaskID task_id 的十进制形式
func ByTaskID(_ State, e stream.Event) string {
	return e.TaskKey()
}

// ByAgent agent 字段，缺省时取 role
func ByAgent(_ State, e stream.Event) string {
	return e.Key()
}

// ByTaskLabel 按任务名称查找计划中的任务键，找不到时退回 task_id
func ByTaskLabel(s State, e stream.Event) string {
	if e.TaskID != nil {
		return e.TaskKey()
	}
	name := e.Key()
	for _, k := range s.Order {
		if s.Entries[k].Label == name {
			return k
		}
	}
	return name
}

// Fixed 固定键
func Fixed(key string) KeyFunc {
	return func(State, stream.Event) string { return key }
}

// Rule 转换表中的一行
type Rule struct {
	Action Action
	Key    KeyFunc
	// Create 键不存在时创建条目，覆盖 Pattern.AutoCreate
	Create bool
	// Status 命中时同时更新的叙述文本
	Status string
	// Label 新建条目的显示名称，缺省为键
	Label string
}

// Reduce 把一个事件折叠进状态
//
// 纯函数：相同输入总是得到相同输出，入参 s 不被修改。
// 表中没有的事件类型不改变状态。终结判断在规则之后应用，
// 因此 role 为 final 的 step 仍会先写入内容。
func Reduce(p *Pattern, s State, e stream.Event) State {
	next := s
	rule, ok := p.Table[e.Type]
	if ok {
		next = apply(p, s, rule, e)
	}
	if p.terminates(e) && !(ok && rule.Action == ActTerminal) {
		next = terminal(p, next, e)
	}
	return next
}

// ReduceAll 依次折叠一组事件
func ReduceAll(p *Pattern, s State, events ...stream.Event) State {
	for _, e := range events {
		s = Reduce(p, s, e)
	}
	return s
}

func apply(p *Pattern, s State, rule Rule, e stream.Event) State {
	switch rule.Action {
	case ActStatus:
		if e.Message == s.Status {
			return s
		}
		next := s.clone()
		next.Status = e.Message
		return next

	case ActPlan:
		return plan(s, e)

	case ActStart, ActFinish, ActAppend:
		return transition(p, s, rule, e)

	case ActFail:
		next := s.clone()
		next.Err = types.NewError(types.ErrUpstreamError, e.Message)
		if e.Message != "" {
			next.Status = e.Message
		}
		return next

	case ActTerminal:
		return terminal(p, s, e)
	}
	return s
}

// plan 整体替换条目，每个任务一个 pending 条目，键为 "0".."n-1"
func plan(s State, e stream.Event) State {
	next := s.clone()
	next.Order = nil
	next.Entries = make(map[string]Entry)
	if e.Plan == nil {
		return next
	}
	for i, t := range e.Plan.Tasks {
		next.put(Entry{
			Key:       strconv.Itoa(i),
			Label:     t.Label(),
			Detail:    t.Description,
			Lifecycle: Pending,
		})
	}
	return next
}

func transition(p *Pattern, s State, rule Rule, e stream.Event) State {
	keyFn := rule.Key
	if keyFn == nil {
		keyFn = ByAgent
	}
	key := keyFn(s, e)
	if key == "" {
		return s
	}

	entry, ok := s.Entries[key]
	if !ok {
		// 未知键：只有 append 且允许创建时才新增，其余丢弃
		if rule.Action != ActAppend || !(rule.Create || p.AutoCreate) {
			return s
		}
		label := rule.Label
		if label == "" {
			label = key
		}
		entry = Entry{Key: key, Label: label, Lifecycle: Pending}
	}

	switch rule.Action {
	case ActStart:
		entry.Lifecycle = entry.Lifecycle.advance(Active)
	case ActFinish:
		entry.Lifecycle = entry.Lifecycle.advance(Done)
	case ActAppend:
		if p.TurnSeparator != "" && entry.Content != "" && e.Content != "" && s.lastKey != key {
			entry.Content += p.TurnSeparator
		}
		entry.Content += e.Content
		entry.Lifecycle = entry.Lifecycle.advance(Active)
	}

	next := s.clone()
	next.put(entry)
	if rule.Action == ActAppend && e.Content != "" {
		next.lastKey = key
	}
	if rule.Status != "" {
		next.Status = rule.Status
	}
	return next
}

// terminal 幂等：清除提交标志、标记完成、记录最终文本，不动内容
func terminal(p *Pattern, s State, e stream.Event) State {
	next := s.clone()
	next.Submitting = false
	next.Completed = true
	if text := finalText(e); text != "" {
		next.Final = text
	}
	if p.SettleOnTerminal {
		for k, entry := range next.Entries {
			if entry.Lifecycle == Active {
				entry.Lifecycle = Done
				next.Entries[k] = entry
			}
		}
	}
	return next
}

func finalText(e stream.Event) string {
	if e.Final != "" {
		return e.Final
	}
	if e.Role == stream.RoleFinal {
		return e.Content
	}
	return ""
}

// =============================================================================
// 🚦 提交生命周期
// =============================================================================

// Begin 新提交的初始状态：提交中，静态键全部 pending
func Begin(p *Pattern) State {
	s := State{
		Entries:    make(map[string]Entry, len(p.Keys)),
		Status:     p.InitialStatus,
		Submitting: true,
	}
	for _, k := range p.Keys {
		s.put(Entry{Key: k.Key, Label: k.Label, Detail: k.Detail, Lifecycle: Pending})
	}
	return s
}

// Fail 记录客户端错误并清除提交标志，已累积内容保持不变
func Fail(s State, err error) State {
	next := s.clone()
	next.Submitting = false
	next.Err = err
	return next
}

// Complete 通道以完成结束但未见到本模式认可的终结事件时补齐终结状态
func Complete(p *Pattern, s State) State {
	if s.Completed && !s.Submitting {
		return s
	}
	return terminal(p, s, stream.Event{Type: stream.EventComplete})
}
