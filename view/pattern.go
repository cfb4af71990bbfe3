package view

import (
	"sort"
	"strings"

	"github.com/kweinmeister/agent-design-patterns/stream"
)

// =============================================================================
// 🧩 模式定义
// =============================================================================

// KeySpec 静态条目
type KeySpec struct {
	Key    string
	Label  string
	Detail string
}

// Pattern 一个 UI 模式：端点加转换表
//
// 模式是数据而非控制流，新增模式只需新增一张表。
type Pattern struct {
	Name          string
	Title         string
	Path          string
	Param         string
	InitialStatus string
	Table         map[stream.EventType]Rule
	// Keys 每次提交开始时预置的条目
	Keys []KeySpec
	// AutoCreate 允许 append 为未知键创建条目
	AutoCreate bool
	// SettleOnTerminal 终结时把 active 条目置为 done
	SettleOnTerminal bool
	// TurnSeparator 非空时，键在其他键之后再次收到内容，先补上分隔
	TurnSeparator string
	// Terminator 为空时使用 stream.DefaultTerminator
	Terminator stream.Terminator
}

func (p *Pattern) terminates(e stream.Event) bool {
	if p.Terminator != nil {
		return p.Terminator(e)
	}
	return stream.DefaultTerminator(e)
}

// StreamTerminator 返回打开通道时使用的终结判断
func (p *Pattern) StreamTerminator() stream.Terminator {
	if p.Terminator != nil {
		return p.Terminator
	}
	return stream.DefaultTerminator
}

// Request 构造该模式的流请求，提示词编码为查询参数
func (p *Pattern) Request(baseURL, prompt string) stream.Request {
	return stream.NewGetRequest(baseURL, p.Path, p.Param, prompt)
}

// =============================================================================
// 📚 内置模式
// =============================================================================

// SynthesisKey 编排模式的合成条目键
const SynthesisKey = "synthesis"

// Orchestrator 管理者拆分任务、分派给 worker、最后合成
var Orchestrator = &Pattern{
	Name:          "orchestrator",
	Title:         "Orchestrator-Workers",
	Path:          "/stream_orchestrator",
	Param:         "prompt",
	InitialStatus: "Initializing Manager...",
	Table: map[stream.EventType]Rule{
		stream.EventStatus:         {Action: ActStatus},
		stream.EventPlan:           {Action: ActPlan},
		stream.EventWorkerStart:    {Action: ActStart, Key: ByTaskID},
		stream.EventWorkerStep:     {Action: ActAppend, Key: ByTaskID},
		stream.EventStep:           {Action: ActAppend, Key: ByTaskLabel},
		stream.EventWorkerComplete: {Action: ActFinish, Key: ByTaskID},
		stream.EventSynthesisStep: {
			Action: ActAppend,
			Key:    Fixed(SynthesisKey),
			Create: true,
			Label:  "Synthesis",
			Status: "Synthesis: Finalizing Output",
		},
		stream.EventError:    {Action: ActFail},
		stream.EventComplete: {Action: ActTerminal},
	},
	SettleOnTerminal: true,
}

// Voting 三个风格各异的候选加一个裁判
var Voting = &Pattern{
	Name:          "voting",
	Title:         "Voting",
	Path:          "/stream_voting",
	Param:         "prompt",
	InitialStatus: "Agents are drafting...",
	Table: map[stream.EventType]Rule{
		stream.EventStatus:   {Action: ActStatus},
		stream.EventStep:     {Action: ActAppend, Key: ByAgent},
		stream.EventError:    {Action: ActFail},
		stream.EventComplete: {Action: ActTerminal},
	},
	Keys: []KeySpec{
		{Key: "humorous", Label: "Humorous"},
		{Key: "professional", Label: "Professional"},
		{Key: "urgent", Label: "Urgent"},
		{Key: "judge", Label: "Judge"},
	},
	SettleOnTerminal: true,
}

// Reflection 写作、评审、改写循环，角色条目按需创建
var Reflection = &Pattern{
	Name:          "reflection",
	Title:         "Reflection",
	Path:          "/stream_reflection",
	Param:         "prompt",
	InitialStatus: "Writer is drafting...",
	Table: map[stream.EventType]Rule{
		stream.EventStatus:   {Action: ActStatus},
		stream.EventStep:     {Action: ActAppend, Key: ByAgent},
		stream.EventFinal:    {Action: ActAppend, Key: ByAgent},
		stream.EventError:    {Action: ActFail},
		stream.EventComplete: {Action: ActTerminal},
	},
	AutoCreate:       true,
	SettleOnTerminal: true,
	TurnSeparator:    "\n\n",
}

var registry = map[string]*Pattern{
	Orchestrator.Name: Orchestrator,
	Voting.Name:       Voting,
	Reflection.Name:   Reflection,
}

// Lookup 按名称查找内置模式，忽略大小写
func Lookup(name string) (*Pattern, bool) {
	p, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names 返回全部内置模式名，已排序
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
