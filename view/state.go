package view

// =============================================================================
// 📋 视图状态
// =============================================================================

// Lifecycle 条目生命周期，只能单调前进 pending → active → done
type Lifecycle string

const (
	Pending Lifecycle = "pending"
	Active  Lifecycle = "active"
	Done    Lifecycle = "done"
)

func (l Lifecycle) rank() int {
	switch l {
	case Active:
		return 1
	case Done:
		return 2
	default:
		return 0
	}
}

// advance 只接受向前的迁移
func (l Lifecycle) advance(to Lifecycle) Lifecycle {
	if to.rank() > l.rank() {
		return to
	}
	return l
}

// Entry 单个任务或角色的累积内容
type Entry struct {
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Detail    string    `json:"detail,omitempty"`
	Content   string    `json:"content"`
	Lifecycle Lifecycle `json:"lifecycle"`
}

// State 一次提交的完整视图状态
//
// State 按值传递；Reduce 返回新值，从不修改入参。
type State struct {
	Order      []string         `json:"order"`
	Entries    map[string]Entry `json:"entries"`
	Status     string           `json:"status"`
	Submitting bool             `json:"submitting"`
	Completed  bool             `json:"completed"`
	Final      string           `json:"final,omitempty"`
	Err        error            `json:"-"`

	// lastKey 最近一次 append 的键，用于判断轮次切换
	lastKey string
}

// Entry 按键查找条目
func (s State) Entry(key string) (Entry, bool) {
	e, ok := s.Entries[key]
	return e, ok
}

// List 按显示顺序返回全部条目
func (s State) List() []Entry {
	out := make([]Entry, 0, len(s.Order))
	for _, k := range s.Order {
		if e, ok := s.Entries[k]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Failed 是否处于错误状态
func (s State) Failed() bool {
	return s.Err != nil
}

// clone 复制可变部分
func (s State) clone() State {
	c := s
	c.Order = append([]string(nil), s.Order...)
	c.Entries = make(map[string]Entry, len(s.Entries))
	for k, v := range s.Entries {
		c.Entries[k] = v
	}
	return c
}

// put 写入条目，新键追加到顺序末尾
func (s *State) put(e Entry) {
	if s.Entries == nil {
		s.Entries = make(map[string]Entry)
	}
	if _, ok := s.Entries[e.Key]; !ok {
		s.Order = append(s.Order, e.Key)
	}
	s.Entries[e.Key] = e
}
