// MockSink 显示层的测试模拟实现，记录每次推送。
package mocks

import (
	"sync"

	"github.com/kweinmeister/agent-design-patterns/view"
)

// MockSink 是 view.Sink 的模拟实现
type MockSink struct {
	mu         sync.Mutex
	status     []string
	entries    map[string]string
	lifecycle  map[string]view.Lifecycle
	removed    []string
	submitting []bool
	banners    []view.Banner
}

// NewMockSink 创建新的 MockSink
func NewMockSink() *MockSink {
	return &MockSink{
		entries:   make(map[string]string),
		lifecycle: make(map[string]view.Lifecycle),
	}
}

// SetStatus 实现 view.Sink
func (m *MockSink) SetStatus(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = append(m.status, text)
}

// SetEntry 实现 view.Sink
func (m *MockSink) SetEntry(e view.Entry, markup string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Key] = markup
	m.lifecycle[e.Key] = e.Lifecycle
}

// RemoveEntry 实现 view.Sink
func (m *MockSink) RemoveEntry(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	delete(m.lifecycle, key)
	m.removed = append(m.removed, key)
}

// SetSubmitting 实现 view.Sink
func (m *MockSink) SetSubmitting(b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitting = append(m.submitting, b)
}

// SetBanner 实现 view.Sink
func (m *MockSink) SetBanner(b view.Banner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banners = append(m.banners, b)
}

// Markup 返回键当前的渲染结果
func (m *MockSink) Markup(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

// Lifecycle 返回键当前的生命周期
func (m *MockSink) Lifecycle(key string) view.Lifecycle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lifecycle[key]
}

// LastStatus 最近一次叙述
func (m *MockSink) LastStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.status) == 0 {
		return ""
	}
	return m.status[len(m.status)-1]
}

// LastBanner 最近一次横幅
func (m *MockSink) LastBanner() view.Banner {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.banners) == 0 {
		return view.Banner{}
	}
	return m.banners[len(m.banners)-1]
}

// Submitting 提交标志的推送历史
func (m *MockSink) Submitting() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.submitting...)
}
