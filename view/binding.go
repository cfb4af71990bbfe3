package view

// =============================================================================
// 🖼️ UI 绑定
// =============================================================================

// 横幅文本
const (
	BannerErrorText   = "Error: Link Severed"
	BannerSuccessText = "Mission Success"
)

// BannerLevel 横幅级别
type BannerLevel int

const (
	BannerNone BannerLevel = iota
	BannerSuccess
	BannerError
)

// Banner 状态栏横幅
type Banner struct {
	Level BannerLevel
	Text  string
	// Detail 错误详情，已经过文本渲染
	Detail string
}

// Renderer 服务端文本进入显示层前的唯一出口
type Renderer interface {
	Render(content string) string
}

// Sink 显示层，只接收已渲染的内容
type Sink interface {
	SetStatus(text string)
	SetEntry(entry Entry, markup string)
	RemoveEntry(key string)
	SetSubmitting(submitting bool)
	SetBanner(b Banner)
}

// Binding 在构造时一次性绑定 Sink 与 Renderer，对比前后状态只推送变化
//
// Binding 不是并发安全的，应只由持有 State 的事件循环调用。
type Binding struct {
	sink    Sink
	content Renderer
	text    Renderer

	prev   State
	banner Banner
	primed bool
}

// NewBinding 创建绑定；content 渲染条目正文，text 渲染叙述与标签，
// text 为 nil 时与 content 相同
func NewBinding(sink Sink, content, text Renderer) *Binding {
	if text == nil {
		text = content
	}
	return &Binding{sink: sink, content: content, text: text}
}

// Update 把新状态推送到 Sink
func (b *Binding) Update(s State) {
	if !b.primed || s.Status != b.prev.Status {
		b.sink.SetStatus(b.text.Render(s.Status))
	}

	for _, key := range s.Order {
		entry, ok := s.Entries[key]
		if !ok {
			continue
		}
		if old, seen := b.prev.Entries[key]; b.primed && seen && old == entry {
			continue
		}
		rendered := entry
		rendered.Label = b.text.Render(entry.Label)
		rendered.Detail = b.text.Render(entry.Detail)
		rendered.Content = ""
		b.sink.SetEntry(rendered, b.content.Render(entry.Content))
	}

	if b.primed {
		for _, key := range b.prev.Order {
			if _, ok := s.Entries[key]; !ok {
				b.sink.RemoveEntry(key)
			}
		}
	}

	if !b.primed || s.Submitting != b.prev.Submitting {
		b.sink.SetSubmitting(s.Submitting)
	}

	if banner := b.bannerFor(s); !b.primed || banner != b.banner {
		b.banner = banner
		b.sink.SetBanner(banner)
	}

	b.prev = s
	b.primed = true
}

// Reset 忘记上一次状态，下一次 Update 全量推送
func (b *Binding) Reset() {
	b.prev = State{}
	b.banner = Banner{}
	b.primed = false
}

func (b *Binding) bannerFor(s State) Banner {
	switch {
	case s.Err != nil:
		return Banner{Level: BannerError, Text: BannerErrorText, Detail: b.text.Render(s.Err.Error())}
	case s.Completed:
		return Banner{Level: BannerSuccess, Text: BannerSuccessText}
	default:
		return Banner{}
	}
}
