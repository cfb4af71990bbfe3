package render

import (
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// =============================================================================
// 🖥️ 终端渲染
// =============================================================================

// StripControl 去除不可信文本中的 ANSI 转义序列与控制字符，保留换行和制表符
func StripControl(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Terminal 面向终端的 Markdown 渲染
//
// 输入先剥离转义序列，再交给 glamour 渲染；代码块沿用高亮器的 chroma 样式。
// glamour 不可用或渲染失败时退回逐行处理：标题着色、围栏代码高亮，其余原样输出。
type Terminal struct {
	mu       sync.Mutex
	md       *glamour.TermRenderer
	h        *Highlighter
	heading  lipgloss.Style
	subtitle lipgloss.Style
	quote    lipgloss.Style
	rule     lipgloss.Style
}

// NewTerminal 创建终端渲染器
func NewTerminal(h *Highlighter) *Terminal {
	if h == nil {
		h = NewHighlighter("", "")
	}
	t := &Terminal{
		h:        h,
		heading:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		subtitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111")),
		quote:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		rule:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
	if md, err := newTermRenderer(h.StyleName()); err == nil {
		t.md = md
	}
	return t
}

// newTermRenderer 深色样式，去掉文档边距，代码块使用指定的 chroma 主题，不折行
func newTermRenderer(codeTheme string) (*glamour.TermRenderer, error) {
	cfg := glamour.DarkStyleConfig
	var zero uint
	cfg.Document.Margin = &zero
	cfg.CodeBlock.Chroma = nil
	cfg.CodeBlock.Theme = codeTheme

	return glamour.NewTermRenderer(
		glamour.WithStyles(cfg),
		glamour.WithEmoji(),
		glamour.WithWordWrap(0),
	)
}

// Render 实现 Renderer；输入中的转义序列先被剥离，输出中只有渲染器产生的样式
func (t *Terminal) Render(content string) string {
	clean := StripControl(content)
	if t.md != nil {
		// TermRenderer 内部的块栈不支持并发渲染
		t.mu.Lock()
		out, err := t.md.Render(clean)
		t.mu.Unlock()
		if err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return t.fallback(clean)
}

// fallback 逐行渲染，clean 已剥离控制字符
func (t *Terminal) fallback(clean string) string {
	lines := strings.Split(clean, "\n")

	var (
		out     []string
		inFence bool
		lang    string
		code    []string
	)
	flush := func() {
		src := strings.Join(code, "\n")
		if src != "" {
			src += "\n"
		}
		if hl, err := t.h.Terminal(src, lang); err == nil {
			out = append(out, strings.TrimRight(hl, "\n"))
		} else {
			out = append(out, strings.TrimRight(src, "\n"))
		}
		code = code[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			if inFence {
				flush()
				inFence = false
				continue
			}
			inFence = true
			lang = strings.TrimSpace(trimmed[3:])
			continue
		}
		if inFence {
			code = append(code, line)
			continue
		}
		out = append(out, t.styleLine(line, trimmed))
	}
	if inFence {
		// 流式内容中的代码块可能还没闭合
		flush()
	}
	return strings.Join(out, "\n")
}

func (t *Terminal) styleLine(line, trimmed string) string {
	switch {
	case strings.HasPrefix(trimmed, "# "):
		return t.heading.Render(strings.TrimPrefix(trimmed, "# "))
	case strings.HasPrefix(trimmed, "## "), strings.HasPrefix(trimmed, "### "):
		return t.subtitle.Render(strings.TrimLeft(trimmed, "# "))
	case strings.HasPrefix(trimmed, "> "):
		return t.quote.Render(strings.TrimPrefix(trimmed, "> "))
	case trimmed == "---" || trimmed == "***":
		return t.rule.Render(strings.Repeat("─", 40))
	default:
		return line
	}
}

// =============================================================================
// 📝 纯文本
// =============================================================================

// Plain 只转义，不解释任何标记
type Plain struct{}

// Render 实现 Renderer
func (Plain) Render(content string) string {
	return EscapeString(content)
}

// EscapeString HTML 转义
func EscapeString(s string) string {
	return html.EscapeString(s)
}

// Text 终端纯文本：只剥离控制序列
type Text struct{}

// Render 实现 Renderer
func (Text) Render(content string) string {
	return StripControl(content)
}
