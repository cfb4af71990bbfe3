package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// 🎨 代码高亮
// =============================================================================

// 默认样式与终端格式
const (
	DefaultStyle          = "monokai"
	DefaultTerminalFormat = "terminal16m"
)

// Highlighter 基于 chroma 的代码高亮
type Highlighter struct {
	name     string
	style    *chroma.Style
	html     *chromahtml.Formatter
	terminal chroma.Formatter
}

// NewHighlighter 创建高亮器；未知样式或格式退回 chroma 的默认值
func NewHighlighter(style, terminalFormat string) *Highlighter {
	if style == "" {
		style = DefaultStyle
	}
	if terminalFormat == "" {
		terminalFormat = DefaultTerminalFormat
	}
	return &Highlighter{
		name:     style,
		style:    styles.Get(style),
		html:     chromahtml.New(chromahtml.WithClasses(true)),
		terminal: formatters.Get(terminalFormat),
	}
}

// StyleName 配置的 chroma 样式名
func (h *Highlighter) StyleName() string {
	return h.name
}

// lexer 按语言名查找，其次按内容猜测，最后退回纯文本
func (h *Highlighter) lexer(code, lang string) chroma.Lexer {
	var l chroma.Lexer
	if lang = strings.TrimSpace(lang); lang != "" {
		l = lexers.Get(lang)
	}
	if l == nil {
		l = lexers.Analyse(code)
	}
	if l == nil {
		l = lexers.Fallback
	}
	return chroma.Coalesce(l)
}

func (h *Highlighter) format(f chroma.Formatter, code, lang string) (string, error) {
	it, err := h.lexer(code, lang).Tokenise(nil, code)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := f.Format(&buf, h.style, it); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// HTML 以 class 标注的 HTML 片段，配合 CSS 使用
func (h *Highlighter) HTML(code, lang string) (string, error) {
	return h.format(h.html, code, lang)
}

// Terminal 带 ANSI 颜色的终端输出
func (h *Highlighter) Terminal(code, lang string) (string, error) {
	return h.format(h.terminal, code, lang)
}

// CSS 当前样式对应的样式表
func (h *Highlighter) CSS() (string, error) {
	var buf bytes.Buffer
	if err := h.html.WriteCSS(&buf, h.style); err != nil {
		return "", err
	}
	return buf.String(), nil
}
