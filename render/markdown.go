package render

import (
	"bytes"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
	"go.uber.org/zap"
)

// =============================================================================
// 🌐 Markdown → 安全 HTML
// =============================================================================

// Renderer 服务端文本进入显示层前的渲染出口
type Renderer interface {
	Render(content string) string
}

// classPattern 只放行高亮器产生的 class 值
var classPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_ ]+$`)

// HTML 把 Markdown 渲染为 HTML，代码块经 chroma 高亮，最后由 bluemonday 过滤
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	logger *zap.Logger
}

// NewHTML 创建 HTML 渲染器
func NewHTML(h *Highlighter, logger *zap.Logger) *HTML {
	if h == nil {
		h = NewHighlighter("", "")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "html_renderer"))

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, emoji.Emoji),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(&codeBlockRenderer{h: h, logger: logger}, 100)),
		),
	)
	return &HTML{md: md, policy: NewPolicy(), logger: logger}
}

// NewPolicy 用户内容策略，额外允许代码高亮的 class
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classPattern).OnElements("span", "pre", "code", "div")
	return p
}

// Render 实现 Renderer；渲染失败时退回转义后的原文
func (r *HTML) Render(content string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		r.logger.Warn("markdown conversion failed", zap.Error(err))
		return r.policy.Sanitize("<p>" + EscapeString(content) + "</p>")
	}
	return r.policy.Sanitize(buf.String())
}

// Sanitize 只做过滤，用于已经是 HTML 的内容
func (r *HTML) Sanitize(markup string) string {
	return r.policy.Sanitize(markup)
}

// codeBlockRenderer 用 chroma 渲染围栏代码块
type codeBlockRenderer struct {
	h      *Highlighter
	logger *zap.Logger
}

// RegisterFuncs 实现 renderer.NodeRenderer
func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lang := string(n.Language(source))
	out, err := r.h.HTML(code.String(), lang)
	if err != nil {
		r.logger.Debug("highlight failed", zap.String("lang", lang), zap.Error(err))
		_, _ = w.WriteString("<pre><code>")
		_, _ = w.Write(util.EscapeHTML(code.Bytes()))
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString(out)
	return ast.WalkSkipChildren, nil
}
