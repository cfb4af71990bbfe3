package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kweinmeister/agent-design-patterns/render"
	"github.com/kweinmeister/agent-design-patterns/view"
	"golang.org/x/time/rate"
)

// =============================================================================
// 🖥️ 终端 Sink
// =============================================================================

// clearScreen 光标归位并清屏
const clearScreen = "\x1b[H\x1b[2J"

type sinkEntry struct {
	entry  view.Entry
	markup string
}

// screenSink 实现 view.Sink；状态每次都完整记录，只有重绘受限流
type screenSink struct {
	mu      sync.Mutex
	out     io.Writer
	live    bool
	html    bool
	limiter *rate.Limiter

	status     string
	order      []string
	entries    map[string]sinkEntry
	submitting bool
	banner     view.Banner
	dirty      bool
	paints     int

	statusStyle  lipgloss.Style
	labelStyle   lipgloss.Style
	detailStyle  lipgloss.Style
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
}

// newScreenSink live 为 true 时每次变化（受 interval 限流）都清屏重绘，
// 否则只在 Flush 时输出一次
func newScreenSink(out io.Writer, live, html bool, interval time.Duration) *screenSink {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &screenSink{
		out:          out,
		live:         live && !html,
		html:         html,
		limiter:      rate.NewLimiter(rate.Every(interval), 1),
		entries:      make(map[string]sinkEntry),
		statusStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111")),
		labelStyle:   lipgloss.NewStyle().Bold(true),
		detailStyle:  lipgloss.NewStyle().Faint(true),
		successStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		errorStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// SetStatus 实现 view.Sink
func (s *screenSink) SetStatus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = text
	s.changedLocked()
}

// SetEntry 实现 view.Sink
func (s *screenSink) SetEntry(entry view.Entry, markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.Key]; !ok {
		s.order = append(s.order, entry.Key)
	}
	s.entries[entry.Key] = sinkEntry{entry: entry, markup: markup}
	s.changedLocked()
}

// RemoveEntry 实现 view.Sink
func (s *screenSink) RemoveEntry(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.changedLocked()
}

// SetSubmitting 实现 view.Sink
func (s *screenSink) SetSubmitting(submitting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = submitting
	s.changedLocked()
}

// SetBanner 实现 view.Sink；横幅变化总是立即重绘
func (s *screenSink) SetBanner(b view.Banner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banner = b
	s.dirty = true
	if s.live {
		s.paintLocked()
	}
}

// Flush 输出尚未绘制的变化
func (s *screenSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.paintLocked()
	}
}

func (s *screenSink) changedLocked() {
	s.dirty = true
	if s.live && s.limiter.Allow() {
		s.paintLocked()
	}
}

func (s *screenSink) paintLocked() {
	var frame string
	if s.html {
		frame = s.htmlFrameLocked()
	} else {
		frame = s.terminalFrameLocked()
	}
	if s.live {
		frame = clearScreen + frame
	}
	_, _ = io.WriteString(s.out, frame)
	s.dirty = false
	s.paints++
}

func lifecycleIcon(l view.Lifecycle) string {
	switch l {
	case view.Done:
		return "✔"
	case view.Active:
		return "●"
	default:
		return "○"
	}
}

func (s *screenSink) terminalFrameLocked() string {
	var b strings.Builder
	status := s.status
	if s.submitting {
		status = "⏳ " + status
	}
	if status != "" {
		b.WriteString(s.statusStyle.Render(status))
		b.WriteString("\n\n")
	}
	for _, key := range s.order {
		e := s.entries[key]
		header := lifecycleIcon(e.entry.Lifecycle) + " " + s.labelStyle.Render(e.entry.Label)
		if e.entry.Detail != "" {
			header += "  " + s.detailStyle.Render(e.entry.Detail)
		}
		b.WriteString(header)
		b.WriteString("\n")
		if e.markup != "" {
			b.WriteString(e.markup)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	switch s.banner.Level {
	case view.BannerSuccess:
		b.WriteString(s.successStyle.Render("✔ " + s.banner.Text))
		b.WriteString("\n")
	case view.BannerError:
		b.WriteString(s.errorStyle.Render("✖ " + s.banner.Text))
		b.WriteString("\n")
		if s.banner.Detail != "" {
			b.WriteString(s.banner.Detail)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// htmlFrameLocked 标签与详情已经过 Plain 渲染，markup 已经过过滤
func (s *screenSink) htmlFrameLocked() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<div class=\"status\" data-submitting=\"%t\">%s</div>\n", s.submitting, s.status)
	for _, key := range s.order {
		e := s.entries[key]
		fmt.Fprintf(&b, "<section class=\"entry\" data-key=\"%s\" data-state=\"%s\">\n",
			render.EscapeString(key), e.entry.Lifecycle)
		fmt.Fprintf(&b, "<h3>%s</h3>\n", e.entry.Label)
		if e.entry.Detail != "" {
			fmt.Fprintf(&b, "<p class=\"detail\">%s</p>\n", e.entry.Detail)
		}
		fmt.Fprintf(&b, "<div class=\"content\">%s</div>\n</section>\n", e.markup)
	}
	switch s.banner.Level {
	case view.BannerSuccess:
		fmt.Fprintf(&b, "<div class=\"banner success\">%s</div>\n", render.EscapeString(s.banner.Text))
	case view.BannerError:
		fmt.Fprintf(&b, "<div class=\"banner error\">%s<p>%s</p></div>\n", render.EscapeString(s.banner.Text), s.banner.Detail)
	}
	return b.String()
}
