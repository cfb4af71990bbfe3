package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kweinmeister/agent-design-patterns/api"
	"github.com/kweinmeister/agent-design-patterns/render"
	"github.com/kweinmeister/agent-design-patterns/view"
)

// =============================================================================
// 📚 目录命令
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

func cmdList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(args)

	withApp(common, func(a *app) error { return a.list(ctx) })
}

func (a *app) list(ctx context.Context) error {
	patterns, err := a.api.Patterns(ctx)
	if err != nil {
		return err
	}
	for _, p := range patterns {
		line := fmt.Sprintf("%s %-20s %s", render.StripControl(p.Icon), render.StripControl(p.ID), titleStyle.Render(render.StripControl(p.Name)))
		if _, streaming := view.Lookup(p.ID); streaming {
			line += faintStyle.Render("  (streaming)")
		}
		fmt.Fprintln(a.out, line)
		if p.Description != "" {
			fmt.Fprintln(a.out, "   "+faintStyle.Render(render.StripControl(p.Description)))
		}
	}
	return nil
}

func cmdCode(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("code", flag.ExitOnError)
	common := addCommonFlags(fs)
	file := fs.String("file", "", "Show only this file")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fail("usage: patterns code [options] <pattern-id>")
	}

	withApp(common, func(a *app) error { return a.code(ctx, fs.Arg(0), *file) })
}

func (a *app) code(ctx context.Context, id, only string) error {
	files, err := a.api.Code(ctx, id)
	if err != nil {
		return err
	}
	h := render.NewHighlighter(a.cfg.Render.Style, "")
	shown := 0
	for _, f := range files {
		if only != "" && f.Name != only {
			continue
		}
		shown++
		fmt.Fprintln(a.out, titleStyle.Render("── "+render.StripControl(f.Name)))
		src := render.StripControl(f.Content)
		out, err := h.Terminal(src, languageFor(f.Name))
		if err != nil {
			out = src
		}
		fmt.Fprintln(a.out, strings.TrimRight(out, "\n"))
		fmt.Fprintln(a.out)
	}
	if only != "" && shown == 0 {
		return fmt.Errorf("file %q not found in pattern %q", only, id)
	}
	return nil
}

// languageFor 按扩展名推断 chroma 语言名
func languageFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".go":
		return "go"
	case ".md":
		return "markdown"
	case ".j2", ".html":
		return "html"
	case ".css":
		return "css"
	default:
		return ""
	}
}

func cmdReadme(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("readme", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fail("usage: patterns readme [options] <pattern-id>")
	}

	withApp(common, func(a *app) error {
		md, err := a.api.Readme(ctx, fs.Arg(0))
		if err != nil {
			return err
		}
		content, _ := a.renderers()
		fmt.Fprintln(a.out, content.Render(md))
		return nil
	})
}

// =============================================================================
// 📋 Sequential
// =============================================================================

func cmdSequential(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("sequential", flag.ExitOnError)
	common := addCommonFlags(fs)
	input := fs.String("input", "", "Log text to triage (defaults to the remaining arguments)")
	_ = fs.Parse(args)
	text := *input
	if text == "" {
		text = strings.Join(fs.Args(), " ")
	}

	withApp(common, func(a *app) error {
		inc, err := a.api.RunSequential(ctx, text)
		if err != nil {
			return err
		}
		_, plain := a.renderers()
		fmt.Fprintln(a.out, titleStyle.Render("Subject: "+plain.Render(inc.Subject)))
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, plain.Render(inc.Body))
		return nil
	})
}

// =============================================================================
// 🛑 Human-in-the-Loop
// =============================================================================

func cmdHITL(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("hitl", flag.ExitOnError)
	common := addCommonFlags(fs)
	var form api.DraftForm
	fs.StringVar(&form.Company, "company", "", "Company name")
	fs.StringVar(&form.Product, "product", "", "Product name")
	fs.StringVar(&form.Features, "features", "", "Key features")
	fs.StringVar(&form.Audience, "audience", "", "Target audience")
	fs.StringVar(&form.Availability, "availability", "", "Availability")
	fs.StringVar(&form.Price, "price", "", "Price")
	fs.StringVar(&form.Vision, "vision", "", "Vision")
	fs.StringVar(&form.Quote, "quote", "", "Quote")
	fs.StringVar(&form.Location, "location", "", "Location")
	fs.StringVar(&form.Assets, "assets", "", "Assets")
	_ = fs.Parse(args)

	withApp(common, func(a *app) error { return a.hitl(ctx, form, os.Stdin) })
}

// hitl 起草后进入审阅循环：approve、reject <意见>、quit
func (a *app) hitl(ctx context.Context, form api.DraftForm, in io.Reader) error {
	h := a.api.NewHITL()
	content, _ := a.renderers()

	show := func(reply *api.HITLReply) {
		fmt.Fprintln(a.out, content.Render(reply.Document))
		fmt.Fprintln(a.out, faintStyle.Render("["+string(reply.State)+"]"))
	}

	fmt.Fprintln(a.out, faintStyle.Render("Drafting Press Release..."))
	reply, err := h.Draft(ctx, form)
	if err != nil {
		return err
	}
	show(reply)

	scanner := bufio.NewScanner(in)
	for h.State() != api.HITLPublished {
		fmt.Fprint(a.out, "approve | reject <feedback> | quit > ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		cmd, rest, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		switch strings.ToLower(cmd) {
		case "approve", "a":
			reply, err = h.Approve(ctx)
		case "reject", "r":
			reply, err = h.Reject(ctx, rest)
		case "quit", "q", "exit":
			return nil
		case "":
			continue
		default:
			fmt.Fprintln(a.out, "unknown command: "+render.StripControl(cmd))
			continue
		}
		if err != nil {
			return err
		}
		show(reply)
	}
	fmt.Fprintln(a.out, titleStyle.Render("Published! ✅"))
	return nil
}

// =============================================================================
// 📖 RAG
// =============================================================================

func cmdRAG(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rag", flag.ExitOnError)
	common := addCommonFlags(fs)
	poll := fs.Duration("poll", api.DefaultIngestPollInterval, "Knowledge poll interval after ingest")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fail("usage: patterns rag [options] <knowledge|ingest|reset|query> [question]")
	}

	withApp(common, func(a *app) error {
		return a.rag(ctx, fs.Arg(0), strings.Join(fs.Args()[1:], " "), *poll)
	})
}

func (a *app) rag(ctx context.Context, action, question string, poll time.Duration) error {
	switch action {
	case "knowledge":
		docs, err := a.api.Knowledge(ctx)
		if err != nil {
			return err
		}
		a.printDocuments(docs)
	case "ingest":
		fmt.Fprintln(a.out, faintStyle.Render("Ingesting..."))
		docs, err := a.api.IngestAndWait(ctx, poll, api.DefaultIngestMaxRetries)
		if err != nil {
			return err
		}
		a.printDocuments(docs)
	case "reset":
		if err := a.api.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Knowledge base cleared.")
	case "query":
		answer, err := a.api.NewRAG().Query(ctx, question)
		if err != nil {
			return err
		}
		content, _ := a.renderers()
		fmt.Fprintln(a.out, content.Render(answer))
	default:
		return fmt.Errorf("unknown rag action %q", action)
	}
	return nil
}

func (a *app) printDocuments(docs []string) {
	if len(docs) == 0 {
		fmt.Fprintln(a.out, "📭 Knowledge base is empty")
		return
	}
	_, plain := a.renderers()
	for _, d := range docs {
		fmt.Fprintln(a.out, "📄 "+plain.Render(d))
	}
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func cmdHealth(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	common := addCommonFlags(fs)
	timeout := fs.Duration("timeout", 5*time.Second, "Health check timeout")
	_ = fs.Parse(args)

	withApp(common, func(a *app) error {
		hctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()
		if _, err := a.api.Patterns(hctx); err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(a.out, "OK")
		return nil
	})
}

// withApp 构建运行环境并执行 fn，失败时以非零状态退出
func withApp(common commonFlags, fn func(a *app) error) {
	a, err := newApp(common, os.Stdout)
	if err != nil {
		fail("%v", err)
	}
	if err := fn(a); err != nil {
		a.close()
		fail("Error: %s", render.StripControl(err.Error()))
	}
	a.close()
}
