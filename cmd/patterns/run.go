package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kweinmeister/agent-design-patterns/config"
	"github.com/kweinmeister/agent-design-patterns/internal/telemetry"
	"github.com/kweinmeister/agent-design-patterns/session"
	"github.com/kweinmeister/agent-design-patterns/types"
	"github.com/kweinmeister/agent-design-patterns/view"
)

// =============================================================================
// 🚀 run 命令
// =============================================================================

func cmdRun(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	common := addCommonFlags(fs)
	prompt := fs.String("prompt", "", "Prompt to submit (defaults to the remaining arguments)")
	transport := fs.String("transport", "", "Stream transport: sse or websocket (overrides config)")
	noLive := fs.Bool("no-live", false, "Print the final view only")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fail("usage: patterns run [options] <%s> <prompt>", strings.Join(view.Names(), "|"))
	}
	p, ok := view.Lookup(fs.Arg(0))
	if !ok {
		fail("unknown pattern %q (available: %s)", fs.Arg(0), strings.Join(view.Names(), ", "))
	}
	text := *prompt
	if text == "" {
		text = strings.Join(fs.Args()[1:], " ")
	}
	if strings.TrimSpace(text) == "" {
		fail("a prompt is required")
	}

	a, err := newApp(common, os.Stdout)
	if err != nil {
		fail("%v", err)
	}
	defer a.close()
	if *transport != "" {
		a.cfg.Stream.Transport = *transport
		if err := a.cfg.Validate(); err != nil {
			fail("%v", err)
		}
	}
	if *noLive {
		a.cfg.Render.Live = false
	}

	if _, err := a.runPattern(ctx, p, text); err != nil {
		a.close()
		os.Exit(1)
	}
}

// runPattern 提交一次运行并等待结束；ctx 取消时取消运行。
// 失败时横幅已经输出，返回的错误只用于决定退出码。
func (a *app) runPattern(ctx context.Context, p *view.Pattern, prompt string) (view.State, error) {
	content, text := a.renderers()
	sink := newScreenSink(a.out, a.cfg.Render.Live, a.cfg.Render.Format == config.FormatHTML, a.cfg.Render.RefreshInterval)
	binding := view.NewBinding(sink, content, text)

	sess := session.New(a.newStreamClient(p), p,
		session.WithBinding(binding),
		session.WithLogger(a.logger),
		session.WithInboxSize(a.cfg.Stream.InboxSize),
	)
	defer func() { _ = sess.Close() }()

	// 通道的生命周期由会话管理，不随信号上下文一起取消
	runCtx, span := a.telemetry.StartRun(context.WithoutCancel(ctx), p.Name, sess.ID())
	start := time.Now()

	run, err := sess.SubmitPrompt(runCtx, a.cfg.Backend.BaseURL, prompt)
	if err != nil {
		telemetry.EndRun(span, err)
		return view.State{}, err
	}

	select {
	case <-run.Done():
	case <-ctx.Done():
		a.logger.Info("interrupted, cancelling run", zap.String("session_id", sess.ID()))
		_ = sess.Cancel()
	}

	state, err := run.Wait(context.Background())
	sink.Flush()
	telemetry.EndRun(span, err)
	if a.collector != nil {
		a.collector.RecordRun(p.Name, runResult(err), time.Since(start))
	}
	if err != nil {
		a.logger.Debug("run failed", zap.String("code", string(types.GetErrorCode(err))), zap.Error(err))
		return state, err
	}
	fmt.Fprintln(a.out)
	return state, nil
}

func runResult(err error) string {
	switch {
	case err == nil:
		return "complete"
	case types.IsErrorCode(err, types.ErrSuperseded), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
