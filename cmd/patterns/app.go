package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kweinmeister/agent-design-patterns/api"
	"github.com/kweinmeister/agent-design-patterns/config"
	"github.com/kweinmeister/agent-design-patterns/internal/metrics"
	"github.com/kweinmeister/agent-design-patterns/internal/server"
	"github.com/kweinmeister/agent-design-patterns/internal/telemetry"
	"github.com/kweinmeister/agent-design-patterns/render"
	"github.com/kweinmeister/agent-design-patterns/stream"
	"github.com/kweinmeister/agent-design-patterns/view"
)

// =============================================================================
// 🧩 运行环境
// =============================================================================

// app 每个子命令共享的依赖
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	out       io.Writer
	telemetry *telemetry.Providers
	collector *metrics.Collector
	metricsSv *server.Manager
	api       *api.Client
}

// commonFlags 所有子命令都接受的参数
type commonFlags struct {
	configPath *string
	baseURL    *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", "", "Path to config file (YAML)"),
		baseURL:    fs.String("base-url", "", "Pattern server base URL (overrides config)"),
	}
}

// newApp 加载配置并初始化日志、遥测、指标与接口客户端
func newApp(flags commonFlags, out io.Writer) (*app, error) {
	loader := config.NewLoader()
	if *flags.configPath != "" {
		loader = loader.WithConfigPath(*flags.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if *flags.baseURL != "" {
		cfg.Backend.BaseURL = *flags.baseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := initLogger(cfg.Log)
	a := &app{cfg: cfg, logger: logger, out: out}

	a.telemetry, err = telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	apiOpts := []api.Option{
		api.WithHTTPClient(&http.Client{Timeout: cfg.Backend.RequestTimeout}),
		api.WithLogger(logger),
	}
	if cfg.Metrics.Enabled {
		a.collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		apiOpts = append(apiOpts, api.WithObserver(a.collector))

		a.metricsSv = server.NewManager(server.NewMetricsHandler(nil), server.FromMetricsConfig(cfg.Metrics), logger)
		if err := a.metricsSv.Start(); err != nil {
			logger.Warn("metrics endpoint unavailable", zap.Error(err))
			a.metricsSv = nil
		}
	}
	a.api = api.NewClient(cfg.Backend.BaseURL, apiOpts...)

	return a, nil
}

// close 关闭指标端点、刷新遥测与日志
func (a *app) close() {
	timeout := a.cfg.Metrics.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if a.metricsSv != nil {
		if err := a.metricsSv.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics endpoint shutdown failed", zap.Error(err))
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Debug("telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// newTransport 按配置选择推送通道；流式请求不设整体超时，由空闲超时兜底
func (a *app) newTransport() stream.Transport {
	hc := &http.Client{}
	if a.cfg.Stream.Transport == config.TransportWebSocket {
		return stream.NewWebSocketTransport(hc, a.logger)
	}
	return stream.NewSSETransport(hc, a.logger)
}

// newStreamClient 为模式构建流客户端
func (a *app) newStreamClient(p *view.Pattern) *stream.Client {
	opts := []stream.Option{
		stream.WithIdleTimeout(a.cfg.Stream.IdleTimeout),
		stream.WithTerminator(p.StreamTerminator()),
		stream.WithLogger(a.logger),
		stream.WithTracer(a.telemetry.Tracer("github.com/kweinmeister/agent-design-patterns/stream")),
	}
	if a.collector != nil {
		opts = append(opts, stream.WithObserver(a.collector))
	}
	return stream.NewClient(a.newTransport(), opts...)
}

// renderers 按输出格式返回正文与文本渲染器
func (a *app) renderers() (content, text render.Renderer) {
	h := render.NewHighlighter(a.cfg.Render.Style, "")
	if a.cfg.Render.Format == config.FormatHTML {
		return render.NewHTML(h, a.logger), render.Plain{}
	}
	return render.NewTerminal(h), render.Text{}
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}

// fail 打印错误并以非零状态退出
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
