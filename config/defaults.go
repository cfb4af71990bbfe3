// =============================================================================
// 📦 默认配置
// =============================================================================
package config

import "time"

// 可选值
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"

	FormatTerminal = "terminal"
	FormatHTML     = "html"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Backend:   DefaultBackendConfig(),
		Stream:    DefaultStreamConfig(),
		Render:    DefaultRenderConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultBackendConfig 返回默认服务端配置
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		BaseURL:        "http://localhost:8000",
		RequestTimeout: 60 * time.Second,
	}
}

// DefaultStreamConfig 返回默认通道配置
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Transport:   TransportSSE,
		IdleTimeout: 2 * time.Minute,
		InboxSize:   256,
	}
}

// DefaultRenderConfig 返回默认显示配置
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Format:          FormatTerminal,
		Style:           "monokai",
		Live:            true,
		RefreshInterval: 100 * time.Millisecond,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "warn",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agent-patterns",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:         false,
		Addr:            ":9091",
		Namespace:       "patterns",
		ShutdownTimeout: 5 * time.Second,
	}
}
