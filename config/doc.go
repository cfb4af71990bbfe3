// Package config 提供模式客户端的配置加载。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，最后运行验证器。
// 环境变量名由前缀与结构体 env 标签拼接而成，例如
// PATTERNS_BACKEND_BASE_URL、PATTERNS_STREAM_IDLE_TIMEOUT。
package config
