// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供模式客户端的命令行入口。

# 概述

cmd/patterns 连接模式服务端：流式模式通过 stream.Client 打开推送通道，
由 session.Session 归约为 view.State，再经 view.Binding 推送到终端 Sink；
非流式模式通过 api.Client 一次请求一次输出。

# 主要能力

  - 子命令：run、list、code、readme、sequential、hitl、rag、health、version
  - 渲染：terminal（lipgloss + chroma）或 html（goldmark + bluemonday）
  - 实时重绘：状态每次都完整记录，重绘频率由 x/time/rate 限流
  - 中断：SIGINT 取消当前运行，横幅显示错误并以非零状态退出
  - 可选 Prometheus 端点与 OTLP 链路追踪
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
