// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package api 封装模式服务端的非流式 JSON 接口。

# 概述

流式模式（orchestrator / voting / reflection）走 stream 包；其余模式
与目录类接口都是一次请求一次响应，由本包的 Client 负责：

  - 目录：Patterns、Code、Readme
  - Sequential：RunSequential 解析事故通报 {subject, body}
  - Human-in-the-Loop：HITL 会话，起草 / 审阅 / 确认 / 发布
  - RAG：Knowledge、Ingest、IngestAndWait、Reset、Query

# 错误

网络失败与非 2xx 响应返回 REQUEST_FAILED；响应体无法解析时返回
UPSTREAM_ERROR。任何接口都不会自动重试。
*/
package api
