// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供流式客户端的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 stream、view、session、
api 等上层模块提供统一的错误契约和 Context 传播工具，以避免循环依赖。

# 核心类型

  - Error / ErrorCode：结构化错误体系，含 HTTP 状态码与 Retryable 标记
  - TRANSPORT / MALFORMED_EVENT / REQUEST_FAILED：三类可在 UI 边界恢复的错误
  - IDLE_TIMEOUT / UPSTREAM_ERROR / SUPERSEDED / SUBMISSION_IN_FLIGHT：补充错误码

# 主要能力

  - 错误工具链：AsError / IsErrorCode / GetErrorCode / IsRetryable
  - 常用错误构造：NewTransportError / NewMalformedEventError / NewRequestFailedError
  - Context 传播：WithSessionID / WithRunID / WithPattern
*/
package types
