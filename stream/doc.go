// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 stream 提供服务端推送通道的客户端：打开通道、解码事件、分发回调。

# 概述

Client 通过 Transport 打开一条推送通道（SSE 或 WebSocket），把每条消息
解码为 Event，并在唯一的读协程中按到达顺序同步分发给 Consumer。
通道的生命周期由 Handle 持有：终结事件、传输错误、空闲超时、
父 Context 取消和调用方 Close 是仅有的五种结束方式。

# 核心类型

  - Event / EventType：带标签的事件联合体，DecodeEvent 校验必需字段
  - Terminator：终结判断，DefaultTerminator 同时接受 complete 事件与
    role 为 final 的 step 事件，先到先得
  - Transport / Source：传输抽象，SSETransport 与 WebSocketTransport 两种实现
  - Client / Handle / Consumer：打开通道并持有其生命周期

# 主要能力

  - OnComplete 与 OnError 每条通道恰好触发一次；Close 之后不再有任何回调
  - 终结事件之后即便已有缓冲消息也不再分发
  - 非法负载以 MALFORMED_EVENT 报告一次并中止通道
  - 不做自动重连，由用户重新提交
  - Observer 钩子与 OpenTelemetry span 覆盖每条通道
*/
package stream
