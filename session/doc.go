// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 session 提供单一事件循环：独占一个视图状态，串行处理提交与流回调。

# 概述

Session 启动一个循环协程，视图状态只在该协程中读写。stream 的回调
被转发进循环并附带提交代号；新的提交先关闭旧通道、递增代号、
以 view.Begin 重置状态，再打开新通道。旧代号的迟到消息被丢弃，
因此同一会话的两条通道永远不会交错写入。

# 核心类型

  - Session：事件循环，提供 Submit / TrySubmit / Cancel / State / Close
  - Run：一次提交的结果，Wait 返回最终状态；被取代时返回 SUPERSEDED
  - Opener：打开通道的最小接口，*stream.Client 即是实现

# 主要能力

  - 每次状态变化都经由 view.Binding 推送到显示层
  - TrySubmit 在提交进行中时以 SUBMISSION_IN_FLIGHT 拒绝
  - 错误路径清除提交标志并保留已累积内容
*/
package session
