// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package view 把流事件折叠为可显示的视图状态。

# 概述

每个 UI 模式由一张转换表描述：事件类型映射到动作（status、plan、
start、finish、append、fail、terminal）和取键函数。Reduce 是纯函数，
按表把事件折叠进 State，从不修改入参。

# 核心类型

  - State / Entry / Lifecycle：条目按键累积内容，生命周期单调前进
  - Pattern / Rule / KeyFunc：模式即数据，Orchestrator、Voting、Reflection 内置
  - Binding / Sink / Renderer：对比前后状态，把经过渲染的变化推送到显示层

# 不变式

  - 每个键的内容只追加，直到下一次 Begin
  - 终结幂等；只清除提交标志，不动内容
  - 未知事件类型与未知键的 start/finish 不改变状态
*/
package view
