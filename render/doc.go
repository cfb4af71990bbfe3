// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package render 是服务端文本进入显示层的唯一出口。

# 概述

所有来自服务端的文本（事件内容、状态叙述、错误信息）在到达 Sink
之前都必须经过一个 Renderer。HTML 渲染器以 goldmark 解析 Markdown，
围栏代码块交给 chroma 高亮，最终输出由 bluemonday 按用户内容策略过滤；
终端渲染器先剥离不可信的 ANSI 转义序列，再交给 glamour 渲染，
代码块沿用 chroma 样式；glamour 失败时退回 lipgloss 逐行着色。

# 核心类型

  - Renderer：Render(content) string
  - HTML：Markdown → 经过过滤的 HTML
  - Terminal：Markdown → 带样式的终端文本（glamour，不折行）
  - Plain / Text：只转义或只剥离控制字符
  - Highlighter：chroma 高亮，HTML / Terminal / CSS 三种输出
*/
package render
