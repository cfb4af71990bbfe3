// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的客户端指标采集。

# 概述

Collector 使用 promauto 注册到默认 Registry，所有指标按 namespace
隔离。它同时实现 stream.Observer 与 api.Observer，分别挂到流客户端
与 JSON 接口客户端上。

# 主要能力

  - 流指标：打开数、活跃数、事件数（按 type）、关闭数与生命周期
    （按 outcome：complete / error / closed）。
  - 接口指标：请求总数与耗时，按 endpoint 分组，状态码归类为
    2xx/3xx/4xx/5xx，未得到响应记为 none。
  - 运行指标：每次模式运行的结果与耗时。
*/
package metrics
