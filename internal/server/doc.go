// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理客户端可选的指标端点。

# 概述

Manager 封装 net/http.Server，负责监听、后台服务、优雅关闭与
异步错误传播。NewMetricsHandler 提供 /metrics（promhttp）与
/healthz 两个路由；CLI 在 metrics.enabled 时启动它，运行结束后关闭。

# 核心类型

  - Manager：Start / Shutdown / Errors / Addr / IsRunning。
  - Config：监听地址、读写超时与关闭超时，可由 config.MetricsConfig 派生。
*/
package server
