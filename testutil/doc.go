// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供各包测试共享的工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual / AssertNotContains / AssertNever
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual / WaitFor /
    WaitForChannel，超时轮询等待条件满足
  - 数据工具: MustJSON / MustParseJSON
  - 流服务器: SSEServer 按脚本回放 SSE 帧并记录请求与断开；
    WSServer 记录客户端发送的提交消息后回放负载

# 子包

  - testutil/mocks: MockTransport / MockSource（推送通道）与 MockSink（显示层）
  - testutil/fixtures: 各类事件负载构造函数与完整的模式场景

# 使用示例

	srv := testutil.NewSSEServer(t, testutil.SSEScript{
		Frames: testutil.Data(fixtures.VotingRound()...),
	})
	h := client.Open(testutil.TestContext(t), view.Voting.Request(srv.URL, "slogan"), consumer)
*/
package testutil
