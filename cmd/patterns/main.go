// =============================================================================
// 模式客户端主入口
// =============================================================================
// 面向模式服务端的命令行前端：流式模式实时渲染，其余模式一次请求一次输出
//
// 使用方法:
//
//	patterns run orchestrator "Plan a product launch"   # 运行流式模式
//	patterns run -transport websocket voting "Slogan"    # 指定推送通道
//	patterns list                                        # 列出模式
//	patterns code voting                                 # 查看模式源码
//	patterns readme reflection                           # 查看模式说明
//	patterns sequential "PaymentService failed ..."      # 事故分诊
//	patterns hitl -company Acme -product Skates          # 新闻稿审批
//	patterns rag query "What is RAG?"                    # 知识库问答
//	patterns health                                      # 健康检查
//	patterns version                                     # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "run":
		cmdRun(ctx, args)
	case "list":
		cmdList(ctx, args)
	case "code":
		cmdCode(ctx, args)
	case "readme":
		cmdReadme(ctx, args)
	case "sequential":
		cmdSequential(ctx, args)
	case "hitl":
		cmdHITL(ctx, args)
	case "rag":
		cmdRAG(ctx, args)
	case "health":
		cmdHealth(ctx, args)
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("patterns %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`patterns - Agent design pattern client

Usage:
  patterns <command> [options] [arguments]

Commands:
  run         Run a streaming pattern (orchestrator, voting, reflection)
  list        List the patterns the server offers
  code        Show a pattern's source files
  readme      Show a pattern's README
  sequential  Triage an incident log with the sequential pipeline
  hitl        Draft, review and publish a press release
  rag         Manage the knowledge base or ask a question
  health      Check that the server is reachable
  version     Show version information
  help        Show this help message

Common options:
  -config <path>     Path to configuration file (YAML)
  -base-url <url>    Pattern server base URL

Options for 'run':
  -prompt <text>     Prompt to submit
  -transport <name>  sse or websocket
  -no-live           Print the final view only

RAG actions:
  rag knowledge      List documents
  rag ingest         Ingest and wait for documents
  rag reset          Clear the knowledge base
  rag query <text>   Ask a question

Environment:
  PATTERNS_BACKEND_BASE_URL, PATTERNS_STREAM_TRANSPORT, PATTERNS_LOG_LEVEL, ...

Examples:
  patterns run orchestrator "Write a launch plan for a coffee shop"
  patterns run -no-live reflection "Write a haiku about Go"
  patterns rag ingest
  patterns health -base-url http://localhost:8000
  patterns version`)
}
