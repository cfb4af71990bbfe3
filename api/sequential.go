package api

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kweinmeister/agent-design-patterns/types"
)

// =============================================================================
// 📋 Sequential：事故分诊流水线
// =============================================================================

// DefaultIncidentSubject 输出无法解析时使用的标题
const DefaultIncidentSubject = "Incident Report"

// Incident 流水线产出的事故通报
type Incident struct {
	Subject string
	Body    string
	// Raw 服务端返回的原始 output
	Raw string
	// Structured output 是否成功解析为 {subject, body}
	Structured bool
}

// RunSequential 提交日志文本，返回解析后的事故通报
func (c *Client) RunSequential(ctx context.Context, input string) (*Incident, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "input text is empty")
	}

	var resp struct {
		Output string `json:"output"`
	}
	if err := c.postJSON(ctx, "sequential", "/sequential/run", map[string]string{"input_text": input}, &resp); err != nil {
		return nil, err
	}

	inc := ParseIncident(resp.Output)
	if !inc.Structured {
		c.logger.Debug("sequential output is not structured, showing raw text")
	}
	return inc, nil
}

// ParseIncident 解析 {subject, body}；允许外层 Markdown 代码围栏。
// 解析失败或字段缺失时退回默认标题与原始文本。
func ParseIncident(output string) *Incident {
	inc := &Incident{Subject: DefaultIncidentSubject, Body: output, Raw: output}

	var parsed struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(stripFence(output)), &parsed); err != nil {
		return inc
	}
	inc.Structured = true
	if parsed.Subject != "" {
		inc.Subject = parsed.Subject
	}
	if parsed.Body != "" {
		inc.Body = parsed.Body
	}
	return inc
}

// stripFence 去掉 ```json ... ``` 外层围栏
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
