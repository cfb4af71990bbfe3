package api

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/kweinmeister/agent-design-patterns/types"
)

// =============================================================================
// 📚 模式目录
// =============================================================================

// PatternInfo 目录中的一个模式
type PatternInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	DemoURL     string `json:"demo_url"`
}

// Patterns 拉取模式目录；并发调用共享同一次请求
func (c *Client) Patterns(ctx context.Context) ([]PatternInfo, error) {
	v, err, _ := c.group.Do("patterns", func() (any, error) {
		var out []PatternInfo
		if err := c.getJSON(ctx, "patterns", "/patterns.json", &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	// 调用方可能修改切片，返回副本
	shared := v.([]PatternInfo)
	out := make([]PatternInfo, len(shared))
	copy(out, shared)
	return out, nil
}

// SourceFile 模式的一个源文件
type SourceFile struct {
	Name    string
	Content string
}

// Code 拉取模式的源文件，按文件名排序
func (c *Client) Code(ctx context.Context, id string) ([]SourceFile, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var files map[string]string
	if err := c.getJSON(ctx, "code", "/api/code/"+url.PathEscape(id), &files); err != nil {
		return nil, err
	}
	out := make([]SourceFile, 0, len(files))
	for name, content := range files {
		out = append(out, SourceFile{Name: name, Content: content})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Readme 拉取模式的 README 原文（Markdown）
func (c *Client) Readme(ctx context.Context, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	body, err := c.do(ctx, "readme", "GET", "/api/patterns/"+url.PathEscape(id)+"/README.md", nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return types.NewError(types.ErrInvalidRequest, "invalid pattern id: "+id)
	}
	return nil
}
