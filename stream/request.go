package stream

import (
	"net/http"
	"net/url"
	"strings"
)

// Request 打开一条推送通道所需的描述
//
// GET 时提示词已编码在 URL 查询参数中；POST 时 Body 以 JSON 发送，
// 形如 {prompt | input_text | query, session_id?}。
type Request struct {
	Method string
	URL    string
	Body   any
	Header http.Header
}

// NewGetRequest 构造 GET 请求，value 作为 URL 查询参数 param 编码
func NewGetRequest(baseURL, path, param, value string) Request {
	u := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if param != "" {
		q := url.Values{}
		q.Set(param, value)
		u += "?" + q.Encode()
	}
	return Request{Method: http.MethodGet, URL: u}
}

// NewPostRequest 构造携带 JSON body 的 POST 请求
func NewPostRequest(rawURL string, body any) Request {
	return Request{Method: http.MethodPost, URL: rawURL, Body: body}
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// isSubmission POST 请求的失败归类为 REQUEST_FAILED，GET 打开失败归类为 TRANSPORT
func (r Request) isSubmission() bool {
	return r.method() != http.MethodGet
}
