package chart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// Error 是 source 阶段的可追溯错误。
// 上层可以据此把失败归类为 fetch_failed / parse_failed，并写入 report。
type Error struct {
	Source string
	Stage  string // "fetch" 或 "parse"
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("source=%s stage=%s: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatusError 表示榜单页返回了非 2xx 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// Throttled 报告站点是否在拒绝或限流本机请求。
func (e *HTTPStatusError) Throttled() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusTooManyRequests
}

// ErrNoRows 表示页面中找不到任何榜单行（通常意味着站点结构变化或返回了非榜单页）。
var ErrNoRows = errors.New("页面中没有榜单行")

// FetchParse 抓取并解析一个国家的榜单页。
//
// 返回值：
// - raws：按名次排列的原始署名
// - pageURL：榜单页 URL（来源标记）
// - html：原始 HTML（用于 cache）
func FetchParse(ctx context.Context, src Source, slug string, topN int, c *http.Client) (raws []string, pageURL string, html []byte, err error) {
	if src == nil {
		return nil, "", nil, errors.New("source 不能为空")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, "", nil, errors.New("slug 不能为空")
	}

	h, u, ferr := src.Fetch(ctx, slug, c)
	if ferr != nil {
		return nil, u, nil, &Error{Source: src.Name(), Stage: StageFetch, Err: ferr}
	}

	raws, err = ParseCached(src, h, topN)
	if err != nil {
		return nil, u, h, err
	}
	return raws, u, h, nil
}

// ParseCached 解析已有的 HTML（来自 cache 或刚抓取的页面）。
func ParseCached(src Source, html []byte, topN int) ([]string, error) {
	raws, err := src.Parse(html, topN)
	if err != nil {
		return nil, &Error{Source: src.Name(), Stage: StageParse, Err: err}
	}
	return raws, nil
}
