package chart

import (
	"context"
	"net/http"
)

// Source 把“站点变化”限制在 chart 包内部；核心流程只依赖统一接口与原始署名序列。
//
// 约束：
// - Fetch 不做缓存、不做重试（限速由 httpx 层统一实现）
// - Parse 必须是纯函数：相同输入 => 相同输出
// - Parse 返回按名次排列的原始署名（未规范化、未去重）
type Source interface {
	Name() string
	PageURL(slug string) string
	Fetch(ctx context.Context, slug string, c *http.Client) (html []byte, pageURL string, err error)
	Parse(html []byte, topN int) ([]string, error)
}
