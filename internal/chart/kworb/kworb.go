package kworb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/chartlap/internal/chart"
)

const (
	PeriodDaily  = "daily"
	PeriodWeekly = "weekly"

	defaultBaseURL = "https://kworb.net"

	// 额外多看几行：表头、空行、无链接的行都会被跳过。
	rowSlack = 10
)

// Source 实现 kworb.net Spotify 地区榜单的抓取与 HTML 解析。
//
// 约束：
// - Fetch/Parse 不做缓存/重试（由上层统一控制）
// - Parse 必须是纯函数（只依赖输入 html）
type Source struct {
	// Period 取 daily 或 weekly；为空时视为 daily。
	Period string
	// BaseURL 允许指向镜像或测试服务器；为空时使用 https://kworb.net。
	BaseURL string
}

func (s Source) Name() string { return s.period() }

func (s Source) period() string {
	if strings.TrimSpace(s.Period) == PeriodWeekly {
		return PeriodWeekly
	}
	return PeriodDaily
}

func (s Source) baseURL() string {
	u := strings.TrimSpace(s.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// PageURL 形如 https://kworb.net/spotify/country/us_daily.html
func (s Source) PageURL(slug string) string {
	return s.baseURL() + "/spotify/country/" + url.PathEscape(slug) + "_" + s.period() + ".html"
}

func (s Source) Fetch(ctx context.Context, slug string, c *http.Client) ([]byte, string, error) {
	if c == nil {
		return nil, "", errors.New("http client 不能为空")
	}
	if !chart.ValidSlug(slug) {
		return nil, "", errors.New("slug 非法：" + slug)
	}

	pageURL := s.PageURL(slug)
	b, err := fetchURL(ctx, c, pageURL)
	return b, pageURL, err
}

// Parse 从榜单表格中提取每行的首个署名链接文本。
//
// 规则：
// - 只看前 topN+10 个 <tr>（topN <= 0 时不限）
// - 至少 2 个 <td> 的行才算数据行
// - 在第 2~4 个 <td> 中找第一个含 <a> 的单元格，取其首个链接的文本
func (Source) Parse(html []byte, topN int) ([]string, error) {
	if len(html) == 0 {
		return nil, errors.New("html 为空")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	rows := doc.Find("tr")
	if rows.Length() == 0 {
		return nil, chart.ErrNoRows
	}

	limit := rows.Length()
	// 写成减法，避免 topN 很大时加法溢出。
	if topN > 0 && topN < limit-rowSlack {
		limit = topN + rowSlack
	}

	raws := make([]string, 0, limit)
	rows.Slice(0, limit).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		n := cells.Length()
		if n < 2 {
			return
		}
		end := 4
		if n < end {
			end = n
		}

		var credit string
		cells.Slice(1, end).EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			links := cell.Find("a")
			if links.Length() == 0 {
				return true
			}
			credit = strings.TrimSpace(links.First().Text())
			return false
		})
		if credit != "" {
			raws = append(raws, credit)
		}
	})
	return raws, nil
}

func fetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &chart.HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
