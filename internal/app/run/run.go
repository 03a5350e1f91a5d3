package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/chartlap/internal/artist"
	"github.com/John-Robertt/chartlap/internal/chart"
	"github.com/John-Robertt/chartlap/internal/config"
	"github.com/John-Robertt/chartlap/internal/domain"
	"github.com/John-Robertt/chartlap/internal/infra/cache"
	"github.com/John-Robertt/chartlap/internal/infra/httpx"
	"github.com/John-Robertt/chartlap/internal/overlap"
)

// 每个地区在报告里保留的头部艺人数（用于人工核对）。
const topPreview = 3

// Execute 执行一次完整的抓取 + 聚合，并返回对外稳定的 RunReport。
// 单个地区失败只记入报告，不影响其他地区，也不会中断聚合。
func Execute(ctx context.Context, eff config.EffectiveConfig, reg chart.Registry) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, reg, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, reg chart.Registry, obs Observer) domain.RunReport {
	rr := domain.RunReport{
		RunID:        uuid.NewString(),
		Source:       eff.Source,
		Offline:      eff.Offline,
		MinCountries: eff.MinCountries,
		StartedAt:    time.Now().UTC(),
	}

	src, ok := reg.Get(eff.Source)
	if !ok {
		return abort(rr, domain.ErrCodeConfigInvalid, fmt.Sprintf("source 未注册：%q", eff.Source))
	}

	countries, err := chart.Catalog(eff.Countries)
	if err != nil {
		return abort(rr, domain.ErrCodeConfigInvalid, err.Error())
	}

	var client *http.Client
	if !eff.Offline {
		c, e := httpx.NewChartClient(eff.ProxyURL, eff.Delay, eff.Timeout)
		if e != nil {
			return abort(rr, domain.ErrCodeConfigInvalid, fmt.Sprintf("proxy.url 无效：%v", e))
		}
		client = c
	}

	store := cache.New(eff.Dir, eff.Offline)

	if obs != nil {
		obs.OnStart(eff, len(countries))
	}

	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}

	fetchStarted := time.Now()
	results := make([]domain.CountryResult, len(countries))
	charts := make([]domain.CountryChart, len(countries))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range countries {
		i, c := i, c
		g.Go(func() error {
			oneStarted := time.Now()
			res, ch := fetchOne(gctx, eff, src, client, store, c)
			results[i] = res
			charts[i] = ch

			mu.Lock()
			done++
			if obs != nil {
				obs.OnCountryDone(done, len(countries), res, time.Since(oneStarted))
			}
			mu.Unlock()
			// 地区失败已降级为结果条目，不能取消其他地区。
			return nil
		})
	}
	_ = g.Wait()

	// 失败的地区不进入聚合输入：对聚合而言它们只是“不存在”。
	input := make(map[string]domain.CountryChart, len(countries))
	succeeded := 0
	for i, res := range results {
		if res.Status != domain.CountryStatusOK {
			continue
		}
		input[res.Country] = charts[i]
		succeeded++
	}

	if obs != nil {
		obs.OnPhaseDone("fetch", map[string]any{
			"succeeded": succeeded,
			"failed":    len(countries) - succeeded,
		}, time.Since(fetchStarted))
	}

	aggStarted := time.Now()
	records := overlap.Aggregate(input, eff.MinCountries)
	stats := overlap.Summarize(records, eff.ReachThreshold)

	if obs != nil {
		obs.OnPhaseDone("aggregate", map[string]any{
			"artists":      stats.Artists,
			"global_reach": stats.GlobalReach,
		}, time.Since(aggStarted))
	}

	rr.Countries = results
	rr.Artists = records
	rr.Summary.GlobalReach = stats.GlobalReach
	rr.Summary.MaxCountries = stats.MaxCountries
	rr.Quality = overlap.CheckQuality(records, overlap.DefaultExpectedArtists)
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func abort(rr domain.RunReport, code, msg string) domain.RunReport {
	rr.ErrorCode = code
	rr.ErrorMsg = msg
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// fetchOne 处理单个地区：取 HTML（网络或 cache）=> 解析 => 规范化/去重。
func fetchOne(ctx context.Context, eff config.EffectiveConfig, src chart.Source, c *http.Client, store cache.Store, country chart.Country) (domain.CountryResult, domain.CountryChart) {
	res := domain.CountryResult{
		Country: country.Name,
		Slug:    country.Slug,
		PageURL: src.PageURL(country.Slug),
		Status:  domain.CountryStatusOK, // 失败时覆盖
		Top:     []string{},
	}

	var (
		raws []string
		err  error
	)
	if eff.Offline {
		html, ok, rerr := store.ReadChart(src.Name(), country.Slug)
		if rerr != nil || !ok {
			res.Status = domain.CountryStatusFailed
			res.ErrorCode = domain.ErrCodeCacheMiss
			if rerr != nil {
				res.ErrorMsg = fmt.Sprintf("读取缓存失败：%v", rerr)
			} else {
				res.ErrorMsg = "offline 模式下没有该地区的缓存页面；请先在线运行一次"
			}
			return res, nil
		}
		raws, err = chart.ParseCached(src, html, eff.TopN)
	} else {
		var (
			html    []byte
			pageURL string
		)
		raws, pageURL, html, err = chart.FetchParse(ctx, src, country.Slug, eff.TopN, c)
		if pageURL != "" {
			res.PageURL = pageURL
		}
		// 页面已经拿到（即使解析失败）就写入缓存，便于离线排查站点结构变化。
		if len(html) > 0 && !store.ReadOnly {
			_ = store.WriteChart(src.Name(), country.Slug, html)
		}
	}
	if err != nil {
		fillSourceError(&res, err)
		return res, nil
	}

	ch := artist.Extract(raws, eff.TopN)
	if len(ch) == 0 {
		res.Status = domain.CountryStatusFailed
		res.ErrorCode = domain.ErrCodeEmptyChart
		res.ErrorMsg = "榜单页中没有解析出任何艺人"
		return res, nil
	}

	res.Artists = len(ch)
	top := ch
	if len(top) > topPreview {
		top = top[:topPreview]
	}
	res.Top = top.Strings()
	return res, ch
}

func fillSourceError(res *domain.CountryResult, err error) {
	res.Status = domain.CountryStatusFailed

	var ce *chart.Error
	if errors.As(err, &ce) {
		switch ce.Stage {
		case chart.StageParse:
			res.ErrorCode = domain.ErrCodeParseFailed
			res.ErrorMsg = humanizeParseError(ce.Source, ce.Err)
		default:
			res.ErrorCode = domain.ErrCodeFetchFailed
			res.ErrorMsg = humanizeFetchError(ce.Source, ce.Err)
		}
		return
	}

	res.ErrorCode = domain.ErrCodeFetchFailed
	res.ErrorMsg = err.Error()
}

func humanizeFetchError(sourceName string, err error) string {
	if err == nil {
		return sourceName + " 抓取失败"
	}

	var hs *chart.HTTPStatusError
	if errors.As(err, &hs) {
		switch {
		case hs.Throttled():
			return fmt.Sprintf("%s 返回 HTTP %d（可能触发限流）。建议调大 delay_ms 或配置 proxy.url。", sourceName, hs.StatusCode)
		case hs.StatusCode == http.StatusNotFound:
			return fmt.Sprintf("%s 返回 HTTP 404（该地区可能没有此榜单）。", sourceName)
		default:
			return fmt.Sprintf("%s 返回 HTTP %d。", sourceName, hs.StatusCode)
		}
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Sprintf("%s 抓取被取消。", sourceName)
	}
	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return fmt.Sprintf("%s 抓取超时。建议检查网络/代理后重试。", sourceName)
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") {
		return fmt.Sprintf("%s 连接失败（TLS）。可设置 base_url 指向可用镜像，或配置 proxy.url。", sourceName)
	}
	return fmt.Sprintf("%s 抓取失败：%v", sourceName, err)
}

func humanizeParseError(sourceName string, err error) string {
	if errors.Is(err, chart.ErrNoRows) {
		return fmt.Sprintf("%s 页面中没有榜单表格（站点结构可能变化或返回了非榜单页）。", sourceName)
	}
	return fmt.Sprintf("%s 解析失败：%v", sourceName, err)
}
