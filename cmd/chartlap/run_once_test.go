package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/chartlap/internal/chart"
	"github.com/John-Robertt/chartlap/internal/chart/kworb"
	"github.com/John-Robertt/chartlap/internal/config"
	"github.com/John-Robertt/chartlap/internal/domain"
)

// cancelAfter 在第 n 个地区完成后取消运行（模拟 Ctrl+C）。
type cancelAfter struct {
	n      int
	cancel context.CancelFunc

	mu   sync.Mutex
	seen []domain.CountryResult
}

func (o *cancelAfter) OnStart(config.EffectiveConfig, int) {}

func (o *cancelAfter) OnPhaseDone(string, map[string]any, time.Duration) {}

func (o *cancelAfter) OnCountryDone(idx, total int, res domain.CountryResult, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, res)
	if idx == o.n {
		o.cancel()
	}
}

func newRunOnceFixture(t *testing.T) (config.EffectiveConfig, chart.Registry) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/spotify/country/"), "_daily.html")
		fmt.Fprintf(w, `<table><tr><td>1</td><td><a href="#">Shared Artist</a></td></tr><tr><td>2</td><td><a href="#">Local %s</a></td></tr></table>`, slug)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	eff := config.EffectiveConfig{
		Dir:          dir,
		Output:       filepath.Join(dir, "artists.json"),
		Source:       kworb.PeriodDaily,
		MinCountries: 2,
		TopN:         50,
		Concurrency:  1,
		Timeout:      5 * time.Second,
		BaseURL:      srv.URL,
		Countries: map[string]string{
			"Aland":   "ax",
			"Belize":  "bz",
			"Chad":    "td",
			"Denmark": "dk",
		},
		ReachThreshold: 5,
	}
	reg, err := chart.NewRegistry(kworb.Source{Period: kworb.PeriodDaily, BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return eff, reg
}

func TestRunOnce_InterruptedKeepsPreviousOutput(t *testing.T) {
	eff, reg := newRunOnceFixture(t)

	const previous = "PREVIOUS COMPLETE RUN\n"
	if err := os.WriteFile(eff.Output, []byte(previous), 0o644); err != nil {
		t.Fatalf("写入旧结果失败：%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := &cancelAfter{n: 2, cancel: cancel}

	code := runOnce(ctx, eff, reg, obs, nil)
	if code == 0 {
		t.Fatalf("被中断的运行不应返回 0")
	}

	got, err := os.ReadFile(eff.Output)
	if err != nil {
		t.Fatalf("读取 artists.json 失败：%v", err)
	}
	if string(got) != previous {
		t.Fatalf("被中断时不应覆盖 artists.json，实际：%q", got)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.seen) != 4 {
		t.Fatalf("期望 4 个地区事件，实际 %d", len(obs.seen))
	}
	if obs.seen[0].Status != domain.CountryStatusOK || obs.seen[1].Status != domain.CountryStatusOK {
		t.Fatalf("取消前的地区应成功：%+v", obs.seen[:2])
	}
}

func TestRunOnce_CompleteRunReplacesOutput(t *testing.T) {
	eff, reg := newRunOnceFixture(t)

	if err := os.WriteFile(eff.Output, []byte("stale\n"), 0o644); err != nil {
		t.Fatalf("写入旧结果失败：%v", err)
	}

	if code := runOnce(context.Background(), eff, reg, nil, nil); code != 0 {
		t.Fatalf("完整运行应返回 0，实际 %d", code)
	}

	got, err := os.ReadFile(eff.Output)
	if err != nil {
		t.Fatalf("读取 artists.json 失败：%v", err)
	}
	if !strings.Contains(string(got), `"artist": "Shared Artist"`) || !strings.Contains(string(got), `"country_count": 4`) {
		t.Fatalf("artists.json 内容不符合预期：%s", got)
	}
}
