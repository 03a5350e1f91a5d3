package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/chartlap/internal/config"
	"github.com/John-Robertt/chartlap/internal/domain"
)

func TestProgressUI_CountryLines(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)

	p.OnStart(config.EffectiveConfig{Source: "daily", Concurrency: 1, Output: "/tmp/artists.json"}, 2)
	p.OnCountryDone(1, 2, domain.CountryResult{
		Country: "USA",
		Status:  domain.CountryStatusOK,
		Artists: 50,
		Top:     []string{"Taylor Swift", "Drake", "Morgan Wallen"},
	}, 1500*time.Millisecond)
	p.OnCountryDone(2, 2, domain.CountryResult{
		Country:   "Atlantis",
		Status:    domain.CountryStatusFailed,
		ErrorCode: domain.ErrCodeFetchFailed,
		ErrorMsg:  "daily 返回 HTTP 404",
	}, 200*time.Millisecond)
	p.OnPhaseDone("fetch", map[string]any{"succeeded": 1, "failed": 1}, 2*time.Second)

	out := buf.String()
	for _, want := range []string{
		"[1/2] USA OK artists=50 top=Taylor Swift, Drake, Morgan Wallen (1.5s)",
		"[2/2] Atlantis FAIL fetch_failed: daily 返回 HTTP 404 (0.2s)",
		"抓取: succeeded=1 failed=1",
		"artists: /tmp/artists.json",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}

	p.mu.Lock()
	started := p.tickerStarted
	p.mu.Unlock()
	if started {
		t.Fatalf("全部完成后 ticker 应已停止")
	}
}

func TestFormatProxy(t *testing.T) {
	if got := formatProxy(""); got != "off" {
		t.Fatalf("空代理应为 off：%q", got)
	}
	if got := formatProxy("http://u:p@127.0.0.1:7890"); got != "on (http://127.0.0.1:7890, auth=on)" {
		t.Fatalf("不应泄露凭据：%q", got)
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	if got := truncate("Rosalía Rosalía", 8); got != "Rosal..." {
		t.Fatalf("截断结果不符合预期：%q", got)
	}
}
