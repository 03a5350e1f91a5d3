package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	CountryStatusOK     = "ok"
	CountryStatusFailed = "failed"
)

const (
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeParseFailed   = "parse_failed"
	ErrCodeCacheMiss     = "cache_miss"
	ErrCodeEmptyChart    = "empty_chart"
	ErrCodeConfigInvalid = "config_invalid"
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
// artists.json 只包含其中的 Artists 字段。
type RunReport struct {
	RunID        string `json:"run_id"`
	Source       string `json:"source"`
	Offline      bool   `json:"offline"`
	MinCountries int    `json:"min_countries"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// ErrorCode/ErrorMsg 仅在整个 run 无法开始时非空（例如 source 未注册）。
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	Summary   ReportSummary   `json:"summary"`
	Quality   Quality         `json:"quality"`
	Countries []CountryResult `json:"countries"`
	Artists   []OverlapRecord `json:"artists"`
}

type ReportSummary struct {
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	Artists      int `json:"artists"`
	GlobalReach  int `json:"global_reach"`
	MaxCountries int `json:"max_countries"`
}

// CountryResult 记录单个国家的抓取结果。失败的国家不进入聚合输入。
type CountryResult struct {
	Country string `json:"country"`
	Slug    string `json:"slug"`
	PageURL string `json:"page_url"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Artists int      `json:"artists"`
	Top     []string `json:"top"`
}

// Quality 是对结果“像不像真实榜单”的粗略检查。
type Quality struct {
	Matches  int     `json:"matches"`
	Expected int     `json:"expected"`
	Score    float64 `json:"score"`
	Good     bool    `json:"good"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) countries 按国家名稳定排序
// 3) summary 中的成功/失败/艺人数由明细计算得出（GlobalReach/MaxCountries 由调用方填写）
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Countries == nil {
		r.Countries = []CountryResult{}
	}
	if r.Artists == nil {
		r.Artists = []OverlapRecord{}
	}

	sort.SliceStable(r.Countries, func(i, j int) bool {
		return r.Countries[i].Country < r.Countries[j].Country
	})

	r.Summary.Succeeded = 0
	r.Summary.Failed = 0
	for _, c := range r.Countries {
		switch c.Status {
		case CountryStatusOK:
			r.Summary.Succeeded++
		case CountryStatusFailed:
			r.Summary.Failed++
		}
	}
	r.Summary.Artists = len(r.Artists)
}

// FailedCountries 返回失败国家名（已排序；Finalize 之后调用）。
func (r RunReport) FailedCountries() []string {
	out := make([]string, 0, r.Summary.Failed)
	for _, c := range r.Countries {
		if c.Status == CountryStatusFailed {
			out = append(out, c.Country)
		}
	}
	return out
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
