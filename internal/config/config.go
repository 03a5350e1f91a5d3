package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/John-Robertt/chartlap/internal/chart"
)

const (
	// ErrCodeNotFound 表示通过 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是工作目录下的默认配置文件名（可选）。
	FileName = "chartlap.json"

	DefaultOutput         = "artists.json"
	DefaultSource         = "daily"
	DefaultMinCountries   = 2
	DefaultTopN           = 50
	DefaultDelayMS        = 1200
	DefaultConcurrency    = 1
	DefaultTimeoutSec     = 15
	DefaultReachThreshold = 5

	maxConcurrency = 8
	// kworb 地区榜单页最多 200 行。
	maxTopN = 200
)

// 环境变量（也可以写在工作目录的 .env 中）。
const (
	EnvProxyURL     = "CHARTLAP_PROXY_URL"
	EnvBaseURL      = "CHARTLAP_BASE_URL"
	EnvMinCountries = "CHARTLAP_MIN_COUNTRIES"
)

// CLIArgs 保留“是否显式指定”的信息，保证覆盖优先级可实现：
// 例如 --offline=false 必须能覆盖 config.offline=true。
type CLIArgs struct {
	ConfigPath string
	Output     string
	Source     string
	Schedule   string

	MinCountries    int
	MinCountriesSet bool

	TopN    int
	TopNSet bool

	Offline    bool
	OfflineSet bool
}

// FileConfig 对应 chartlap.json 的解析结构。
type FileConfig struct {
	Output         string            `json:"output"`
	Source         string            `json:"source"`
	MinCountries   *int              `json:"min_countries"`
	TopN           *int              `json:"top_n"`
	DelayMS        *int              `json:"delay_ms"`
	Concurrency    int               `json:"concurrency"`
	TimeoutSec     int               `json:"timeout_sec"`
	Proxy          *ProxyConfig      `json:"proxy"`
	BaseURL        string            `json:"base_url"`
	Offline        *bool             `json:"offline"`
	Countries      map[string]string `json:"countries"`
	Schedule       string            `json:"schedule"`
	ReachThreshold int               `json:"reach_threshold"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Dir 是工作目录（cache 根目录）。
	Dir string
	// Output 是 artists.json 的绝对路径。
	Output string

	Source       string
	MinCountries int
	TopN         int

	Delay       time.Duration
	Concurrency int
	Timeout     time.Duration
	ProxyURL    string
	BaseURL     string
	Offline     bool

	// Countries 为空表示使用内置地区列表。
	Countries map[string]string

	Schedule       string
	ReachThreshold int
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取配置文件与环境变量，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试读取 <cwd>/chartlap.json（可选）
// 3) <cwd>/.env 若存在则载入（不覆盖已有环境变量）
//
// 覆盖优先级（固定）：CLI > 环境变量 > 配置文件 > 默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	// .env 可选；存在但无法解析时报错，而不是静默忽略。
	envPath := filepath.Join(cwdAbs, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
		}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, _, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	output := DefaultOutput
	if strings.TrimSpace(cli.Output) != "" {
		output = cli.Output
	} else if strings.TrimSpace(fc.Output) != "" {
		output = fc.Output
	}
	output = absCleanFrom(cwdAbs, output)

	source := DefaultSource
	if strings.TrimSpace(cli.Source) != "" {
		source = cli.Source
	} else if strings.TrimSpace(fc.Source) != "" {
		source = fc.Source
	}
	source = strings.ToLower(strings.TrimSpace(source))
	if err := validateSource(source); err != nil {
		return invalid("%v", err)
	}

	// min_countries：CLI > env > config > 默认
	minCountries := DefaultMinCountries
	switch {
	case cli.MinCountriesSet:
		minCountries = cli.MinCountries
	case envSet(EnvMinCountries):
		n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvMinCountries)))
		if err != nil {
			return invalid("%s 不是整数：%q", EnvMinCountries, os.Getenv(EnvMinCountries))
		}
		minCountries = n
	case fc.MinCountries != nil:
		minCountries = *fc.MinCountries
	}
	if minCountries < 1 {
		return invalid("min_countries 必须 >= 1，实际是 %d", minCountries)
	}

	topN := DefaultTopN
	if cli.TopNSet {
		topN = cli.TopN
	} else if fc.TopN != nil {
		topN = *fc.TopN
	}
	if topN < 1 || topN > maxTopN {
		return invalid("top_n 必须在 [1, %d] 范围内，实际是 %d", maxTopN, topN)
	}

	delayMS := DefaultDelayMS
	if fc.DelayMS != nil {
		delayMS = *fc.DelayMS
	}
	if delayMS < 0 {
		return invalid("delay_ms 不能为负数：%d", delayMS)
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 对站点保持礼貌：范围 [1, 8]，超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}

	timeoutSec := fc.TimeoutSec
	if timeoutSec < 0 {
		return invalid("timeout_sec 不能为负数：%d", timeoutSec)
	}
	if timeoutSec == 0 {
		timeoutSec = DefaultTimeoutSec
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if envSet(EnvProxyURL) {
		proxyURL = strings.TrimSpace(os.Getenv(EnvProxyURL))
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return invalid("proxy.url 无效：%w", err)
		}
	}

	baseURL := strings.TrimSpace(fc.BaseURL)
	if envSet(EnvBaseURL) {
		baseURL = strings.TrimSpace(os.Getenv(EnvBaseURL))
	}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("base_url 无效：%q", baseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return invalid("base_url 必须是 http/https：%q", baseURL)
		}
	}

	offline := false
	if cli.OfflineSet {
		offline = cli.Offline
	} else if fc.Offline != nil {
		offline = *fc.Offline
	}

	var countries map[string]string
	if len(fc.Countries) > 0 {
		if _, err := chart.Catalog(fc.Countries); err != nil {
			return invalid("countries 无效：%w", err)
		}
		countries = make(map[string]string, len(fc.Countries))
		for k, v := range fc.Countries {
			countries[k] = v
		}
	}

	schedule := strings.TrimSpace(fc.Schedule)
	if strings.TrimSpace(cli.Schedule) != "" {
		schedule = strings.TrimSpace(cli.Schedule)
	}
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return invalid("schedule 不是合法的 cron 表达式：%q：%w", schedule, err)
		}
	}

	reach := fc.ReachThreshold
	if reach < 1 {
		reach = DefaultReachThreshold
	}

	return EffectiveConfig{
		Dir:            cwdAbs,
		Output:         output,
		Source:         source,
		MinCountries:   minCountries,
		TopN:           topN,
		Delay:          time.Duration(delayMS) * time.Millisecond,
		Concurrency:    concurrency,
		Timeout:        time.Duration(timeoutSec) * time.Second,
		ProxyURL:       proxyURL,
		BaseURL:        baseURL,
		Offline:        offline,
		Countries:      countries,
		Schedule:       schedule,
		ReachThreshold: reach,
	}, nil
}

func validateSource(s string) error {
	switch s {
	case "daily", "weekly":
		return nil
	case "":
		return fmt.Errorf("source 不能为空")
	default:
		return fmt.Errorf("source 只能是 daily 或 weekly，实际是 %q", s)
	}
}

func envSet(key string) bool {
	return strings.TrimSpace(os.Getenv(key)) != ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
