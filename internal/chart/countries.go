package chart

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Country 是一个榜单地区：显示名 + kworb 的地区代码（例如 USA => us）。
type Country struct {
	Name string
	Slug string
}

// defaultCountries 是内置地区列表（含 Global 全球榜）。
var defaultCountries = map[string]string{
	"Global":         "global",
	"USA":            "us",
	"Canada":         "ca",
	"UK":             "gb",
	"Germany":        "de",
	"France":         "fr",
	"Australia":      "au",
	"Netherlands":    "nl",
	"Spain":          "es",
	"Italy":          "it",
	"Sweden":         "se",
	"Norway":         "no",
	"Denmark":        "dk",
	"Finland":        "fi",
	"Poland":         "pl",
	"Czech Republic": "cz",
	"Belgium":        "be",
	"Switzerland":    "ch",
	"Austria":        "at",
	"Portugal":       "pt",
	"Ireland":        "ie",
	"Brazil":         "br",
	"Mexico":         "mx",
	"Argentina":      "ar",
	"Chile":          "cl",
	"Colombia":       "co",
	"Israel":         "il",
	"South Africa":   "za",
	"New Zealand":    "nz",
	"Japan":          "jp",
	"South Korea":    "kr",
	"India":          "in",
	"Singapore":      "sg",
	"Thailand":       "th",
	"Philippines":    "ph",
	"Malaysia":       "my",
	"Indonesia":      "id",
	"Taiwan":         "tw",
	"Hong Kong":      "hk",
	"Turkey":         "tr",
	"Romania":        "ro",
	"Bulgaria":       "bg",
	"Hungary":        "hu",
	"Slovakia":       "sk",
	"Estonia":        "ee",
	"Latvia":         "lv",
	"Lithuania":      "lt",
	"Croatia":        "hr",
	"Peru":           "pe",
	"Uruguay":        "uy",
	"Venezuela":      "ve",
	"Costa Rica":     "cr",
}

var slugRE = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidSlug 做最小校验：slug 会被拼进 URL 与 cache 路径，禁止路径穿越。
func ValidSlug(s string) bool {
	return slugRE.MatchString(s)
}

// Catalog 返回要抓取的地区列表（按显示名排序，保证日志/报告稳定）。
// override 为空时使用内置列表。
func Catalog(override map[string]string) ([]Country, error) {
	src := override
	if len(src) == 0 {
		src = defaultCountries
	}

	out := make([]Country, 0, len(src))
	seen := make(map[string]string, len(src))
	for name, slug := range src {
		name = strings.TrimSpace(name)
		slug = strings.ToLower(strings.TrimSpace(slug))
		if name == "" {
			return nil, fmt.Errorf("地区名不能为空（slug=%q）", slug)
		}
		if !ValidSlug(slug) {
			return nil, fmt.Errorf("地区 %q 的 slug 非法：%q", name, slug)
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("重复的地区名：%q（%s / %s）", name, prev, slug)
		}
		seen[name] = slug
		out = append(out, Country{Name: name, Slug: slug})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
