package artist

import (
	"strings"

	"github.com/John-Robertt/chartlap/internal/domain"
)

// 合作署名分隔符，按优先级排列（区分大小写）。
// 只应用第一个命中的分隔符，切分后不再重新扫描。
// 注意：这与逐个分隔符链式切分不同（链式切分下 "A & B feat. C" => "A"）；
// 这里得到 "A & B"，与 "A x B feat. C" => "A x B" 保持同一规则。
var delimiters = []string{
	"feat.",
	"ft.",
	"featuring",
	" x ",
	" & ",
	" and ",
}

// Normalize 把榜单条目中的署名规范化为单个主表演者名。
//
// 例：
//   - "Drake feat. 21 Savage" => "Drake"
//   - "A x B feat. C"         => "A x B"（feat. 优先级高于 " x "）
//
// 输入为空或清理后为空时返回 ok=false，调用方必须跳过该条目。
func Normalize(raw string) (domain.ArtistName, bool) {
	if raw == "" {
		return "", false
	}

	s := raw
	for _, d := range delimiters {
		if i := strings.Index(s, d); i >= 0 {
			s = s[:i]
			break
		}
	}

	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", false
	}
	return domain.ArtistName(s), true
}

// Extract 把一个国家榜单的原始署名序列转换为 CountryChart。
//
// - 保持名次顺序；同名只保留首次出现
// - 规范化失败的条目直接跳过
// - topN > 0 时最多保留 topN 个艺人
func Extract(raws []string, topN int) domain.CountryChart {
	capHint := len(raws)
	if topN > 0 && topN < capHint {
		capHint = topN
	}
	seen := make(map[domain.ArtistName]struct{}, capHint)
	out := make(domain.CountryChart, 0, capHint)

	for _, raw := range raws {
		name, ok := Normalize(raw)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
		if topN > 0 && len(out) >= topN {
			break
		}
	}
	return out
}
