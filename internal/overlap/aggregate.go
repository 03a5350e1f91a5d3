package overlap

import (
	"sort"

	"github.com/John-Robertt/chartlap/internal/domain"
)

// Aggregate 统计每个艺人出现在哪些国家的榜单中，并按覆盖国家数排名。
//
// - 只输出出现国家数 >= minCountries 的艺人（minCountries < 1 视为 1）
// - 排序：国家数降序；相同则按艺人名字典序
// - 每条记录的国家列表按字典序排序且无重复
// - 不修改输入；输入为空或无人达标时返回空切片（非 nil）
func Aggregate(charts map[string]domain.CountryChart, minCountries int) []domain.OverlapRecord {
	if minCountries < 1 {
		minCountries = 1
	}

	sets := make(map[domain.ArtistName]map[string]struct{}, 256)
	for country, artists := range charts {
		for _, a := range artists {
			if a == "" {
				continue
			}
			set, ok := sets[a]
			if !ok {
				set = make(map[string]struct{}, 4)
				sets[a] = set
			}
			set[country] = struct{}{}
		}
	}

	out := make([]domain.OverlapRecord, 0, len(sets))
	for a, set := range sets {
		if len(set) < minCountries {
			continue
		}
		countries := make([]string, 0, len(set))
		for c := range set {
			countries = append(countries, c)
		}
		sort.Strings(countries)
		out = append(out, domain.OverlapRecord{
			Artist:    a,
			Countries: countries,
			Count:     len(countries),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Artist < out[j].Artist
	})
	return out
}
