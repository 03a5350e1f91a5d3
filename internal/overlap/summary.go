package overlap

import (
	"strings"

	"github.com/John-Robertt/chartlap/internal/domain"
)

// DefaultReachThreshold 是“全球影响力”艺人的最少国家数。
const DefaultReachThreshold = 5

// DefaultExpectedArtists 是用于质量检查的“当下应该上榜”的艺人（小写）。
var DefaultExpectedArtists = []string{
	"taylor swift",
	"the weeknd",
	"bad bunny",
	"olivia rodrigo",
	"dua lipa",
}

const (
	qualityTopK      = 10
	qualityGoodScore = 0.4
)

type Stats struct {
	Artists      int
	GlobalReach  int
	MaxCountries int
}

// Summarize 计算结果的概要统计。reachThreshold <= 0 时使用 DefaultReachThreshold。
func Summarize(records []domain.OverlapRecord, reachThreshold int) Stats {
	if reachThreshold <= 0 {
		reachThreshold = DefaultReachThreshold
	}
	s := Stats{Artists: len(records)}
	for _, r := range records {
		if r.Count >= reachThreshold {
			s.GlobalReach++
		}
		if r.Count > s.MaxCountries {
			s.MaxCountries = r.Count
		}
	}
	return s
}

// CheckQuality 检查排名前 10 的艺人中命中了多少 expected（小写子串匹配）。
// score >= 0.4 视为数据可信；records 为空时直接判定不可信。
func CheckQuality(records []domain.OverlapRecord, expected []string) domain.Quality {
	q := domain.Quality{Expected: len(expected)}
	if len(records) == 0 || len(expected) == 0 {
		return q
	}

	top := records
	if len(top) > qualityTopK {
		top = top[:qualityTopK]
	}
	names := make([]string, 0, len(top))
	for _, r := range top {
		names = append(names, strings.ToLower(string(r.Artist)))
	}

	for _, e := range expected {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		for _, n := range names {
			if strings.Contains(n, e) {
				q.Matches++
				break
			}
		}
	}

	q.Score = float64(q.Matches) / float64(len(expected))
	q.Good = q.Score >= qualityGoodScore
	return q
}
