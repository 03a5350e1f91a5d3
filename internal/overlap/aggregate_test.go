package overlap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/chartlap/internal/domain"
)

func threeCountries() map[string]domain.CountryChart {
	return map[string]domain.CountryChart{
		"USA":    {"Taylor Swift", "Drake"},
		"UK":     {"Drake", "Dua Lipa"},
		"Canada": {"Drake", "Taylor Swift"},
	}
}

func TestAggregate_EndToEndScenario(t *testing.T) {
	got := Aggregate(threeCountries(), 2)

	want := []domain.OverlapRecord{
		{Artist: "Drake", Countries: []string{"Canada", "UK", "USA"}, Count: 3},
		{Artist: "Taylor Swift", Countries: []string{"Canada", "USA"}, Count: 2},
	}
	assert.Equal(t, want, got)
}

func TestAggregate_EmptyInput(t *testing.T) {
	got := Aggregate(map[string]domain.CountryChart{}, 2)
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = Aggregate(nil, 2)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregate_NoneMeetsThreshold(t *testing.T) {
	got := Aggregate(threeCountries(), 4)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregate_Idempotent(t *testing.T) {
	in := threeCountries()
	a := Aggregate(in, 1)
	b := Aggregate(in, 1)
	assert.Equal(t, a, b)
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	in := threeCountries()
	_ = Aggregate(in, 1)
	assert.Equal(t, threeCountries(), in)
}

func TestAggregate_DuplicateArtistInOneCountry(t *testing.T) {
	in := map[string]domain.CountryChart{
		"USA": {"Drake", "Drake", "Drake"},
		"UK":  {"Drake"},
	}
	got := Aggregate(in, 1)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"UK", "USA"}, got[0].Countries)
	assert.Equal(t, 2, got[0].Count)
}

func TestAggregate_ThresholdAndRankingProperties(t *testing.T) {
	in := map[string]domain.CountryChart{
		"A": {"x", "y", "z", "w"},
		"B": {"x", "y", "z"},
		"C": {"x", "y", "q"},
		"D": {"x", "q"},
		"E": {"solo"},
	}

	for _, min := range []int{1, 2, 3, 4} {
		got := Aggregate(in, min)

		seen := map[domain.ArtistName]bool{}
		for i, r := range got {
			assert.GreaterOrEqual(t, r.Count, min)
			assert.Len(t, r.Countries, r.Count)
			assert.IsNonDecreasing(t, r.Countries)
			seen[r.Artist] = true
			if i > 0 {
				prev := got[i-1]
				require.GreaterOrEqual(t, prev.Count, r.Count, "排序必须按国家数降序")
				if prev.Count == r.Count {
					assert.Less(t, string(prev.Artist), string(r.Artist), "同分按艺人名字典序")
				}
			}
		}

		// 未出现在结果中的艺人，国家数必然 < min。
		counts := map[domain.ArtistName]int{}
		for _, artists := range in {
			for _, a := range artists {
				counts[a]++
			}
		}
		for a, n := range counts {
			if !seen[a] {
				assert.Less(t, n, min, "artist=%s", a)
			}
		}
	}
}

func TestAggregate_TieBreakAlphabetical(t *testing.T) {
	in := map[string]domain.CountryChart{
		"USA": {"Zara Larsson", "Adele", "Mitski"},
		"UK":  {"Mitski", "Zara Larsson", "Adele"},
	}
	got := Aggregate(in, 2)
	require.Len(t, got, 3)
	assert.Equal(t, domain.ArtistName("Adele"), got[0].Artist)
	assert.Equal(t, domain.ArtistName("Mitski"), got[1].Artist)
	assert.Equal(t, domain.ArtistName("Zara Larsson"), got[2].Artist)
}

func TestAggregate_ZeroThresholdClampedToOne(t *testing.T) {
	got := Aggregate(threeCountries(), 0)
	assert.Len(t, got, 3)
}
