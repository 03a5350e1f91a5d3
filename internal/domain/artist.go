package domain

// ArtistName 是单个表演者的规范名，也是聚合主键。
//
// 不变量：非空、无首尾空白、内部空白已折叠为单个空格。
// 同一主表演者的不同署名必须规范化为同一个 ArtistName，否则无法合并。
type ArtistName string

// CountryChart 是某个国家榜单中按名次排列的艺人序列。
// 抽取阶段已去重：同一榜单内不会出现重复的 ArtistName。
type CountryChart []ArtistName

// Strings 返回按原顺序排列的普通字符串切片（用于输出/日志）。
func (c CountryChart) Strings() []string {
	out := make([]string, 0, len(c))
	for _, a := range c {
		out = append(out, string(a))
	}
	return out
}
