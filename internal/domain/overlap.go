package domain

// OverlapRecord 描述一个艺人出现在哪些国家的榜单中。
//
// 不变量：
// - Countries 已按字典序排序且无重复
// - Count == len(Countries)
type OverlapRecord struct {
	Artist    ArtistName `json:"artist"`
	Countries []string   `json:"countries_charted"`
	Count     int        `json:"country_count"`
}
