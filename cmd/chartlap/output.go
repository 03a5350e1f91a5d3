package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/John-Robertt/chartlap/internal/domain"
	"github.com/John-Robertt/chartlap/internal/infra/fsx"
)

const (
	// 终端展示的艺人数。
	displayTopN = 20
	// 每个艺人最多列出的地区数，其余折叠为 "(+N more)"。
	displayCountries = 6
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	rankStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	artistStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8B500"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))
)

// encodeArtists 生成 artists.json 的内容：UTF-8 原样输出（不转义 & < > 与非 ASCII），2 空格缩进，末尾换行。
func encodeArtists(records []domain.OverlapRecord) ([]byte, error) {
	if records == nil {
		records = []domain.OverlapRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeArtistsFile 原子替换 path（读者永远看不到写了一半的文件）。
func writeArtistsFile(path string, records []domain.OverlapRecord) error {
	b, err := encodeArtists(records)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b)
}

func formatCountries(countries []string, max int) string {
	if max <= 0 || len(countries) <= max {
		return strings.Join(countries, ", ")
	}
	return strings.Join(countries[:max], ", ") + fmt.Sprintf(" (+%d more)", len(countries)-max)
}

// renderResults 生成交互终端下的结果摘要：排名前 n 的艺人与数据质量检查。
func renderResults(rr domain.RunReport, n, reach int) string {
	var b strings.Builder

	b.WriteString("\n")
	shown := len(rr.Artists)
	if n > 0 && shown > n {
		shown = n
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("跨 %d+ 个地区上榜的艺人：%d（展示前 %d）", rr.MinCountries, len(rr.Artists), shown)))
	b.WriteString("\n\n")

	for i, r := range rr.Artists[:shown] {
		fmt.Fprintf(&b, "%s %s\n", rankStyle.Render(fmt.Sprintf("%2d.", i+1)), artistStyle.Render(string(r.Artist)))
		fmt.Fprintf(&b, "    %s %s\n", countStyle.Render(fmt.Sprintf("%d countries:", r.Count)), formatCountries(r.Countries, displayCountries))
	}
	if shown > 0 {
		b.WriteString("\n")
	}

	q := rr.Quality
	line := fmt.Sprintf("数据质量：命中 %d/%d 个预期艺人（%.0f%%）", q.Matches, q.Expected, q.Score*100)
	if q.Good {
		b.WriteString(goodStyle.Render(line + " GOOD"))
	} else {
		b.WriteString(warnStyle.Render(line + " QUESTIONABLE，可能需要人工核对"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "global reach（%d+ 个地区）：%d\n", reach, rr.Summary.GlobalReach)
	return b.String()
}
