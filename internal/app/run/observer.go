package run

import (
	"time"

	"github.com/John-Robertt/chartlap/internal/config"
	"github.com/John-Robertt/chartlap/internal/domain"
)

// Observer 用于把“运行进度/阶段/地区结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - Observer 的实现必须并发安全：事件可能来自多个 goroutine。
type Observer interface {
	// OnStart 在抓取开始前调用；total 是要抓取的地区数。
	OnStart(eff config.EffectiveConfig, total int)
	// OnCountryDone 在某个地区处理完成时调用（成功或失败）。
	OnCountryDone(idx, total int, res domain.CountryResult, dur time.Duration)
	// OnPhaseDone 在阶段结束时调用（fetch / aggregate）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
}
