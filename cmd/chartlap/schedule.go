package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"
)

// newScheduler 使用标准 5 段 cron 表达式；上一次还没跑完时跳过本次触发。
func newScheduler(opts ...cron.Option) *cron.Cron {
	opts = append([]cron.Option{cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))}, opts...)
	return cron.New(opts...)
}

// runScheduled 先立即执行一次 job，然后按 spec 在 c 上重复执行，直到 ctx 结束。
// 返回前会等待正在执行的 job 结束。
func runScheduled(ctx context.Context, c *cron.Cron, spec string, w io.Writer, job func()) error {
	id, err := c.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("schedule 无效：%w", err)
	}

	job()
	if ctx.Err() != nil {
		return nil
	}

	c.Start()
	if w != nil {
		fmt.Fprintf(w, "[%s] 已进入定时模式（%s），下次运行：%s；Ctrl+C 退出\n",
			time.Now().Format("15:04:05"), spec, c.Entry(id).Schedule.Next(time.Now()).Format("2006-01-02 15:04:05"))
	}

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
