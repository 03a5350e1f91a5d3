package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

func waitClosed(t *testing.T, ch <-chan struct{}, d time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		t.Fatalf("等待超时：%s", what)
	}
}

func TestRunScheduled_RunsNowThenOnTickAndStopsAfterInFlightJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		calls     atomic.Int32
		active    atomic.Int32
		maxActive atomic.Int32
		finished  atomic.Bool
	)
	first := make(chan struct{})
	second := make(chan struct{})
	third := make(chan struct{})

	job := func() {
		n := calls.Add(1)
		a := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if a <= m || maxActive.CompareAndSwap(m, a) {
				break
			}
		}

		switch n {
		case 1:
			close(first)
		case 2:
			close(second)
			// 跨过后续几个触发点：这些触发必须被跳过而不是并发执行。
			time.Sleep(1500 * time.Millisecond)
		case 3:
			close(third)
			time.Sleep(300 * time.Millisecond)
			finished.Store(true)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- runScheduled(ctx, newScheduler(cron.WithSeconds()), "* * * * * *", nil, job)
	}()

	waitClosed(t, first, time.Second, "启动后应立即运行一次")
	waitClosed(t, second, 3*time.Second, "应按计划再次运行")
	waitClosed(t, third, 5*time.Second, "长任务结束后应继续按计划运行")

	// 第三次运行仍在进行中时取消。
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("不期望错误：%v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("取消后 runScheduled 应返回")
	}

	if !finished.Load() {
		t.Fatalf("runScheduled 应等待进行中的任务结束后再返回")
	}
	if maxActive.Load() != 1 {
		t.Fatalf("任务不应并发执行，最大并发 %d", maxActive.Load())
	}
}

func TestRunScheduled_InvalidSpecDoesNotRunJob(t *testing.T) {
	var calls atomic.Int32
	err := runScheduled(context.Background(), newScheduler(), "every day", nil, func() { calls.Add(1) })
	if err == nil {
		t.Fatalf("期望 schedule 无效的错误")
	}
	if calls.Load() != 0 {
		t.Fatalf("schedule 无效时不应运行任务")
	}
}

func TestRunScheduled_CancelledDuringFirstRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	err := runScheduled(ctx, newScheduler(cron.WithSeconds()), "* * * * * *", nil, func() {
		calls.Add(1)
		cancel()
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	time.Sleep(1200 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("首次运行中被取消后不应再进入定时模式，实际运行 %d 次", calls.Load())
	}
}
