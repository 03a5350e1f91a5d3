package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/John-Robertt/chartlap/internal/app/run"
	"github.com/John-Robertt/chartlap/internal/chart"
	"github.com/John-Robertt/chartlap/internal/chart/kworb"
	"github.com/John-Robertt/chartlap/internal/config"
	"github.com/John-Robertt/chartlap/internal/domain"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, ra.CLIArgs)
	if err != nil {
		emitReport(reportForConfigError(err))
		return 1
	}

	reg, err := chart.NewRegistry(
		kworb.Source{Period: kworb.PeriodDaily, BaseURL: eff.BaseURL},
		kworb.Source{Period: kworb.PeriodWeekly, BaseURL: eff.BaseURL},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 source registry 失败：%v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressW, interactive := pickProgressWriter()

	once := func(ctx context.Context) int {
		var obs run.Observer
		if interactive {
			obs = newProgressUI(progressW)
		}
		return runOnce(ctx, eff, reg, obs, progressW)
	}

	if strings.TrimSpace(eff.Schedule) == "" {
		return once(ctx)
	}
	if err := runScheduled(ctx, newScheduler(), eff.Schedule, progressW, func() { once(ctx) }); err != nil {
		fmt.Fprintf(os.Stderr, "启动定时任务失败：%v\n", err)
		return 1
	}
	return 0
}

// runOnce 执行一次抓取 + 聚合，并按输出契约写 artists.json / stdout。
// 返回值为退出码：被中断、没有任何地区成功或写文件失败时为 1。
func runOnce(ctx context.Context, eff config.EffectiveConfig, reg chart.Registry, obs run.Observer, progressW io.Writer) int {
	rr := run.ExecuteWithObserver(ctx, eff, reg, obs)

	if rr.ErrorCode != "" {
		emitReport(rr)
		return 1
	}
	// 被中断的运行只有部分地区的数据，不能覆盖上一次完整的 artists.json。
	if ctx.Err() != nil {
		emitReport(rr)
		fmt.Fprintln(os.Stderr, "运行被中断；artists.json 未写入。")
		return 1
	}
	// 没有任何地区成功时不覆盖上一次的 artists.json。
	if rr.Summary.Succeeded == 0 {
		emitReport(rr)
		fmt.Fprintln(os.Stderr, "没有采集到任何地区的数据；请检查网络/代理后重试。artists.json 未写入。")
		return 1
	}

	if err := writeArtistsFile(eff.Output, rr.Artists); err != nil {
		emitReport(rr)
		fmt.Fprintf(os.Stderr, "写入 %s 失败：%v\n", eff.Output, err)
		return 1
	}

	emitReport(rr)
	if progressW != nil {
		fmt.Fprint(progressW, renderResults(rr, displayTopN, eff.ReachThreshold))
		fmt.Fprintf(progressW, "artists: %s\n", eff.Output)
	}
	return 0
}

type runArgs struct {
	config.CLIArgs
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	// value 同时支持 "--flag v" 与 "--flag=v" 两种写法。
	value := func(i *int, a, name string) (string, bool, error) {
		if a == name {
			if *i+1 >= len(args) {
				return "", true, fmt.Errorf("%s 需要一个值", name)
			}
			*i++
			return args[*i], true, nil
		}
		if strings.HasPrefix(a, name+"=") {
			return strings.TrimPrefix(a, name+"="), true, nil
		}
		return "", false, nil
	}
	positive := func(name, v string) (int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 {
			return 0, fmt.Errorf("%s 必须是正整数，实际是 %q", name, v)
		}
		return n, nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]

		if v, ok, err := value(&i, a, "--min-countries"); ok {
			if err != nil {
				return runArgs{}, err
			}
			n, err := positive("--min-countries", v)
			if err != nil {
				return runArgs{}, err
			}
			ra.MinCountries, ra.MinCountriesSet = n, true
			continue
		}
		if v, ok, err := value(&i, a, "--top"); ok {
			if err != nil {
				return runArgs{}, err
			}
			n, err := positive("--top", v)
			if err != nil {
				return runArgs{}, err
			}
			ra.TopN, ra.TopNSet = n, true
			continue
		}
		if v, ok, err := value(&i, a, "--source"); ok {
			if err != nil {
				return runArgs{}, err
			}
			switch v {
			case kworb.PeriodDaily, kworb.PeriodWeekly:
				ra.Source = v
			case "":
				return runArgs{}, fmt.Errorf("--source 不能为空")
			default:
				return runArgs{}, fmt.Errorf("--source 只能是 daily 或 weekly，实际是 %q", v)
			}
			continue
		}
		if v, ok, err := value(&i, a, "--output"); ok {
			if err != nil {
				return runArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return runArgs{}, fmt.Errorf("--output 不能为空")
			}
			ra.Output = v
			continue
		}
		if v, ok, err := value(&i, a, "--schedule"); ok {
			if err != nil {
				return runArgs{}, err
			}
			ra.Schedule = v
			continue
		}
		if v, ok, err := value(&i, a, "--config"); ok {
			if err != nil {
				return runArgs{}, err
			}
			ra.ConfigPath = v
			continue
		}

		switch {
		case a == "--offline":
			ra.Offline, ra.OfflineSet = true, true
		case strings.HasPrefix(a, "--offline="):
			v := strings.TrimPrefix(a, "--offline=")
			switch v {
			case "true":
				ra.Offline = true
			case "false":
				ra.Offline = false
			default:
				return runArgs{}, fmt.Errorf("--offline 只能是 true 或 false，实际是 %q", v)
			}
			ra.OfflineSet = true
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			return runArgs{}, fmt.Errorf("多余的参数 %q", a)
		}
	}

	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  chartlap run [--min-countries N] [--top N] [--source daily|weekly] [--output PATH]
               [--offline[=true|false]] [--schedule EXPR] [--config PATH]

命令：
  run    抓取各地区 Spotify 榜单并计算跨地区重叠的艺人

使用 "chartlap run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  chartlap run [flags]

参数：
  --min-countries N  艺人至少出现在 N 个地区的榜单中才会输出（默认 2）
  --top N            每个地区取榜单前 N 位艺人（默认 50，最大 200）
  --source S         榜单：daily|weekly（默认 daily）
  --output PATH      结果文件路径（默认 ./artists.json）
  --offline          只读取 cache/charts 下的已缓存页面，不访问网络
  --schedule EXPR    cron 表达式；设置后先立即运行一次，然后按计划运行直到收到中断信号
  --config PATH      配置文件路径（默认 ./chartlap.json，可选）
  -h, --help         显示帮助
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：succeeded=%d failed=%d artists=%d global_reach=%d\n",
			rr.Summary.Succeeded, rr.Summary.Failed, rr.Summary.Artists, rr.Summary.GlobalReach,
		)
		if rr.ErrorCode != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		}
		for _, c := range rr.Countries {
			if c.Status != domain.CountryStatusFailed {
				continue
			}
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", c.Country, c.ErrorCode, c.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：每次运行 stdout 只输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：succeeded=%d failed=%d artists=%d global_reach=%d\n",
		rr.Summary.Succeeded, rr.Summary.Failed, rr.Summary.Artists, rr.Summary.GlobalReach,
	)
}

func reportForConfigError(err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		StartedAt:  now,
		FinishedAt: now,
		ErrorCode:  config.Code(err),
		ErrorMsg:   err.Error(),
	}
	rr.Finalize()
	return rr
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
