package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/chartlap/internal/infra/fsx"
)

// Store 提供 <dir>/cache/charts/ 下的榜单 HTML 缓存读写。
//
// 约束：
// - offline：只允许读（ReadOnly=true）
// - 在线抓取：每次成功抓取都覆盖写入
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// ChartPath 返回榜单 HTML 缓存的绝对路径：<root>/cache/charts/<source>/<slug>.html
func (s Store) ChartPath(source, slug string) (string, error) {
	dir, name, err := s.chartLoc(source, slug)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (s Store) ReadChart(source, slug string) ([]byte, bool, error) {
	path, err := s.ChartPath(source, slug)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) WriteChart(source, slug string, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	dir, name, err := s.chartLoc(source, slug)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(dir, name, html)
}

var nameRE = regexp.MustCompile(`^[a-z0-9_]+$`)

func (s Store) chartLoc(source, slug string) (dir, name string, err error) {
	src, err := cleanName("source", source)
	if err != nil {
		return "", "", err
	}
	sl, err := cleanName("slug", slug)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.Root, "cache", "charts", src), sl + ".html", nil
}

func cleanName(kind, v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", fmt.Errorf("%s 不能为空", kind)
	}
	// 最小约束：避免路径穿越。
	if !nameRE.MatchString(v) {
		return "", fmt.Errorf("非法 %s：%q", kind, v)
	}
	return v, nil
}
