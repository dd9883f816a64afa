package provision

import (
	"context"
	"io"

	"github.com/penwyp/brainframe-cli/internal/config"
	"github.com/penwyp/brainframe-cli/internal/runner"
)

// BinaryName 安装目录中 compose 工具的文件名
const BinaryName = "docker-compose"

// Outcome Ensure 的结果
type Outcome int

const (
	// Current the installed binary already satisfied the requirement.
	Current Outcome = iota
	// Installed the binary was absent and has been downloaded.
	Installed
	// Upgraded a stale binary was replaced in place.
	Upgraded
)

func (o Outcome) String() string {
	switch o {
	case Current:
		return "current"
	case Installed:
		return "installed"
	case Upgraded:
		return "upgraded"
	default:
		return "unknown"
	}
}

// CommandRunner 命令执行器接口
type CommandRunner interface {
	Run(ctx context.Context, argv []string, opts runner.Options) (runner.Result, error)
	Output(ctx context.Context, argv []string) (string, error)
}

// Fetcher 制品下载接口
type Fetcher interface {
	Fetch(ctx context.Context, url string, creds *config.Credentials) (io.ReadCloser, error)
}
