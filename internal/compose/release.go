package compose

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/penwyp/brainframe-cli/internal/config"
	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/permission"
	"github.com/penwyp/brainframe-cli/internal/version"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"
)

// Latest 请求最新版本时使用的版本名
const Latest = "latest"

// ReleaseSource 发布源接口
type ReleaseSource interface {
	LatestTag(ctx context.Context, origin string, creds *config.Credentials) (string, error)
	Fetch(ctx context.Context, url string, creds *config.Credentials) (io.ReadCloser, error)
}

// DescriptorURL is where origin publishes the descriptor for tag.
func DescriptorURL(origin, tag string) string {
	return fmt.Sprintf("%s/releases/brainframe/%s/%s", strings.TrimRight(origin, "/"), tag, DescriptorName)
}

// ResolveVersion 将 "latest" 或用户给定的版本解析为具体版本
func (c *Compose) ResolveVersion(ctx context.Context, src ReleaseSource, requested string) (version.Version, error) {
	if requested == "" || requested == Latest {
		tag, err := src.LatestTag(ctx, c.cfg.Origin, c.cfg.Credentials)
		if err != nil {
			return version.Version{}, err
		}
		requested = tag
	}
	return version.Parse(requested)
}

// Download 下载 v 对应的 compose 描述文件到安装目录
// The install directory must be writable; as root the file is handed to
// the brainframe group afterwards.
func (c *Compose) Download(ctx context.Context, src ReleaseSource, v version.Version) error {
	target := c.DescriptorPath()
	if err := c.assertWritable(filepath.Dir(target)); err != nil {
		return err
	}

	body, err := src.Fetch(ctx, DescriptorURL(c.cfg.Origin, v.Tag()), c.cfg.Credentials)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrap(errors.ErrTypeDependency, "failed to download the compose descriptor", err)
	}
	if err := os.WriteFile(target, data, 0o664); err != nil {
		return errors.Wrap(errors.ErrTypePermission, fmt.Sprintf("failed to write %s", target), err)
	}
	c.logger.Info(fmt.Sprintf("Downloaded BrainFrame %s compose descriptor (%s)", v, humanize.Bytes(uint64(len(data)))),
		zap.String("path", target))

	if c.guard.IsRoot() {
		return c.guard.GrantGroupAccess(target)
	}
	return nil
}

func (c *Compose) assertWritable(dir string) error {
	err := unix.Access(dir, unix.W_OK)
	if err == nil {
		return nil
	}
	return errors.Wrap(errors.ErrTypePermission, fmt.Sprintf("no write access to %s", dir), err).
		WithSuggestion(fmt.Sprintf("Join the %s group and log in again, or rerun with sudo", permission.SharedGroupName))
}

type descriptor struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

// InstalledVersion 从 compose 描述文件中 core 服务镜像的标签读取已安装版本
func (c *Compose) InstalledVersion() (version.Version, error) {
	if err := c.AssertInstalled(); err != nil {
		return version.Version{}, err
	}

	data, err := os.ReadFile(c.DescriptorPath())
	if err != nil {
		return version.Version{}, errors.Wrap(errors.ErrTypeValidation, "failed to read the compose descriptor", err)
	}

	var d descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return version.Version{}, errors.Wrap(errors.ErrTypeValidation, "malformed compose descriptor", err)
	}
	core, ok := d.Services["core"]
	if !ok || core.Image == "" {
		return version.Version{}, errors.New(errors.ErrTypeValidation,
			"the compose descriptor has no image for the core service")
	}

	tag := core.Image[strings.LastIndex(core.Image, ":")+1:]
	return version.Parse(strings.TrimPrefix(tag, "v"))
}
