package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/logger"
	"github.com/penwyp/brainframe-cli/internal/permission"
	"github.com/penwyp/brainframe-cli/internal/version"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// binaryMode rwx for owner and group, r-x for others.
const binaryMode = 0o775

// Provisioner 确保安装目录中存在满足最低版本的 compose 工具
type Provisioner struct {
	runner      CommandRunner
	fetcher     Fetcher
	downloadURL string
	logger      *zap.Logger

	euid  func() int
	chown func(path string, uid, gid int) error
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(p *Provisioner) {
		p.logger = l
	}
}

// NewProvisioner 创建 Provisioner
// downloadURL may contain "{version}", replaced by the required version.
func NewProvisioner(r CommandRunner, f Fetcher, downloadURL string, opts ...Option) *Provisioner {
	p := &Provisioner{
		runner:      r,
		fetcher:     f,
		downloadURL: downloadURL,
		euid:        os.Geteuid,
		chown:       unix.Chown,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.OrNop(p.logger)
	return p
}

// Path returns where the binary lives under installRoot.
func Path(installRoot string) string {
	return filepath.Join(installRoot, BinaryName)
}

// Ensure 保证 installRoot 下的工具存在且版本不低于 required
//
// An absent binary is downloaded. A present one is asked for its version
// and replaced only when strictly older; a current installation never
// touches the network. Fresh binaries are made executable, handed to the
// shared brainframe group when running as root, and must then report a
// version no older than required.
func (p *Provisioner) Ensure(ctx context.Context, installRoot string, required version.Version) (Outcome, error) {
	path := Path(installRoot)
	outcome := Installed

	_, err := os.Stat(path)
	switch {
	case err == nil:
		installed, err := p.InstalledVersion(ctx, path)
		if err != nil {
			return Current, err
		}
		if version.Compare(installed, required) >= 0 {
			p.logger.Debug("Compose tool is current",
				zap.String("path", path), zap.Stringer("installed", installed), zap.Stringer("required", required))
			return Current, nil
		}
		p.logger.Info("Upgrading compose tool",
			zap.Stringer("installed", installed), zap.Stringer("required", required))
		outcome = Upgraded
	case os.IsNotExist(err):
		p.logger.Info("Installing compose tool", zap.Stringer("version", required))
	default:
		return Current, errors.Wrap(errors.ErrTypeDependency, fmt.Sprintf("cannot inspect %s", path), err)
	}

	if err := p.download(ctx, path, required); err != nil {
		return Current, err
	}
	if err := p.grantAccess(path); err != nil {
		return outcome, err
	}
	if err := p.verify(ctx, path, required); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// verify 确认新下载的二进制报告的版本满足要求
func (p *Provisioner) verify(ctx context.Context, path string, required version.Version) error {
	got, err := p.InstalledVersion(ctx, path)
	if err != nil {
		return errors.Wrap(errors.ErrTypeDependency, "the downloaded compose tool cannot report its version", err)
	}
	if version.Compare(got, required) < 0 {
		return errors.Newf(errors.ErrTypeDependency,
			"the downloaded compose tool reports version %s, need %s or newer", got, required).
			WithSuggestion("Check " + p.URL(required))
	}
	return nil
}

// InstalledVersion asks the binary at path for its version.
func (p *Provisioner) InstalledVersion(ctx context.Context, path string) (version.Version, error) {
	out, err := p.runner.Output(ctx, []string{path, "version", "--short"})
	if err != nil {
		return version.Version{}, err
	}
	return version.Parse(out)
}

// URL returns the download location for v.
func (p *Provisioner) URL(v version.Version) string {
	return strings.ReplaceAll(p.downloadURL, "{version}", v.String())
}

// download writes the binary to a temporary file next to path and renames
// it into place, so a failed download never leaves a truncated binary.
func (p *Provisioner) download(ctx context.Context, path string, v version.Version) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, binaryMode); err != nil {
		return errors.Wrap(errors.ErrTypeDependency, fmt.Sprintf("cannot create %s", dir), err)
	}

	body, err := p.fetcher.Fetch(ctx, p.URL(v), nil)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	tmp := filepath.Join(dir, fmt.Sprintf(".%s-%s", BinaryName, uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, binaryMode)
	if err != nil {
		return errors.Wrap(errors.ErrTypeDependency, fmt.Sprintf("cannot write to %s", dir), err)
	}
	defer func() { _ = os.Remove(tmp) }()

	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrap(errors.ErrTypeDependency, "failed to download the compose tool", err)
	}
	p.logger.Info(fmt.Sprintf("Downloaded %s %s (%s)", BinaryName, v, humanize.Bytes(uint64(n))))

	if err := os.Chmod(tmp, binaryMode); err != nil {
		return errors.Wrap(errors.ErrTypeDependency, "failed to mark the compose tool executable", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(errors.ErrTypeDependency, fmt.Sprintf("failed to install %s", path), err)
	}
	return nil
}

func (p *Provisioner) grantAccess(path string) error {
	if p.euid() != 0 {
		return nil
	}
	if err := p.chown(path, -1, permission.SharedGroupID); err != nil {
		return errors.Wrap(errors.ErrTypePermission,
			fmt.Sprintf("failed to give the %s group access to %s", permission.SharedGroupName, path), err)
	}
	return nil
}
