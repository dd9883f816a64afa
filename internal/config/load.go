package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/penwyp/brainframe-cli/internal/errors"
)

//go:embed defaults.yaml
var bundledDefaults []byte

// LoadBundled 加载随程序发布的默认值文件
// BRAINFRAME_DEFAULTS_FILE points at a replacement file on disk.
func LoadBundled() (*Settings, error) {
	if path, ok := os.LookupEnv(DefaultsFileEnvVar); ok && path != "" {
		return LoadFile(path)
	}
	return Load(bytes.NewReader(bundledDefaults))
}

// LoadFile 从磁盘加载默认值文件
func LoadFile(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTypeConfig, fmt.Sprintf("unable to open defaults file %s", path), err).
			WithSuggestion(fmt.Sprintf("Check %s or unset it to use the bundled defaults", DefaultsFileEnvVar))
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load 解析所有配置项，结果在进程生命周期内缓存
func Load(defaults io.Reader) (*Settings, error) {
	if defaults == nil {
		return nil, errors.New(errors.ErrTypeConfig, "no defaults file provided")
	}

	r, err := NewResolver(defaults)
	if err != nil {
		return nil, err
	}

	var s Settings
	if s.InstallPath, err = Resolve(r, "install_path", Path, ptr(FallbackInstallPath)); err != nil {
		return nil, err
	}
	if s.DataPath, err = Resolve(r, "data_path", Path, ptr(FallbackDataPath)); err != nil {
		return nil, err
	}
	if s.Staging, err = Resolve(r, "staging", ParseBool, ptr(false)); err != nil {
		return nil, err
	}
	if s.StagingUsername, err = Resolve[string](r, "staging_username", String, nil); err != nil {
		return nil, err
	}
	if s.StagingPassword, err = Resolve[string](r, "staging_password", String, nil); err != nil {
		return nil, err
	}
	if s.ReleaseOrigin, err = Resolve(r, "release_origin", String, ptr(FallbackReleaseOrigin)); err != nil {
		return nil, err
	}
	if s.StagingOrigin, err = Resolve(r, "staging_origin", String, ptr(FallbackStagingOrigin)); err != nil {
		return nil, err
	}
	if s.ComposeVersion, err = Resolve(r, "compose_version", String, ptr(FallbackComposeVersion)); err != nil {
		return nil, err
	}
	if s.ComposeDownloadURL, err = Resolve(r, "compose_download_url", String, ptr(FallbackComposeDownloadURL)); err != nil {
		return nil, err
	}

	return &s, nil
}

func ptr[T any](v T) *T { return &v }

// StagingCredentials 返回 staging 模式下的凭据；非 staging 模式返回 nil
func (s *Settings) StagingCredentials() (*Credentials, error) {
	if !s.Staging.Value {
		return nil, nil
	}
	if !s.StagingUsername.Set || !s.StagingPassword.Set {
		return nil, errors.Wrap(errors.ErrTypeConfig,
			fmt.Sprintf("both %s and %s must be set in staging mode",
				s.StagingUsername.EnvVarName(), s.StagingPassword.EnvVarName()),
			errors.ErrStagingCredentials)
	}
	return &Credentials{
		Username: s.StagingUsername.Value,
		Password: s.StagingPassword.Value,
	}, nil
}

// Origin returns the release origin for the current mode.
func (s *Settings) Origin() string {
	if s.Staging.Value {
		return s.StagingOrigin.Value
	}
	return s.ReleaseOrigin.Value
}

// ExportDataPath exports BRAINFRAME_DATA_PATH when it is not already set.
// The compose descriptor interpolates it to find the volume mount.
func (s *Settings) ExportDataPath() error {
	name := s.DataPath.EnvVarName()
	if _, ok := os.LookupEnv(name); ok {
		return nil
	}
	value := s.DataPath.Default
	if !s.DataPath.HasDefault {
		value = s.DataPath.Value
	}
	return os.Setenv(name, value)
}

// Fields 返回 info 命令可以展示的字段
func (s *Settings) Fields() map[string]string {
	return map[string]string{
		"install_path": s.InstallPath.Value,
		"data_path":    s.DataPath.Value,
	}
}
