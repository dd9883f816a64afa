package config

import "strings"

// EnvPrefix 所有配置项环境变量的前缀
const EnvPrefix = "BRAINFRAME"

// DefaultsFileEnvVar replaces the bundled defaults file when set.
const DefaultsFileEnvVar = EnvPrefix + "_DEFAULTS_FILE"

// Source 表示配置值来自哪一层
type Source int

const (
	// SourceNone 没有任何来源提供值
	SourceNone Source = iota
	// SourceFallback 代码中的硬编码回退值
	SourceFallback
	// SourceDefaultsFile 随程序发布的默认值文件
	SourceDefaultsFile
	// SourceEnvironment 环境变量
	SourceEnvironment
)

func (s Source) String() string {
	switch s {
	case SourceFallback:
		return "fallback"
	case SourceDefaultsFile:
		return "defaults file"
	case SourceEnvironment:
		return "environment"
	default:
		return "none"
	}
}

// Converter turns the raw string form of an option into its typed value.
type Converter[T any] func(raw string) (T, error)

// Option 一个命名的、带类型的分层配置项
type Option[T any] struct {
	Name string
	// Value is the resolved value; only meaningful when Set is true.
	Value T
	Set   bool
	// Default is the value the option has when no environment variable is
	// given: the defaults file entry, or else the hard fallback.
	Default    T
	HasDefault bool
	Source     Source
}

// EnvVarName 返回该配置项对应的环境变量名
func (o Option[T]) EnvVarName() string {
	return EnvVarName(o.Name)
}

// Get returns the resolved value, or the zero value when unset.
func (o Option[T]) Get() T {
	return o.Value
}

// EnvVarName maps an option name to BRAINFRAME_<NAME>.
func EnvVarName(name string) string {
	return EnvPrefix + "_" + strings.ToUpper(name)
}

// Credentials 仅在 staging 模式下存在的基本认证凭据
type Credentials struct {
	Username string
	Password string
}

// Settings 进程启动时一次性解析的全部配置
type Settings struct {
	InstallPath        Option[string]
	DataPath           Option[string]
	Staging            Option[bool]
	StagingUsername    Option[string]
	StagingPassword    Option[string]
	ReleaseOrigin      Option[string]
	StagingOrigin      Option[string]
	ComposeVersion     Option[string]
	ComposeDownloadURL Option[string]
}

// Hard fallbacks used when neither the environment nor the defaults file
// provide a value.
const (
	FallbackInstallPath        = "/usr/local/share/brainframe"
	FallbackDataPath           = "/var/local/brainframe"
	FallbackReleaseOrigin      = "https://aotu.ai"
	FallbackStagingOrigin      = "https://staging.aotu.ai"
	FallbackComposeVersion     = "1.27.4"
	FallbackComposeDownloadURL = "https://github.com/docker/compose/releases/download/{version}/docker-compose-Linux-x86_64"
)
