package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Resolver 分层查找配置值：环境变量 → 默认值文件 → 硬编码回退值
// The two layers live in separate viper instances so a file lookup never
// sees the environment.
type Resolver struct {
	env  *viper.Viper
	file *viper.Viper
}

// NewResolver 使用给定的 YAML 默认值创建 Resolver
// A nil reader means "no defaults file"; malformed YAML is a configuration
// error.
func NewResolver(defaults io.Reader) (*Resolver, error) {
	env := viper.New()
	env.SetEnvPrefix(EnvPrefix)
	env.AutomaticEnv()
	// An exported-but-empty variable still wins over the defaults file.
	env.AllowEmptyEnv(true)

	file := viper.New()
	file.SetConfigType("yaml")
	if defaults != nil {
		data, err := io.ReadAll(defaults)
		if err != nil {
			return nil, errors.Wrap(errors.ErrTypeConfig, "failed to read defaults file", err)
		}
		if err := file.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, errors.Wrap(errors.ErrTypeConfig, "failed to parse defaults file", err).
				WithSuggestion("The defaults file must be a YAML mapping of option names to values")
		}
	}

	return &Resolver{env: env, file: file}, nil
}

func (r *Resolver) envValue(name string) (string, Source, error) {
	if _, ok := os.LookupEnv(EnvVarName(name)); !ok {
		return "", SourceNone, nil
	}
	s, err := cast.ToStringE(r.env.Get(name))
	return s, SourceEnvironment, err
}

func (r *Resolver) fileValue(name string) (string, Source, error) {
	if !r.file.InConfig(name) {
		return "", SourceNone, nil
	}
	value := r.file.Get(name)
	if value == nil {
		// "key:" with no value behaves as if the key were absent
		return "", SourceNone, nil
	}
	s, err := cast.ToStringE(value)
	return s, SourceDefaultsFile, err
}

// Resolve 按优先级解析一个配置项
// Only the first source yielding a raw string is converted with conv. A
// failed conversion is returned as a configuration error naming that source;
// later sources are never consulted.
func Resolve[T any](r *Resolver, name string, conv Converter[T], fallback *T) (Option[T], error) {
	opt := Option[T]{Name: name}
	if fallback != nil {
		opt.Default, opt.HasDefault = *fallback, true
	}

	raw, src, err := r.envValue(name)
	if err != nil {
		return opt, conversionError(name, src, raw, err)
	}
	if src == SourceEnvironment {
		value, err := conv(raw)
		if err != nil {
			return opt, conversionError(name, src, raw, err)
		}
		opt.Value, opt.Set, opt.Source = value, true, src
		// Default 仅用于展示：文件值无法转换时保留回退值
		if fileRaw, fileSrc, err := r.fileValue(name); err == nil && fileSrc != SourceNone {
			if def, err := conv(fileRaw); err == nil {
				opt.Default, opt.HasDefault = def, true
			}
		}
		return opt, nil
	}

	raw, src, err = r.fileValue(name)
	if err != nil {
		return opt, conversionError(name, src, raw, err)
	}
	if src == SourceDefaultsFile {
		value, err := conv(raw)
		if err != nil {
			return opt, conversionError(name, src, raw, err)
		}
		opt.Value, opt.Set, opt.Source = value, true, src
		opt.Default, opt.HasDefault = value, true
		return opt, nil
	}

	if fallback != nil {
		opt.Value, opt.Set, opt.Source = *fallback, true, SourceFallback
	}
	return opt, nil
}

func conversionError(name string, src Source, raw string, cause error) error {
	where := src.String()
	if src == SourceEnvironment {
		where = EnvVarName(name)
	}
	return errors.Wrap(errors.ErrTypeConfig,
		fmt.Sprintf("invalid value %q for option %s (from %s)", raw, name, where), cause)
}
