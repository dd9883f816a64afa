package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType int

const (
	// ErrTypeUnknown 未知错误
	ErrTypeUnknown ErrorType = iota
	// ErrTypeConfig 配置错误：默认值文件缺失/格式错误、staging 凭据缺失、布尔值无法解析
	ErrTypeConfig
	// ErrTypePermission 权限错误：非 root、不在所需用户组
	ErrTypePermission
	// ErrTypeDependency 依赖错误：外部工具不存在、源站不可达、版本文本格式错误
	ErrTypeDependency
	// ErrTypeChildProcess 子进程以非零状态退出（非中断导致）
	ErrTypeChildProcess
	// ErrTypeInterrupted 子进程运行期间操作者发送了中断信号
	ErrTypeInterrupted
	// ErrTypeValidation 输入或状态校验失败
	ErrTypeValidation
)

// String returns a short lowercase name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConfig:
		return "config"
	case ErrTypePermission:
		return "permission"
	case ErrTypeDependency:
		return "dependency"
	case ErrTypeChildProcess:
		return "child-process"
	case ErrTypeInterrupted:
		return "interrupted"
	case ErrTypeValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// BrainframeError 统一错误结构
type BrainframeError struct {
	Type       ErrorType
	Message    string
	Cause      error
	Suggestion string
	// Code is the process exit status this error maps to. Zero means "use
	// the default for Type".
	Code int
}

// Error 实现 error 接口
func (e *BrainframeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 支持 errors.Is 和 errors.As
func (e *BrainframeError) Unwrap() error {
	return e.Cause
}

// WithSuggestion 添加解决建议
func (e *BrainframeError) WithSuggestion(suggestion string) *BrainframeError {
	e.Suggestion = suggestion
	return e
}

// New 创建新的 BrainframeError
func New(errType ErrorType, message string) *BrainframeError {
	return &BrainframeError{
		Type:    errType,
		Message: message,
	}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(errType ErrorType, format string, args ...interface{}) *BrainframeError {
	return New(errType, fmt.Sprintf(format, args...))
}

// Wrap 包装已有错误
func Wrap(errType ErrorType, message string, cause error) *BrainframeError {
	return &BrainframeError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// ChildProcess reports that command exited with a non-zero status on its
// own. The CLI exits with that same status.
func ChildProcess(command string, exitCode int) *BrainframeError {
	return &BrainframeError{
		Type:    ErrTypeChildProcess,
		Message: fmt.Sprintf("command %q exited with status %d", command, exitCode),
		Code:    exitCode,
	}
}

// Interrupted reports that the operator interrupted command. exitCode is
// the conventional 128+signal status.
func Interrupted(command string, exitCode int) *BrainframeError {
	msg := "interrupted"
	if command != "" {
		msg = fmt.Sprintf("interrupted while running %q", command)
	}
	return &BrainframeError{
		Type:    ErrTypeInterrupted,
		Message: msg,
		Code:    exitCode,
	}
}

// 预定义的常见错误
var (
	// 权限相关错误
	ErrNotRoot = New(ErrTypePermission, "this command must be run as root").WithSuggestion("Retry with sudo")

	// 依赖相关错误
	ErrMissingExecutable = New(ErrTypeDependency, "required executable not found")
	ErrOriginUnavailable = New(ErrTypeDependency, "release origin returned an error")
	ErrMalformedVersion  = New(ErrTypeDependency, "malformed version text")

	// 配置相关错误
	ErrStagingCredentials = New(ErrTypeConfig, "staging mode requires credentials")

	// 校验错误
	ErrNotInstalled = New(ErrTypeValidation, "BrainFrame must be installed to run this command")
)

// Is 检查是否为特定错误
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As 尝试转换为特定错误类型
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetType 获取错误类型
func GetType(err error) ErrorType {
	var bfErr *BrainframeError
	if errors.As(err, &bfErr) {
		return bfErr.Type
	}
	return ErrTypeUnknown
}

// GetSuggestion 获取错误建议
func GetSuggestion(err error) string {
	var bfErr *BrainframeError
	if errors.As(err, &bfErr) {
		return bfErr.Suggestion
	}
	return ""
}

// ExitCode maps err to the status the CLI terminates with: zero on success,
// the child's own status for child failures, 128+signal for interruptions
// and ExitCodeGenericError for everything else.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var bfErr *BrainframeError
	if !errors.As(err, &bfErr) {
		return ExitCodeGenericError
	}
	if bfErr.Code != 0 {
		return bfErr.Code
	}
	if bfErr.Type == ErrTypeInterrupted {
		return ExitCodeInterrupted
	}
	return ExitCodeGenericError
}
