package errors

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorHandler 错误处理器，是 CLI 唯一决定退出码与错误输出的地方
type ErrorHandler struct{}

// NewErrorHandler 创建新的错误处理器
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{}
}

// Handle 将错误转换为结构化的用户报告
func (h *ErrorHandler) Handle(err error) Report {
	if err == nil {
		return Report{ExitCode: ExitCodeSuccess}
	}

	var bfErr *BrainframeError
	if !errors.As(err, &bfErr) {
		return Report{
			Message:  err.Error(),
			ExitCode: ExitCodeGenericError,
		}
	}

	report := Report{
		Message:    bfErr.Message,
		Suggestion: GetSuggestion(err),
		ExitCode:   ExitCode(err),
	}
	if bfErr.Cause != nil {
		report.Details = bfErr.Cause.Error()
	}

	switch bfErr.Type {
	case ErrTypeInterrupted:
		// 中断只报告一次，不附带失败细节
		report.Message = "Interrupted"
		report.Details = ""
	case ErrTypeDependency:
		if report.Suggestion == "" && errors.Is(err, ErrMissingExecutable) {
			report.Suggestion = "Install the missing program and make sure it is on your PATH"
		}
	}

	return report
}

// FormatError 格式化错误信息为用户友好的输出
func (h *ErrorHandler) FormatError(report Report) string {
	var sb strings.Builder

	// 错误消息（红色）
	sb.WriteString(color.RedString("Error: %s\n", report.Message))

	// 详细信息（如果有）
	if report.Details != "" {
		sb.WriteString(color.YellowString("Details: %s\n", report.Details))
	}

	// 建议（如果有）
	if report.Suggestion != "" {
		sb.WriteString("\n")
		sb.WriteString(report.Suggestion)
		sb.WriteString("\n")
	}

	return sb.String()
}

// Report writes the formatted error to w and returns the exit code the CLI
// should terminate with.
func (h *ErrorHandler) Report(w io.Writer, err error) int {
	report := h.Handle(err)
	if report.ExitCode == ExitCodeSuccess {
		return ExitCodeSuccess
	}
	if report.Message != "" {
		_, _ = fmt.Fprint(w, h.FormatError(report))
	}
	return report.ExitCode
}
