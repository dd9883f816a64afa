package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Printer 面向操作者的彩色输出
type Printer struct {
	out    io.Writer
	styles UIStyles
}

// NewPrinter 创建 Printer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, styles: DefaultStyles()}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Info prints a plain line.
func (p *Printer) Info(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Success 绿色完成提示
func (p *Printer) Success(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(p.out, RenderStatusLine("✓", fmt.Sprintf(format, args...), p.styles.Success))
}

// Warning 黄色警告
func (p *Printer) Warning(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(p.out, RenderStatusLine("!", fmt.Sprintf(format, args...), p.styles.Warning))
}

// Step prints a progress heading before a group of commands.
func (p *Printer) Step(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(p.out, color.CyanString("==> ")+p.styles.Title.Render(fmt.Sprintf(format, args...)))
}

// Banner 安装开始时的欢迎信息
func (p *Printer) Banner(lines ...string) {
	_, _ = fmt.Fprintln(p.out, p.styles.Banner.Render(strings.Join(lines, "\n")))
}

// Exports prints shell export lines for the given variables, in order.
func (p *Printer) Exports(pairs ...[2]string) {
	_, _ = fmt.Fprintln(p.out)
	for _, kv := range pairs {
		_, _ = fmt.Fprintln(p.out, p.styles.Command.Render(fmt.Sprintf("export %s=%q", kv[0], kv[1])))
	}
	_, _ = fmt.Fprintln(p.out)
}
