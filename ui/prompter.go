package ui

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/penwyp/brainframe-cli/internal/errors"
	"golang.org/x/term"
)

// Prompter 交互式提问接口
type Prompter interface {
	Confirm(question string, def bool) (bool, error)
	Path(question, def string) (string, error)
}

// TeaPrompter 基于 bubbletea 的 Prompter 实现
// Cancelling a prompt with ctrl+c is reported as an interruption.
type TeaPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewPrompter 创建 TeaPrompter
func NewPrompter(in io.Reader, out io.Writer) *TeaPrompter {
	return &TeaPrompter{in: in, out: out}
}

// Confirm asks a yes/no question.
func (p *TeaPrompter) Confirm(question string, def bool) (bool, error) {
	m := NewConfirmModel(question, def)
	if err := p.run(m); err != nil {
		return false, err
	}
	answer, cancelled := m.Result()
	if cancelled {
		return false, errors.Interrupted("", errors.ExitCodeInterrupted)
	}
	return answer, nil
}

// Path asks for a filesystem path, offering def.
func (p *TeaPrompter) Path(question, def string) (string, error) {
	m := NewPathModel(question, def)
	if err := p.run(m); err != nil {
		return "", err
	}
	path, cancelled := m.Result()
	if cancelled {
		return "", errors.Interrupted("", errors.ExitCodeInterrupted)
	}
	return path, nil
}

func (p *TeaPrompter) run(m tea.Model) error {
	prog := tea.NewProgram(m, tea.WithInput(p.in), tea.WithOutput(p.out))
	if _, err := prog.Run(); err != nil {
		return errors.Wrap(errors.ErrTypeUnknown, "prompt failed", err)
	}
	return nil
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
