package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PathModel 询问一个文件系统路径，回车留空时使用默认值
type PathModel struct {
	question  string
	def       string
	input     textinput.Model
	value     string
	done      bool
	cancelled bool
	styles    UIStyles
}

// NewPathModel 创建路径输入模型
func NewPathModel(question, def string) *PathModel {
	ti := textinput.New()
	ti.Placeholder = def
	ti.CharLimit = 4096
	ti.Focus()

	return &PathModel{
		question: question,
		def:      def,
		input:    ti,
		styles:   DefaultStyles(),
	}
}

// Init 实现 tea.Model 接口
func (m *PathModel) Init() tea.Cmd { return textinput.Blink }

// Update 处理按键事件
func (m *PathModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			m.done = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.value = strings.TrimSpace(m.input.Value())
			if m.value == "" {
				m.value = m.def
			}
			m.value = filepath.Clean(m.value)
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View 渲染
func (m *PathModel) View() string {
	if m.done {
		return fmt.Sprintf("%s %s\n", m.styles.Question.Render(m.question), m.styles.Hint.Render(m.value))
	}
	return fmt.Sprintf("%s %s\n%s\n",
		m.styles.Question.Render(m.question),
		m.styles.Hint.Render(fmt.Sprintf("(default: %s)", m.def)),
		m.input.View())
}

// Result 返回输入的路径以及是否被取消
func (m *PathModel) Result() (path string, cancelled bool) {
	return m.value, m.cancelled
}
