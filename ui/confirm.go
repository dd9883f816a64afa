package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmModel 是/否提问
// y/n answer directly, arrows move between the buttons and enter picks
// the selected one. ctrl+c cancels.
type ConfirmModel struct {
	question  string
	selected  bool
	answer    bool
	done      bool
	cancelled bool
	styles    UIStyles
}

// NewConfirmModel 创建提问模型，def 为默认选中的答案
func NewConfirmModel(question string, def bool) *ConfirmModel {
	return &ConfirmModel{
		question: question,
		selected: def,
		styles:   DefaultStyles(),
	}
}

// Init 实现 tea.Model 接口
func (m *ConfirmModel) Init() tea.Cmd { return nil }

// Update 处理按键事件
func (m *ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		m.done = true
		return m, tea.Quit
	case "left", "right", "h", "l", "tab":
		m.selected = !m.selected
	case "y", "Y":
		m.answer, m.done = true, true
		return m, tea.Quit
	case "n", "N":
		m.answer, m.done = false, true
		return m, tea.Quit
	case "enter":
		m.answer, m.done = m.selected, true
		return m, tea.Quit
	}
	return m, nil
}

// View 渲染
func (m *ConfirmModel) View() string {
	if m.done {
		answer := "no"
		if m.answer {
			answer = "yes"
		}
		if m.cancelled {
			answer = "cancelled"
		}
		return fmt.Sprintf("%s %s\n", m.styles.Question.Render(m.question), m.styles.Hint.Render(answer))
	}

	yes := Button{Hint: "[Y]", Text: "Yes", HintStyle: m.styles.Hint, TextStyle: m.styles.Success, SelectedBg: m.styles.Colors.Green}
	no := Button{Hint: "[N]", Text: "No", HintStyle: m.styles.Hint, TextStyle: m.styles.Error, SelectedBg: m.styles.Colors.Red}

	buttons := lipgloss.JoinHorizontal(lipgloss.Top, RenderButton(yes, m.selected), " ", RenderButton(no, !m.selected))
	return fmt.Sprintf("%s\n%s\n", m.styles.Question.Render(m.question), buttons)
}

// Result 返回答案以及是否被取消
func (m *ConfirmModel) Result() (answer bool, cancelled bool) {
	return m.answer, m.cancelled
}
