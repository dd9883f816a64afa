package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// UIColors 定义统一的颜色主题
type UIColors struct {
	Gray    lipgloss.Color
	Blue    lipgloss.Color
	Green   lipgloss.Color
	Yellow  lipgloss.Color
	Red     lipgloss.Color
	White   lipgloss.Color
	Black   lipgloss.Color
	Magenta lipgloss.Color
}

// DefaultColors 返回默认的颜色主题
func DefaultColors() UIColors {
	return UIColors{
		Gray:    lipgloss.Color("245"),
		Blue:    lipgloss.Color("39"),
		Green:   lipgloss.Color("42"),
		Yellow:  lipgloss.Color("220"),
		Red:     lipgloss.Color("196"),
		White:   lipgloss.Color("255"),
		Black:   lipgloss.Color("0"),
		Magenta: lipgloss.Color("201"),
	}
}

// UIStyles 定义统一的样式
type UIStyles struct {
	Colors   UIColors
	Title    lipgloss.Style
	Question lipgloss.Style
	Hint     lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Command  lipgloss.Style
	Banner   lipgloss.Style
}

// DefaultStyles 返回默认的样式集
func DefaultStyles() UIStyles {
	colors := DefaultColors()
	return UIStyles{
		Colors:   colors,
		Title:    lipgloss.NewStyle().Foreground(colors.White).Bold(true),
		Question: lipgloss.NewStyle().Foreground(colors.Blue).Bold(true),
		Hint:     lipgloss.NewStyle().Foreground(colors.Gray),
		Success:  lipgloss.NewStyle().Foreground(colors.Green),
		Warning:  lipgloss.NewStyle().Foreground(colors.Yellow),
		Error:    lipgloss.NewStyle().Foreground(colors.Red),
		Command:  lipgloss.NewStyle().Foreground(colors.Magenta),
		Banner: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Blue).
			Padding(0, 2),
	}
}

// Button 表示一个可交互的按钮
type Button struct {
	Hint       string
	Text       string
	HintStyle  lipgloss.Style
	TextStyle  lipgloss.Style
	SelectedBg lipgloss.Color
}

// RenderButton 渲染单个按钮
func RenderButton(b Button, isSelected bool) string {
	hStyle := b.HintStyle
	tStyle := b.TextStyle

	if isSelected {
		colors := DefaultColors()
		fgColor := colors.Black
		// 红色背景上白色文字更清晰
		if b.SelectedBg == colors.Red {
			fgColor = colors.White
		}
		hStyle = hStyle.Background(b.SelectedBg).Foreground(fgColor)
		tStyle = tStyle.Background(b.SelectedBg).Foreground(fgColor)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		hStyle.Padding(0, 1).Render(b.Hint),
		tStyle.Padding(0, 1).Render(b.Text),
	)
}

// RenderStatusLine 渲染状态行
func RenderStatusLine(icon, text string, style lipgloss.Style) string {
	return icon + " " + style.Render(text)
}
