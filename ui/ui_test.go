package ui

import (
	"bytes"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmModel_Init(t *testing.T) {
	require.Nil(t, NewConfirmModel("Start BrainFrame now?", true).Init())
}

func TestConfirmModel_Keys(t *testing.T) {
	tests := []struct {
		name           string
		def            bool
		keys           []tea.KeyMsg
		expectedAnswer bool
		expectCancel   bool
	}{
		{name: "y answers yes", keys: []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune{'y'}}}, expectedAnswer: true},
		{name: "N answers no", def: true, keys: []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune{'N'}}}},
		{name: "enter takes default yes", def: true, keys: []tea.KeyMsg{{Type: tea.KeyEnter}}, expectedAnswer: true},
		{name: "enter takes default no", keys: []tea.KeyMsg{{Type: tea.KeyEnter}}},
		{name: "arrow toggles selection", keys: []tea.KeyMsg{{Type: tea.KeyRight}, {Type: tea.KeyEnter}}, expectedAnswer: true},
		{name: "ctrl+c cancels", def: true, keys: []tea.KeyMsg{{Type: tea.KeyCtrlC}}, expectCancel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewConfirmModel("Continue?", tt.def)
			var cmd tea.Cmd
			for _, k := range tt.keys {
				_, cmd = m.Update(k)
			}
			require.NotNil(t, cmd) // tea.Quit

			answer, cancelled := m.Result()
			assert.Equal(t, tt.expectedAnswer, answer)
			assert.Equal(t, tt.expectCancel, cancelled)
			assert.Contains(t, m.View(), "Continue?")
		})
	}
}

func TestConfirmModel_View(t *testing.T) {
	m := NewConfirmModel("Delete data?", false)
	view := m.View()
	assert.Contains(t, view, "Delete data?")
	assert.Contains(t, view, "Yes")
	assert.Contains(t, view, "No")
}

func TestPathModel(t *testing.T) {
	t.Run("empty input uses default", func(t *testing.T) {
		m := NewPathModel("Install path?", "/usr/local/share/brainframe")
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd)

		path, cancelled := m.Result()
		assert.False(t, cancelled)
		assert.Equal(t, "/usr/local/share/brainframe", path)
	})

	t.Run("typed path is cleaned", func(t *testing.T) {
		m := NewPathModel("Install path?", "/usr/local/share/brainframe")
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/opt/bf/")})
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		path, _ := m.Result()
		assert.Equal(t, "/opt/bf", path)
	})

	t.Run("escape cancels", func(t *testing.T) {
		m := NewPathModel("Data path?", "/var/local/brainframe")
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})

		_, cancelled := m.Result()
		assert.True(t, cancelled)
	})

	t.Run("view shows default", func(t *testing.T) {
		m := NewPathModel("Data path?", "/var/local/brainframe")
		assert.Contains(t, m.View(), "/var/local/brainframe")
	})
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Info("plain %d", 1)
	p.Success("done")
	p.Warning("careful")
	p.Step("Downloading images")
	p.Banner("BrainFrame", "installer")
	p.Exports([2]string{"BRAINFRAME_INSTALL_PATH", "/opt/bf"})

	out := buf.String()
	assert.Contains(t, out, "plain 1")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "careful")
	assert.Contains(t, out, "Downloading images")
	assert.Contains(t, out, "installer")
	assert.Contains(t, out, `export BRAINFRAME_INSTALL_PATH="/opt/bf"`)
	assert.Same(t, &buf, p.Writer())
}
