package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/osa030/flashread/internal/app/session"
)

// Run opens the terminal reader on sess and blocks until the user quits.
// Playback words and session state reach the UI through Program.Send, so
// the playback goroutine never touches the model.
func Run(sess *session.Manager, options Options) error {
	model := NewModel(sess, options)
	p := tea.NewProgram(model, tea.WithAltScreen())

	sess.SetDisplay(func(word string) {
		p.Send(wordMsg(word))
	})
	sess.SetStateHook(func(s session.Status) {
		p.Send(statusMsg(s))
	})
	defer func() {
		sess.SetDisplay(nil)
		sess.SetStateHook(nil)
	}()

	_, err := p.Run()
	return err
}
