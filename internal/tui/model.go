// Package tui provides the terminal reader: a Bubble Tea shell around a
// reading session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/flashread/internal/app/playback"
	"github.com/osa030/flashread/internal/app/session"
	"github.com/osa030/flashread/internal/app/source"
	"github.com/osa030/flashread/internal/tui/styles"
)

// Focus represents which input has the keyboard.
type Focus int

const (
	FocusText Focus = iota
	FocusSpeed
)

// Fetch form fields, in tab order.
const (
	fieldURL = iota
	fieldEmail
	fieldPassword
	fieldCount
)

// Reader is the part of the session the shell drives.
type Reader interface {
	LoadText(text string) error
	SetSpeed(wpmText string) (int, error)
	Start() error
	Pause() error
	Rewind() error
	Fetch(ctx context.Context, req source.Request) error
	GetStatus() *session.Status
	Text() string
}

// Options configures the shell.
type Options struct {
	// Fetch, when set, is run as soon as the shell starts.
	Fetch *source.Request
}

// Model is the main TUI model.
type Model struct {
	reader  Reader
	options Options
	width   int
	height  int

	// Inputs
	text     textarea.Model
	speed    textinput.Model
	focus    Focus
	showText bool

	// Fetch form
	form      [fieldCount]textinput.Model
	formField int
	showForm  bool

	// Display
	word   string
	status session.Status

	quitting bool
}

// Messages
type wordMsg string
type statusMsg session.Status
type actionDoneMsg struct {
	action string
	err    error
}

// NewModel creates a new TUI model.
func NewModel(reader Reader, options Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Paste or type the text to read..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(8)
	ta.SetValue(reader.Text())
	ta.Focus()

	status := *reader.GetStatus()

	ti := textinput.New()
	ti.Placeholder = "wpm"
	ti.CharLimit = 6
	ti.Width = 8
	ti.SetValue(fmt.Sprint(status.WPM))

	return Model{
		reader:   reader,
		options:  options,
		text:     ta,
		speed:    ti,
		focus:    FocusText,
		showText: true,
		form:     newFetchForm(options.Fetch),
		status:   status,
		word:     status.Word,
	}
}

// newFetchForm builds the URL and credential inputs, prefilled from the
// launch request when there is one.
func newFetchForm(req *source.Request) [fieldCount]textinput.Model {
	var form [fieldCount]textinput.Model
	for i := range form {
		form[i] = textinput.New()
		form[i].Width = 48
	}
	form[fieldURL].Placeholder = "https://..."
	form[fieldEmail].Placeholder = "email"
	form[fieldPassword].Placeholder = "password"
	form[fieldPassword].EchoMode = textinput.EchoPassword
	form[fieldPassword].EchoCharacter = '•'

	if req != nil {
		form[fieldURL].SetValue(req.URL)
		form[fieldEmail].SetValue(req.Email)
	}
	return form
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.options.Fetch != nil {
		cmds = append(cmds, m.fetch(*m.options.Fetch))
	}
	return tea.Batch(cmds...)
}

// Commands. Session calls run off the update loop because they may block
// and their state hook sends back into the program.

// start applies the typed speed and text, then starts playback. An invalid
// speed never starts playback.
func (m Model) start() tea.Cmd {
	wpmText := m.speed.Value()
	text := m.text.Value()
	reader := m.reader
	return func() tea.Msg {
		if _, err := reader.SetSpeed(wpmText); err != nil {
			return actionDoneMsg{action: "start", err: err}
		}
		if strings.Join(strings.Fields(text), " ") != strings.Join(strings.Fields(reader.Text()), " ") {
			if err := reader.LoadText(text); err != nil {
				return actionDoneMsg{action: "start", err: err}
			}
		}
		return actionDoneMsg{action: "start", err: reader.Start()}
	}
}

func (m Model) pause() tea.Cmd {
	reader := m.reader
	return func() tea.Msg {
		return actionDoneMsg{action: "pause", err: reader.Pause()}
	}
}

func (m Model) rewind() tea.Cmd {
	reader := m.reader
	return func() tea.Msg {
		return actionDoneMsg{action: "rewind", err: reader.Rewind()}
	}
}

func (m Model) fetch(req source.Request) tea.Cmd {
	reader := m.reader
	return func() tea.Msg {
		return actionDoneMsg{action: "fetch", err: reader.Fetch(context.Background(), req)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.text.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case wordMsg:
		m.word = string(msg)
		return m, nil

	case statusMsg:
		m.status = session.Status(msg)
		switch m.status.Event {
		case session.EventFetched:
			m.text.SetValue(m.reader.Text())
			m.word = ""
		case session.EventRewound, playback.EventCompleted.String():
			m.word = ""
		}
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			zlog.Debug().Msgf("tui: %s failed: %v", msg.action, msg.err)
		}
		m.status = *m.reader.GetStatus()
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showForm {
		return m.handleFormKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "ctrl+s":
		if m.status.Busy() {
			return m, nil
		}
		return m, m.start()

	case "ctrl+p":
		return m, m.pause()

	case "ctrl+r":
		if m.status.Busy() {
			return m, nil
		}
		return m, m.rewind()

	case "ctrl+o":
		if m.status.Busy() {
			return m, nil
		}
		m.openForm()
		return m, textinput.Blink

	case "ctrl+t":
		m.showText = !m.showText
		if !m.showText && m.focus == FocusText {
			m.setFocus(FocusSpeed)
		}
		return m, nil

	case "tab", "shift+tab":
		if m.focus == FocusText || !m.showText {
			m.setFocus(FocusSpeed)
		} else {
			m.setFocus(FocusText)
		}
		return m, nil
	}

	// Inputs are disabled while text is being fetched
	if m.status.Busy() {
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case FocusText:
		m.text, cmd = m.text.Update(msg)
	case FocusSpeed:
		m.speed, cmd = m.speed.Update(msg)
	}
	return m, cmd
}

// handleFormKey drives the fetch form. It owns the keyboard until it is
// submitted or dismissed.
func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc", "ctrl+o":
		m.closeForm()
		return m, nil

	case "tab", "down":
		m.setFormField((m.formField + 1) % fieldCount)
		return m, nil

	case "shift+tab", "up":
		m.setFormField((m.formField + fieldCount - 1) % fieldCount)
		return m, nil

	case "enter":
		req := source.Request{
			URL:      strings.TrimSpace(m.form[fieldURL].Value()),
			Email:    strings.TrimSpace(m.form[fieldEmail].Value()),
			Password: m.form[fieldPassword].Value(),
		}
		if req.URL == "" || m.status.Busy() {
			m.setFormField(fieldURL)
			return m, nil
		}
		m.form[fieldPassword].SetValue("")
		m.closeForm()
		return m, m.fetch(req)
	}

	var cmd tea.Cmd
	m.form[m.formField], cmd = m.form[m.formField].Update(msg)
	return m, cmd
}

func (m *Model) openForm() {
	m.showForm = true
	m.text.Blur()
	m.speed.Blur()
	m.setFormField(fieldURL)
}

func (m *Model) closeForm() {
	m.showForm = false
	m.form[m.formField].Blur()
	m.setFocus(m.focus)
}

func (m *Model) setFormField(field int) {
	m.form[m.formField].Blur()
	m.formField = field
	m.form[field].Focus()
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	if f == FocusText {
		m.speed.Blur()
		m.text.Focus()
	} else {
		m.text.Blur()
		m.speed.Focus()
	}
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("flashread"))
	b.WriteString("\n\n")
	b.WriteString(m.renderWord(width))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	if m.showForm {
		b.WriteString(m.renderForm())
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("enter fetch · tab next field · esc cancel"))
		return b.String()
	}

	if m.showText {
		b.WriteString(styles.Panel(m.focus == FocusText).Render(m.text.View()))
		b.WriteString("\n")
	}

	speed := styles.Panel(m.focus == FocusSpeed).Render(m.speed.View())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, styles.Label.Render("Speed (wpm) "), speed))
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("ctrl+s start · ctrl+p pause · ctrl+r rewind · ctrl+o fetch · ctrl+t toggle text · tab switch · esc quit"))

	return b.String()
}

func (m Model) renderForm() string {
	labels := [fieldCount]string{"URL", "Email", "Password"}
	rows := make([]string, 0, fieldCount)
	for i, input := range m.form {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center,
			styles.Label.Width(10).Render(labels[i]), input.View()))
	}
	return styles.Panel(true).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderWord(width int) string {
	word := m.word
	if word == "" {
		word = " "
	}
	return styles.BorderStyle.
		Width(max(width-2, 10)).
		Height(3).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.Word.Render(word))
}

func (m Model) renderStatus() string {
	s := m.status

	var state string
	switch {
	case s.Busy():
		state = styles.Paused.Render("◌ fetching")
	case s.State == playback.StateRunning:
		state = styles.Reading.Render("▶ reading")
	default:
		state = styles.Paused.Render("⏸ paused")
	}

	progress := fmt.Sprintf("%s / %s words", humanize.Comma(int64(s.Position)), humanize.Comma(int64(s.Total)))
	speed := fmt.Sprintf("%s wpm", humanize.Comma(int64(s.WPM)))

	message := styles.Muted.Render(s.Message)
	if strings.HasPrefix(s.Message, "Error") || s.Event == "rejected" {
		message = styles.ErrorText.Render(s.Message)
	}

	return strings.Join([]string{state, styles.Label.Render(progress), styles.Label.Render(speed), message}, styles.Label.Render(" · "))
}
