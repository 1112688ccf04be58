// Package session provides the reading session: the shell-facing contract
// around word playback, content acquisition and notification fan-out.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/flashread/internal/app/notification"
	"github.com/osa030/flashread/internal/app/playback"
	"github.com/osa030/flashread/internal/app/session/state"
	"github.com/osa030/flashread/internal/app/source"
	"github.com/osa030/flashread/internal/domain/wordsource"
	"github.com/osa030/flashread/internal/infra/config"
)

// Session event names, in addition to the playback event types.
const (
	EventLoaded      = "loaded"
	EventSpeed       = "speed"
	EventRewound     = "rewound"
	EventFetching    = "fetching"
	EventFetched     = "fetched"
	EventFetchFailed = "fetch_failed"
)

// Manager manages the reading session.
type Manager struct {
	// Serializes control operations
	mu sync.Mutex

	// Configuration
	config *config.Config

	// Components
	words        *wordsource.Source
	playback     *playback.Controller
	sources      *source.Chain
	notification *notification.Manager
	stateMgr     *state.Manager

	// Shell callbacks
	hookMu    sync.RWMutex
	display   playback.DisplayFunc
	stateHook func(Status)

	// Lifecycle
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new session manager. sources may be nil, in which
// case Fetch returns ErrNoSources.
func NewManager(cfg *config.Config, sources *source.Chain) (*Manager, error) {
	if cfg.Reader.WPM < 1 || cfg.Reader.WPM > cfg.Reader.MaxWPM {
		return nil, errors.Wrapf(ErrInvalidSpeed, "reader.wpm %d is outside 1..%d", cfg.Reader.WPM, cfg.Reader.MaxWPM)
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:       cfg,
		words:        wordsource.New(),
		sources:      sources,
		notification: notification.NewManager(cfg.NotifyTimeout()),
		stateMgr:     state.New(cfg.Reader.WPM, cfg.GetMessage("ready")),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	m.playback = playback.NewController(m.words, m.emit, playback.Config{
		Interval:    Interval(cfg.Reader.WPM),
		StopTimeout: cfg.StopTimeout(),
	})

	go m.playbackLoop()

	zlog.Info().Msgf("session created: wpm=%d interval=%s", cfg.Reader.WPM, Interval(cfg.Reader.WPM))
	return m, nil
}

// SetDisplay sets the local display callback. It runs on the playback
// goroutine; shells must marshal it onto their own loop.
func (m *Manager) SetDisplay(fn playback.DisplayFunc) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.display = fn
}

// SetStateHook sets a callback invoked after every session or playback
// event with the resulting status.
func (m *Manager) SetStateHook(fn func(Status)) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.stateHook = fn
}

// LoadText replaces the text and rewinds to its first word.
func (m *Manager) LoadText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateMgr.GetActivity() == state.ActivityFetching {
		return m.reject(ErrBusy, "busy")
	}
	if m.playback.GetState() == playback.StateRunning {
		return m.reject(errors.Wrap(ErrBusy, "pause before loading new text"), "busy")
	}

	if err := m.replaceTextLocked(text, ""); err != nil {
		return err
	}
	m.stateMgr.SetMessage(m.config.GetMessage("ready"))
	m.publish(EventLoaded)
	return nil
}

// SetSpeed parses and applies a words-per-minute value typed by the user.
// A run in progress keeps its speed until it is paused and started again.
func (m *Manager) SetSpeed(wpmText string) (int, error) {
	wpm, err := ParseWPM(wpmText, m.config.Reader.MaxWPM)
	if err != nil {
		return 0, m.reject(err, "invalid_speed")
	}
	if err := m.SetWPM(wpm); err != nil {
		return 0, err
	}
	return wpm, nil
}

// SetWPM applies a words-per-minute value.
func (m *Manager) SetWPM(wpm int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wpm < 1 || wpm > m.config.Reader.MaxWPM {
		return m.reject(errors.Wrapf(ErrInvalidSpeed, "%d is outside 1..%d", wpm, m.config.Reader.MaxWPM), "invalid_speed")
	}
	if err := m.playback.Configure(Interval(wpm)); err != nil {
		return m.reject(errors.Wrap(ErrInvalidSpeed, err.Error()), "invalid_speed")
	}
	m.stateMgr.SetWPM(wpm)
	zlog.Info().Msgf("speed set: wpm=%d interval=%s", wpm, Interval(wpm))
	m.publish(EventSpeed)
	return nil
}

// Start starts or resumes playback. Starting while already playing is a
// no-op. Starting while a stopped run is still draining returns ErrBusy.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateMgr.GetActivity() == state.ActivityFetching {
		return m.reject(ErrBusy, "busy")
	}
	if m.words.IsEmpty() {
		return m.reject(ErrNoText, "no_text")
	}

	if err := m.playback.Start(); err != nil {
		if errors.Is(err, playback.ErrAlreadyRunning) {
			if m.playback.GetState() == playback.StateRunning {
				zlog.Debug().Msg("start ignored: playback already running")
				return nil
			}
			// A paused run whose display callback outlived the stop timeout.
			return m.reject(ErrBusy, "busy")
		}
		return errors.Wrap(err, "failed to start playback")
	}
	return nil
}

// Pause stops playback, keeping the position.
func (m *Manager) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.playback.Stop(); err != nil {
		return errors.Wrap(err, "failed to pause playback")
	}
	return nil
}

// Rewind stops playback and moves back to the first word.
func (m *Manager) Rewind() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.playback.Stop(); err != nil {
		return errors.Wrap(err, "failed to pause playback")
	}
	if err := m.playback.Reset(); err != nil {
		return errors.Wrap(err, "failed to rewind")
	}
	m.stateMgr.SetLastWord("")
	m.publish(EventRewound)
	return nil
}

// Fetch acquires text from the configured sources and, on success, replaces
// the current text. On failure the current text is left untouched. Only one
// fetch runs at a time.
func (m *Manager) Fetch(ctx context.Context, req source.Request) error {
	if m.sources == nil {
		return m.reject(ErrNoSources, "default_error")
	}
	if !m.stateMgr.BeginFetch() {
		return m.reject(ErrBusy, "busy")
	}
	event := EventFetchFailed
	defer func() {
		m.stateMgr.EndFetch()
		m.publish(event)
	}()

	if req.Email == "" {
		req.Email = m.config.Source.Email
	}
	if req.Password == "" {
		req.Password = m.config.Source.Password
	}

	m.stateMgr.SetMessage(m.config.GetMessage("fetching"))
	m.publish(EventFetching)

	ctx, cancel := context.WithTimeout(ctx, m.config.SourceTimeout())
	defer cancel()

	started := time.Now()
	text, err := m.sources.Fetch(ctx, req)
	if err != nil {
		zlog.Error().Msgf("fetch failed: url=%s elapsed=%s error=%v", req.URL, time.Since(started), err)
		m.failFetch(err)
		return errors.Wrap(err, "fetch failed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.playback.Stop(); err != nil {
		m.failFetch(err)
		return errors.Wrap(err, "failed to pause playback")
	}
	if err := m.replaceTextLocked(text, req.URL); err != nil {
		m.failFetch(err)
		return err
	}

	zlog.Info().Msgf("fetch succeeded: url=%s words=%d elapsed=%s", req.URL, m.words.Len(), time.Since(started))
	m.stateMgr.SetMessage(m.config.GetMessage("fetched"))
	event = EventFetched
	return nil
}

// failFetch shows err as "Error: <reason>".
func (m *Manager) failFetch(err error) {
	m.stateMgr.SetMessage(fmt.Sprintf("%s: %v", m.config.GetMessage("default_error"), err))
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() *Status {
	return &Status{
		State:    m.playback.GetState(),
		Activity: m.stateMgr.GetActivity(),
		Position: m.playback.GetPosition(),
		Total:    m.words.Len(),
		WPM:      m.stateMgr.GetWPM(),
		Interval: m.playback.GetInterval(),
		Word:     m.stateMgr.GetLastWord(),
		Message:  m.stateMgr.GetMessage(),
		Event:    m.stateMgr.GetLastEvent(),
		Origin:   m.stateMgr.GetOrigin(),
	}
}

// Text returns the current text.
func (m *Manager) Text() string {
	return m.words.Text()
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Done returns a channel that is closed when the session is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close stops playback and releases the session.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		m.playback.Close()
		m.notification.Close()
		close(m.done)
		zlog.Info().Msg("session closed")
	})
}

// replaceTextLocked swaps the text and rewinds. Playback must be stopped.
func (m *Manager) replaceTextLocked(text, origin string) error {
	m.words.SetText(text)
	if err := m.playback.Reset(); err != nil {
		return errors.Wrap(err, "failed to rewind")
	}
	m.stateMgr.SetOrigin(origin)
	m.stateMgr.SetLastWord("")
	zlog.Info().Msgf("text loaded: words=%d origin=%q", m.words.Len(), origin)
	return nil
}

// reject records the user-facing message for code and returns err.
func (m *Manager) reject(err error, code string) error {
	m.stateMgr.SetMessage(m.config.GetMessage(code))
	zlog.Debug().Msgf("request rejected: code=%s error=%v", code, err)
	m.publish("rejected")
	return err
}

// emit is the playback display callback: it feeds the local display and
// broadcasts the word to remote subscribers.
func (m *Manager) emit(word string) {
	position := m.playback.GetPosition()
	m.stateMgr.SetLastWord(word)

	m.hookMu.RLock()
	display := m.display
	m.hookMu.RUnlock()
	if display != nil {
		display(word)
	}

	m.notification.Broadcast(notification.NewWordMessage(word, position))
}

// publish broadcasts the current state and runs the state hook.
func (m *Manager) publish(event string) {
	m.stateMgr.SetLastEvent(event)
	status := m.GetStatus()

	m.notification.Broadcast(notification.NewStateMessage(
		notification.KindState, status.State.String(), event, status.Position, status.Total))

	m.hookMu.RLock()
	hook := m.stateHook
	m.hookMu.RUnlock()
	if hook != nil {
		hook(*status)
	}
}

// playbackLoop handles playback events.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			zlog.Info().Msg("restarting playback loop")
			go m.playbackLoop()
		}
	}()

	events := m.playback.Events()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	zlog.Info().Msgf("playback event: type=%s position=%d total=%d", event.Type, event.Position, event.Total)

	switch event.Type {
	case playback.EventCompleted:
		m.stateMgr.SetLastWord("")
	case playback.EventWordFailed:
		zlog.Warn().Msgf("word display failed: position=%d word=%q", event.Position, event.Word)
	}
	m.publish(event.Type.String())
}
