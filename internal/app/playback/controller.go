package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrAlreadyRunning  = errors.New("playback already running")
	ErrStopTimeout     = errors.New("playback did not stop within the grace period")
	ErrClosed          = errors.New("controller closed")
)

const (
	defaultInterval    = 300 * time.Millisecond // 200 wpm
	defaultStopTimeout = 500 * time.Millisecond
	eventBufferSize    = 16
)

// DisplayFunc receives each emitted word. It is called on the playback
// goroutine; callers that own a UI loop must hand the word over to it.
type DisplayFunc func(word string)

// WordProvider supplies the word list read at the start of every run.
type WordProvider interface {
	Words() []string
}

// Config holds controller configuration.
type Config struct {
	Interval    time.Duration // Initial delay between words
	StopTimeout time.Duration // How long Stop waits for the playback goroutine
}

// run is the state private to one playback goroutine.
type run struct {
	words    []string
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func (r *run) stopped() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

// Controller paces words from a WordProvider onto a DisplayFunc.
type Controller struct {
	mu sync.RWMutex

	source  WordProvider
	display DisplayFunc

	// Playback state
	state    State
	position int           // Next word to emit, written only by the playback goroutine
	interval time.Duration // Applied to the next run
	current  *run          // Non-nil while a playback goroutine may still touch state

	config Config

	// Events
	eventCh chan Event
	closed  bool

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller.
func NewController(source WordProvider, display DisplayFunc, config Config) *Controller {
	if config.Interval <= 0 {
		config.Interval = defaultInterval
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = defaultStopTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		source:   source,
		display:  display,
		state:    StateIdle,
		interval: config.Interval,
		config:   config,
		eventCh:  make(chan Event, eventBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Configure sets the delay between words. A run in progress keeps the
// interval it was started with; the new value applies from the next Start.
func (c *Controller) Configure(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.interval = interval
	return nil
}

// Start begins emitting words from the current position. The word list is
// read from the provider now, so text changes made before Start take effect.
// Starting while a run is active, or while a stopped run is still draining,
// returns ErrAlreadyRunning.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state == StateRunning || c.current != nil {
		return ErrAlreadyRunning
	}

	var words []string
	if c.source != nil {
		words = c.source.Words()
	}

	// Nothing left to emit: complete without spawning a goroutine.
	if c.position >= len(words) {
		c.position = 0
		c.sendEventLocked(Event{
			Type:  EventCompleted,
			Total: len(words),
			State: c.state,
		})
		return nil
	}

	r := &run{
		words:    words,
		interval: c.interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	c.current = r
	c.state = StateRunning

	zlog.Debug().Msgf("playback: starting run: words=%d position=%d interval=%v",
		len(words), c.position, r.interval)

	c.sendEventLocked(Event{
		Type:     EventStarted,
		Position: c.position,
		Total:    len(words),
		State:    c.state,
	})

	go c.loop(r)
	return nil
}

// Stop halts the active run, keeping the position so that the next Start
// resumes from the same word. It waits up to Config.StopTimeout for the
// playback goroutine to exit and returns ErrStopTimeout if it has not.
// Stopping an idle controller is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	r := c.current
	c.state = StateIdle
	close(r.stopCh)
	c.mu.Unlock()

	timer := time.NewTimer(c.config.StopTimeout)
	defer timer.Stop()

	select {
	case <-r.doneCh:
		return nil
	case <-timer.C:
		zlog.Warn().Msgf("playback: run still draining after %v", c.config.StopTimeout)
		return ErrStopTimeout
	}
}

// Reset rewinds an idle controller to the first word.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning || c.current != nil {
		return ErrAlreadyRunning
	}
	c.position = 0
	return nil
}

// GetState returns the current playback state.
func (c *Controller) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// GetPosition returns the index of the next word to emit.
func (c *Controller) GetPosition() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

// GetInterval returns the interval that the next run will use.
func (c *Controller) GetInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interval
}

// Close stops playback and releases resources.
func (c *Controller) Close() {
	_ = c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	close(c.eventCh)
}

// loop is the playback goroutine. It is the only writer of position.
func (c *Controller) loop(r *run) {
	defer close(r.doneCh)

	for {
		c.mu.Lock()
		if c.position >= len(r.words) {
			c.position = 0
			c.state = StateIdle
			c.current = nil
			zlog.Debug().Msgf("playback: run completed: words=%d", len(r.words))
			c.sendEventLocked(Event{
				Type:  EventCompleted,
				Total: len(r.words),
				State: c.state,
			})
			c.mu.Unlock()
			return
		}
		if r.stopped() {
			c.current = nil
			zlog.Debug().Msgf("playback: run stopped: position=%d words=%d", c.position, len(r.words))
			c.sendEventLocked(Event{
				Type:     EventStopped,
				Position: c.position,
				Total:    len(r.words),
				State:    c.state,
			})
			c.mu.Unlock()
			return
		}
		pos := c.position
		word := r.words[pos]
		c.mu.Unlock()

		if !c.emit(pos, word) {
			c.mu.Lock()
			c.sendEventLocked(Event{
				Type:     EventWordFailed,
				Position: pos,
				Total:    len(r.words),
				Word:     word,
				State:    c.state,
			})
			c.mu.Unlock()
		}

		// The word counts as shown even when Stop interrupts the wait.
		timer := time.NewTimer(r.interval)
		select {
		case <-r.stopCh:
			timer.Stop()
		case <-timer.C:
		}

		c.mu.Lock()
		c.position++
		c.mu.Unlock()
	}
}

// emit invokes the display callback, recovering from a panic so the run
// keeps its pacing. It reports whether the callback returned normally.
func (c *Controller) emit(pos int, word string) (ok bool) {
	if c.display == nil {
		return true
	}
	defer func() {
		if rec := recover(); rec != nil {
			zlog.Error().Msgf("playback: display callback failed: position=%d word=%q panic=%v", pos, word, rec)
			ok = false
		}
	}()
	c.display(word)
	return true
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		// Channel full, drop event
	}
}
