package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource is a WordProvider backed by a replaceable slice.
type sliceSource struct {
	mu    sync.Mutex
	words []string
}

func newSliceSource(words ...string) *sliceSource {
	return &sliceSource{words: words}
}

func (s *sliceSource) Words() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.words))
	copy(out, s.words)
	return out
}

func (s *sliceSource) set(words ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = words
}

// recorder captures emitted words and when they arrived.
type recorder struct {
	mu    sync.Mutex
	words []string
	times []time.Time
}

func (r *recorder) display(word string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.words = append(r.words, word)
	r.times = append(r.times, time.Now())
}

func (r *recorder) snapshot() ([]string, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	words := make([]string, len(r.words))
	copy(words, r.words)
	times := make([]time.Time, len(r.times))
	copy(times, r.times)
	return words, times
}

func waitIdle(t *testing.T, c *Controller, within time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.GetState() == StateIdle
	}, within, 5*time.Millisecond, "controller did not become idle")
}

func collectEvents(c *Controller) []Event {
	var events []Event
	for {
		select {
		case e, ok := <-c.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

func hasEvent(events []EventType, want EventType) bool {
	for _, e := range events {
		if e == want {
			return true
		}
	}
	return false
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestController_EmitsEveryWordInOrder(t *testing.T) {
	interval := 100 * time.Millisecond
	rec := &recorder{}
	c := NewController(newSliceSource("alpha", "beta", "gamma"), rec.display, Config{Interval: interval})
	defer c.Close()

	startedAt := time.Now()
	require.NoError(t, c.Start())
	assert.Equal(t, StateRunning, c.GetState())

	waitIdle(t, c, 2*time.Second)
	elapsed := time.Since(startedAt)

	words, times := rec.snapshot()
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, words)
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond,
			"gap before word %d was %v", i, gap)
	}
	assert.GreaterOrEqual(t, elapsed, 3*interval-5*time.Millisecond,
		"run should last one interval per word")
	assert.Equal(t, 0, c.GetPosition())
	assert.Equal(t, StateIdle, c.GetState())

	events := eventTypes(collectEvents(c))
	assert.Equal(t, []EventType{EventStarted, EventCompleted}, events)
}

func TestController_EmptyWordList(t *testing.T) {
	rec := &recorder{}
	c := NewController(newSliceSource(), rec.display, Config{Interval: 10 * time.Millisecond})
	defer c.Close()

	require.NoError(t, c.Start())
	assert.Equal(t, StateIdle, c.GetState(), "empty run must finish immediately")
	assert.Equal(t, 0, c.GetPosition())

	words, _ := rec.snapshot()
	assert.Empty(t, words)

	events := eventTypes(collectEvents(c))
	assert.Equal(t, []EventType{EventCompleted}, events)
}

func TestController_StopWithoutStart(t *testing.T) {
	c := NewController(newSliceSource("a", "b"), nil, Config{})
	defer c.Close()

	assert.NoError(t, c.Stop())
	assert.Equal(t, StateIdle, c.GetState())
	assert.Equal(t, 0, c.GetPosition())
	assert.Empty(t, collectEvents(c))
}

func TestController_StopPreservesPosition(t *testing.T) {
	words := []string{"w0", "w1", "w2", "w3", "w4", "w5"}
	shown := make(chan string)
	c := NewController(newSliceSource(words...), func(word string) {
		shown <- word
	}, Config{Interval: time.Second})
	defer c.Close()

	require.NoError(t, c.Start())
	assert.Equal(t, "w0", <-shown)
	assert.Equal(t, "w1", <-shown)

	stopStarted := time.Now()
	require.NoError(t, c.Stop())
	assert.Less(t, time.Since(stopStarted), 500*time.Millisecond,
		"stop should interrupt the pacing wait")

	assert.Equal(t, StateIdle, c.GetState())
	assert.Equal(t, 2, c.GetPosition())

	select {
	case w := <-shown:
		t.Fatalf("word %q emitted after stop", w)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 2, c.GetPosition(), "position must not reset until a new start")

	events := eventTypes(collectEvents(c))
	assert.Equal(t, []EventType{EventStarted, EventStopped}, events)
}

func TestController_ResumeAfterStop(t *testing.T) {
	shown := make(chan string, 16)
	c := NewController(newSliceSource("one", "two", "three", "four"), func(word string) {
		shown <- word
	}, Config{Interval: 200 * time.Millisecond})
	defer c.Close()

	require.NoError(t, c.Start())
	assert.Equal(t, "one", <-shown)
	require.NoError(t, c.Stop())
	require.Equal(t, 1, c.GetPosition())

	require.NoError(t, c.Configure(5*time.Millisecond))
	require.NoError(t, c.Start())
	waitIdle(t, c, time.Second)

	var resumed []string
	for len(shown) > 0 {
		resumed = append(resumed, <-shown)
	}
	assert.Equal(t, []string{"two", "three", "four"}, resumed)
	assert.Equal(t, 0, c.GetPosition())
}

func TestController_ReplayAfterCompletion(t *testing.T) {
	rec := &recorder{}
	c := NewController(newSliceSource("x", "y"), rec.display, Config{Interval: 5 * time.Millisecond})
	defer c.Close()

	require.NoError(t, c.Start())
	waitIdle(t, c, time.Second)
	require.NoError(t, c.Start())
	waitIdle(t, c, time.Second)

	words, _ := rec.snapshot()
	assert.Equal(t, []string{"x", "y", "x", "y"}, words)
}

func TestController_ConfigureAppliesToNextRun(t *testing.T) {
	t.Run("between runs", func(t *testing.T) {
		rec := &recorder{}
		c := NewController(newSliceSource("a", "b", "c", "d", "e"), rec.display, Config{Interval: time.Second})
		defer c.Close()

		require.NoError(t, c.Configure(10*time.Millisecond))
		assert.Equal(t, 10*time.Millisecond, c.GetInterval())

		require.NoError(t, c.Start())
		// Five words at the old one-second interval would take five seconds.
		waitIdle(t, c, time.Second)

		words, _ := rec.snapshot()
		assert.Len(t, words, 5)
	})

	t.Run("during a run", func(t *testing.T) {
		rec := &recorder{}
		c := NewController(newSliceSource("a", "b", "c"), rec.display, Config{Interval: 10 * time.Millisecond})
		defer c.Close()

		require.NoError(t, c.Start())
		require.NoError(t, c.Configure(time.Hour))

		// The run keeps its starting interval.
		waitIdle(t, c, time.Second)
		words, _ := rec.snapshot()
		assert.Equal(t, []string{"a", "b", "c"}, words)
		assert.Equal(t, time.Hour, c.GetInterval())
	})
}

func TestController_ConfigureRejectsNonPositive(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		wantErr  bool
	}{
		{name: "positive", interval: 250 * time.Millisecond},
		{name: "one nanosecond", interval: time.Nanosecond},
		{name: "zero", interval: 0, wantErr: true},
		{name: "negative", interval: -time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(newSliceSource(), nil, Config{Interval: time.Second})
			defer c.Close()

			err := c.Configure(tt.interval)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInterval)
				assert.Equal(t, time.Second, c.GetInterval(), "rejected value must not be applied")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.interval, c.GetInterval())
			}
		})
	}
}

func TestController_CallbackPanicDoesNotStopRun(t *testing.T) {
	rec := &recorder{}
	c := NewController(newSliceSource("alpha", "beta", "gamma"), func(word string) {
		if word == "beta" {
			panic("display failed")
		}
		rec.display(word)
	}, Config{Interval: 10 * time.Millisecond})
	defer c.Close()

	require.NoError(t, c.Start())
	waitIdle(t, c, time.Second)

	words, _ := rec.snapshot()
	assert.Equal(t, []string{"alpha", "gamma"}, words)
	assert.Equal(t, 0, c.GetPosition())

	events := collectEvents(c)
	require.True(t, hasEvent(eventTypes(events), EventWordFailed))
	for _, e := range events {
		if e.Type == EventWordFailed {
			assert.Equal(t, "beta", e.Word)
			assert.Equal(t, 1, e.Position)
		}
	}
	assert.True(t, hasEvent(eventTypes(events), EventCompleted))
}

func TestController_StartWhileRunning(t *testing.T) {
	rec := &recorder{}
	c := NewController(newSliceSource("a", "b", "c", "d"), rec.display, Config{Interval: 20 * time.Millisecond})
	defer c.Close()

	require.NoError(t, c.Start())
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, c.Start(), ErrAlreadyRunning)
	}
	waitIdle(t, c, time.Second)

	words, _ := rec.snapshot()
	assert.Equal(t, []string{"a", "b", "c", "d"}, words, "a second loop must never be spawned")
}

func TestController_StopTimeoutWhileCallbackBlocks(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	c := NewController(newSliceSource("slow", "next"), func(word string) {
		entered <- struct{}{}
		<-release
	}, Config{Interval: 10 * time.Millisecond, StopTimeout: 20 * time.Millisecond})
	defer c.Close()

	require.NoError(t, c.Start())
	<-entered

	assert.ErrorIs(t, c.Stop(), ErrStopTimeout)
	assert.Equal(t, StateIdle, c.GetState())
	assert.ErrorIs(t, c.Start(), ErrAlreadyRunning, "draining run must block a new start")
	assert.ErrorIs(t, c.Reset(), ErrAlreadyRunning)

	close(release)
	require.Eventually(t, func() bool {
		return c.GetPosition() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateIdle, c.GetState())
	require.Eventually(t, func() bool {
		return c.Reset() == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.GetPosition())
}

func TestController_ReadsWordsAtStart(t *testing.T) {
	src := newSliceSource("old")
	rec := &recorder{}
	c := NewController(src, rec.display, Config{Interval: 5 * time.Millisecond})
	defer c.Close()

	src.set("new", "text")
	require.NoError(t, c.Start())
	waitIdle(t, c, time.Second)

	words, _ := rec.snapshot()
	assert.Equal(t, []string{"new", "text"}, words)
}

func TestController_ShrunkListCompletesImmediately(t *testing.T) {
	src := newSliceSource("a", "b", "c", "d")
	shown := make(chan string)
	c := NewController(src, func(word string) { shown <- word }, Config{Interval: time.Second})
	defer c.Close()

	require.NoError(t, c.Start())
	<-shown
	<-shown
	<-shown
	require.NoError(t, c.Stop())
	require.Equal(t, 3, c.GetPosition())

	src.set("only")
	require.NoError(t, c.Start())
	assert.Equal(t, StateIdle, c.GetState())
	assert.Equal(t, 0, c.GetPosition())
}

func TestController_Close(t *testing.T) {
	c := NewController(newSliceSource("a", "b", "c"), nil, Config{Interval: time.Second})

	require.NoError(t, c.Start())
	c.Close()
	c.Close()

	assert.Equal(t, StateIdle, c.GetState())
	assert.ErrorIs(t, c.Start(), ErrClosed)

	for range c.Events() {
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.Equal(t, "word_failed", EventWordFailed.String())
	assert.Equal(t, "unknown", EventType(42).String())
}
