// Package notification provides the notification manager for broadcasting
// reader events to remote subscribers.
package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultSendTimeout = 500 * time.Millisecond
	defaultQueueSize   = 64
)

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*structpb.Struct) error
}

// subscription represents a subscriber's subscription. Messages are delivered
// in order by a single sender goroutine.
type subscription struct {
	id     string
	stream Stream
	queue  chan *structpb.Struct
	done    chan struct{} // closed when the subscription ends
	exited  chan struct{} // closed once no Send is running or will start
	sending sync.WaitGroup
	once    sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	draining      map[string]*subscription // ended, a Send may still be running
	sequenceNo    uint64
	sendTimeout   time.Duration
	closed        bool
}

// NewManager creates a new notification manager. A subscriber whose Send
// does not return within sendTimeout is dropped.
func NewManager(sendTimeout time.Duration) *Manager {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &Manager{
		subscriptions: make(map[string]*subscription),
		draining:      make(map[string]*subscription),
		sendTimeout:   sendTimeout,
	}
}

// Subscribe adds a new subscription and returns its ID together with a
// channel that is closed when the subscription ends. When initial is not nil
// it is stamped with the next sequence number and delivered before any
// broadcast.
func (m *Manager) Subscribe(stream Stream, initial *structpb.Struct) (string, <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &subscription{
		id:     uuid.New().String(),
		stream: stream,
		queue:  make(chan *structpb.Struct, defaultQueueSize),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	if m.closed {
		sub.close()
		close(sub.exited)
		return sub.id, sub.done
	}

	if initial != nil {
		m.sequenceNo++
		setSequenceNo(initial, m.sequenceNo)
		sub.queue <- initial
	}
	m.subscriptions[sub.id] = sub
	go m.deliver(sub)

	zlog.Debug().Msgf("notification: subscribed: id=%s subscribers=%d", sub.id, len(m.subscriptions))
	return sub.id, sub.done
}

// Unsubscribe removes a subscription and waits until no Send to its stream
// is running, including one abandoned after the send timeout. The stream's
// owner may release the stream once Unsubscribe returns. A Send stuck on a
// network stream returns when that stream's request context ends.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub := m.unsubscribeLocked(subscriptionID)
	if sub == nil {
		sub = m.draining[subscriptionID]
	}
	m.mu.Unlock()
	if sub == nil {
		return
	}
	<-sub.exited
}

func (m *Manager) unsubscribeLocked(subscriptionID string) *subscription {
	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil
	}
	delete(m.subscriptions, subscriptionID)
	m.draining[subscriptionID] = sub
	sub.close()
	zlog.Debug().Msgf("notification: unsubscribed: id=%s subscribers=%d", subscriptionID, len(m.subscriptions))
	return sub
}

// Broadcast stamps the message with the next sequence number and queues it
// for every subscriber. It never blocks on a subscriber: when a queue is
// full the message is dropped for that subscriber.
func (m *Manager) Broadcast(msg *structpb.Struct) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequenceNo++
	seq := m.sequenceNo
	setSequenceNo(msg, seq)

	for _, sub := range m.subscriptions {
		select {
		case sub.queue <- msg:
		default:
			zlog.Warn().Msgf("notification: queue full, dropping message: id=%s sequence_no=%d", sub.id, seq)
		}
	}
	return seq
}

// deliver sends queued messages to the stream until the subscription ends.
func (m *Manager) deliver(sub *subscription) {
	defer func() {
		sub.sending.Wait()
		close(sub.exited)

		m.mu.Lock()
		delete(m.draining, sub.id)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.queue:
			if !m.send(sub, msg) {
				m.drop(sub.id)
				return
			}
		}
	}
}

// send delivers one message, giving up after the send timeout.
func (m *Manager) send(sub *subscription, msg *structpb.Struct) bool {
	done := make(chan error, 1)
	sub.sending.Add(1)
	go func() {
		defer sub.sending.Done()
		done <- sub.stream.Send(msg)
	}()

	timer := time.NewTimer(m.sendTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			zlog.Debug().Msgf("notification: send failed, dropping subscriber: id=%s error=%v", sub.id, err)
			return false
		}
		return true
	case <-timer.C:
		// The pending Send still owns the stream: no further sends, and
		// exited waits for it.
		zlog.Warn().Msgf("notification: send timed out, dropping subscriber: id=%s timeout=%s", sub.id, m.sendTimeout)
		return false
	}
}

func (m *Manager) drop(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribeLocked(subscriptionID)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.subscriptions {
		m.unsubscribeLocked(id)
	}
	m.closed = true
}
