package chat

import (
	"sync"

	"github.com/finestate/hub-backend/internal/entity"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSending   Phase = "sending"
	PhaseStreaming Phase = "streaming"
)

type EventKind string

const (
	EventPhase   EventKind = "phase"
	EventDelta   EventKind = "delta"
	EventMessage EventKind = "message"
	EventInput   EventKind = "input"
	EventStatus  EventKind = "status"
	EventVoice   EventKind = "voice"
	// EventReset follows NewConversation.
	EventReset EventKind = "reset"
)

// Event describes one observable state change. Delta events carry the
// whole visible text in Partial, so a dropped delta loses nothing.
type Event struct {
	Kind      EventKind
	Phase     Phase
	Delta     string
	Partial   string
	Message   *entity.ChatMessage
	Input     string
	Status    string
	Listening bool
	// Turn numbers the send an event belongs to, zero outside any send.
	Turn uint64
}

const subscriptionBuffer = 256

type Subscription struct {
	ch       chan Event
	done     chan struct{}
	once     sync.Once
	onCancel func(*Subscription)
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Done is closed when the subscription or the session is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.onCancel != nil {
			s.onCancel(s)
		}
	})
}

type broker struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[*Subscription]struct{})}
}

func (b *broker) subscribe() *Subscription {
	sub := &Subscription{
		ch:       make(chan Event, subscriptionBuffer),
		done:     make(chan struct{}),
		onCancel: b.remove,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *broker) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// publish never holds the broker lock while sending. Deltas are dropped
// for slow subscribers, every other event waits for the subscriber.
func (b *broker) publish(ev Event) {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if ev.Kind == EventDelta {
			select {
			case sub.ch <- ev:
			case <-sub.done:
			default:
			}
			continue
		}

		select {
		case sub.ch <- ev:
		case <-sub.done:
		}
	}
}

func (b *broker) closeAll() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
