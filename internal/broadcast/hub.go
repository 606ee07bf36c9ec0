package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Hub fans committed quiz events out to subscribers. Publish never blocks: when a
// subscriber's queue is full its oldest event is dropped to make room.
type Hub struct {
	buffer int

	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// Subscription is one consumer of hub events.
type Subscription struct {
	id      string
	ch      chan domain.Event
	admin   atomic.Bool
	tap     bool
	dropped atomic.Uint64
	hub     *Hub
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new consumer. Admin subscribers receive admin-audience events
// instead of participant-audience ones.
func (h *Hub) Subscribe(admin bool) *Subscription {
	return h.SubscribeBuffered(admin, h.buffer)
}

// SubscribeBuffered is Subscribe with a custom queue length, for consumers that must
// not miss events under load.
func (h *Hub) SubscribeBuffered(admin bool, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = h.buffer
	}
	sub := &Subscription{
		id:  uuid.NewString(),
		ch:  make(chan domain.Event, buffer),
		hub: h,
	}
	sub.admin.Store(admin)

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// SubscribeAll registers a consumer that receives every event whatever its audience.
// Projections such as the archive or the NATS bridge use it.
func (h *Hub) SubscribeAll(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = h.buffer
	}
	sub := &Subscription{
		id:  uuid.NewString(),
		ch:  make(chan domain.Event, buffer),
		tap: true,
		hub: h,
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Publish implements domain.EventSink.
func (h *Hub) Publish(events ...domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, evt := range events {
		for sub := range h.subs {
			if !sub.wants(evt) {
				continue
			}
			sub.deliver(evt)
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

func (s *Subscription) ID() string { return s.id }

// Events is closed when the subscription or the hub is closed.
func (s *Subscription) Events() <-chan domain.Event { return s.ch }

// SetAdmin switches the audience of the subscription, e.g. after a connection was
// promoted.
func (s *Subscription) SetAdmin(admin bool) { s.admin.Store(admin) }

func (s *Subscription) Admin() bool { return s.admin.Load() }

// Dropped counts events discarded because the consumer fell behind.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

func (s *Subscription) wants(evt domain.Event) bool {
	if s.tap {
		return true
	}
	switch evt.Audience {
	case domain.AudienceAdmin:
		return s.admin.Load()
	case domain.AudienceParticipants:
		return !s.admin.Load()
	default:
		return true
	}
}

func (s *Subscription) deliver(evt domain.Event) {
	select {
	case s.ch <- evt:
		return
	default:
	}

	select {
	case <-s.ch:
		n := s.dropped.Add(1)
		log.Warn().Str("subscriber", s.id).Uint64("dropped", n).Msg("subscriber too slow, dropped oldest event")
	default:
	}
	select {
	case s.ch <- evt:
	default:
	}
}
