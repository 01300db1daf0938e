// Package events provides the in-process notification sink. Delivery is
// fire-and-forget: publishing never blocks an operation and no delivery
// guarantee is made to subscribers.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Topics published by the engines.
const (
	TopicCircleCreated   = "circle_created"
	TopicMemberJoined    = "member_joined"
	TopicCircleStarted   = "circle_started"
	TopicContribution    = "contribution"
	TopicPayout          = "payout"
	TopicCircleCompleted = "circle_completed"
	TopicCircleCancelled = "circle_cancelled"
	TopicPaymentRecorded = "payment_recorded"
	TopicPaymentMissed   = "payment_missed"
	TopicScoreDecayed    = "score_decayed"
	TopicWalletBound     = "wallet_bound"
)

// Publisher is the port the engines publish through.
type Publisher interface {
	Publish(topic string, payload any)
}

// Event is one published notification.
type Event struct {
	Topic     string
	Timestamp time.Time
	Payload   any
}

type subscriberID int

// Bus is an in-memory Publisher with per-topic subscriber channels. A slow
// subscriber loses events rather than stalling the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[subscriberID]chan Event
	lastSubID   subscriberID
	logger      *slog.Logger

	published *prometheus.CounterVec
	dropped   prometheus.Counter
}

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 20

// NewBus creates a Bus. promRegistry may be nil to skip metrics.
func NewBus(promRegistry prometheus.Registerer, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		subscribers: make(map[string]map[subscriberID]chan Event),
		logger:      logger,
	}
	if promRegistry != nil {
		b.published = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "susu_events_published_total",
			Help: "Events published, by topic.",
		}, []string{"topic"})
		b.dropped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "susu_events_dropped_total",
			Help: "Events dropped due to full subscriber buffers.",
		})
		promRegistry.MustRegister(b.published, b.dropped)
	}
	return b
}

// Publish delivers an event to every subscriber of topic without blocking.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Timestamp: time.Now(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.published != nil {
		b.published.WithLabelValues(topic).Inc()
	}
	for id, ch := range b.subscribers[topic] {
		select {
		case ch <- evt:
		default:
			if b.dropped != nil {
				b.dropped.Inc()
			}
			b.logger.Warn("event dropped", "topic", topic, "subscriber", id)
		}
	}
}

// Subscribe registers for a topic and returns the delivery channel plus an
// unsubscribe func. The channel is closed on unsubscribe.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSubID++
	id := b.lastSubID
	ch := make(chan Event, subscriberBuffer)
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[subscriberID]chan Event)
	}
	b.subscribers[topic][id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[topic][id]; ok {
			delete(b.subscribers[topic], id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Nop is a Publisher that discards everything. Useful in tests that don't
// assert on events.
type Nop struct{}

// Publish discards the event.
func (Nop) Publish(string, any) {}
