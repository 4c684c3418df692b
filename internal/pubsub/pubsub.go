// Package pubsub fans draft events out to local subscribers, optionally
// bridged through NATS JetStream so every instance sees every event.
package pubsub

import (
	"sync"
	"time"

	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
)

// Event types published by the engine and the task runner.
const (
	EventDraftCreated  = "draft:created"
	EventDraftPick     = "draft:pick"
	EventDraftComplete = "draft:complete"
	EventPickFailed    = "pick:failed"
	EventTaskUpdate    = "task:update"
)

// Event represents a pubsub event
type Event struct {
	Type    string                 `json:"type"`
	DraftID string                 `json:"draft_id,omitempty"`
	Time    time.Time              `json:"time"`
	// Seq orders events as this process delivered them. It is local to
	// one PubSub and is assigned on delivery.
	Seq     uint64                 `json:"seq,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Publisher is what producers of events depend on.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}

// Upstream is an interface for upstream publishers (e.g., NATS)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

const replaySize = 256

// PubSub delivers events to local subscribers and keeps a short replay
// buffer so late subscribers can catch up on a draft.
type PubSub struct {
	subs     fanout
	upstream Upstream // optional

	mu     sync.Mutex
	seq    uint64
	recent []Event
}

// New creates a local-only PubSub.
func New() *PubSub {
	return &PubSub{subs: fanout{size: 10}}
}

// NewWithUpstream creates a PubSub that sends every Publish to upstream and
// forwards whatever upstream broadcasts to local subscribers. The forwarding
// goroutine exits when the upstream channel closes.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{subs: fanout{size: 10}, upstream: upstream}

	ch := upstream.Subscribe()
	go func() {
		for event := range ch {
			logger.Debug("PubSub: Received event from upstream", "type", event.Type, "draft_id", event.DraftID)
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	return ps.subs.subscribe()
}

// Unsubscribe removes and closes a subscriber channel.
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.subs.unsubscribe(ch)
}

// SubscriberCount returns the number of local subscribers.
func (ps *PubSub) SubscriberCount() int {
	return ps.subs.count()
}

// Publish stamps and sends event. With an upstream configured the event
// reaches local subscribers only via the upstream echo.
func (ps *PubSub) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.publishLocal(event)
}

// Recent returns buffered events for draftID, oldest first. An empty
// draftID returns every buffered event.
func (ps *PubSub) Recent(draftID string) []Event {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	out := make([]Event, 0, len(ps.recent))
	for _, e := range ps.recent {
		if draftID == "" || e.DraftID == draftID {
			out = append(out, e)
		}
	}
	return out
}

func (ps *PubSub) publishLocal(event Event) {
	ps.mu.Lock()
	ps.seq++
	event.Seq = ps.seq
	ps.recent = append(ps.recent, event)
	if len(ps.recent) > replaySize {
		ps.recent = ps.recent[len(ps.recent)-replaySize:]
	}
	ps.mu.Unlock()

	if dropped := ps.subs.deliver(event); dropped > 0 {
		logger.Warn("PubSub: Skipping slow subscribers", "type", event.Type, "dropped", dropped)
	}
}

// fanout is a set of buffered subscriber channels. Delivery never blocks:
// a full channel misses the event.
type fanout struct {
	mu   sync.RWMutex
	subs []chan Event
	size int
}

func (f *fanout) subscribe() chan Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, f.size)
	f.subs = append(f.subs, ch)
	return ch
}

func (f *fanout) unsubscribe(ch chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, sub := range f.subs {
		if sub == ch {
			close(ch)
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return
		}
	}
}

func (f *fanout) deliver(event Event) (dropped int) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.subs {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	return dropped
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		close(ch)
	}
	f.subs = nil
}

func (f *fanout) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
