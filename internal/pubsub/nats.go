package pubsub

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
)

// DefaultStreamName is the JetStream stream holding draft events.
const DefaultStreamName = "DRAFT_EVENTS"

// NATSPubSub is an Upstream backed by a JetStream stream. Published events
// are stored in the stream and pushed to every instance's ephemeral consumer.
type NATSPubSub struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
	out     fanout
}

// NewNATSPubSub connects to natsURL and ensures a file-backed stream exists.
func NewNATSPubSub(natsURL, subject string) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL, nats.Name("draft-oracle"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p, err := newJetStreamPubSub(nc, nats.StreamConfig{
		Name:     DefaultStreamName,
		Subjects: []string{subject},
		Storage:  nats.FileStorage,
		MaxAge:   0, // keep events for replay
	})
	if err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func newJetStreamPubSub(nc *nats.Conn, cfg nats.StreamConfig) (*NATSPubSub, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Name); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return nil, fmt.Errorf("stream info %s: %w", cfg.Name, err)
		}
		if _, err := js.AddStream(&cfg); err != nil {
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
		logger.Info("JetStream stream created", "stream", cfg.Name, "subjects", cfg.Subjects)
	}

	p := &NATSPubSub{
		nc:      nc,
		js:      js,
		subject: cfg.Subjects[0],
		out:     fanout{size: 100},
	}

	p.sub, err = js.Subscribe(p.subject, p.handle, nats.DeliverNew(), nats.ManualAck())
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", p.subject, err)
	}
	return p, nil
}

func (p *NATSPubSub) handle(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err)
		msg.Term()
		return
	}
	if dropped := p.out.deliver(event); dropped > 0 {
		logger.Warn("NATS: Skipping slow subscribers", "event_type", event.Type, "dropped", dropped)
	}
	msg.Ack()
}

// Publish stores event in the stream.
func (p *NATSPubSub) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}
	if _, err := p.js.Publish(p.subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", p.subject, "event_type", event.Type)
		return
	}
	logger.Debug("Published event to NATS", "event_type", event.Type, "draft_id", event.DraftID)
}

// Subscribe creates a subscription channel for events
func (p *NATSPubSub) Subscribe() chan Event {
	return p.out.subscribe()
}

// Unsubscribe removes a subscription channel
func (p *NATSPubSub) Unsubscribe(ch chan Event) {
	p.out.unsubscribe(ch)
}

// SubscriberCount returns the number of local subscription channels.
func (p *NATSPubSub) SubscriberCount() int {
	return p.out.count()
}

// SubscribeDurable attaches a named durable consumer so a worker can process
// every event exactly once across restarts.
func (p *NATSPubSub) SubscribeDurable(consumerName string, handler func(Event)) (*nats.Subscription, error) {
	return p.js.Subscribe(p.subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event", "error", err, "consumer", consumerName)
			msg.Term()
			return
		}
		handler(event)
		msg.Ack()
	}, nats.Durable(consumerName), nats.ManualAck())
}

// Close drains the consumer, closes local channels and the connection.
func (p *NATSPubSub) Close() {
	if p.sub != nil {
		if err := p.sub.Unsubscribe(); err != nil {
			logger.Debug("NATS: unsubscribe on close", "error", err)
		}
	}
	p.out.closeAll()
	if p.nc != nil {
		p.nc.Close()
	}
}

// Healthy reports an error when the connection is down.
func (p *NATSPubSub) Healthy() error {
	if p.nc == nil {
		return errors.New("nats connection not open")
	}
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats connection %s", p.nc.Status())
	}
	return nil
}
