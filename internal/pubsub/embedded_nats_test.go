package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbedded(t *testing.T) *EmbeddedNATSPubSub {
	t.Helper()
	opts := DefaultEmbeddedNATSOptions()
	opts.StoreDir = t.TempDir()
	ps, err := NewEmbeddedNATSPubSub(opts)
	require.NoError(t, err)
	t.Cleanup(ps.Close)
	return ps
}

func TestEmbeddedNATSStarts(t *testing.T) {
	ps := newEmbedded(t)
	assert.NotEmpty(t, ps.ServerURL())
	assert.NotNil(t, ps.js)
}

func TestEmbeddedNATSRequiresSubject(t *testing.T) {
	opts := DefaultEmbeddedNATSOptions()
	opts.Subject = ""
	_, err := NewEmbeddedNATSPubSub(opts)
	assert.Error(t, err)
}

func TestEmbeddedNATSPublishAndReceive(t *testing.T) {
	ps := newEmbedded(t)
	ch := ps.Subscribe()

	ps.Publish(Event{Type: EventDraftPick, DraftID: "d1", Payload: map[string]interface{}{"player": "Cal"}})

	e := receive(t, ch)
	assert.Equal(t, EventDraftPick, e.Type)
	assert.Equal(t, "d1", e.DraftID)
	assert.Equal(t, "Cal", e.Payload["player"])
}

func TestEmbeddedNATSAsUpstream(t *testing.T) {
	up := newEmbedded(t)
	bridged := NewWithUpstream(up)
	ch := bridged.Subscribe()

	bridged.Publish(Event{Type: EventTaskUpdate, DraftID: "d2"})

	e := receive(t, ch)
	assert.Equal(t, EventTaskUpdate, e.Type)
	assert.Len(t, bridged.Recent("d2"), 1)
}

func TestEmbeddedNATSUnsubscribe(t *testing.T) {
	ps := newEmbedded(t)
	ch := ps.Subscribe()
	ps.Unsubscribe(ch)
	assert.Equal(t, 0, ps.SubscriberCount())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestEmbeddedNATSHealthy(t *testing.T) {
	opts := DefaultEmbeddedNATSOptions()
	opts.StoreDir = t.TempDir()
	ps, err := NewEmbeddedNATSPubSub(opts)
	require.NoError(t, err)
	assert.NoError(t, ps.Healthy())

	ps.Close()
	assert.Error(t, ps.Healthy())
}

func TestEmbeddedNATSDurableConsumer(t *testing.T) {
	ps := newEmbedded(t)

	got := make(chan Event, 4)
	sub, err := ps.SubscribeDurable("audit", func(e Event) { got <- e })
	require.NoError(t, err)
	t.Cleanup(func() { sub.Unsubscribe() })

	ps.Publish(Event{Type: EventDraftComplete, DraftID: "d9"})

	select {
	case e := <-got:
		assert.Equal(t, EventDraftComplete, e.Type)
		assert.Equal(t, "d9", e.DraftID)
	case <-time.After(2 * time.Second):
		t.Fatal("durable consumer saw nothing")
	}
}
