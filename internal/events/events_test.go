package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) recorded() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func TestDispatcher_PublishesInOrderAndDrainsOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, quietLogger(), 10)

	d.Emit(Event{Type: BookingCreated, BookingID: "1"})
	d.Emit(Event{Type: BookingAssigned, BookingID: "1"})
	d.Close()

	got := pub.recorded()
	require.Len(t, got, 2)
	assert.Equal(t, BookingCreated, got[0].Type)
	assert.Equal(t, BookingAssigned, got[1].Type)
	assert.False(t, got[0].At.IsZero())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, quietLogger(), 1)

	// The worker takes the first event and blocks; the second fills the queue.
	d.Emit(Event{Type: BookingCreated})
	assert.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	d.Emit(Event{Type: BookingUpdated})
	d.Emit(Event{Type: BookingDeleted})

	close(pub.block)
	d.Close()

	got := pub.recorded()
	require.Len(t, got, 2)
	assert.Equal(t, BookingCreated, got[0].Type)
	assert.Equal(t, BookingUpdated, got[1].Type)
}

func TestDispatcher_PublishErrorDoesNotStopWorker(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(pub, quietLogger(), 0)

	d.Emit(Event{Type: MechanicCreated})
	d.Emit(Event{Type: MechanicDeleted})
	d.Close()

	assert.Len(t, pub.recorded(), 2)
}

func TestDispatcher_EmitAfterCloseIsIgnored(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, quietLogger(), 1)
	d.Close()
	d.Close()

	d.Emit(Event{Type: BookingCreated})
	assert.Empty(t, pub.recorded())
}

func TestNop(t *testing.T) {
	var n Nop
	n.Emit(Event{Type: BookingCreated})
	assert.NoError(t, n.Publish(context.Background(), Event{}))
}

type fakeToken struct {
	err     error
	expired bool
	done    chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                       { return true }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return !t.expired }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type fakeClient struct {
	mqtt.Client
	topics      []string
	payloads    [][]byte
	err         error
	connectTok  *fakeToken
	disconnects []uint
}

func (c *fakeClient) Connect() mqtt.Token {
	return c.connectTok
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return newFakeToken(c.err)
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnects = append(c.disconnects, quiesce)
}

func TestConnect(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		client := &fakeClient{connectTok: newFakeToken(nil)}
		require.NoError(t, connect(client, "tcp://broker:1883", time.Second))
		assert.Empty(t, client.disconnects)
	})

	t.Run("broker refuses", func(t *testing.T) {
		client := &fakeClient{connectTok: newFakeToken(errors.New("connection refused"))}
		err := connect(client, "tcp://broker:1883", time.Second)
		assert.EqualError(t, err, "mqtt connect: connection refused")
		assert.Equal(t, []uint{0}, client.disconnects)
	})

	t.Run("timed out", func(t *testing.T) {
		token := newFakeToken(nil)
		token.expired = true
		client := &fakeClient{connectTok: token}
		err := connect(client, "tcp://broker:1883", time.Millisecond)
		assert.EqualError(t, err, "mqtt connect to tcp://broker:1883 timed out")
		assert.Equal(t, []uint{0}, client.disconnects)
	})
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "garage/events", 1)

	err := p.Publish(context.Background(), Event{Type: BookingAssigned, BookingID: "b1", MechanicID: "m1", ActorID: "admin"})
	require.NoError(t, err)
	require.Len(t, client.topics, 1)
	assert.Equal(t, "garage/events/booking.assigned", client.topics[0])

	var ev Event
	require.NoError(t, json.Unmarshal(client.payloads[0], &ev))
	assert.Equal(t, "b1", ev.BookingID)
	assert.Equal(t, "m1", ev.MechanicID)

	p.Close()
}

func TestMQTTPublisher_DefaultTopicAndError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	p := newMQTTPublisher(client, "", 0)

	err := p.Publish(context.Background(), Event{Type: MechanicDeleted})
	assert.EqualError(t, err, "not connected")
	assert.Equal(t, "bike-service/events/mechanic.deleted", client.topics[0])
}

func TestNewMQTTPublisher_EmptyBroker(t *testing.T) {
	_, err := NewMQTTPublisher(MQTTConfig{})
	assert.Error(t, err)
}
