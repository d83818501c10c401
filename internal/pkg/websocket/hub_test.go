package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/assignhub/internal/pkg/pubsub"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go hub.Run(done)
	t.Cleanup(func() {
		close(done)
		<-hub.stopped
	})
	return hub
}

func testClient(hub *Hub, userID uuid.UUID) *Client {
	return newClient(hub, nil, userID, zerolog.Nop())
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return Message{}
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := startHub(t)
	userID := uuid.New()

	a := testClient(hub, userID)
	b := testClient(hub, userID)
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))

	assert.Eventually(t, func() bool { return hub.GetClientsCount(userID) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.ConnectedUsers())

	hub.Unregister(a)
	assert.Eventually(t, func() bool { return hub.GetClientsCount(userID) == 1 }, time.Second, 10*time.Millisecond)

	_, open := <-a.send
	assert.False(t, open, "send channel is closed on unregister")

	hub.Unregister(b)
	assert.Eventually(t, func() bool { return hub.ConnectedUsers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_SendNotificationReachesEveryConnectionOfUser(t *testing.T) {
	hub := startHub(t)
	userID := uuid.New()
	other := uuid.New()

	a := testClient(hub, userID)
	b := testClient(hub, userID)
	c := testClient(hub, other)
	for _, cl := range []*Client{a, b, c} {
		require.True(t, hub.Register(cl))
	}

	require.NoError(t, hub.SendNotification(userID, map[string]string{"message": "graded"}))

	for _, cl := range []*Client{a, b} {
		msg := receive(t, cl)
		assert.Equal(t, MessageTypeNotification, msg.Type)
		assert.JSONEq(t, `{"message":"graded"}`, string(msg.Data))
	}

	select {
	case <-c.send:
		t.Fatal("frame delivered to another user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DeliveryListener(t *testing.T) {
	hub := startHub(t)
	connected := uuid.New()
	offline := uuid.New()

	var mu sync.Mutex
	reached := map[uuid.UUID]int{}
	hub.AddDeliveryListener(func(userID uuid.UUID, n int) {
		mu.Lock()
		defer mu.Unlock()
		reached[userID] = n
	})

	require.True(t, hub.Register(testClient(hub, connected)))
	require.NoError(t, hub.SendToUser(connected, &Message{Type: "ping", Data: json.RawMessage(`{}`)}))
	require.NoError(t, hub.SendToUser(offline, &Message{Type: "ping", Data: json.RawMessage(`{}`)}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reached) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, reached[connected])
	assert.Equal(t, 0, reached[offline])
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	userID := uuid.New()
	client := testClient(hub, userID)
	require.True(t, hub.Register(client))

	for i := 0; i < sendBufferSize+1; i++ {
		require.NoError(t, hub.SendToUser(userID, &Message{Type: "ping", Data: json.RawMessage(`{}`)}))
	}

	assert.Eventually(t, func() bool { return hub.GetClientsCount(userID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_StoppedHubRejectsRegistration(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go hub.Run(done)

	client := testClient(hub, uuid.New())
	require.True(t, hub.Register(client))

	close(done)
	<-hub.stopped

	_, open := <-client.send
	assert.False(t, open, "clients are closed when the hub stops")
	assert.False(t, hub.Register(testClient(hub, uuid.New())))
	hub.Unregister(client)
}

func TestRelayConsumer_ForwardsEnvelopes(t *testing.T) {
	hub := startHub(t)
	userID := uuid.New()
	client := testClient(hub, userID)
	require.True(t, hub.Register(client))

	consumer := NewRelayConsumer(pubsub.NewLocalRelay(), hub, zerolog.Nop())
	consumer.HandleEnvelope(pubsub.Envelope{UserID: userID, Payload: json.RawMessage(`{"id":"n1"}`)})

	msg := receive(t, client)
	assert.Equal(t, MessageTypeNotification, msg.Type)
	assert.JSONEq(t, `{"id":"n1"}`, string(msg.Data))
}
