package connection

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestWsClient() *WsClient {
	return &WsClient{
		subs:   map[string]chan json.RawMessage{},
		parked: map[string][]json.RawMessage{},
		closed: make(chan struct{}),
	}
}

func receive(t *testing.T, results <-chan string) string {
	t.Helper()
	select {
	case result := <-results:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return ""
	}
}

func TestNotificationsAheadOfSubscribeAreReplayed(t *testing.T) {
	client := newTestWsClient()

	// the node pushes the first statuses before the caller has processed
	// the watch response and claimed the subscription id
	client.dispatchNotification("sub1", json.RawMessage(`"ready"`))
	client.dispatchNotification("sub1", json.RawMessage(`{"inBlock":"0xAA"}`))

	results := make(chan string, subscriptionBuffer)
	client.subscribe("sub1", func(result json.RawMessage) {
		results <- string(result)
	}, nil)
	client.dispatchNotification("sub1", json.RawMessage(`{"finalized":"0xAA"}`))

	assert.Equal(t, `"ready"`, receive(t, results))
	assert.Equal(t, `{"inBlock":"0xAA"}`, receive(t, results))
	assert.Equal(t, `{"finalized":"0xAA"}`, receive(t, results))

	client.unsubscribe("sub1")
}

func TestParkedNotificationsAreBounded(t *testing.T) {
	client := newTestWsClient()

	for i := 0; i < subscriptionBuffer*2; i++ {
		client.dispatchNotification("sub1", json.RawMessage(`"ready"`))
	}

	client.Lock()
	parked := len(client.parked["sub1"])
	client.Unlock()
	assert.Equal(t, subscriptionBuffer, parked)
}

func TestUnsubscribeStopsDeliveryAndDropsParked(t *testing.T) {
	client := newTestWsClient()

	results := make(chan string, subscriptionBuffer)
	client.subscribe("sub1", func(result json.RawMessage) {
		results <- string(result)
	}, nil)
	client.dispatchNotification("sub1", json.RawMessage(`"ready"`))
	assert.Equal(t, `"ready"`, receive(t, results))

	client.unsubscribe("sub1")
	client.dispatchNotification("sub1", json.RawMessage(`"broadcast"`))

	client.unsubscribe("sub1")
	client.Lock()
	_, parked := client.parked["sub1"]
	client.Unlock()
	assert.False(t, parked)

	select {
	case result := <-results:
		t.Fatalf("unexpected notification after unsubscribe: %s", result)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionLostFiresOnLost(t *testing.T) {
	client := newTestWsClient()

	lost := make(chan struct{})
	client.subscribe("sub1", func(json.RawMessage) {}, func() {
		close(lost)
	})

	client.failAll()

	select {
	case <-lost:
	case <-time.After(5 * time.Second):
		t.Fatal("subscription loss was not reported")
	}
}
