package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	callTimeout = 30 * time.Second

	// per-subscription notification buffer; status streams are short lived
	// and terminal-bounded so this never fills in practice
	subscriptionBuffer = 64
)

// WsClient multiplexes request/response calls and long lived subscriptions
// over one node websocket. Responses are routed back to callers by request
// id, notifications by subscription id. Notifications for one subscription
// are delivered in node order on a dedicated goroutine, so callbacks may
// issue further node calls without stalling the read loop.
type WsClient struct {
	sync.Mutex
	endpoint  string
	conn      *websocket.Conn
	requestId int64
	pending   sync.Map // request id -> chan *wsMessage
	subs      map[string]chan json.RawMessage
	// notifications that arrived before their subscription id was claimed
	parked    map[string][]json.RawMessage
	closed    chan struct{}
	closeOnce sync.Once
}

func InitWsClient(endpoint string) (*WsClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not start websocket: %v", err)
	}

	wsClient := &WsClient{
		endpoint: endpoint,
		conn:     conn,
		subs:     map[string]chan json.RawMessage{},
		parked:   map[string][]json.RawMessage{},
		closed:   make(chan struct{}),
	}
	go wsClient.readMessages()
	return wsClient, nil
}

func (c *WsClient) readMessages() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.failAll()
			return
		}

		v := &wsMessage{}
		if err := json.Unmarshal(raw, v); err != nil {
			continue
		}

		if v.Method == extrinsicUpdateMethod && v.Params != nil {
			c.dispatchNotification(normalizeId(v.Params.Subscription), v.Params.Result)
			continue
		}

		if callerChan, ok := c.pending.Load(v.Id); ok {
			callerChan.(chan *wsMessage) <- v
		}
	}
}

func (c *WsClient) dispatchNotification(subId string, result json.RawMessage) {
	c.Lock()
	defer c.Unlock()
	notifyChan, ok := c.subs[subId]
	if !ok {
		// the node may push the first statuses before the caller has seen
		// the watch response frame; hold them until the id is claimed
		if len(c.parked[subId]) < subscriptionBuffer {
			c.parked[subId] = append(c.parked[subId], result)
		}
		return
	}
	select {
	case notifyChan <- result:
	default:
	}
}

// call sends one request and blocks for the routed response
func (c *WsClient) call(message string, id int) (json.RawMessage, error) {
	responseChan := make(chan *wsMessage, 1)
	c.pending.Store(id, responseChan)
	defer c.pending.Delete(id)

	c.Lock()
	err := c.conn.WriteMessage(websocket.TextMessage, []byte(message))
	c.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case response := <-responseChan:
		if response.Error != nil {
			return nil, fmt.Errorf("node error %d: %s", response.Error.Code, response.Error.Message)
		}
		return response.Result, nil
	case <-c.closed:
		return nil, errors.New("websocket closed")
	case <-time.After(callTimeout):
		return nil, errors.New("node call timed out")
	}
}

func (c *WsClient) nextId() int {
	return int(atomic.AddInt64(&c.requestId, 1))
}

// subscribe registers a notification callback under a subscription id.
// onLost fires when the websocket dies before the caller unsubscribes.
func (c *WsClient) subscribe(subId string, callback func(json.RawMessage), onLost func()) {
	notifyChan := make(chan json.RawMessage, subscriptionBuffer)
	c.Lock()
	// replay notifications that outran the subscribe call, in arrival order;
	// parked entries never exceed the channel buffer so this cannot block
	for _, result := range c.parked[subId] {
		notifyChan <- result
	}
	delete(c.parked, subId)
	c.subs[subId] = notifyChan
	c.Unlock()

	go func() {
		for result := range notifyChan {
			callback(result)
		}
		select {
		case <-c.closed:
			if onLost != nil {
				onLost()
			}
		default:
		}
	}()
}

func (c *WsClient) unsubscribe(subId string) {
	c.Lock()
	defer c.Unlock()
	if notifyChan, ok := c.subs[subId]; ok {
		delete(c.subs, subId)
		close(notifyChan)
	}
	delete(c.parked, subId)
}

func (c *WsClient) failAll() {
	c.closeOnce.Do(func() { close(c.closed) })
	c.Lock()
	defer c.Unlock()
	for subId, notifyChan := range c.subs {
		delete(c.subs, subId)
		close(notifyChan)
	}
	c.parked = map[string][]json.RawMessage{}
}

func (c *WsClient) Close() {
	c.conn.Close()
}

// normalizeId renders a subscription id, quoted string or number, into a
// stable map key
func normalizeId(raw json.RawMessage) string {
	return strings.Trim(string(raw), `"`)
}
