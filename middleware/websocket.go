package middleware

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ccLee627/dacs7"
	"github.com/ccLee627/dacs7/internal/s7proto"
)

// SubscriptionManager tracks the WebSocket connections that have asked to
// watch alarms. The client holds a single alarm subscription, so only the
// most recent subscriber receives notifications; alarms are not fanned out
// to earlier subscribers.
type SubscriptionManager struct {
	client        *dacs7.Client
	subscriptions map[string]*Subscription
	mu            sync.RWMutex
	maxSubs       int
}

// Subscription represents one WebSocket connection's view onto the
// client's alarm stream.
type Subscription struct {
	ID         string
	Connection *websocket.Conn
	cancelFunc context.CancelFunc
}

// WebSocketMessage represents messages sent over WebSocket
type WebSocketMessage struct {
	Type      string       `json:"type"` // "subscribe", "unsubscribe", "alarm", "error"
	RequestID string       `json:"request_id,omitempty"`
	Alarms    []AlarmEntry `json:"alarms,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewSubscriptionManager creates a new subscription manager
func NewSubscriptionManager(client *dacs7.Client, maxSubscriptions int) *SubscriptionManager {
	return &SubscriptionManager{
		client:        client,
		subscriptions: make(map[string]*Subscription),
		maxSubs:       maxSubscriptions,
	}
}

// Subscribe installs a new client alarm subscription on every call and
// starts forwarding its notifications to conn. The new subscription
// replaces the previous one: the previous subscriber's forwarder stops
// when its channel closes, and its entry stays registered until it is
// unsubscribed or its connection ends.
func (sm *SubscriptionManager) Subscribe(conn *websocket.Conn, requestID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.subscriptions) >= sm.maxSubs {
		return NewInvalidRequestError("maximum subscription limit reached")
	}
	if _, exists := sm.subscriptions[requestID]; exists {
		return NewInvalidRequestError("subscription ID already exists")
	}

	alarmSub, err := sm.client.SubscribeAlarms(context.Background())
	if err != nil {
		return NewInternalError(err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{ID: requestID, Connection: conn, cancelFunc: cancel}
	sm.subscriptions[requestID] = sub

	go sm.forwardAlarms(ctx, sub, alarmSub)
	return nil
}

// Unsubscribe removes a subscription
func (sm *SubscriptionManager) Unsubscribe(requestID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sub, exists := sm.subscriptions[requestID]
	if !exists {
		return NewInvalidRequestError("subscription not found")
	}
	sub.cancelFunc()
	delete(sm.subscriptions, requestID)
	return nil
}

// UnsubscribeAll removes all subscriptions for a connection
func (sm *SubscriptionManager) UnsubscribeAll(conn *websocket.Conn) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, sub := range sm.subscriptions {
		if sub.Connection == conn {
			sub.cancelFunc()
			delete(sm.subscriptions, id)
		}
	}
}

// forwardAlarms relays alarm indications from alarmSub to sub's WebSocket
// connection until ctx is cancelled or the alarm channel closes.
func (sm *SubscriptionManager) forwardAlarms(ctx context.Context, sub *Subscription, alarmSub *dacs7.Subscription) {
	defer alarmSub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case indication, ok := <-alarmSub.Notifications():
			if !ok {
				return
			}
			entries := make([]AlarmEntry, len(indication.Entries))
			for i, a := range indication.Entries {
				entries[i] = AlarmEntry{ID: a.ID, Going: a.State == s7proto.AlarmStateGoing, Stamp: a.Stamp}
			}
			msg := WebSocketMessage{Type: "alarm", RequestID: sub.ID, Alarms: entries, Timestamp: time.Now()}
			if err := sub.Connection.WriteJSON(msg); err != nil {
				log.Printf("error sending alarm over websocket: %v", err)
				return
			}
		}
	}
}

// GetSubscriptionCount returns the number of active subscriptions
func (sm *SubscriptionManager) GetSubscriptionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscriptions)
}

// HandleWebSocket handles WebSocket connections
func (m *Middleware) HandleWebSocket(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	for {
		var msg WebSocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch msg.Type {
		case "subscribe":
			if err := m.subManager.Subscribe(conn, msg.RequestID); err != nil {
				m.sendWebSocketError(conn, msg.RequestID, err.Error())
			} else {
				conn.WriteJSON(WebSocketMessage{Type: "subscribed", RequestID: msg.RequestID, Timestamp: time.Now()})
			}

		case "unsubscribe":
			if err := m.subManager.Unsubscribe(msg.RequestID); err != nil {
				m.sendWebSocketError(conn, msg.RequestID, err.Error())
			} else {
				conn.WriteJSON(WebSocketMessage{Type: "unsubscribed", RequestID: msg.RequestID, Timestamp: time.Now()})
			}

		default:
			m.sendWebSocketError(conn, msg.RequestID, "unknown message type")
		}
	}

	m.subManager.UnsubscribeAll(conn)
}

// sendWebSocketError sends an error message via WebSocket
func (m *Middleware) sendWebSocketError(conn *websocket.Conn, requestID, message string) {
	conn.WriteJSON(WebSocketMessage{Type: "error", RequestID: requestID, Error: message, Timestamp: time.Now()})
}
