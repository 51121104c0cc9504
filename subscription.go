package dacs7

import (
	"sync"

	"github.com/ccLee627/dacs7/internal/s7proto"
)

// AlarmIndication is a batch of alarm/event entries delivered by the PLC in
// a single unsolicited notification.
type AlarmIndication = s7proto.AlarmIndication

// Subscription represents an active alarm subscription. There is at most
// one Subscription alive per Client at a time, mirroring the single
// alarm-indication slot the PLC itself maintains per connection.
type Subscription struct {
	client *Client

	notifCh chan AlarmIndication

	closed   bool
	closeErr error
	closeMu  sync.Mutex
}

// Notifications returns the channel on which alarm indications are
// delivered. The channel is closed when the subscription is closed.
func (s *Subscription) Notifications() <-chan AlarmIndication {
	return s.notifCh
}

// Close unsubscribes from alarms and closes the notification channel. Close
// is idempotent.
func (s *Subscription) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.closed {
		return s.closeErr
	}
	s.closed = true

	s.client.conn().UnsubscribeAlarms()
	close(s.notifCh)
	s.client.metrics().AlarmSubscriptionActive(false)
	return nil
}

// notify is invoked from the dispatch layer's alarm callback. It performs a
// non-blocking send and increments a drop counter when the subscriber's
// buffer is full, so a slow consumer cannot stall delivery of future
// indications.
func (s *Subscription) notify(indication AlarmIndication) {
	select {
	case s.notifCh <- indication:
		s.client.metrics().AlarmReceived()
	default:
		s.client.metrics().AlarmsDropped()
		s.client.logger().Warn("alarm notification dropped, subscriber buffer full")
	}
}

// notificationBufferSize bounds how many undelivered alarm indications a
// Subscription holds before new ones are dropped.
const notificationBufferSize = 64

func newSubscription(client *Client) *Subscription {
	return &Subscription{
		client:  client,
		notifCh: make(chan AlarmIndication, notificationBufferSize),
	}
}
