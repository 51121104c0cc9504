package dacs7

import (
	"context"
	"net"
	"testing"

	"github.com/ccLee627/dacs7/internal/dispatch"
	"github.com/ccLee627/dacs7/internal/s7proto"
	"github.com/ccLee627/dacs7/internal/tpkt"
)

func newTestClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	t.Cleanup(func() { serverSide.Close() })
	conn := dispatch.NewConn(clientSide, 0, 2, tpkt.Pg)
	return &Client{
		cfg:     clientConfig{logger: DefaultLogger, metrics: NewInMemoryMetrics()},
		connPtr: conn,
	}, serverSide
}

func TestSubscriptionNotifyDeliversAndCountsMetric(t *testing.T) {
	c, _ := newTestClient(t)
	sub := newSubscription(c)

	sub.notify(s7proto.AlarmIndication{})

	select {
	case <-sub.Notifications():
	default:
		t.Fatal("expected a notification to be delivered")
	}

	im := c.cfg.metrics.(*InMemoryMetrics)
	if im.Snapshot().AlarmsReceived != 1 {
		t.Errorf("AlarmsReceived = %d, want 1", im.Snapshot().AlarmsReceived)
	}
}

func TestSubscriptionNotifyDropsWhenBufferFull(t *testing.T) {
	c, _ := newTestClient(t)
	sub := newSubscription(c)

	for i := 0; i < notificationBufferSize; i++ {
		sub.notify(s7proto.AlarmIndication{})
	}
	sub.notify(s7proto.AlarmIndication{}) // buffer now full, this one drops

	im := c.cfg.metrics.(*InMemoryMetrics)
	snap := im.Snapshot()
	if snap.AlarmsReceived != notificationBufferSize {
		t.Errorf("AlarmsReceived = %d, want %d", snap.AlarmsReceived, notificationBufferSize)
	}
	if snap.AlarmsDropped != 1 {
		t.Errorf("AlarmsDropped = %d, want 1", snap.AlarmsDropped)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	c, _ := newTestClient(t)
	sub := newSubscription(c)
	c.sub = sub

	if err := sub.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	select {
	case _, open := <-sub.Notifications():
		if open {
			t.Fatal("expected notification channel to be closed")
		}
	default:
		t.Fatal("expected notification channel to be closed, not empty-but-open")
	}
}

func TestSubscribeAlarmsReplacesPreviousSubscription(t *testing.T) {
	c, _ := openedTestClient(t, 960)

	first, err := c.SubscribeAlarms(context.Background())
	if err != nil {
		t.Fatalf("first SubscribeAlarms: %v", err)
	}
	second, err := c.SubscribeAlarms(context.Background())
	if err != nil {
		t.Fatalf("second SubscribeAlarms: %v", err)
	}

	select {
	case _, open := <-first.Notifications():
		if open {
			t.Fatal("first subscription's channel should be closed after replacement")
		}
	default:
		t.Fatal("first subscription's channel should be closed after replacement")
	}

	second.notify(s7proto.AlarmIndication{})
	select {
	case <-second.Notifications():
	default:
		t.Fatal("second subscription should still receive notifications")
	}
}
