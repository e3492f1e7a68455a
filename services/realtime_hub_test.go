package services

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newTestSession(userID uint) *Session {
	return &Session{
		id:     uuid.NewString(),
		userID: userID,
		send:   make(chan []byte, 8),
	}
}

func receivedMessage(t *testing.T, s *Session) *PushMessage {
	t.Helper()

	select {
	case data := <-s.send:
		var msg PushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal pushed message: %v", err)
		}
		return &msg
	default:
		return nil
	}
}

func testQuote(symbol string, price float64) *Quote {
	return &Quote{
		Symbol: symbol,
		Price:  decimal.NewFromFloat(price),
	}
}

func TestPriceUpdateReachesOnlySymbolSubscribers(t *testing.T) {
	hub := NewRealtimeHub()

	apple := newTestSession(1)
	microsoft := newTestSession(2)
	hub.register(apple)
	hub.register(microsoft)
	hub.Subscribe(apple, "AAPL")
	hub.Subscribe(microsoft, "MSFT")

	hub.PushPriceUpdate("AAPL", testQuote("AAPL", 150))

	msg := receivedMessage(t, apple)
	if msg == nil {
		t.Fatal("Expected AAPL subscriber to receive the price update")
	}
	if msg.Type != "price_update" {
		t.Errorf("Expected type price_update, got %q", msg.Type)
	}

	if other := receivedMessage(t, microsoft); other != nil {
		t.Fatalf("MSFT subscriber must not receive AAPL updates, got %+v", other)
	}
}

func TestPriceUpdateIgnoresOwnershipWithoutSubscription(t *testing.T) {
	hub := NewRealtimeHub()

	// Connected but never subscribed: owning a watchlist entry for the
	// symbol is irrelevant, subscription is the sole delivery gate.
	session := newTestSession(1)
	hub.register(session)

	hub.PushPriceUpdate("AAPL", testQuote("AAPL", 150))

	if msg := receivedMessage(t, session); msg != nil {
		t.Fatalf("Unsubscribed session must not receive price updates, got %+v", msg)
	}
}

func TestAlertNotificationReachesAllOwnerSessions(t *testing.T) {
	hub := NewRealtimeHub()

	first := newTestSession(7)
	second := newTestSession(7)
	stranger := newTestSession(8)
	hub.register(first)
	hub.register(second)
	hub.register(stranger)
	hub.Subscribe(stranger, "AAPL")

	hub.PushAlertNotification(7, AlertNotification{
		AlertID: 1,
		Symbol:  "AAPL",
		Message: "AAPL has risen above $150. Current price: $155",
	})

	for _, s := range []*Session{first, second} {
		msg := receivedMessage(t, s)
		if msg == nil {
			t.Fatal("Expected every session of the owner to receive the notification")
		}
		if msg.Type != "price_alert" {
			t.Errorf("Expected type price_alert, got %q", msg.Type)
		}
	}

	if msg := receivedMessage(t, stranger); msg != nil {
		t.Fatalf("Other users must not receive the notification, got %+v", msg)
	}
}

func TestAlertNotificationDroppedWhenOwnerOffline(t *testing.T) {
	hub := NewRealtimeHub()

	// No live session for user 42; must be a silent drop
	hub.PushAlertNotification(42, AlertNotification{AlertID: 1, Symbol: "AAPL"})

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("Expected no sessions, got %d", count)
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	hub := NewRealtimeHub()

	session := newTestSession(1)
	hub.register(session)
	hub.Subscribe(session, "AAPL")
	hub.Subscribe(session, "aapl")

	hub.PushPriceUpdate("AAPL", testQuote("AAPL", 150))

	if msg := receivedMessage(t, session); msg == nil {
		t.Fatal("Expected one price update")
	}
	if msg := receivedMessage(t, session); msg != nil {
		t.Fatalf("Duplicate subscriptions must not duplicate delivery, got %+v", msg)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewRealtimeHub()

	session := newTestSession(1)
	hub.register(session)
	hub.Subscribe(session, "AAPL")
	hub.Unsubscribe(session, "AAPL")

	hub.PushPriceUpdate("AAPL", testQuote("AAPL", 150))

	if msg := receivedMessage(t, session); msg != nil {
		t.Fatalf("Unsubscribed session must not receive updates, got %+v", msg)
	}

	// Unsubscribing a symbol that was never subscribed is a no-op
	hub.Unsubscribe(session, "MSFT")
}

func TestDisconnectRemovesSessionEverywhere(t *testing.T) {
	hub := NewRealtimeHub()

	session := newTestSession(1)
	hub.register(session)
	hub.Subscribe(session, "AAPL")
	hub.Subscribe(session, "MSFT")

	hub.Disconnect(session)

	if count := hub.ClientCount(); count != 0 {
		t.Fatalf("Expected 0 sessions after disconnect, got %d", count)
	}

	hub.PushPriceUpdate("AAPL", testQuote("AAPL", 150))
	hub.PushAlertNotification(1, AlertNotification{AlertID: 1, Symbol: "AAPL"})

	// Disconnect twice must not panic on a closed channel
	hub.Disconnect(session)
}

func TestDisconnectWithoutSubscriptionsIsSafe(t *testing.T) {
	hub := NewRealtimeHub()

	session := newTestSession(1)
	hub.register(session)
	hub.Disconnect(session)

	// A session that never registered at all is also safe
	hub.Disconnect(newTestSession(2))
}

func TestBroadcastRacingDisconnectDoesNotPanic(t *testing.T) {
	hub := NewRealtimeHub()

	// A broadcast must never send on a channel that a concurrent
	// disconnect or shutdown has closed.
	for round := 0; round < 25; round++ {
		sessions := make([]*Session, 0, 100)
		for i := 0; i < 100; i++ {
			s := newTestSession(7)
			hub.register(s)
			hub.Subscribe(s, "AAPL")
			sessions = append(sessions, s)
		}

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hub.PushAlertNotification(7, AlertNotification{AlertID: 1, Symbol: "AAPL"})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hub.PushPriceUpdate("AAPL", testQuote("AAPL", 150))
			}
		}()
		go func() {
			defer wg.Done()
			for _, s := range sessions {
				hub.Disconnect(s)
			}
		}()
		wg.Wait()
	}

	if count := hub.ClientCount(); count != 0 {
		t.Fatalf("Expected 0 sessions after all disconnects, got %d", count)
	}
}

func TestBroadcastRacingShutdownDoesNotPanic(t *testing.T) {
	hub := NewRealtimeHub()

	for i := 0; i < 100; i++ {
		s := newTestSession(7)
		hub.register(s)
		hub.Subscribe(s, "AAPL")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			hub.PushPriceUpdate("AAPL", testQuote("AAPL", 150))
		}
	}()
	go func() {
		defer wg.Done()
		hub.Shutdown()
	}()
	wg.Wait()

	if count := hub.ClientCount(); count != 0 {
		t.Fatalf("Expected 0 sessions after shutdown, got %d", count)
	}
}

func TestSubscribeAfterDisconnectIsIgnored(t *testing.T) {
	hub := NewRealtimeHub()

	session := newTestSession(1)
	hub.register(session)
	hub.Disconnect(session)

	hub.Subscribe(session, "AAPL")

	status := hub.GetStatus()
	if groups := status["symbol_groups"].(int); groups != 0 {
		t.Fatalf("Disconnected session must not create symbol groups, got %d", groups)
	}
}
