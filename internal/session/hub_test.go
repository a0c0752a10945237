package session

import (
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishReachesSubscribers(t *testing.T) {
	h := NewHub()
	defer h.Close()

	a, unsubA := h.Subscribe()
	defer unsubA()
	b, unsubB := h.Subscribe()
	defer unsubB()

	if n := h.Publish(Event{Kind: SignedIn, UserID: "u1"}); n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}

	for _, ch := range []<-chan Event{a, b} {
		e := <-ch
		if e.Kind != SignedIn || e.UserID != "u1" {
			t.Errorf("unexpected event %+v", e)
		}
		if e.At.IsZero() {
			t.Error("expected timestamp to be set")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ch, unsub := h.Subscribe()
	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after unsubscribe")
	}
	if n := h.Publish(Event{Kind: SignedOut}); n != 0 {
		t.Errorf("expected no deliveries, got %d", n)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	defer h.Close()

	_, unsub := h.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBuffer*3; i++ {
		h.Publish(Event{Kind: SignedIn})
	}
	if n := h.Publish(Event{Kind: SignedOut}); n != 0 {
		t.Errorf("expected full subscriber to be skipped, got %d deliveries", n)
	}
	last, ok := h.Last()
	if !ok || last.Kind != SignedOut {
		t.Errorf("expected last event signed_out, got %+v", last)
	}
}

func TestCloseEndsSubscriberGoroutines(t *testing.T) {
	h := NewHub()

	var wg sync.WaitGroup
	received := make([]int, 3)
	for i := range received {
		ch, _ := h.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range ch {
				received[i]++
			}
		}()
	}

	h.Publish(Event{Kind: SignedUp, Email: "ana@example.com"})
	h.Close()
	wg.Wait()

	for i, n := range received {
		if n != 1 {
			t.Errorf("subscriber %d received %d events, want 1", i, n)
		}
	}

	ch, _ := h.Subscribe()
	if _, ok := <-ch; ok {
		t.Error("expected subscribe after close to return a closed channel")
	}
}
