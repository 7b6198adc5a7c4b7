package api

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	carrier := "c1"
	ch := b.Subscribe(carrier)

	evt := SSEEvent{Type: "quote.created", Data: map[string]any{"quoteId": "q1"}}
	b.Publish(carrier, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["quoteId"].(string) != "q1" {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(carrier, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerIsolatesCarriers(t *testing.T) {
	b := NewBroker()
	ch1 := b.Subscribe("c1")
	ch2 := b.Subscribe("c2")
	defer b.Unsubscribe("c1", ch1)
	defer b.Unsubscribe("c2", ch2)

	b.Publish("c1", SSEEvent{Type: "quote.created", Data: map[string]any{"quoteId": "q1"}})

	select {
	case <-ch1:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for c1 event")
	}
	select {
	case evt := <-ch2:
		t.Fatalf("c2 should not receive c1 events, got %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
