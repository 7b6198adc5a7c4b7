package api

import (
	"sync"
)

type SSEEvent struct {
	Type string
	Data map[string]any
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan SSEEvent]struct{} // carrierId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan SSEEvent]struct{}{}}
}

func (b *Broker) Subscribe(carrierID string) chan SSEEvent {
	ch := make(chan SSEEvent, 8)
	b.mu.Lock()
	if b.subs[carrierID] == nil {
		b.subs[carrierID] = map[chan SSEEvent]struct{}{}
	}
	b.subs[carrierID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(carrierID string, ch chan SSEEvent) {
	b.mu.Lock()
	if m := b.subs[carrierID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, carrierID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(carrierID string, evt SSEEvent) {
	b.mu.Lock()
	m := b.subs[carrierID]
	for ch := range m {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
