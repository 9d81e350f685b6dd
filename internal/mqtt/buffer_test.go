package mqtt

import (
	"testing"
)

func TestSendQueueEmptyDrain(t *testing.T) {
	q := newSendQueue(10)
	got := q.drain()
	if got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestSendQueuePushAndDrain(t *testing.T) {
	q := newSendQueue(10)
	for i := 0; i < 5; i++ {
		q.push(queuedMsg{topic: "t", payload: []byte{byte(i)}})
	}

	got := q.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	// Second drain should be empty
	if got2 := q.drain(); got2 != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got2))
	}
}

func TestSendQueueOverflowDropsOldest(t *testing.T) {
	capacity := 5
	q := newSendQueue(capacity)

	// Push capacity+3 items (0..7); the queue should keep the newest 5 (3..7)
	for i := 0; i < capacity+3; i++ {
		q.push(queuedMsg{topic: "t", payload: []byte{byte(i)}})
	}

	got := q.drain()
	if len(got) != capacity {
		t.Fatalf("expected %d items, got %d", capacity, len(got))
	}
	for i := 0; i < capacity; i++ {
		want := byte(i + 3)
		if got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
}

func TestSendQueueMultipleCycles(t *testing.T) {
	q := newSendQueue(5)

	for i := 0; i < 3; i++ {
		q.push(queuedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	if got := q.drain(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	for i := 10; i < 14; i++ {
		q.push(queuedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	got := q.drain()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, msg := range got {
		want := byte(10 + i)
		if msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
}

func TestSendQueueLen(t *testing.T) {
	q := newSendQueue(10)
	if q.len() != 0 {
		t.Errorf("expected len 0, got %d", q.len())
	}

	q.push(queuedMsg{topic: "t"})
	q.push(queuedMsg{topic: "t"})
	if q.len() != 2 {
		t.Errorf("expected len 2, got %d", q.len())
	}

	q.drain()
	if q.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", q.len())
	}
}

func TestSendQueuePreservesFields(t *testing.T) {
	q := newSendQueue(10)
	q.push(queuedMsg{
		topic:    "energy/test",
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got := q.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != "energy/test" {
		t.Errorf("topic: got %s, want energy/test", got[0].topic)
	}
	if string(got[0].payload) != `{"test":true}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 {
		t.Errorf("qos: got %d, want 1", got[0].qos)
	}
	if !got[0].retained {
		t.Error("retained: got false, want true")
	}
}
