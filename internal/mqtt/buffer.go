package mqtt

import "log"

// queuedMsg stores a serialized MQTT message for replay after reconnection.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// sendQueue is a fixed-capacity FIFO that stores messages while the broker
// is unreachable. When full, the oldest message is overwritten. Not safe
// for concurrent use — caller must synchronize.
type sendQueue struct {
	buf      []queuedMsg
	capacity int
	head     int // next write position
	count    int
	dropped  int // messages overwritten since the last drain
}

func newSendQueue(capacity int) *sendQueue {
	return &sendQueue{
		buf:      make([]queuedMsg, capacity),
		capacity: capacity,
	}
}

func (q *sendQueue) push(msg queuedMsg) {
	if q.count == q.capacity {
		if q.dropped == 0 {
			log.Printf("mqtt: send queue full (%d messages), dropping oldest", q.capacity)
		}
		q.dropped++
		// head already points at the oldest entry
		q.buf[q.head] = msg
		q.head = (q.head + 1) % q.capacity
		return
	}
	q.buf[q.head] = msg
	q.head = (q.head + 1) % q.capacity
	q.count++
}

// drain returns the queued messages in FIFO order and empties the queue.
func (q *sendQueue) drain() []queuedMsg {
	if q.count == 0 {
		return nil
	}

	out := make([]queuedMsg, q.count)
	start := (q.head - q.count + q.capacity) % q.capacity
	for i := 0; i < q.count; i++ {
		out[i] = q.buf[(start+i)%q.capacity]
	}

	if q.dropped > 0 {
		log.Printf("mqtt: %d messages were dropped while disconnected", q.dropped)
	}
	q.count = 0
	q.head = 0
	q.dropped = 0
	return out
}

func (q *sendQueue) len() int {
	return q.count
}
