package mqtt

// msgKind identifies which Publisher method a queued message is for.
type msgKind string

const (
	kindAlert  msgKind = "alert"
	kindFrame  msgKind = "frame"
	kindSystem msgKind = "system"
)

// bufferedMsg is one queued outbound message. Only the field matching kind is set.
type bufferedMsg struct {
	kind   msgKind
	alert  Alert
	frame  []byte
	system SystemEvent
}

// ringBuffer is a fixed-capacity FIFO of outbound messages.
// Not safe for concurrent use; the caller synchronizes.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	start    int // oldest entry
	count    int
	overflow bool // true if any message was evicted since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) slot(i int) int {
	return (r.start + i) % r.capacity
}

// push appends msg. A full buffer first evicts its oldest frame, or its
// oldest message when no frame is queued. evicted is the kind of the removed
// message ("" if none); first is true for the first eviction since the last
// drain.
func (r *ringBuffer) push(msg bufferedMsg) (evicted msgKind, first bool) {
	if r.count == r.capacity {
		first = !r.overflow
		r.overflow = true
		evicted = r.evict()
	}
	r.buf[r.slot(r.count)] = msg
	r.count++
	return evicted, first
}

func (r *ringBuffer) evict() msgKind {
	victim := 0
	for i := 0; i < r.count; i++ {
		if r.buf[r.slot(i)].kind == kindFrame {
			victim = i
			break
		}
	}
	kind := r.buf[r.slot(victim)].kind

	if victim == 0 {
		r.buf[r.start] = bufferedMsg{}
		r.start = r.slot(1)
		r.count--
		return kind
	}
	for i := victim; i < r.count-1; i++ {
		r.buf[r.slot(i)] = r.buf[r.slot(i+1)]
	}
	r.buf[r.slot(r.count-1)] = bufferedMsg{}
	r.count--
	return kind
}

// drainAll returns queued messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	result := make([]bufferedMsg, r.count)
	for i := range result {
		result[i] = r.buf[r.slot(i)]
		r.buf[r.slot(i)] = bufferedMsg{}
	}

	r.count = 0
	r.start = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}
