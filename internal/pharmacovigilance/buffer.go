package pharmacovigilance

import "sync"

// DefaultCapacity bounds the in-memory event history
const DefaultCapacity = 100

// Buffer keeps the most recent events, dropping the oldest when full
type Buffer struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewBuffer creates a buffer holding capacity events, DefaultCapacity when capacity <= 0
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{events: make([]Event, capacity)}
}

// Add records e, overwriting the oldest event once the buffer is full
func (b *Buffer) Add(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[b.next] = e
	b.next = (b.next + 1) % len(b.events)
	if b.next == 0 {
		b.full = true
	}
}

// Len returns the number of events held
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.events)
	}
	return b.next
}

// Recent returns up to n events in arrival order, oldest first
func (b *Buffer) Recent(n int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := b.next
	if b.full {
		size = len(b.events)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Event, 0, n)
	start := (b.next - n + len(b.events)) % len(b.events)
	for i := 0; i < n; i++ {
		out = append(out, b.events[(start+i)%len(b.events)])
	}
	return out
}
