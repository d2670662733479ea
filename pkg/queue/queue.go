package queue

import (
	"container/heap"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mesh-radio/txwindow/pkg/packet"
	"github.com/mesh-radio/txwindow/pkg/stats"
)

// Queue errors.
var (
	ErrOverflow            = errors.New("queue at capacity")
	ErrCapacityBelowLength = errors.New("capacity below current queue length")
	ErrInvalidCapacity     = errors.New("invalid queue capacity")
)

// Entry is a queued packet.
type Entry struct {
	// Packet is the owned payload.
	Packet *packet.Packet

	// EnqueuedAt is when the packet entered the queue.
	EnqueuedAt time.Time

	// Priority orders entries; higher dequeues first.
	Priority uint8

	// Sequence breaks priority ties in enqueue order.
	Sequence uint64
}

// Age returns how long the entry has been queued at now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.EnqueuedAt)
}

// Queue is a bounded priority queue. It is safe for concurrent use.
type Queue struct {
	mu sync.Mutex

	items    entryHeap
	capacity int

	// Entries older than this are removed by SweepExpired; <= 0 disables expiry
	expiry time.Duration

	// Next sequence number to assign
	nextSeq uint64

	stats *stats.Recorder
}

// New creates a queue. A nil recorder gets a private one.
func New(capacity int, expiry time.Duration, rec *stats.Recorder) (*Queue, error) {
	if capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	if rec == nil {
		rec = stats.NewRecorder()
	}
	return &Queue{
		items:    make(entryHeap, 0, capacity),
		capacity: capacity,
		expiry:   expiry,
		stats:    rec,
	}, nil
}

// Enqueue adds p with the given priority. It fails with ErrOverflow when the
// queue is full, counting the overflow; the stored entries are untouched.
func (q *Queue) Enqueue(p *packet.Packet, priority uint8, now time.Time) (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		q.stats.RecordOverflow()
		return Entry{}, ErrOverflow
	}

	e := Entry{
		Packet:     p,
		EnqueuedAt: now,
		Priority:   priority,
		Sequence:   q.nextSeq,
	}
	q.nextSeq++

	heap.Push(&q.items, e)
	q.stats.RecordQueued()
	return e, nil
}

// Requeue puts back an entry that was dequeued but could not be sent. The
// entry keeps its enqueue time and sequence, so it keeps its place and its
// expiry deadline. Requeue does not count as a new enqueue.
func (q *Queue) Requeue(e Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return ErrOverflow
	}
	heap.Push(&q.items, e)
	return nil
}

// Dequeue removes the highest-priority entry and records its queue time.
func (q *Queue) Dequeue(now time.Time) (Entry, bool) {
	e, ok := q.Take()
	if ok {
		q.stats.RecordDequeued(e.Age(now))
	}
	return e, ok
}

// Take removes the highest-priority entry without recording its queue
// time. A caller that may hand the entry back through Requeue uses Take and
// records the wait once the packet has actually left.
func (q *Queue) Take() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Entry{}, false
	}
	return heap.Pop(&q.items).(Entry), true
}

// Peek returns the entry Dequeue would return, without removing it.
func (q *Queue) Peek() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Entry{}, false
	}
	return q.items[0], true
}

// SweepExpired removes and returns every entry with age >= expiry.
func (q *Queue) SweepExpired(now time.Time) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.expiry <= 0 || len(q.items) == 0 {
		return nil
	}

	var expired []Entry
	kept := q.items[:0]
	for _, e := range q.items {
		if e.Age(now) >= q.expiry {
			expired = append(expired, e)
		} else {
			kept = append(kept, e)
		}
	}
	if len(expired) == 0 {
		return nil
	}

	// Release references held by the truncated tail
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = Entry{}
	}
	q.items = kept
	heap.Init(&q.items)

	q.stats.RecordExpired(len(expired))
	return expired
}

// Clear removes all entries without sending them and returns them.
// Statistics are not reset.
func (q *Queue) Clear() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := make([]Entry, len(q.items))
	copy(removed, q.items)
	q.items = make(entryHeap, 0, q.capacity)
	return removed
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty reports whether the queue holds no entries.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull reports whether an Enqueue would overflow.
func (q *Queue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) >= q.capacity
}

// Capacity returns the maximum number of entries.
func (q *Queue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// SetCapacity changes the capacity. Shrinking below the current length
// fails with ErrCapacityBelowLength rather than evicting entries.
func (q *Queue) SetCapacity(n int) error {
	if n < 0 {
		return ErrInvalidCapacity
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if n < len(q.items) {
		return ErrCapacityBelowLength
	}
	q.capacity = n
	return nil
}

// Expiry returns the configured expiry.
func (q *Queue) Expiry() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.expiry
}

// SetExpiry changes the expiry applied by the next sweep.
func (q *Queue) SetExpiry(d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.expiry = d
}

// Entries returns a copy of the queued entries in dequeue order.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	out := make([]Entry, len(q.items))
	copy(out, q.items)
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return before(out[i], out[j]) })
	return out
}

// before reports whether a dequeues ahead of b.
func before(a, b Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Sequence < b.Sequence
}

// entryHeap implements heap.Interface over entries.
type entryHeap []Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return before(h[i], h[j]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = Entry{}
	*h = old[:n-1]
	return e
}
