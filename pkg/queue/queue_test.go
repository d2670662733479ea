package queue

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-radio/txwindow/pkg/packet"
	"github.com/mesh-radio/txwindow/pkg/stats"
)

var t0 = time.Date(2026, 7, 1, 22, 0, 0, 0, time.UTC)

func newQueue(t *testing.T, capacity int, expiry time.Duration) (*Queue, *stats.Recorder) {
	t.Helper()
	rec := stats.NewRecorder()
	q, err := New(capacity, expiry, rec)
	require.NoError(t, err)
	return q, rec
}

func pkt(id uint32) *packet.Packet {
	return &packet.Packet{ID: id}
}

func TestPriorityOrdering(t *testing.T) {
	q, _ := newQueue(t, 10, time.Hour)

	// Insertion order: priorities 1, 3, 2, 3
	for i, prio := range []uint8{1, 3, 2, 3} {
		_, err := q.Enqueue(pkt(uint32(i)), prio, t0)
		require.NoError(t, err)
	}

	var gotPrio []uint8
	var gotIDs []uint32
	for !q.IsEmpty() {
		e, ok := q.Dequeue(t0)
		require.True(t, ok)
		gotPrio = append(gotPrio, e.Priority)
		gotIDs = append(gotIDs, e.Packet.ID)
	}

	assert.Equal(t, []uint8{3, 3, 2, 1}, gotPrio)
	// The two priority-3 entries keep insertion order (ids 1 then 3)
	assert.Equal(t, []uint32{1, 3, 2, 0}, gotIDs)
}

func TestEqualPriorityFIFO(t *testing.T) {
	q, _ := newQueue(t, 50, time.Hour)
	for i := 0; i < 50; i++ {
		_, err := q.Enqueue(pkt(uint32(i)), 4, t0)
		require.NoError(t, err)
	}
	for i := 0; i < 50; i++ {
		e, ok := q.Dequeue(t0)
		require.True(t, ok)
		require.Equal(t, uint32(i), e.Packet.ID)
	}
}

func TestSequenceStrictlyIncreasing(t *testing.T) {
	q, _ := newQueue(t, 3, time.Hour)

	var last uint64
	for i := 0; i < 10; i++ {
		e, err := q.Enqueue(pkt(uint32(i)), 1, t0)
		require.NoError(t, err)
		if i > 0 {
			require.Greater(t, e.Sequence, last)
		}
		last = e.Sequence
		q.Dequeue(t0)
	}
}

func TestOverflowRejectsIncoming(t *testing.T) {
	q, rec := newQueue(t, 3, time.Hour)

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(pkt(uint32(i)), 1, t0)
		require.NoError(t, err)
	}
	require.True(t, q.IsFull())

	snapshot := q.Entries()

	// Even a higher-priority packet does not evict stored entries.
	_, err := q.Enqueue(pkt(99), 9, t0)
	require.ErrorIs(t, err, ErrOverflow)

	assert.Equal(t, snapshot, q.Entries())
	assert.Equal(t, 3, q.Len())

	s := rec.Snapshot()
	assert.Equal(t, uint64(1), s.OverflowCount)
	assert.Equal(t, uint64(3), s.TotalQueued)
}

func TestSweepExpired(t *testing.T) {
	const expiry = 10 * time.Minute
	q, rec := newQueue(t, 10, expiry)

	_, err := q.Enqueue(pkt(1), 1, t0)
	require.NoError(t, err)
	_, err = q.Enqueue(pkt(2), 5, t0.Add(time.Minute))
	require.NoError(t, err)

	// Just before t0+E: nothing expires
	assert.Empty(t, q.SweepExpired(t0.Add(expiry-time.Nanosecond)))
	assert.Equal(t, 2, q.Len())

	// At exactly t0+E the first entry expires
	expired := q.SweepExpired(t0.Add(expiry))
	require.Len(t, expired, 1)
	assert.Equal(t, uint32(1), expired[0].Packet.ID)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, uint64(1), rec.Snapshot().TotalExpired)

	// Remaining entry still dequeues correctly after heap rebuild
	e, ok := q.Dequeue(t0.Add(expiry))
	require.True(t, ok)
	assert.Equal(t, uint32(2), e.Packet.ID)
}

func TestSweepDisabledExpiry(t *testing.T) {
	q, _ := newQueue(t, 2, 0)
	_, err := q.Enqueue(pkt(1), 1, t0)
	require.NoError(t, err)

	assert.Empty(t, q.SweepExpired(t0.Add(1000*time.Hour)))
	assert.Equal(t, 1, q.Len())
}

func TestDequeueRecordsQueueTime(t *testing.T) {
	q, rec := newQueue(t, 5, time.Hour)
	_, _ = q.Enqueue(pkt(1), 1, t0)
	_, _ = q.Enqueue(pkt(2), 1, t0.Add(10*time.Second))

	q.Dequeue(t0.Add(30 * time.Second))
	q.Dequeue(t0.Add(30 * time.Second))

	s := rec.Snapshot()
	assert.Equal(t, 30*time.Second, s.MaxQueueTime)
	assert.Equal(t, 20*time.Second, s.MinQueueTime)
	assert.Equal(t, 50*time.Second, s.SumQueueTime)
	assert.Equal(t, 25*time.Second, s.AvgQueueTime())
}

func TestDequeueEmpty(t *testing.T) {
	q, rec := newQueue(t, 5, time.Hour)
	_, ok := q.Dequeue(t0)
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), rec.Snapshot().TotalDequeued)
}

func TestTakeDoesNotRecordQueueTime(t *testing.T) {
	q, rec := newQueue(t, 5, time.Hour)
	_, _ = q.Enqueue(pkt(1), 1, t0)

	e, ok := q.Take()
	require.True(t, ok)
	assert.Equal(t, uint32(1), e.Packet.ID)
	assert.Equal(t, uint64(0), rec.Snapshot().TotalDequeued)

	_, ok = q.Take()
	assert.False(t, ok)
}

func TestRequeueKeepsPlace(t *testing.T) {
	q, rec := newQueue(t, 5, time.Hour)
	_, _ = q.Enqueue(pkt(1), 3, t0)
	_, _ = q.Enqueue(pkt(2), 3, t0)

	e, _ := q.Dequeue(t0)
	require.Equal(t, uint32(1), e.Packet.ID)
	require.NoError(t, q.Requeue(e))

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, uint32(1), head.Packet.ID)
	assert.Equal(t, t0, head.EnqueuedAt)
	assert.Equal(t, uint64(2), rec.Snapshot().TotalQueued)
}

func TestRequeueFull(t *testing.T) {
	q, rec := newQueue(t, 1, time.Hour)
	_, _ = q.Enqueue(pkt(1), 1, t0)
	e, _ := q.Dequeue(t0)
	_, _ = q.Enqueue(pkt(2), 1, t0)

	assert.ErrorIs(t, q.Requeue(e), ErrOverflow)
	assert.Equal(t, uint64(0), rec.Snapshot().OverflowCount)
}

func TestClear(t *testing.T) {
	q, rec := newQueue(t, 5, time.Hour)
	_, _ = q.Enqueue(pkt(1), 1, t0)
	_, _ = q.Enqueue(pkt(2), 1, t0)

	removed := q.Clear()
	assert.Len(t, removed, 2)
	assert.True(t, q.IsEmpty())
	assert.Equal(t, uint64(2), rec.Snapshot().TotalQueued)
}

func TestSetCapacity(t *testing.T) {
	q, _ := newQueue(t, 5, time.Hour)
	for i := 0; i < 3; i++ {
		_, _ = q.Enqueue(pkt(uint32(i)), 1, t0)
	}

	assert.ErrorIs(t, q.SetCapacity(2), ErrCapacityBelowLength)
	assert.Equal(t, 5, q.Capacity())

	require.NoError(t, q.SetCapacity(3))
	assert.True(t, q.IsFull())

	assert.ErrorIs(t, q.SetCapacity(-1), ErrInvalidCapacity)
}

func TestNewInvalidCapacity(t *testing.T) {
	_, err := New(-1, time.Hour, nil)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

// TestCapacityInvariantRandomized drives a random mix of operations and
// checks Len() <= Capacity() after each one.
func TestCapacityInvariantRandomized(t *testing.T) {
	const capacity = 7
	q, _ := newQueue(t, capacity, 5*time.Second)
	rng := rand.New(rand.NewSource(42))
	now := t0

	for i := 0; i < 5000; i++ {
		now = now.Add(time.Duration(rng.Intn(500)) * time.Millisecond)
		switch rng.Intn(4) {
		case 0, 1:
			_, _ = q.Enqueue(pkt(uint32(i)), uint8(rng.Intn(11)), now)
		case 2:
			q.Dequeue(now)
		case 3:
			q.SweepExpired(now)
		}
		if q.Len() > capacity {
			t.Fatalf("step %d: Len() = %d exceeds capacity %d", i, q.Len(), capacity)
		}
	}
}

// TestEntriesDequeueOrder checks that Entries lists in the same order
// Dequeue produces.
func TestEntriesDequeueOrder(t *testing.T) {
	q, _ := newQueue(t, 20, time.Hour)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		_, _ = q.Enqueue(pkt(uint32(i)), uint8(rng.Intn(4)), t0)
	}

	listed := q.Entries()
	for _, want := range listed {
		got, ok := q.Dequeue(t0)
		require.True(t, ok)
		require.Equal(t, want.Sequence, got.Sequence)
	}
}
