package drain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mesh-radio/txwindow/pkg/clock"
	"github.com/mesh-radio/txwindow/pkg/packet"
	"github.com/mesh-radio/txwindow/pkg/queue"
	"github.com/mesh-radio/txwindow/pkg/stats"
)

var t0 = time.Date(2026, 7, 1, 21, 0, 0, 0, time.UTC)

type stubTransmitter struct{ mock.Mock }

func (s *stubTransmitter) Transmit(ctx context.Context, p *packet.Packet) error {
	return s.Called(ctx, p).Error(0)
}

type fixture struct {
	q     *queue.Queue
	rec   *stats.Recorder
	clk   *clock.Manual
	tx    *stubTransmitter
	sched *Scheduler
}

func newFixture(t *testing.T, capacity int, budget Budget) *fixture {
	t.Helper()
	rec := stats.NewRecorder()
	q, err := queue.New(capacity, time.Hour, rec)
	require.NoError(t, err)

	f := &fixture{q: q, rec: rec, clk: clock.NewManual(t0), tx: &stubTransmitter{}}
	f.sched = NewScheduler(q, f.tx, rec, Config{Budget: budget, Clock: f.clk})
	return f
}

func (f *fixture) fill(t *testing.T, n int, priority uint8) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.q.Enqueue(&packet.Packet{ID: uint32(i + 1)}, priority, f.clk.Now())
		require.NoError(t, err)
	}
}

func TestDrainEmptiesQueue(t *testing.T) {
	f := newFixture(t, 10, Budget{Time: time.Second, Packets: 10})
	f.fill(t, 4, 1)
	f.tx.On("Transmit", mock.Anything, mock.Anything).Return(nil)

	res := f.sched.Drain(context.Background(), f.clk.Now())

	assert.Equal(t, 4, res.Transmitted)
	assert.Equal(t, StopEmpty, res.Reason)
	assert.NoError(t, res.Err)
	assert.True(t, f.q.IsEmpty())
	f.tx.AssertNumberOfCalls(t, "Transmit", 4)

	s := f.rec.Snapshot()
	assert.Equal(t, uint64(4), s.TotalTransmitted)
	assert.Equal(t, uint64(4), s.NormalPriorityTransmitted)
}

func TestDrainPacketBudget(t *testing.T) {
	f := newFixture(t, 20, Budget{Time: time.Second, Packets: 5})
	f.fill(t, 12, 1)
	f.tx.On("Transmit", mock.Anything, mock.Anything).Return(nil)

	res := f.sched.Drain(context.Background(), f.clk.Now())

	assert.Equal(t, 5, res.Transmitted)
	assert.Equal(t, StopPacketBudget, res.Reason)
	assert.Equal(t, 7, f.q.Len())
}

func TestDrainTimeBudget(t *testing.T) {
	f := newFixture(t, 20, Budget{Time: 100 * time.Millisecond, Packets: 50})
	f.fill(t, 10, 1)

	// Each transmit takes 30ms of clock time. Sends start at 0, 30, 60 and
	// 90ms; at 120ms the budget is spent.
	f.tx.On("Transmit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { f.clk.Advance(30 * time.Millisecond) }).
		Return(nil)

	res := f.sched.Drain(context.Background(), f.clk.Now())

	assert.Equal(t, 4, res.Transmitted)
	assert.Equal(t, StopTimeBudget, res.Reason)
	assert.Equal(t, 6, f.q.Len())
}

func TestDrainPriorityOrder(t *testing.T) {
	f := newFixture(t, 10, Budget{Time: time.Second, Packets: 10})
	for i, prio := range []uint8{1, 5, 3} {
		_, err := f.q.Enqueue(&packet.Packet{ID: uint32(i)}, prio, t0)
		require.NoError(t, err)
	}

	var order []uint32
	f.tx.On("Transmit", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, args.Get(1).(*packet.Packet).ID)
		}).
		Return(nil)

	f.sched.Drain(context.Background(), t0)
	assert.Equal(t, []uint32{1, 2, 0}, order)

	s := f.rec.Snapshot()
	assert.Equal(t, uint64(2), s.HighPriorityTransmitted)
	assert.Equal(t, uint64(1), s.NormalPriorityTransmitted)
}

func TestDrainStopsOnFailureAndRequeues(t *testing.T) {
	f := newFixture(t, 10, Budget{Time: time.Second, Packets: 10})
	f.fill(t, 3, 1)

	radioErr := errors.New("radio busy")
	f.tx.On("Transmit", mock.Anything, mock.MatchedBy(func(p *packet.Packet) bool { return p.ID == 1 })).Return(nil).Once()
	f.tx.On("Transmit", mock.Anything, mock.MatchedBy(func(p *packet.Packet) bool { return p.ID == 2 })).Return(radioErr).Once()

	res := f.sched.Drain(context.Background(), t0)

	assert.Equal(t, 1, res.Transmitted)
	assert.Equal(t, StopTransmitFailure, res.Reason)
	require.ErrorIs(t, res.Err, ErrTransmitFailure)
	require.ErrorIs(t, res.Err, radioErr)
	assert.Nil(t, res.Dropped)

	// Packet 2 was put back ahead of packet 3
	assert.Equal(t, 2, f.q.Len())
	head, ok := f.q.Peek()
	require.True(t, ok)
	assert.Equal(t, uint32(2), head.Packet.ID)
	f.tx.AssertNumberOfCalls(t, "Transmit", 2)
}

func TestDrainRecordsQueueTimeOncePerPacket(t *testing.T) {
	f := newFixture(t, 10, Budget{Time: time.Second, Packets: 10})
	_, err := f.q.Enqueue(&packet.Packet{ID: 7}, 1, t0.Add(-10*time.Minute))
	require.NoError(t, err)

	f.tx.On("Transmit", mock.Anything, mock.Anything).Return(errors.New("radio busy")).Once()
	res := f.sched.Drain(context.Background(), f.clk.Now())
	require.Equal(t, StopTransmitFailure, res.Reason)
	assert.Equal(t, uint64(0), f.rec.Snapshot().TotalDequeued)

	f.clk.Advance(30 * time.Minute)
	f.tx.On("Transmit", mock.Anything, mock.Anything).Return(nil).Once()
	res = f.sched.Drain(context.Background(), f.clk.Now())
	require.Equal(t, 1, res.Transmitted)

	s := f.rec.Snapshot()
	assert.Equal(t, uint64(1), s.TotalQueued)
	assert.Equal(t, uint64(1), s.TotalDequeued)
	assert.Equal(t, uint64(1), s.TotalTransmitted)
	assert.Equal(t, 40*time.Minute, s.SumQueueTime)
	assert.Equal(t, 40*time.Minute, s.MinQueueTime)
	assert.Equal(t, 40*time.Minute, s.AvgQueueTime())
}

func TestDrainSweepsExpiredFirst(t *testing.T) {
	f := newFixture(t, 10, Budget{Time: time.Second, Packets: 10})
	f.fill(t, 2, 1)
	f.tx.On("Transmit", mock.Anything, mock.Anything).Return(nil)

	res := f.sched.Drain(context.Background(), t0.Add(2*time.Hour))

	assert.Len(t, res.Expired, 2)
	assert.Equal(t, 0, res.Transmitted)
	f.tx.AssertNotCalled(t, "Transmit", mock.Anything, mock.Anything)
	assert.Equal(t, uint64(2), f.rec.Snapshot().TotalExpired)
}

func TestDrainCancelledContext(t *testing.T) {
	f := newFixture(t, 10, Budget{Time: time.Second, Packets: 10})
	f.fill(t, 2, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.sched.Drain(ctx, t0)
	assert.Equal(t, StopCancelled, res.Reason)
	assert.Equal(t, 2, f.q.Len())
}

func TestDefaultBudget(t *testing.T) {
	sched := NewScheduler(nil, TransmitFunc(func(context.Context, *packet.Packet) error { return nil }), nil, Config{})
	assert.Equal(t, DefaultBudget(), sched.Budget())

	sched.SetBudget(Budget{Packets: 3})
	assert.Equal(t, Budget{Time: DefaultTimeBudget, Packets: 3}, sched.Budget())
}

func TestStopReasonString(t *testing.T) {
	assert.Equal(t, "TIME_BUDGET", StopTimeBudget.String())
	assert.Equal(t, "UNKNOWN", StopReason(99).String())
}
