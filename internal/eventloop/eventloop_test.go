package eventloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Manual scheduler
// ============================================================================

func TestManual_TimersFireInOrder(t *testing.T) {
	m := NewManual()
	var got []string
	m.After(20*time.Millisecond, func() { got = append(got, "b") })
	m.After(10*time.Millisecond, func() { got = append(got, "a") })
	cancel := m.After(15*time.Millisecond, func() { got = append(got, "x") })
	cancel()

	m.Advance(15 * time.Millisecond)
	require.Equal(t, []string{"a"}, got)

	m.Advance(5 * time.Millisecond)
	require.Equal(t, []string{"a", "b"}, got)
	require.Zero(t, m.Pending())
}

func TestManual_PostedTasksRunOnFlush(t *testing.T) {
	m := NewManual()
	ran := 0
	m.Post(func() {
		ran++
		m.Post(func() { ran++ })
	})
	require.Zero(t, ran)

	m.Flush()
	require.Equal(t, 2, ran)
}

func TestEvery_RepeatsUntilCancelled(t *testing.T) {
	m := NewManual()
	ticks := 0
	cancel := Every(m, 250*time.Millisecond, func() { ticks++ })

	m.Advance(time.Second)
	require.Equal(t, 4, ticks)

	cancel()
	m.Advance(time.Second)
	require.Equal(t, 4, ticks)
}

// ============================================================================
// Debouncer
// ============================================================================

func TestDebouncer_LeadingAndTrailing(t *testing.T) {
	m := NewManual()
	d := NewDebouncer(m, 300*time.Millisecond)
	var calls []int

	for i := 1; i <= 5; i++ {
		i := i
		d.Call(func() { calls = append(calls, i) })
		m.Advance(50 * time.Millisecond)
	}
	require.Equal(t, []int{1}, calls)

	m.Advance(300 * time.Millisecond)
	require.Equal(t, []int{1, 5}, calls)
}

func TestDebouncer_SingleCallRunsOnce(t *testing.T) {
	m := NewManual()
	d := NewDebouncer(m, 300*time.Millisecond)
	n := 0

	d.Call(func() { n++ })
	m.Advance(time.Second)
	require.Equal(t, 1, n)

	d.Call(func() { n++ })
	require.Equal(t, 2, n, "a new burst leads again")
}

func TestDebouncer_Stop(t *testing.T) {
	m := NewManual()
	d := NewDebouncer(m, 300*time.Millisecond)
	n := 0
	d.Call(func() { n++ })
	d.Call(func() { n++ })
	d.Stop()

	m.Advance(time.Second)
	require.Equal(t, 1, n)
}

// ============================================================================
// Loop
// ============================================================================

func TestLoop_RunsPostedTasksInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLoop()
	go l.Run(ctx)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		l.Post(func() { order = append(order, i) })
	}
	require.NoError(t, l.Call(ctx, func() {}))
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestLoop_AfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLoop()
	go l.Run(ctx)

	var fired atomic.Int32
	stop := l.After(20*time.Millisecond, func() { fired.Add(1) })
	stop()
	l.After(10*time.Millisecond, func() { fired.Add(10) })

	require.Eventually(t, func() bool { return fired.Load() == 10 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(10), fired.Load())
}

func TestLoop_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop()
	go l.Run(ctx)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
