package deadline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alia5/keyflow/deadline"
)

func TestRunUntilOrder(t *testing.T) {
	q := deadline.NewQueue()
	var fired []string

	q.AfterFunc(200, func(int64) { fired = append(fired, "b") })
	q.AfterFunc(100, func(int64) { fired = append(fired, "a") })
	q.AfterFunc(200, func(int64) { fired = append(fired, "c") })
	q.AfterFunc(300, func(int64) { fired = append(fired, "d") })

	next, ok := q.Next()
	assert.True(t, ok)
	assert.Equal(t, int64(100), next)

	assert.Equal(t, 3, q.RunUntil(250))
	assert.Equal(t, []string{"a", "b", "c"}, fired, "equal wake times fire in arming order")
	assert.Equal(t, 1, q.Len())
}

func TestCancelResults(t *testing.T) {
	q := deadline.NewQueue()
	fired := false
	tm := q.AfterFunc(50, func(int64) { fired = true })

	assert.True(t, tm.Pending())
	assert.Equal(t, deadline.Cancelled, tm.Cancel())
	assert.Equal(t, deadline.NotRunning, tm.Cancel())

	q.RunUntil(100)
	assert.False(t, fired)

	var nilTimer *deadline.Timer
	assert.Equal(t, deadline.NotRunning, nilTimer.Cancel())
}

func TestCancelFromOwnCallbackIsTooLate(t *testing.T) {
	q := deadline.NewQueue()
	var tm *deadline.Timer
	var got deadline.CancelResult
	tm = q.NewTimer(func(int64) { got = tm.Cancel() })
	tm.Schedule(10)

	q.RunUntil(10)
	assert.Equal(t, deadline.TooLate, got)
	assert.False(t, tm.Firing())
}

func TestRescheduleMovesTimer(t *testing.T) {
	q := deadline.NewQueue()
	var at []int64
	tm := q.AfterFunc(100, func(a int64) { at = append(at, a) })
	tm.Schedule(300)

	assert.Equal(t, 0, q.RunUntil(200))
	assert.Equal(t, 1, q.RunUntil(300))
	assert.Equal(t, []int64{300}, at)
}

func TestCallbackMayArmDueTimer(t *testing.T) {
	q := deadline.NewQueue()
	var order []int
	q.AfterFunc(10, func(int64) {
		order = append(order, 1)
		q.AfterFunc(10, func(int64) { order = append(order, 2) })
	})
	assert.Equal(t, 2, q.RunUntil(10))
	assert.Equal(t, []int{1, 2}, order)
}

func TestMockClock(t *testing.T) {
	c := deadline.NewMockClock(1000)
	assert.Equal(t, int64(1000), c.Now())
	assert.Equal(t, int64(1250), c.Advance(250))
	c.Set(10)
	assert.Equal(t, int64(1250), c.Now(), "mock clock is monotonic")
	c.Set(2000)
	assert.Equal(t, int64(2000), c.Now())
}
