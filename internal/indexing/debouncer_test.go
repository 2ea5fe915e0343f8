package indexing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lri/internal/types"
)

// batchCollector gathers flushed batches for assertions.
type batchCollector struct {
	mu      sync.Mutex
	batches [][]types.FileEvent
}

func (c *batchCollector) flush(events []types.FileEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, events)
}

func (c *batchCollector) snapshot() [][]types.FileEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]types.FileEvent, len(c.batches))
	copy(out, c.batches)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDebouncer_BurstCoalescesIntoOneBatch(t *testing.T) {
	var c batchCollector
	d := newEventDebouncer(30*time.Millisecond, c.flush)
	defer d.stop()

	// A save-then-reformat burst: several writes to the same file in quick
	// succession.
	for i := 0; i < 5; i++ {
		d.add("UserController.java", types.FileModified)
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, func() bool { return len(c.snapshot()) > 0 })

	batches := c.snapshot()
	require.Len(t, batches, 1, "a burst within the window must flush exactly once")
	require.Len(t, batches[0], 1)
	assert.Equal(t, "UserController.java", batches[0][0].Path)
	assert.Equal(t, types.FileModified, batches[0][0].Kind)
}

func TestDebouncer_LatestKindWinsPerPath(t *testing.T) {
	var c batchCollector
	d := newEventDebouncer(20*time.Millisecond, c.flush)
	defer d.stop()

	d.add("UserController.java", types.FileCreated)
	d.add("UserController.java", types.FileModified)

	waitFor(t, func() bool { return len(c.snapshot()) > 0 })

	batches := c.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, types.FileModified, batches[0][0].Kind)
}

func TestDebouncer_DeletionsOrderedFirst(t *testing.T) {
	var c batchCollector
	d := newEventDebouncer(20*time.Millisecond, c.flush)
	defer d.stop()

	d.add("AController.java", types.FileModified)
	d.add("BController.java", types.FileDeleted)
	d.add("CController.java", types.FileModified)

	waitFor(t, func() bool { return len(c.snapshot()) > 0 })

	batches := c.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 3)
	assert.Equal(t, types.FileDeleted, batches[0][0].Kind)
}

func TestDebouncer_SeparateBurstsSeparateBatches(t *testing.T) {
	var c batchCollector
	d := newEventDebouncer(15*time.Millisecond, c.flush)
	defer d.stop()

	d.add("AController.java", types.FileModified)
	waitFor(t, func() bool { return len(c.snapshot()) == 1 })

	d.add("BController.java", types.FileModified)
	waitFor(t, func() bool { return len(c.snapshot()) == 2 })

	batches := c.snapshot()
	assert.Equal(t, "AController.java", batches[0][0].Path)
	assert.Equal(t, "BController.java", batches[1][0].Path)
}

func TestDebouncer_StopDropsPendingEvents(t *testing.T) {
	var c batchCollector
	d := newEventDebouncer(20*time.Millisecond, c.flush)

	d.add("UserController.java", types.FileModified)
	d.stop()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}
