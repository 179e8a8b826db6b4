package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tandem-dev/tandem/pkg/types"
)

func TestQueue_FIFOAndCapacity(t *testing.T) {
	q := NewQueue()

	for i := 0; i < 12; i++ {
		q.Enqueue(fmt.Sprintf("msg %d", i))
	}

	require.Equal(t, QueueCapacity, q.Len())
	for i, e := range q.Snapshot() {
		assert.Equal(t, fmt.Sprintf("msg %d", i), e.Content)
		assert.Equal(t, types.QueueStatusPending, e.Status)
	}
}

func TestQueue_EnqueueTrimsAndRejectsEmpty(t *testing.T) {
	q := NewQueue()

	assert.Empty(t, q.Enqueue("   "))
	assert.Zero(t, q.Len())

	id := q.Enqueue("  hello  ")
	require.NotEmpty(t, id)
	assert.Equal(t, "hello", q.Snapshot()[0].Content)
}

func TestQueue_NextPendingMarksSending(t *testing.T) {
	q := NewQueue()
	q.Enqueue("first")
	q.Enqueue("second")

	e := q.NextPending()
	require.NotNil(t, e)
	assert.Equal(t, "first", e.Content)
	assert.Equal(t, types.QueueStatusSending, e.Status)

	// A second drain must skip the sending entry.
	e2 := q.NextPending()
	require.NotNil(t, e2)
	assert.Equal(t, "second", e2.Content)
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue()
	id := q.Enqueue("bye")
	q.Enqueue("stay")

	q.Remove(id)
	require.Equal(t, 1, q.Len())
	assert.Equal(t, "stay", q.Snapshot()[0].Content)

	// Unknown ID is a no-op.
	q.Remove("nope")
	assert.Equal(t, 1, q.Len())
}

func TestQueue_UpdateOnlyPending(t *testing.T) {
	q := NewQueue()
	id := q.Enqueue("draft")

	q.Update(id, "edited")
	assert.Equal(t, "edited", q.Snapshot()[0].Content)

	// Once sending, the content is locked in.
	q.NextPending()
	q.Update(id, "too late")
	assert.Equal(t, "edited", q.Snapshot()[0].Content)
}
