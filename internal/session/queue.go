package session

import (
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/tandem-dev/tandem/internal/logging"
	"github.com/tandem-dev/tandem/pkg/types"
)

// QueueCapacity bounds the pending message queue. Enqueues past the cap are
// dropped silently; that is backpressure, not an error.
const QueueCapacity = 10

// Queue is the bounded FIFO of user prompts waiting for the in-flight turn
// to settle. It is a plain data structure; the controller serializes access
// and owns the one-at-a-time drain.
type Queue struct {
	entries []*types.QueuedMessage
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a pending entry and returns its ID. It returns "" without
// enqueueing when the queue is full or the content trims to empty.
func (q *Queue) Enqueue(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if len(q.entries) >= QueueCapacity {
		logging.Debug().Int("capacity", QueueCapacity).Msg("message queue full, dropping enqueue")
		return ""
	}

	entry := &types.QueuedMessage{
		ID:      ulid.Make().String(),
		Content: content,
		Status:  types.QueueStatusPending,
	}
	q.entries = append(q.entries, entry)
	return entry.ID
}

// NextPending marks the first pending entry as sending and returns it, or
// nil when nothing is pending.
func (q *Queue) NextPending() *types.QueuedMessage {
	for _, e := range q.entries {
		if e.Status == types.QueueStatusPending {
			e.Status = types.QueueStatusSending
			return e
		}
	}
	return nil
}

// Remove deletes an entry by ID regardless of status. Unknown IDs are a
// no-op.
func (q *Queue) Remove(id string) {
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// Update replaces the content of a still-pending entry. Sending or absent
// entries are left alone.
func (q *Queue) Update(id, content string) {
	for _, e := range q.entries {
		if e.ID == id && e.Status == types.QueueStatusPending {
			e.Content = content
			return
		}
	}
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Clear drops all entries.
func (q *Queue) Clear() {
	q.entries = nil
}

// Snapshot returns a copy of the queue contents in order.
func (q *Queue) Snapshot() []types.QueuedMessage {
	out := make([]types.QueuedMessage, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, *e)
	}
	return out
}
