package types

// Queued message statuses.
const (
	QueueStatusPending = "pending"
	QueueStatusSending = "sending"
)

// QueuedMessage is a user prompt waiting for the current turn to settle.
// Entries are removed from the queue once their own turn settles, so "sent"
// is never a resting state.
type QueuedMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Status  string `json:"status"` // "pending" | "sending"
}
