package event

import "github.com/tandem-dev/tandem/pkg/types"

// TranscriptUpdatedData carries the full transcript after an append or reset.
type TranscriptUpdatedData struct {
	Messages []types.Message `json:"messages"`
}

// StreamDeltaData carries one streamed text delta plus the accumulated live
// text for consumers that redraw rather than append.
type StreamDeltaData struct {
	Delta string `json:"delta"`
	Text  string `json:"text"`
}

// StatusChangedData carries the turn status and the derived loading flag.
type StatusChangedData struct {
	Status    string `json:"status"`
	IsLoading bool   `json:"isLoading"`
}

// QueueChangedData carries a snapshot of the pending message queue.
type QueueChangedData struct {
	Entries []types.QueuedMessage `json:"entries"`
}

// PlanPendingData carries a plan awaiting approval.
type PlanPendingData struct {
	Plan string `json:"plan"`
}

// PlanResolvedData reports how a pending plan was settled.
type PlanResolvedData struct {
	Approved bool `json:"approved"`
}

// UsageUpdatedData carries the latest session token totals.
type UsageUpdatedData struct {
	Usage types.TokenUsage `json:"usage"`
}

// SessionErrorData carries the current user-visible error, or an empty
// message when the error slot was cleared.
type SessionErrorData struct {
	Message string `json:"message"`
}
