package backend

import (
	"context"
	"errors"

	"github.com/tandem-dev/tandem/pkg/types"
)

// ErrTurnCancelled reports that a send failed because the turn was cancelled
// rather than because anything went wrong. Callers suppress it instead of
// surfacing an error; the cancel path already produced the right state.
var ErrTurnCancelled = errors.New("turn cancelled")

// TurnRequest is one outbound turn submission.
type TurnRequest struct {
	Directory    string          `json:"directory"`
	SessionID    string          `json:"sessionID,omitempty"`
	History      []types.Message `json:"history"`
	SystemPrompt string          `json:"systemPrompt,omitempty"`
}

// Client is the asynchronous request/event boundary with the agent backend.
// Requests await a single result; stream events arrive independently on
// Events.
type Client interface {
	// SendTurn submits a turn. It returns once the backend has accepted or
	// rejected the request; streamed content arrives via Events. A send
	// aborted by cancellation returns ErrTurnCancelled.
	SendTurn(ctx context.Context, req TurnRequest) error

	// CancelTurn asks the backend to stop the in-flight turn. The backend
	// confirms with a Cancelled event.
	CancelTurn(ctx context.Context) error

	// ApprovePlan resumes a turn paused on a proposed plan.
	ApprovePlan(ctx context.Context) (bool, error)

	// RejectPlan declines a proposed plan with an optional reason.
	RejectPlan(ctx context.Context, reason string) (bool, error)

	// ResetUsage asks the backend to zero its usage counters. Best effort.
	ResetUsage(ctx context.Context) error

	// Events is the inbound stream. It is closed when the client shuts down.
	Events() <-chan Event

	// Close releases the client's resources.
	Close() error
}
