// Package backend defines the protocol boundary with the agent backend: the
// closed set of inbound stream events, the outbound request client, and the
// wire encoding shared with the mock agent.
package backend

import "encoding/json"

// BlockKind discriminates streamed block types.
type BlockKind string

const (
	BlockKindText BlockKind = "text"
	BlockKindTool BlockKind = "tool"
)

// Event is one inbound backend event. The set of implementations is closed;
// the controller switches over it exhaustively, so a new event kind is a
// compile-time decision rather than a silently ignored string.
type Event interface {
	backendEvent()
}

// BlockStart announces a new content block at a turn-unique index.
type BlockStart struct {
	Index     int
	Kind      BlockKind
	ToolUseID string
	ToolName  string
}

// TextChunk appends a delta to the text block at Index.
type TextChunk struct {
	Index int
	Delta string
}

// ToolStart fills in tool identity for the block at Index.
type ToolStart struct {
	Index     int
	ToolUseID string
	ToolName  string
	Input     json.RawMessage
}

// ToolEnd delivers a tool's result for the block at Index.
type ToolEnd struct {
	Index   int
	Output  string
	IsError bool
}

// Status carries free-form human-readable progress text ("Reading file...").
type Status struct {
	Text string
}

// Usage carries cumulative session token counters.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// PlanReady proposes a plan; the turn pauses until it is approved or
// rejected.
type PlanReady struct {
	Plan string
}

// Complete terminates the turn normally.
type Complete struct {
	MessageID  string
	StopReason string
}

// TurnError terminates the turn with a backend-reported failure.
type TurnError struct {
	Message string
}

// Cancelled acknowledges a cancellation.
type Cancelled struct {
	Reason string
}

func (BlockStart) backendEvent() {}
func (TextChunk) backendEvent()  {}
func (ToolStart) backendEvent()  {}
func (ToolEnd) backendEvent()    {}
func (Status) backendEvent()     {}
func (Usage) backendEvent()      {}
func (PlanReady) backendEvent()  {}
func (Complete) backendEvent()   {}
func (TurnError) backendEvent()  {}
func (Cancelled) backendEvent()  {}
