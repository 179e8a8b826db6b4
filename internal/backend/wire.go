package backend

import (
	"encoding/json"
	"fmt"
)

// Wire event type tags.
const (
	wireBlockStart = "block-start"
	wireTextChunk  = "text-chunk"
	wireToolStart  = "tool-start"
	wireToolEnd    = "tool-end"
	wireStatus     = "status"
	wireUsage      = "usage"
	wirePlanReady  = "plan-ready"
	wireComplete   = "complete"
	wireError      = "error"
	wireCancelled  = "cancelled"
)

// WireEvent is the flattened JSON form of an Event as carried on the SSE
// stream. The mock agent encodes with it and the HTTP client decodes from it.
type WireEvent struct {
	Type string `json:"type"`

	Index     int             `json:"index,omitempty"`
	Kind      BlockKind       `json:"kind,omitempty"`
	ToolUseID string          `json:"toolUseID,omitempty"`
	ToolName  string          `json:"toolName,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    string          `json:"output,omitempty"`
	IsError   bool            `json:"isError,omitempty"`

	Delta string `json:"delta,omitempty"`
	Text  string `json:"text,omitempty"`

	InputTokens  int `json:"inputTokens,omitempty"`
	OutputTokens int `json:"outputTokens,omitempty"`

	Plan       string `json:"plan,omitempty"`
	MessageID  string `json:"messageID,omitempty"`
	StopReason string `json:"stopReason,omitempty"`
	Message    string `json:"message,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// EncodeEvent converts a typed event into its wire form.
func EncodeEvent(e Event) WireEvent {
	switch ev := e.(type) {
	case BlockStart:
		return WireEvent{Type: wireBlockStart, Index: ev.Index, Kind: ev.Kind, ToolUseID: ev.ToolUseID, ToolName: ev.ToolName}
	case TextChunk:
		return WireEvent{Type: wireTextChunk, Index: ev.Index, Delta: ev.Delta}
	case ToolStart:
		return WireEvent{Type: wireToolStart, Index: ev.Index, ToolUseID: ev.ToolUseID, ToolName: ev.ToolName, Input: ev.Input}
	case ToolEnd:
		return WireEvent{Type: wireToolEnd, Index: ev.Index, Output: ev.Output, IsError: ev.IsError}
	case Status:
		return WireEvent{Type: wireStatus, Text: ev.Text}
	case Usage:
		return WireEvent{Type: wireUsage, InputTokens: ev.InputTokens, OutputTokens: ev.OutputTokens}
	case PlanReady:
		return WireEvent{Type: wirePlanReady, Plan: ev.Plan}
	case Complete:
		return WireEvent{Type: wireComplete, MessageID: ev.MessageID, StopReason: ev.StopReason}
	case TurnError:
		return WireEvent{Type: wireError, Message: ev.Message}
	case Cancelled:
		return WireEvent{Type: wireCancelled, Reason: ev.Reason}
	}
	// Unreachable: Event is a closed union.
	return WireEvent{}
}

// DecodeEvent converts a wire event into its typed form. Unknown type tags
// are an error; the event set is closed on both ends of the protocol.
func DecodeEvent(w WireEvent) (Event, error) {
	switch w.Type {
	case wireBlockStart:
		return BlockStart{Index: w.Index, Kind: w.Kind, ToolUseID: w.ToolUseID, ToolName: w.ToolName}, nil
	case wireTextChunk:
		return TextChunk{Index: w.Index, Delta: w.Delta}, nil
	case wireToolStart:
		return ToolStart{Index: w.Index, ToolUseID: w.ToolUseID, ToolName: w.ToolName, Input: w.Input}, nil
	case wireToolEnd:
		return ToolEnd{Index: w.Index, Output: w.Output, IsError: w.IsError}, nil
	case wireStatus:
		return Status{Text: w.Text}, nil
	case wireUsage:
		return Usage{InputTokens: w.InputTokens, OutputTokens: w.OutputTokens}, nil
	case wirePlanReady:
		return PlanReady{Plan: w.Plan}, nil
	case wireComplete:
		return Complete{MessageID: w.MessageID, StopReason: w.StopReason}, nil
	case wireError:
		return TurnError{Message: w.Message}, nil
	case wireCancelled:
		return Cancelled{Reason: w.Reason}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", w.Type)
}
