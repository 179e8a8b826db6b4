package mockagent

import (
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/tandem-dev/tandem/internal/backend"
	"github.com/tandem-dev/tandem/pkg/types"
)

// Script produces the event stream the server plays for a turn request.
type Script func(req backend.TurnRequest) []backend.Event

// EchoScript streams the user's prompt back word by word. It is the default
// script and gives the CLI something to talk to without a model.
func EchoScript(req backend.TurnRequest) []backend.Event {
	prompt := lastUserText(req.History)

	events := []backend.Event{
		backend.Status{Text: "Thinking..."},
		backend.BlockStart{Index: 0, Kind: backend.BlockKindText},
		backend.TextChunk{Index: 0, Delta: "You said: "},
	}
	for _, word := range strings.Fields(prompt) {
		events = append(events, backend.TextChunk{Index: 0, Delta: word + " "})
	}
	events = append(events,
		backend.Usage{InputTokens: len(prompt), OutputTokens: len(prompt) + 10},
		backend.Complete{MessageID: ulid.Make().String(), StopReason: "end_turn"},
	)
	return events
}

// PlanScript emits a plan that gates the rest of the turn on approval.
func PlanScript(req backend.TurnRequest) []backend.Event {
	prompt := lastUserText(req.History)
	return []backend.Event{
		backend.Status{Text: "Planning..."},
		backend.PlanReady{Plan: "1. Interpret: " + prompt + "\n2. Do it"},
		backend.BlockStart{Index: 0, Kind: backend.BlockKindText},
		backend.TextChunk{Index: 0, Delta: "Plan approved, executing."},
		backend.Complete{MessageID: ulid.Make().String(), StopReason: "end_turn"},
	}
}

// FixedScript plays the same events for every turn.
func FixedScript(events []backend.Event) Script {
	return func(backend.TurnRequest) []backend.Event { return events }
}

func lastUserText(history []types.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != types.RoleUser {
			continue
		}
		for _, b := range history[i].Blocks {
			if tb, ok := b.(*types.TextBlock); ok {
				return tb.Text
			}
		}
	}
	return ""
}
