// Package types contains the shared data model for the tandem session core.
package types

import "encoding/json"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry. It is immutable once appended to the
// transcript: user messages are built at submission time, assistant messages
// at turn settlement.
type Message struct {
	ID     string  `json:"id"`
	Role   string  `json:"role"` // "user" | "assistant"
	Blocks []Block `json:"blocks"`
}

// UnmarshalJSON decodes the message's blocks into their concrete types.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     string            `json:"id"`
		Role   string            `json:"role"`
		Blocks []json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.ID = raw.ID
	m.Role = raw.Role
	m.Blocks = make([]Block, 0, len(raw.Blocks))
	for _, b := range raw.Blocks {
		block, err := UnmarshalBlock(b)
		if err != nil {
			return err
		}
		m.Blocks = append(m.Blocks, block)
	}
	return nil
}

// TokenUsage holds the session-level token counters reported by the backend.
// The backend reports cumulative totals, so each usage event replaces the
// previous values rather than adding to them.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}
