package types

import "encoding/json"

// Block represents a unit of content within a message.
type Block interface {
	BlockType() string
}

// TextBlock is a run of assistant or user text.
type TextBlock struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

func (b *TextBlock) BlockType() string { return "text" }

// NewTextBlock creates a text block with the type tag set.
func NewTextBlock(text string) *TextBlock {
	return &TextBlock{Type: "text", Text: text}
}

// ToolBlock is a single tool invocation and, once the tool has run, its
// result. A finalized tool block is immutable.
type ToolBlock struct {
	Type      string          `json:"type"` // always "tool"
	ToolUseID string          `json:"toolUseID"`
	ToolName  string          `json:"toolName"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    *string         `json:"output,omitempty"`
	IsError   bool            `json:"isError,omitempty"`
}

func (b *ToolBlock) BlockType() string { return "tool" }

// rawBlock is used to sniff the type tag during unmarshaling.
type rawBlock struct {
	Type string `json:"type"`
}

// UnmarshalBlock decodes a JSON block into the matching concrete type.
func UnmarshalBlock(data []byte) (Block, error) {
	var raw rawBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Type {
	case "tool":
		var b ToolBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return &b, nil
	default:
		// Unknown block kinds degrade to text so old transcripts stay readable.
		var b TextBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return &b, nil
	}
}
