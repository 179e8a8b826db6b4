package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalBlock_Tool(t *testing.T) {
	data := []byte(`{"type":"tool","toolUseID":"t1","toolName":"bash","input":{"command":"ls"},"output":"ok"}`)

	b, err := UnmarshalBlock(data)
	require.NoError(t, err)

	tool, ok := b.(*ToolBlock)
	require.True(t, ok)
	assert.Equal(t, "t1", tool.ToolUseID)
	assert.Equal(t, "bash", tool.ToolName)
	require.NotNil(t, tool.Output)
	assert.Equal(t, "ok", *tool.Output)
}

func TestUnmarshalBlock_UnknownKindDegradesToText(t *testing.T) {
	data := []byte(`{"type":"thinking","text":"hmm"}`)

	b, err := UnmarshalBlock(data)
	require.NoError(t, err)
	assert.Equal(t, "hmm", b.(*TextBlock).Text)
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	out := "done"
	msg := Message{
		ID:   "m1",
		Role: RoleAssistant,
		Blocks: []Block{
			NewTextBlock("running ls"),
			&ToolBlock{Type: "tool", ToolUseID: "t1", ToolName: "bash", Input: json.RawMessage(`{"command":"ls"}`), Output: &out},
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded.Blocks, 2)
	assert.Equal(t, "running ls", decoded.Blocks[0].(*TextBlock).Text)
	tool := decoded.Blocks[1].(*ToolBlock)
	assert.Equal(t, "bash", tool.ToolName)
	assert.JSONEq(t, `{"command":"ls"}`, string(tool.Input))
}
