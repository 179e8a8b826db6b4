package session

import (
	"sort"
	"strings"

	"github.com/tandem-dev/tandem/internal/backend"
	"github.com/tandem-dev/tandem/internal/logging"
	"github.com/tandem-dev/tandem/pkg/types"
)

// streamingBlock is the mutable, in-progress counterpart of a content block,
// keyed by the backend-assigned block index.
type streamingBlock struct {
	index int
	kind  backend.BlockKind

	text strings.Builder

	toolUseID string
	toolName  string
	input     []byte
	output    *string
	isError   bool
	complete  bool
}

// Assembler reconstructs one turn's ordered content from per-block lifecycle
// events arriving in any order across indices. It is not safe for concurrent
// use; the controller serializes access.
type Assembler struct {
	blocks map[int]*streamingBlock
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{blocks: make(map[int]*streamingBlock)}
}

// StartBlock registers a new block at index. The backend contract guarantees
// index uniqueness per turn; a duplicate indicates a backend defect and is
// ignored so it cannot corrupt the existing block.
func (a *Assembler) StartBlock(index int, kind backend.BlockKind, toolUseID, toolName string) {
	if _, exists := a.blocks[index]; exists {
		logging.Warn().Int("index", index).Msg("duplicate block start ignored")
		return
	}
	a.blocks[index] = &streamingBlock{
		index:     index,
		kind:      kind,
		toolUseID: toolUseID,
		toolName:  toolName,
	}
}

// AppendText appends a delta to the text block at index. Unknown indices and
// non-text blocks are ignored; that is a backend/client desync, not a fatal
// condition.
func (a *Assembler) AppendText(index int, delta string) {
	b, ok := a.blocks[index]
	if !ok || b.kind != backend.BlockKindText {
		logging.Debug().Int("index", index).Msg("text delta for unknown or non-text block dropped")
		return
	}
	b.text.WriteString(delta)
}

// StartTool fills in tool identity on the block at index.
func (a *Assembler) StartTool(index int, toolUseID, toolName string, input []byte) {
	b, ok := a.blocks[index]
	if !ok || b.kind != backend.BlockKindTool {
		logging.Debug().Int("index", index).Msg("tool start for unknown or non-tool block dropped")
		return
	}
	b.toolUseID = toolUseID
	b.toolName = toolName
	b.input = input
	b.complete = false
}

// EndTool records a tool result on the block at index.
func (a *Assembler) EndTool(index int, output string, isError bool) {
	b, ok := a.blocks[index]
	if !ok || b.kind != backend.BlockKindTool {
		logging.Debug().Int("index", index).Msg("tool end for unknown or non-tool block dropped")
		return
	}
	b.output = &output
	b.isError = isError
	b.complete = true
}

// Empty reports whether no blocks have been started.
func (a *Assembler) Empty() bool {
	return len(a.blocks) == 0
}

// Finalize converts the current blocks to their immutable form, ordered by
// block index. Text blocks finalize to whatever text accumulated; tool
// blocks finalize with their last-known output even if the tool never
// reported completion, which covers cancellation mid-call.
func (a *Assembler) Finalize() []types.Block {
	if len(a.blocks) == 0 {
		return nil
	}

	indices := make([]int, 0, len(a.blocks))
	for i := range a.blocks {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]types.Block, 0, len(indices))
	for _, i := range indices {
		b := a.blocks[i]
		switch b.kind {
		case backend.BlockKindTool:
			out = append(out, &types.ToolBlock{
				Type:      "tool",
				ToolUseID: b.toolUseID,
				ToolName:  b.toolName,
				Input:     b.input,
				Output:    b.output,
				IsError:   b.isError,
			})
		default:
			out = append(out, types.NewTextBlock(b.text.String()))
		}
	}
	return out
}

// Clear drops all streaming blocks. Called on every turn termination path.
func (a *Assembler) Clear() {
	a.blocks = make(map[int]*streamingBlock)
}
