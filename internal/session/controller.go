package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/tandem-dev/tandem/internal/backend"
	"github.com/tandem-dev/tandem/internal/event"
	"github.com/tandem-dev/tandem/internal/history"
	"github.com/tandem-dev/tandem/internal/logging"
	"github.com/tandem-dev/tandem/internal/storage"
	"github.com/tandem-dev/tandem/pkg/types"
)

// Turn statuses. Anything else in the status field is free-form progress
// text reported by the backend.
const (
	StatusIdle      = "idle"
	StatusSending   = "sending"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// cancelledMarker is appended to a cancelled turn's text so the transcript
// records that the user stopped it.
const cancelledMarker = "[Cancelled by user]"

var lastProjectKey = []string{"client", "last-project"}

// Controller owns the single in-flight turn: it serializes submissions
// through the queue, feeds stream events to the assembler, arbitrates the
// three termination paths, and gates on plan approval. One controller
// instance owns one backend session; two controllers must never share one.
//
// All state mutation happens under one mutex, so each event handler runs
// atomically with respect to every other handler and public operation. That
// is what makes the cancel race a simple first-write-wins.
type Controller struct {
	mu sync.Mutex

	client  backend.Client
	history *history.Store
	bus     *event.Bus
	store   *storage.Store // optional, best-effort bookkeeping

	project      *types.Project
	sessionID    string
	systemPrompt string

	transcript []types.Message
	asm        *Assembler
	queue      *Queue
	usage      *UsageTracker

	status      string
	errMsg      string
	liveText    strings.Builder
	pendingPlan *string

	draining   bool
	inFlightID string // queue entry whose turn is in flight, removed on settlement
}

// NewController creates a controller. The bus must be non-nil; history may
// be nil when prompt recall is not wanted (tests).
func NewController(client backend.Client, hist *history.Store, bus *event.Bus) *Controller {
	return &Controller{
		client:  client,
		history: hist,
		bus:     bus,
		asm:     NewAssembler(),
		queue:   NewQueue(),
		usage:   NewUsageTracker(),
		status:  StatusIdle,
	}
}

// SetBookkeeping attaches the key-value store used for best-effort records
// like the last opened project.
func (c *Controller) SetBookkeeping(kv *storage.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = kv
}

// SetSystemPrompt sets the system prompt override sent with each turn.
func (c *Controller) SetSystemPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemPrompt = prompt
}

// OpenProject switches the controller to a project directory. This is a
// session boundary: transcript, queue, streaming state, and usage totals all
// reset.
func (c *Controller) OpenProject(ctx context.Context, directory string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.project = &types.Project{
		ID:        hashDirectory(directory),
		Directory: directory,
	}
	c.sessionID = newID()
	c.resetSessionLocked(ctx)

	// Last-project record is best effort; a failed write is invisible.
	if c.store != nil {
		if err := c.store.Put(lastProjectKey, c.project); err != nil {
			logging.Debug().Err(err).Msg("last-project record failed")
		}
	}
}

// Submit sends a user prompt. While a turn is in flight the prompt is
// queued (or silently dropped at capacity). Empty prompts and prompts
// without an open project are silently ignored.
func (c *Controller) Submit(ctx context.Context, content string) {
	content = strings.TrimSpace(content)

	c.mu.Lock()
	defer c.mu.Unlock()

	if content == "" || c.project == nil {
		logging.Debug().Bool("hasProject", c.project != nil).Msg("submit skipped")
		return
	}

	if c.isLoadingLocked() {
		if id := c.queue.Enqueue(content); id != "" {
			c.publishQueueLocked()
		}
		return
	}

	c.startTurnLocked(ctx, content, "")
}

// Cancel stops the in-flight turn. The visible state is finalized
// immediately rather than waiting for the backend's acknowledgment, which
// arrives later as a Cancelled event and is then a no-op. No-op when no
// turn is in flight.
func (c *Controller) Cancel(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isLoadingLocked() {
		return
	}

	go func() {
		if err := c.client.CancelTurn(ctx); err != nil {
			logging.Warn().Err(err).Msg("cancel request failed")
		}
	}()

	c.finalizeCancelLocked(ctx)
}

// ApprovePlan approves the pending plan so the backend resumes the turn.
// The pending plan is cleared whether or not the request succeeds; a
// failure surfaces as a session error and is not retried.
func (c *Controller) ApprovePlan(ctx context.Context) {
	c.mu.Lock()
	if c.pendingPlan == nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ok, err := c.client.ApprovePlan(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingPlan = nil
	approved := err == nil && ok
	if !approved {
		c.setErrorLocked(requestFailure("plan approval", err))
	}
	c.bus.Publish(event.Event{Type: event.PlanResolved, Data: event.PlanResolvedData{Approved: approved}})
}

// RejectPlan declines the pending plan with an optional reason. Settlement
// behavior mirrors ApprovePlan.
func (c *Controller) RejectPlan(ctx context.Context, reason string) {
	c.mu.Lock()
	if c.pendingPlan == nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ok, err := c.client.RejectPlan(ctx, reason)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingPlan = nil
	if err != nil || !ok {
		c.setErrorLocked(requestFailure("plan rejection", err))
	}
	c.bus.Publish(event.Event{Type: event.PlanResolved, Data: event.PlanResolvedData{Approved: false}})
}

// ClearAll resets the session to its start condition: transcript, streaming
// state, queue, error, status, and usage. Prompt history is untouched.
func (c *Controller) ClearAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetSessionLocked(ctx)
}

// ClearError empties the user-visible error slot.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
	c.bus.Publish(event.Event{Type: event.SessionError, Data: event.SessionErrorData{}})
}

// RemoveQueued deletes a queued prompt by ID.
func (c *Controller) RemoveQueued(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Remove(id)
	c.publishQueueLocked()
}

// UpdateQueued edits a still-pending queued prompt.
func (c *Controller) UpdateQueued(id, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Update(id, content)
	c.publishQueueLocked()
}

// Run consumes the client's event stream until ctx is done or the stream
// closes.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.client.Events():
			if !ok {
				return
			}
			c.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent applies one inbound backend event. The switch is exhaustive
// over the closed event union.
func (c *Controller) HandleEvent(ctx context.Context, ev backend.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := ev.(type) {
	case backend.BlockStart:
		c.asm.StartBlock(ev.Index, ev.Kind, ev.ToolUseID, ev.ToolName)

	case backend.TextChunk:
		c.asm.AppendText(ev.Index, ev.Delta)
		c.liveText.WriteString(ev.Delta)
		c.bus.Publish(event.Event{Type: event.StreamDelta, Data: event.StreamDeltaData{
			Delta: ev.Delta,
			Text:  c.liveText.String(),
		}})

	case backend.ToolStart:
		c.asm.StartTool(ev.Index, ev.ToolUseID, ev.ToolName, ev.Input)

	case backend.ToolEnd:
		c.asm.EndTool(ev.Index, ev.Output, ev.IsError)

	case backend.Status:
		// Display-only progress text. A stale status after settlement must
		// not flip the session back to loading.
		if c.isLoadingLocked() {
			c.status = ev.Text
			c.publishStatusLocked()
		}

	case backend.Usage:
		c.usage.Set(ev.InputTokens, ev.OutputTokens)
		c.publishUsageLocked()

	case backend.PlanReady:
		plan := ev.Plan
		c.pendingPlan = &plan
		// The plan supersedes in-flight narration at this pause point. Only
		// the live display text resets; assembled blocks stay, because the
		// turn resumes into the same assembler after approval.
		c.liveText.Reset()
		c.bus.Publish(event.Event{Type: event.PlanPending, Data: event.PlanPendingData{Plan: plan}})

	case backend.Complete:
		if !c.isLoadingLocked() {
			return
		}
		id := ev.MessageID
		if id == "" {
			id = newID()
		}
		c.appendAssistantLocked(id, c.asm.Finalize())
		c.finishLocked(ctx, StatusIdle)

	case backend.TurnError:
		if !c.isLoadingLocked() {
			return
		}
		// Errors discard partial content; only cancellation preserves it.
		c.setErrorLocked(ev.Message)
		c.finishLocked(ctx, StatusError)

	case backend.Cancelled:
		// First write wins: if the explicit cancel path already finalized,
		// this acknowledgment must not append a second transcript entry.
		if !c.isLoadingLocked() {
			return
		}
		c.finalizeCancelLocked(ctx)
	}
}

// Transcript returns a copy of the transcript.
func (c *Controller) Transcript() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Status returns the current turn status.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsLoading reports whether a turn is in flight.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isLoadingLocked()
}

// Err returns the current user-visible error, or "".
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// PendingPlan returns the plan awaiting approval, or nil.
func (c *Controller) PendingPlan() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingPlan == nil {
		return nil
	}
	plan := *c.pendingPlan
	return &plan
}

// Usage returns the current session token totals.
func (c *Controller) Usage() types.TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage.Totals()
}

// QueueSnapshot returns the queued prompts in order.
func (c *Controller) QueueSnapshot() []types.QueuedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Snapshot()
}

// LiveText returns the text streamed so far for the in-flight turn.
func (c *Controller) LiveText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveText.String()
}

func (c *Controller) isLoadingLocked() bool {
	switch c.status {
	case StatusIdle, StatusError, StatusCancelled:
		return false
	}
	return true
}

// startTurnLocked appends the user message and dispatches the backend
// request. The user's message lands in the transcript before the request is
// issued so it stays visible even if the send fails. queueID is non-empty
// when the turn was drained from the queue.
func (c *Controller) startTurnLocked(ctx context.Context, content, queueID string) {
	userMsg := types.Message{
		ID:     newID(),
		Role:   types.RoleUser,
		Blocks: []types.Block{types.NewTextBlock(content)},
	}
	c.transcript = append(c.transcript, userMsg)

	c.asm.Clear()
	c.liveText.Reset()
	c.status = StatusSending
	c.errMsg = ""
	c.inFlightID = queueID

	if c.history != nil {
		if err := c.history.Add(content); err != nil {
			logging.Warn().Err(err).Msg("prompt history write failed")
		}
	}

	c.publishTranscriptLocked()
	c.publishStatusLocked()

	req := backend.TurnRequest{
		Directory:    c.project.Directory,
		SessionID:    c.sessionID,
		History:      append([]types.Message(nil), c.transcript...),
		SystemPrompt: c.systemPrompt,
	}
	go c.sendTurn(ctx, req)
}

// sendTurn issues the backend request. Settlement normally arrives through
// the event stream; only a rejected request is handled here.
func (c *Controller) sendTurn(ctx context.Context, req backend.TurnRequest) {
	err := c.client.SendTurn(ctx, req)
	if err == nil {
		return
	}
	if errors.Is(err, backend.ErrTurnCancelled) {
		// The cancel path already produced the right user-visible state.
		logging.Debug().Msg("send rejected by cancellation, suppressed")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isLoadingLocked() {
		return
	}
	c.setErrorLocked(err.Error())
	c.finishLocked(ctx, StatusError)
}

// finalizeCancelLocked settles a cancelled turn, preserving partial content
// with the cancellation marker. Shared by the explicit cancel path and the
// backend acknowledgment; the caller has already checked the turn is live.
func (c *Controller) finalizeCancelLocked(ctx context.Context) {
	if c.asm.Empty() {
		c.finishLocked(ctx, StatusCancelled)
		return
	}

	blocks := c.asm.Finalize()
	marked := false
	for _, b := range blocks {
		if tb, ok := b.(*types.TextBlock); ok {
			if tb.Text == "" {
				tb.Text = cancelledMarker
			} else {
				tb.Text += "\n\n" + cancelledMarker
			}
			marked = true
			break
		}
	}
	if !marked {
		blocks = append(blocks, types.NewTextBlock(cancelledMarker))
	}

	c.appendAssistantLocked(newID(), blocks)
	c.finishLocked(ctx, StatusCancelled)
}

func (c *Controller) appendAssistantLocked(id string, blocks []types.Block) {
	c.transcript = append(c.transcript, types.Message{
		ID:     id,
		Role:   types.RoleAssistant,
		Blocks: blocks,
	})
	c.publishTranscriptLocked()
}

// finishLocked clears streaming state, moves to a terminal status, and
// settles the queue entry that produced this turn.
func (c *Controller) finishLocked(ctx context.Context, status string) {
	c.asm.Clear()
	c.liveText.Reset()
	c.pendingPlan = nil
	c.status = status
	c.publishStatusLocked()

	if c.inFlightID != "" {
		c.queue.Remove(c.inFlightID)
		c.inFlightID = ""
		c.publishQueueLocked()
	}
	c.draining = false
	c.dispatchNextLocked(ctx)
}

// dispatchNextLocked drains at most one pending queue entry into a new turn.
// The draining guard keeps a second drain from starting before the current
// one settles.
func (c *Controller) dispatchNextLocked(ctx context.Context) {
	if c.draining || c.isLoadingLocked() {
		return
	}
	entry := c.queue.NextPending()
	if entry == nil {
		return
	}
	c.draining = true
	c.publishQueueLocked()
	c.startTurnLocked(ctx, entry.Content, entry.ID)
}

func (c *Controller) resetSessionLocked(ctx context.Context) {
	c.transcript = nil
	c.asm.Clear()
	c.liveText.Reset()
	c.queue.Clear()
	c.errMsg = ""
	c.pendingPlan = nil
	c.status = StatusIdle
	c.draining = false
	c.inFlightID = ""
	c.usage.Reset(ctx, c.client)

	c.publishTranscriptLocked()
	c.publishStatusLocked()
	c.publishQueueLocked()
	c.publishUsageLocked()
}

func (c *Controller) setErrorLocked(message string) {
	c.errMsg = message
	c.bus.Publish(event.Event{Type: event.SessionError, Data: event.SessionErrorData{Message: message}})
}

func (c *Controller) publishStatusLocked() {
	c.bus.Publish(event.Event{Type: event.StatusChanged, Data: event.StatusChangedData{
		Status:    c.status,
		IsLoading: c.isLoadingLocked(),
	}})
}

func (c *Controller) publishTranscriptLocked() {
	c.bus.Publish(event.Event{Type: event.TranscriptUpdated, Data: event.TranscriptUpdatedData{
		Messages: append([]types.Message(nil), c.transcript...),
	}})
}

func (c *Controller) publishQueueLocked() {
	c.bus.Publish(event.Event{Type: event.QueueChanged, Data: event.QueueChangedData{
		Entries: c.queue.Snapshot(),
	}})
}

func (c *Controller) publishUsageLocked() {
	c.bus.Publish(event.Event{Type: event.UsageUpdated, Data: event.UsageUpdatedData{
		Usage: c.usage.Totals(),
	}})
}

func requestFailure(what string, err error) string {
	if err != nil {
		return what + " failed: " + err.Error()
	}
	return what + " was declined by the backend"
}

// newID generates a new ULID.
func newID() string {
	return ulid.Make().String()
}

// hashDirectory derives a stable project ID from a directory path.
func hashDirectory(directory string) string {
	h := sha256.Sum256([]byte(directory))
	return hex.EncodeToString(h[:])[:16]
}
