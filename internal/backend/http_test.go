package backend_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tandem-dev/tandem/internal/backend"
	"github.com/tandem-dev/tandem/internal/mockagent"
	"github.com/tandem-dev/tandem/pkg/types"
)

func turnRequest(prompt string) backend.TurnRequest {
	return backend.TurnRequest{
		Directory: "/tmp/project",
		SessionID: "s1",
		History: []types.Message{{
			ID:     "u1",
			Role:   types.RoleUser,
			Blocks: []types.Block{types.NewTextBlock(prompt)},
		}},
	}
}

func collect(t *testing.T, events <-chan backend.Event, n int) []backend.Event {
	t.Helper()
	out := make([]backend.Event, 0, n)
	deadline := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case ev := <-events:
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("got %d of %d events", len(out), n)
		}
	}
	return out
}

// waitConnected blocks until the client's event stream has subscribed;
// playback with no stream connected would be lost.
func waitConnected(t *testing.T, agent *mockagent.Server) {
	t.Helper()
	require.Eventually(t, func() bool { return agent.SubscriberCount() > 0 },
		5*time.Second, 10*time.Millisecond)
}

func TestHTTPClient_StreamsTurnEvents(t *testing.T) {
	script := mockagent.FixedScript([]backend.Event{
		backend.BlockStart{Index: 0, Kind: backend.BlockKindText},
		backend.TextChunk{Index: 0, Delta: "hello"},
		backend.Usage{InputTokens: 3, OutputTokens: 7},
		backend.Complete{MessageID: "m1", StopReason: "end_turn"},
	})
	agent := mockagent.New(script)
	srv := httptest.NewServer(agent.Handler())
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL)
	defer client.Close()
	waitConnected(t, agent)

	require.NoError(t, client.SendTurn(context.Background(), turnRequest("hi")))

	events := collect(t, client.Events(), 4)
	assert.Equal(t, backend.BlockStart{Index: 0, Kind: backend.BlockKindText}, events[0])
	assert.Equal(t, backend.TextChunk{Index: 0, Delta: "hello"}, events[1])
	assert.Equal(t, backend.Usage{InputTokens: 3, OutputTokens: 7}, events[2])
	assert.Equal(t, backend.Complete{MessageID: "m1", StopReason: "end_turn"}, events[3])
}

func TestHTTPClient_CancelledTurnIsTypedError(t *testing.T) {
	agent := mockagent.New(mockagent.EchoScript)
	agent.Delay = 50 * time.Millisecond
	srv := httptest.NewServer(agent.Handler())
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL)
	defer client.Close()
	waitConnected(t, agent)

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- client.SendTurn(context.Background(), turnRequest("one two three four five"))
	}()

	// Give the turn a moment to start before cancelling it.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, client.CancelTurn(context.Background()))

	select {
	case err := <-sendErr:
		assert.ErrorIs(t, err, backend.ErrTurnCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("send did not settle after cancel")
	}
}

func TestHTTPClient_PlanApprovalAck(t *testing.T) {
	agent := mockagent.New(mockagent.PlanScript)
	srv := httptest.NewServer(agent.Handler())
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL)
	defer client.Close()
	waitConnected(t, agent)

	// No plan pending yet: the backend declines rather than erroring.
	ok, err := client.ApprovePlan(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	done := make(chan error, 1)
	go func() {
		done <- client.SendTurn(context.Background(), turnRequest("build"))
	}()

	// Wait for the plan to arrive on the stream, then approve it.
	var sawPlan bool
	for !sawPlan {
		select {
		case ev := <-client.Events():
			if plan, isPlan := ev.(backend.PlanReady); isPlan {
				assert.Contains(t, plan.Plan, "build")
				sawPlan = true
			}
		case <-time.After(5 * time.Second):
			t.Fatal("no plan-ready event")
		}
	}

	ok, err = client.ApprovePlan(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, <-done)
}

func TestWireEvent_RoundTrip(t *testing.T) {
	for _, ev := range []backend.Event{
		backend.ToolStart{Index: 1, ToolUseID: "t1", ToolName: "bash", Input: []byte(`{"command":"ls"}`)},
		backend.PlanReady{Plan: "do the thing"},
		backend.TurnError{Message: "overloaded"},
	} {
		decoded, err := backend.DecodeEvent(backend.EncodeEvent(ev))
		require.NoError(t, err)
		assert.Equal(t, ev, decoded)
	}
}

func TestDecodeEvent_UnknownType(t *testing.T) {
	_, err := backend.DecodeEvent(backend.WireEvent{Type: "telepathy"})
	assert.Error(t, err)
}
