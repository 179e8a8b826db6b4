// Package session implements the client-side turn lifecycle: one controller
// per backend session that serializes prompt submission through a bounded
// queue, assembles streamed content blocks into transcript messages, gates
// plan execution on user approval, and arbitrates the three ways a turn can
// settle (complete, error, cancelled).
package session
