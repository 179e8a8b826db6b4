package session

import (
	"context"

	"github.com/tandem-dev/tandem/internal/backend"
	"github.com/tandem-dev/tandem/internal/logging"
	"github.com/tandem-dev/tandem/pkg/types"
)

// UsageTracker holds the session's token totals. The backend is the source
// of truth for cumulative counts, so each usage event replaces the totals.
type UsageTracker struct {
	totals types.TokenUsage
}

// NewUsageTracker creates a tracker with zeroed totals.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

// Set replaces the totals with the backend's reported values.
func (u *UsageTracker) Set(input, output int) {
	u.totals = types.TokenUsage{Input: input, Output: output}
}

// Totals returns the current totals.
func (u *UsageTracker) Totals() types.TokenUsage {
	return u.totals
}

// Reset zeroes the totals and notifies the backend. The notification is a
// best-effort cache-coherency signal; failures are logged and swallowed.
func (u *UsageTracker) Reset(ctx context.Context, client backend.Client) {
	u.totals = types.TokenUsage{}
	if client == nil {
		return
	}
	go func() {
		if err := client.ResetUsage(ctx); err != nil {
			logging.Debug().Err(err).Msg("usage reset notification failed")
		}
	}()
}
