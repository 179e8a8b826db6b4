package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tandem-dev/tandem/internal/logging"
	"github.com/tandem-dev/tandem/internal/mockagent"
)

var (
	mockAddr   string
	mockScript string
	mockDelay  time.Duration
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start a scripted stand-in backend",
	Long: `Start a scripted stand-in backend that speaks the agent protocol.

Useful for trying the client without a real agent:

  tandem mock &
  tandem chat --backend http://localhost:7777`,
	RunE: runMock,
}

func init() {
	mockCmd.Flags().StringVar(&mockAddr, "addr", ":7777", "Listen address")
	mockCmd.Flags().StringVar(&mockScript, "script", "echo", "Playback script (echo|plan)")
	mockCmd.Flags().DurationVar(&mockDelay, "delay", 150*time.Millisecond, "Delay between streamed events")
}

func runMock(cmd *cobra.Command, args []string) error {
	var script mockagent.Script
	switch mockScript {
	case "echo":
		script = mockagent.EchoScript
	case "plan":
		script = mockagent.PlanScript
	default:
		return fmt.Errorf("unknown script %q (want echo or plan)", mockScript)
	}

	agent := mockagent.New(script)
	agent.Delay = mockDelay

	logging.Info().Str("addr", mockAddr).Str("script", mockScript).Msg("mock agent listening")
	fmt.Printf("mock agent listening on %s (script: %s)\n", mockAddr, mockScript)

	return http.ListenAndServe(mockAddr, agent.Handler())
}
