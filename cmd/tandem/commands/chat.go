package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tandem-dev/tandem/internal/backend"
	"github.com/tandem-dev/tandem/internal/config"
	"github.com/tandem-dev/tandem/internal/event"
	"github.com/tandem-dev/tandem/internal/history"
	"github.com/tandem-dev/tandem/internal/session"
	"github.com/tandem-dev/tandem/internal/storage"
	"github.com/tandem-dev/tandem/pkg/types"
)

const defaultBackendURL = "http://localhost:7777"

var (
	chatDir     string
	chatBackend string
	chatPrompt  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session",
	Long: `Start an interactive session against the configured backend.

While a turn is streaming you can keep typing: prompts are queued and
sent one at a time. Slash commands control the session:

  /cancel           stop the in-flight turn
  /approve          approve a pending plan
  /reject [reason]  reject a pending plan
  /queue            show queued prompts
  /history          show recent prompts
  /usage            show token totals
  /clear            clear the conversation
  /quit             exit`,
}

func init() {
	chatCmd.RunE = runChat
	chatCmd.Flags().StringVarP(&chatDir, "directory", "d", "", "Project directory (default: current)")
	chatCmd.Flags().StringVar(&chatBackend, "backend", "", "Backend base URL")
	chatCmd.Flags().StringVar(&chatPrompt, "system-prompt", "", "System prompt override")
}

func runChat(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(chatDir)
	if err != nil {
		return err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	backendURL := cfg.BackendURL
	if chatBackend != "" {
		backendURL = chatBackend
	}
	if backendURL == "" {
		backendURL = defaultBackendURL
	}

	storagePath := paths.StoragePath()
	if cfg.DataDir != "" {
		storagePath = cfg.DataDir
	}
	store := storage.New(storagePath)

	hist, err := history.New(store)
	if err != nil {
		return fmt.Errorf("load prompt history: %w", err)
	}

	client := backend.NewHTTPClient(backendURL)
	defer client.Close()

	bus := event.NewBus()
	defer bus.Close()

	ctrl := session.NewController(client, hist, bus)
	ctrl.SetBookkeeping(store)
	if chatPrompt != "" {
		ctrl.SetSystemPrompt(chatPrompt)
	} else if cfg.SystemPrompt != "" {
		ctrl.SetSystemPrompt(cfg.SystemPrompt)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	wireOutput(bus)

	ctrl.OpenProject(ctx, workDir)
	go ctrl.Run(ctx)

	fmt.Printf("tandem %s — project %s, backend %s\n", Version, workDir, backendURL)
	fmt.Println(`Type a prompt, or /quit to exit. "/help" lists commands.`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			ctrl.Submit(ctx, line)
			continue
		}

		command, rest, _ := strings.Cut(line, " ")
		switch command {
		case "/quit", "/exit":
			ctrl.Cancel(ctx)
			return nil
		case "/cancel":
			ctrl.Cancel(ctx)
		case "/approve":
			ctrl.ApprovePlan(ctx)
		case "/reject":
			ctrl.RejectPlan(ctx, strings.TrimSpace(rest))
		case "/queue":
			for i, e := range ctrl.QueueSnapshot() {
				fmt.Printf("  %d. [%s] %s\n", i+1, e.Status, e.Content)
			}
		case "/history":
			for i, p := range hist.All() {
				fmt.Printf("  %d. %s\n", i+1, p)
			}
		case "/usage":
			u := ctrl.Usage()
			fmt.Printf("  input: %d tokens, output: %d tokens\n", u.Input, u.Output)
		case "/clear":
			ctrl.ClearAll(ctx)
			fmt.Println("  conversation cleared")
		case "/help":
			fmt.Print(chatCmd.Long, "\n")
		default:
			fmt.Printf("  unknown command %s\n", command)
		}
	}
}

// wireOutput prints session notifications to stdout. Subscribers run inside
// the controller's publish path, so they only print and never call back into
// the controller.
func wireOutput(bus *event.Bus) {
	bus.Subscribe(event.StreamDelta, func(e event.Event) {
		if data, ok := e.Data.(event.StreamDeltaData); ok {
			fmt.Print(data.Delta)
		}
	})

	bus.Subscribe(event.StatusChanged, func(e event.Event) {
		data, ok := e.Data.(event.StatusChangedData)
		if !ok {
			return
		}
		switch data.Status {
		case session.StatusIdle, session.StatusSending:
		case session.StatusCancelled:
			fmt.Println("\n  (cancelled)")
		case session.StatusError:
		default:
			if data.IsLoading {
				fmt.Printf("  [%s]\n", data.Status)
			}
		}
	})

	bus.Subscribe(event.PlanPending, func(e event.Event) {
		if data, ok := e.Data.(event.PlanPendingData); ok {
			fmt.Printf("\n  --- proposed plan ---\n%s\n  ---------------------\n", data.Plan)
			fmt.Println("  /approve to proceed, /reject [reason] to decline")
		}
	})

	bus.Subscribe(event.SessionError, func(e event.Event) {
		if data, ok := e.Data.(event.SessionErrorData); ok && data.Message != "" {
			fmt.Printf("\n  error: %s\n", data.Message)
		}
	})

	bus.Subscribe(event.TranscriptUpdated, func(e event.Event) {
		data, ok := e.Data.(event.TranscriptUpdatedData)
		if !ok || len(data.Messages) == 0 {
			return
		}
		// Close out the streamed line when an assistant message lands.
		last := data.Messages[len(data.Messages)-1]
		if last.Role == types.RoleAssistant {
			fmt.Println()
		}
	})
}
