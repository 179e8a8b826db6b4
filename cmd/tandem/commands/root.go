// Package commands provides the CLI commands for tandem.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tandem-dev/tandem/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	printLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "tandem",
	Short: "Tandem - streaming client for an AI pair-programming backend",
	Long: `Tandem is the client-side session core for an AI pair-programming
backend: it streams assistant turns, queues prompts while a turn is in
flight, and gates plan execution on your approval.

Run 'tandem chat' to start an interactive session, or 'tandem mock' to
start a scripted stand-in backend to chat with.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine.
		godotenv.Load()

		out := os.Stderr
		cfg := logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Output: out,
			Pretty: true,
		}
		if !printLogs {
			devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
			if err == nil {
				cfg.Output = devnull
				cfg.Pretty = false
			}
		}
		logging.Init(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("tandem %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mockCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
