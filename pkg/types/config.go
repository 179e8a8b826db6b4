package types

// Config holds user-facing configuration for the tandem client.
type Config struct {
	// Schema is the optional JSON schema reference.
	Schema string `json:"$schema,omitempty"`

	// BackendURL is the base URL of the agent backend.
	BackendURL string `json:"backendURL,omitempty"`

	// SystemPrompt overrides the backend's default system prompt for
	// outbound turns.
	SystemPrompt string `json:"systemPrompt,omitempty"`

	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"logLevel,omitempty"`

	// DataDir overrides where prompt history and bookkeeping are stored.
	DataDir string `json:"dataDir,omitempty"`
}
