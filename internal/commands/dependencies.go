package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telivi-ai/knowledge-assistant/internal/config"
	"github.com/telivi-ai/knowledge-assistant/internal/llm"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
)

// newLogger writes to a file so log lines stay off the terminal.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	path := cfg.LogFile
	if logFileFlag != "" {
		path = logFileFlag
	}

	log, err := logger.NewFile(cfg.LogLevel, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return log, nil
}

// newWorkspace builds a local workspace from configuration and flags.
func newWorkspace(cmd *cobra.Command, cfg *config.Config, log *logger.Logger) *service.Workspace {
	modelName := cfg.LLMModel
	if modelFlag != "" {
		modelName = modelFlag
	}

	responder := llm.NewResponder(llm.Provider(cfg.DefaultLLM), map[llm.Provider]string{
		llm.ProviderAnthropic: cfg.AnthropicAPIKey,
		llm.ProviderOpenAI:    cfg.OpenAIAPIKey,
	}, modelName, log)

	user := userFlag
	if user == "" {
		user = service.AnonymousUser
	}

	return service.NewWorkspace(user, service.WorkspaceConfig{
		Responder:     responder,
		ReplyDelay:    replyDelay(cmd, cfg),
		ReplyDelaySet: true,
		ReplyTimeout:  cfg.ReplyTimeout,
		Logger:        log,
	})
}

// replyDelay is the --delay flag when given, REPLY_DELAY otherwise.
func replyDelay(cmd *cobra.Command, cfg *config.Config) time.Duration {
	if cmd.Flags().Changed("delay") {
		return delayFlag
	}
	return cfg.ReplyDelay
}
