package commands

import (
	"github.com/spf13/cobra"

	"github.com/telivi-ai/knowledge-assistant/internal/config"
	"github.com/telivi-ai/knowledge-assistant/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with the knowledge assistant.

Enter sends, ctrl+n starts a new chat, tab and shift+tab move between
chats, esc or ctrl+c quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func runChat(cmd *cobra.Command) error {
	cfg := config.Load()

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ws := newWorkspace(cmd, cfg, log)
	defer ws.Close()

	log.Info("chat started")
	return tui.RunChat(ws)
}
