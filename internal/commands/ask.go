package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telivi-ai/knowledge-assistant/internal/config"
	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, strings.Join(args, " "))
	},
}

func runAsk(cmd *cobra.Command, question string) error {
	cfg := config.Load()

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ws := newWorkspace(cmd, cfg, log)
	defer ws.Close()

	events, unsubscribe := ws.Subscribe()
	defer unsubscribe()

	if _, err := ws.Send(cmd.Context(), question); err != nil {
		if errors.Is(err, service.ErrEmptyInput) {
			return errors.New("question is empty")
		}
		return fmt.Errorf("failed to send question: %w", err)
	}

	timeout := cfg.ReplyTimeout + max(replyDelay(cmd, cfg), 0)
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	reply, err := waitForReply(ctx, events)
	if err != nil {
		return err
	}
	printReply(cmd.OutOrStdout(), reply)
	return nil
}

// waitForReply returns the first assistant message on events.
func waitForReply(ctx context.Context, events <-chan model.ChatEvent) (*model.Message, error) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil, errors.New("workspace closed before the reply arrived")
			}
			if ev.Type == model.EventMessageAppended && ev.Message != nil && ev.Message.Role == model.RoleAssistant {
				return ev.Message, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for reply: %w", ctx.Err())
		}
	}
}

func printReply(w io.Writer, msg *model.Message) {
	fmt.Fprintln(w, msg.Content)
	if len(msg.ReferenceDocuments) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sources:")
	for _, doc := range msg.ReferenceDocuments {
		fmt.Fprintf(w, "  - %s [%s] by %s, last modified %s\n", doc.Title, doc.Source, doc.Author, doc.LastUpdated)
	}
}
