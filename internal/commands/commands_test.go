package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telivi-ai/knowledge-assistant/internal/llm"
	"github.com/telivi-ai/knowledge-assistant/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-file", filepath.Join(t.TempDir(), "telivi.log")))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "telivi "+Version)
}

func TestAsk(t *testing.T) {
	out, err := execute(t, "ask", "What", "is", "MCQ", "PLUS?", "--delay", "0s")
	require.NoError(t, err)

	assert.Contains(t, out, llm.KnowledgeBaseReply)
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "  - MCQ PLUS [confluence] by Paresh Sahoo, last modified 2 days ago")
}

func TestAskEmpty(t *testing.T) {
	_, err := execute(t, "ask", "   ", "--delay", "1ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question is empty")
}

func TestAskNeedsQuestion(t *testing.T) {
	_, err := execute(t, "ask")
	assert.Error(t, err)
}

func TestWaitForReply(t *testing.T) {
	events := make(chan model.ChatEvent, 3)
	events <- model.ChatEvent{Type: model.EventReplyPending, Pending: true}
	events <- model.ChatEvent{Type: model.EventMessageAppended, Message: &model.Message{Role: model.RoleUser, Content: "q"}}
	events <- model.ChatEvent{Type: model.EventMessageAppended, Message: &model.Message{Role: model.RoleAssistant, Content: "a"}}

	msg, err := waitForReply(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, "a", msg.Content)

	close(events)
	_, err = waitForReply(context.Background(), events)
	assert.ErrorContains(t, err, "workspace closed")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = waitForReply(ctx, make(chan model.ChatEvent))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPrintReply(t *testing.T) {
	var out bytes.Buffer
	printReply(&out, &model.Message{Content: "no sources"})
	assert.Equal(t, "no sources\n", out.String())
}
