package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
)

type stubClient struct {
	resp *CompletionResponse
	err  error
	got  *CompletionRequest
}

func (c *stubClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	c.got = req
	return c.resp, c.err
}

func (c *stubClient) Name() string     { return "stub" }
func (c *stubClient) Models() []string { return []string{"stub-1"} }

func history(contents ...string) []model.Message {
	msgs := make([]model.Message, len(contents))
	for i, c := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msgs[i] = model.Message{Role: role, Content: c}
	}
	return msgs
}

func TestKnowledgeBaseResponder(t *testing.T) {
	r := NewKnowledgeBaseResponder()

	msg, err := r.Respond(context.Background(), &SessionContext{History: history("What is MCQ PLUS?")})
	require.NoError(t, err)

	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.Equal(t, KnowledgeBaseReply, msg.Content)
	if diff := cmp.Diff(DefaultReferences(), msg.ReferenceDocuments); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}

	// Replies must not share the responder's reference slice.
	msg.ReferenceDocuments[0].Title = "changed"
	assert.Equal(t, "MCQ PLUS", r.References[0].Title)
}

func TestCompletionResponder(t *testing.T) {
	client := &stubClient{resp: &CompletionResponse{Content: "MCQ PLUS is an assessment product."}}
	r := NewCompletionResponder(client, "stub-1")

	sc := &SessionContext{
		Prompt:  model.DefaultAssistantPrompt,
		History: history("What is MCQ PLUS?"),
	}
	msg, err := r.Respond(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, "stub", r.Name())
	assert.Equal(t, "MCQ PLUS is an assessment product.", msg.Content)
	assert.NotEmpty(t, msg.ReferenceDocuments)

	require.NotNil(t, client.got)
	assert.Equal(t, "stub-1", client.got.Model)
	assert.Equal(t, model.DefaultAssistantPrompt, client.got.System)
	assert.Equal(t, []ChatMessage{{Role: "user", Content: "What is MCQ PLUS?"}}, client.got.Messages)
}

func TestCompletionResponderErrors(t *testing.T) {
	tests := []struct {
		name    string
		client  *stubClient
		history []model.Message
	}{
		{name: "no history", client: &stubClient{resp: &CompletionResponse{Content: "x"}}},
		{name: "client error", client: &stubClient{err: errors.New("boom")}, history: history("hi")},
		{name: "empty completion", client: &stubClient{resp: &CompletionResponse{}}, history: history("hi")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCompletionResponder(tt.client, "")
			_, err := r.Respond(context.Background(), &SessionContext{History: tt.history})
			assert.Error(t, err)
		})
	}
}

func TestSessionContextQuestion(t *testing.T) {
	sc := &SessionContext{History: history("first", "answer", "second")}
	assert.Equal(t, "second", sc.Question())

	assert.Equal(t, "", (&SessionContext{}).Question())
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(Provider("mystery"), "key")
	assert.Error(t, err)

	_, err = NewClient(ProviderOpenAI, "")
	assert.Error(t, err)
}

func TestNewResponder(t *testing.T) {
	r := NewResponder(ProviderAnthropic, nil, "", nil)
	assert.IsType(t, &KnowledgeBaseResponder{}, r)

	r = NewResponder(ProviderAnthropic, map[Provider]string{ProviderOpenAI: "sk-test"}, "gpt-4o", nil)
	require.IsType(t, &CompletionResponder{}, r)
	assert.Equal(t, "openai", r.Name())

	r = NewResponder(ProviderOpenAI, map[Provider]string{
		ProviderAnthropic: "sk-ant-test",
		ProviderOpenAI:    "sk-test",
	}, "", nil)
	assert.Equal(t, "openai", r.Name(), "preferred provider wins")

	r = NewResponder("mistral", map[Provider]string{"mistral": "key", ProviderAnthropic: "sk-ant-test"}, "", nil)
	assert.Equal(t, "anthropic", r.Name(), "unknown providers are skipped")
}

func TestNewResponderModel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	r := NewResponder(ProviderOpenAI, map[Provider]string{ProviderAnthropic: "sk-ant-test"}, "gpt-4o", log)
	require.IsType(t, &CompletionResponder{}, r)
	assert.Equal(t, "anthropic", r.Name())
	assert.Empty(t, r.(*CompletionResponder).model, "fallback provider keeps its default model")
	assert.Equal(t, 1, logs.FilterMessage("configured model belongs to another provider, using the default").Len())

	r = NewResponder(ProviderOpenAI, map[Provider]string{ProviderOpenAI: "sk-test"}, "gpt-4o", log)
	assert.Equal(t, "gpt-4o", r.(*CompletionResponder).model)
	assert.Zero(t, logs.FilterMessage("model is not in the provider's known list").Len())

	r = NewResponder(ProviderOpenAI, map[Provider]string{ProviderOpenAI: "sk-test"}, "gpt-9", log)
	assert.Equal(t, "gpt-9", r.(*CompletionResponder).model, "unknown models are still passed through")
	assert.Equal(t, 1, logs.FilterMessage("model is not in the provider's known list").Len())
}
