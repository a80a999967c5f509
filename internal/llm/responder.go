package llm

import (
	"context"
	"errors"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
)

// SessionContext is what a responder sees when producing a reply.
type SessionContext struct {
	UserID    string
	SessionID string
	Title     string
	Prompt    string

	// History includes the user message being answered as its last entry.
	History []model.Message
}

// Question returns the user message being answered.
func (c *SessionContext) Question() string {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == model.RoleUser {
			return c.History[i].Content
		}
	}
	return ""
}

// Responder produces the assistant reply for a session.
type Responder interface {
	Respond(ctx context.Context, sc *SessionContext) (*model.Message, error)
	Name() string
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, sc *SessionContext) (*model.Message, error)

// Respond calls f(ctx, sc).
func (f ResponderFunc) Respond(ctx context.Context, sc *SessionContext) (*model.Message, error) {
	return f(ctx, sc)
}

// Name returns "func".
func (f ResponderFunc) Name() string {
	return "func"
}

// KnowledgeBaseReply is the canned answer of the knowledge-base responder.
const KnowledgeBaseReply = "Based on your organization's knowledge base, here's what I found. " +
	"The information comes from multiple sources including Confluence pages, Jira tickets, and SharePoint documents."

// DefaultReferences returns the reference documents attached to replies.
func DefaultReferences() []model.ReferenceDocument {
	return []model.ReferenceDocument{
		{
			Title:       "MCQ PLUS",
			Author:      "Paresh Sahoo",
			LastUpdated: "2 days ago",
			Source:      model.SourceConfluence,
		},
		{
			Title:       "Backend Service",
			Author:      "Paresh Sahoo",
			LastUpdated: "1 week ago",
			Source:      model.SourceConfluence,
		},
		{
			Title:       "Product Requirements Document (PRD)",
			Author:      "Paresh Sahoo",
			LastUpdated: "3 days ago",
			Source:      model.SourceSharePoint,
		},
	}
}

// KnowledgeBaseResponder answers every question with the same templated
// reply and reference set.
type KnowledgeBaseResponder struct {
	Content    string
	References []model.ReferenceDocument
}

// NewKnowledgeBaseResponder returns a responder with the default reply.
func NewKnowledgeBaseResponder() *KnowledgeBaseResponder {
	return &KnowledgeBaseResponder{
		Content:    KnowledgeBaseReply,
		References: DefaultReferences(),
	}
}

// Name returns the responder name.
func (r *KnowledgeBaseResponder) Name() string {
	return "knowledge_base"
}

// Respond returns the canned reply.
func (r *KnowledgeBaseResponder) Respond(ctx context.Context, sc *SessionContext) (*model.Message, error) {
	refs := make([]model.ReferenceDocument, len(r.References))
	copy(refs, r.References)

	return &model.Message{
		Role:               model.RoleAssistant,
		Content:            r.Content,
		ReferenceDocuments: refs,
	}, nil
}

// CompletionResponder asks an LLM for the reply text and attaches the
// reference catalog.
type CompletionResponder struct {
	client     Client
	model      string
	maxTokens  int
	references []model.ReferenceDocument
}

// NewCompletionResponder wraps client. An empty modelName uses the
// provider default.
func NewCompletionResponder(client Client, modelName string) *CompletionResponder {
	return &CompletionResponder{
		client:     client,
		model:      modelName,
		maxTokens:  1024,
		references: DefaultReferences(),
	}
}

// Name returns the provider name.
func (r *CompletionResponder) Name() string {
	return r.client.Name()
}

// Respond sends the session history to the LLM.
func (r *CompletionResponder) Respond(ctx context.Context, sc *SessionContext) (*model.Message, error) {
	if len(sc.History) == 0 {
		return nil, errors.New("no messages to answer")
	}

	messages := make([]ChatMessage, len(sc.History))
	for i, msg := range sc.History {
		messages[i] = ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	resp, err := r.client.Complete(ctx, &CompletionRequest{
		Model:     r.model,
		System:    sc.Prompt,
		Messages:  messages,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	if resp.Content == "" {
		return nil, errors.New("empty completion")
	}

	refs := make([]model.ReferenceDocument, len(r.references))
	copy(refs, r.references)

	return &model.Message{
		Role:               model.RoleAssistant,
		Content:            resp.Content,
		ReferenceDocuments: refs,
	}, nil
}
