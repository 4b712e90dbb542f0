package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lsm-digest/internal/ai"
	"lsm-digest/internal/model"
)

func newChatFixture() (*ChatService, *fakeSessions, *fakeAgent, *fakePublisher) {
	sessions := &fakeSessions{}
	agent := &fakeAgent{reply: func([]anonymizedArticle) string { return "labdien" }}
	publisher := &fakePublisher{}
	return NewChatService(sessions, agent, publisher, nil), sessions, agent, publisher
}

func TestChatReturnsRawReply(t *testing.T) {
	svc, sessions, agent, publisher := newChatFixture()

	raw, err := svc.Chat(context.Background(), ChatInput{
		AgentName: "news_agent",
		Username:  "anna",
		SessionID: "s-1",
		Prompt:    "Kas jauns?",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"e1","author":"agent","invocationId":"","timestamp":0,
		"content":{"role":"model","parts":[{"text":"labdien"}]}}]`, string(raw))

	assert.Equal(t, []ai.SessionRef{{AppName: "news_agent", UserID: "anna", SessionID: "s-1"}}, sessions.refs)
	require.Len(t, agent.received, 1)
	assert.Equal(t, ai.UserText("Kas jauns?"), agent.received[0])

	require.Len(t, publisher.entries, 1)
	assert.Equal(t, model.RequestLogKindChat, publisher.entries[0].Kind)
	assert.Equal(t, string(raw), publisher.entries[0].Response)
}

func TestChatValidatesInput(t *testing.T) {
	svc, sessions, _, _ := newChatFixture()

	for _, in := range []ChatInput{
		{Username: "anna", SessionID: "s", Prompt: "p"},
		{AgentName: "a", SessionID: "s", Prompt: "p"},
		{AgentName: "a", Username: "anna", Prompt: "p"},
		{AgentName: "a", Username: "anna", SessionID: "s", Prompt: "  "},
	} {
		_, err := svc.Chat(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Empty(t, sessions.refs)
}

func TestChatPropagatesAgentErrors(t *testing.T) {
	svc, _, agent, publisher := newChatFixture()
	agent.err = &ai.CallError{Op: "run", StatusCode: 422, Body: "bad"}

	_, err := svc.Chat(context.Background(), ChatInput{AgentName: "a", Username: "u", SessionID: "s", Prompt: "p"})
	var callErr *ai.CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, 422, callErr.StatusCode)
	assert.Empty(t, publisher.entries)
}
