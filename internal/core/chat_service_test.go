package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nikolabs.io/companion-service/internal/core"
	"nikolabs.io/companion-service/internal/store"
)

func TestFirstExchangeCreatesChat(t *testing.T) {
	llm := &fakeLLM{completeFn: func(systemPrompt, userText string) (string, error) {
		if strings.Contains(userText, "generate a short, concise title") {
			return "Greeting Exchange", nil
		}
		return "Hi there 🌙", nil
	}}
	svc, dbStore, userID := newTestChatService(t, llm)

	sess, err := svc.SendMessage(context.Background(), userID, core.NewSession("luna"), "Hello")
	require.NoError(t, err)

	require.NotEmpty(t, sess.ChatID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "user", sess.Messages[0].Type)
	assert.Equal(t, "Hello", sess.Messages[0].Text)
	assert.Equal(t, "ai", sess.Messages[1].Type)
	assert.Equal(t, "Hi there 🌙", sess.Messages[1].Text)

	chat, err := dbStore.GetChatByID(sess.ChatID, userID)
	require.NoError(t, err)
	assert.Equal(t, "Greeting Exchange", chat.Title)
	assert.Equal(t, "luna", chat.Persona)
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "Hello", chat.Messages[0].Text)
	assert.Equal(t, "Hi there 🌙", chat.Messages[1].Text)

	// The persona's template drove the completion prompt.
	require.NotEmpty(t, llm.calls)
	assert.Contains(t, llm.calls[0].SystemPrompt, "You are Luna")
}

func TestFirstExchangeTitleFailureFallsBack(t *testing.T) {
	llm := &fakeLLM{completeFn: func(systemPrompt, userText string) (string, error) {
		if strings.Contains(userText, "generate a short, concise title") {
			return "", &core.UpstreamError{Status: 500, Body: "boom"}
		}
		return "Hi!", nil
	}}
	svc, dbStore, userID := newTestChatService(t, llm)

	sess, err := svc.SendMessage(context.Background(), userID, core.NewSession(""), "Hello")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ChatID)

	chat, err := dbStore.GetChatByID(sess.ChatID, userID)
	require.NoError(t, err)
	assert.Equal(t, "New Chat", chat.Title)
	assert.Equal(t, "niko", chat.Persona)
}

func TestSummaryCadence(t *testing.T) {
	llm := &fakeLLM{completeFn: func(systemPrompt, userText string) (string, error) {
		if strings.Contains(systemPrompt, "Summarize this conversation") {
			return "running summary", nil
		}
		return "reply", nil
	}}
	svc, dbStore, userID := newTestChatService(t, llm)

	sess := core.NewSession("niko")
	var err error
	summaryCallsByLength := map[int]int{}
	for i := 0; i < 6; i++ {
		before := len(llm.summaryCalls())
		sess, err = svc.SendMessage(context.Background(), userID, sess, "message")
		require.NoError(t, err)
		summaryCallsByLength[len(sess.Messages)] = len(llm.summaryCalls()) - before
	}

	// Summarization fires exactly when the transcript length is a positive
	// multiple of six and never otherwise.
	assert.Equal(t, map[int]int{2: 0, 4: 0, 6: 1, 8: 0, 10: 0, 12: 1}, summaryCallsByLength)
	assert.Equal(t, "running summary", sess.Summary)

	chat, err := dbStore.GetChatByID(sess.ChatID, userID)
	require.NoError(t, err)
	assert.Equal(t, "running summary", chat.Summary)
	assert.Len(t, chat.Messages, 12)
}

func TestSummaryFeedsNextPrompt(t *testing.T) {
	llm := &fakeLLM{completeFn: func(systemPrompt, userText string) (string, error) {
		if strings.Contains(systemPrompt, "Summarize this conversation") {
			return "they talked about tea", nil
		}
		return "reply", nil
	}}
	svc, _, userID := newTestChatService(t, llm)

	sess := core.NewSession("niko")
	var err error
	for i := 0; i < 4; i++ {
		sess, err = svc.SendMessage(context.Background(), userID, sess, "message")
		require.NoError(t, err)
	}

	// Length hit 6 on the third send; the fourth send's completion prompt
	// carries the adopted summary.
	last := llm.calls[len(llm.calls)-1]
	assert.Contains(t, last.SystemPrompt, "Previous conversation context: they talked about tea")
}

func TestSendMessageNeverLeavesTurnEmpty(t *testing.T) {
	cases := map[string]struct {
		failure    error
		wantInText string
	}{
		"upstream error": {
			failure:    &core.UpstreamError{Status: 500, Body: "internal"},
			wantInText: "tangled",
		},
		"transport error": {
			failure:    &core.TransportError{Err: errors.New("connection refused")},
			wantInText: "couldn't reach my brain",
		},
		"not configured": {
			failure:    core.ErrNotConfigured,
			wantInText: "something went wrong",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			llm := &fakeLLM{completeFn: func(_, _ string) (string, error) { return "", tc.failure }}
			svc, _, userID := newTestChatService(t, llm)

			sess, err := svc.SendMessage(context.Background(), userID, core.NewSession("niko"), "Hello")
			require.NoError(t, err)

			// Exactly one user turn plus one assistant turn, fallback or real.
			require.Len(t, sess.Messages, 2)
			assert.Equal(t, "Hello", sess.Messages[0].Text)
			assert.Equal(t, "ai", sess.Messages[1].Type)
			assert.Contains(t, sess.Messages[1].Text, tc.wantInText)
		})
	}
}

func TestSendMessageEmptyTextRejected(t *testing.T) {
	llm := &fakeLLM{}
	svc, _, userID := newTestChatService(t, llm)

	sess := core.NewSession("niko")
	got, err := svc.SendMessage(context.Background(), userID, sess, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyMessage)
	assert.Empty(t, got.Messages)
	assert.Empty(t, llm.calls)
}

func TestSendMessagePersistenceFailureDoesNotAbortTurn(t *testing.T) {
	llm := &fakeLLM{}
	svc, _, userID := newTestChatService(t, llm)

	// A session pointing at a chat that no longer exists: the save fails,
	// the conversation continues in memory.
	sess := core.Session{
		ChatID:    "gone",
		PersonaID: "niko",
		Messages: []store.Message{
			{ID: "m1", Text: "earlier", Type: "user"},
			{ID: "m2", Text: "earlier reply", Type: "ai"},
		},
	}

	got, err := svc.SendMessage(context.Background(), userID, sess, "still there?")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 4)
	assert.Equal(t, "gone", got.ChatID)
}

func TestSendMessageDoesNotMutateCallerTranscript(t *testing.T) {
	llm := &fakeLLM{}
	svc, _, userID := newTestChatService(t, llm)

	prior := []store.Message{
		{ID: "m1", Text: "hello", Type: "user"},
		{ID: "m2", Text: "hi", Type: "ai"},
	}
	sess := core.Session{PersonaID: "niko", Messages: prior[:2:2]}

	_, err := svc.SendMessage(context.Background(), userID, sess, "next")
	require.NoError(t, err)
	assert.Len(t, prior, 2)
}

func TestNewSessionDefaults(t *testing.T) {
	sess := core.NewSession("")
	assert.Equal(t, "niko", sess.PersonaID)
	assert.Empty(t, sess.ChatID)
	assert.Empty(t, sess.Summary)
	assert.Empty(t, sess.Messages)
}

func TestLoadChatReplacesStateWholesale(t *testing.T) {
	llm := &fakeLLM{}
	svc, dbStore, userID := newTestChatService(t, llm)

	chat, err := dbStore.CreateChat(userID, "Saved", "sage", []store.Message{
		{ID: "m1", Text: "hello", Type: "user"},
		{ID: "m2", Text: "hi", Type: "ai"},
	})
	require.NoError(t, err)
	_, err = dbStore.UpdateChatMessages(chat.ID, userID, chat.Messages, "a summary")
	require.NoError(t, err)

	sess, err := svc.LoadChat(userID, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, sess.ChatID)
	assert.Equal(t, "sage", sess.PersonaID)
	assert.Equal(t, "a summary", sess.Summary)
	require.Len(t, sess.Messages, 2)
}

func TestLoadChatOwnershipEnforced(t *testing.T) {
	llm := &fakeLLM{}
	svc, dbStore, userID := newTestChatService(t, llm)

	other, err := dbStore.CreateUser("bob@example.com", "Bob")
	require.NoError(t, err)
	chat, err := dbStore.CreateChat(other.ID, "Bob's", "niko", nil)
	require.NoError(t, err)

	_, err = svc.LoadChat(userID, chat.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteChatClearsActiveSession(t *testing.T) {
	llm := &fakeLLM{}
	svc, dbStore, userID := newTestChatService(t, llm)

	chat, err := dbStore.CreateChat(userID, "Doomed", "luna", []store.Message{
		{ID: "m1", Text: "hello", Type: "user"},
	})
	require.NoError(t, err)

	active := core.Session{ChatID: chat.ID, PersonaID: "luna", Summary: "s", Messages: chat.Messages}
	cleared, err := svc.DeleteChat(userID, chat.ID, active)
	require.NoError(t, err)
	assert.Empty(t, cleared.ChatID)
	assert.Empty(t, cleared.Summary)
	assert.Empty(t, cleared.Messages)
	assert.Equal(t, "luna", cleared.PersonaID)

	_, err = dbStore.GetChatByID(chat.ID, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteChatKeepsUnrelatedSession(t *testing.T) {
	llm := &fakeLLM{}
	svc, dbStore, userID := newTestChatService(t, llm)

	doomed, err := dbStore.CreateChat(userID, "Doomed", "niko", nil)
	require.NoError(t, err)

	sess := core.Session{ChatID: "another-chat", PersonaID: "niko", Messages: []store.Message{{ID: "m1"}}}
	got, err := svc.DeleteChat(userID, doomed.ID, sess)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}
