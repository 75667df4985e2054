package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *SQLiteStore, email string) *User {
	t.Helper()
	user, err := s.CreateUser(email, "Test User")
	require.NoError(t, err)
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)

	user := createTestUser(t, s, "alice@example.com")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "niko", user.SelectedPersona)
	assert.Equal(t, "dark", user.Theme)
	assert.True(t, user.Notifications)

	byEmail, err := s.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = s.GetUserByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)

	createTestUser(t, s, "alice@example.com")
	_, err := s.CreateUser("alice@example.com", "Other")
	assert.Error(t, err)
}

func TestUpdateUserProfile(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "alice@example.com")

	persona := "luna"
	notifications := false
	updated, err := s.UpdateUserProfile(user.ID, &persona, nil, &notifications)
	require.NoError(t, err)
	assert.Equal(t, "luna", updated.SelectedPersona)
	assert.Equal(t, "dark", updated.Theme)
	assert.False(t, updated.Notifications)
}

func TestChatOwnershipIsolation(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	chat, err := s.CreateChat(alice.ID, "Alice's chat", "niko", nil)
	require.NoError(t, err)

	// A record owned by someone else is indistinguishable from an absent one.
	_, err = s.GetChatByID(chat.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdateChatTitle(chat.ID, bob.ID, "Stolen")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdateChatMessages(chat.ID, bob.ID, nil, "")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteChat(chat.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The owner still sees the original record untouched.
	got, err := s.GetChatByID(chat.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice's chat", got.Title)
}

func TestChatRoundTripWithMessages(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")

	messages := []Message{
		{ID: "m1", Text: "Hello", Type: "user", Timestamp: time.Now().UTC().Truncate(time.Second)},
		{ID: "m2", Text: "Hi there!", Type: "ai", Timestamp: time.Now().UTC().Truncate(time.Second)},
	}
	chat, err := s.CreateChat(alice.ID, "Greeting Exchange", "luna", messages)
	require.NoError(t, err)

	got, err := s.GetChatByID(chat.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "luna", got.Persona)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[0].Type)
	assert.Equal(t, "Hello", got.Messages[0].Text)
	assert.Equal(t, "ai", got.Messages[1].Type)
}

func TestUpdateChatMessagesRefreshesLastActivity(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")

	chat, err := s.CreateChat(alice.ID, "Chat", "niko", nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	updated, err := s.UpdateChatMessages(chat.ID, alice.ID, []Message{
		{ID: "m1", Text: "Hello", Type: "user", Timestamp: time.Now().UTC()},
	}, "a summary")
	require.NoError(t, err)
	assert.True(t, updated.LastActivity.After(chat.LastActivity))
	assert.Equal(t, "a summary", updated.Summary)
	require.Len(t, updated.Messages, 1)
}

func TestListChatsOrderAndProjection(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")

	first, err := s.CreateChat(alice.ID, "First", "niko", []Message{{ID: "m1", Text: "hi", Type: "user"}})
	require.NoError(t, err)
	second, err := s.CreateChat(alice.ID, "Second", "niko", nil)
	require.NoError(t, err)

	// Touching the older chat moves it to the front.
	time.Sleep(10 * time.Millisecond)
	_, err = s.UpdateChatMessages(first.ID, alice.ID, []Message{{ID: "m1", Text: "hi", Type: "user"}}, "")
	require.NoError(t, err)

	chats, err := s.GetChatsByUserID(alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, first.ID, chats[0].ID)
	assert.Equal(t, second.ID, chats[1].ID)

	// List views omit message bodies.
	assert.Nil(t, chats[0].Messages)
}

func TestRenameChatIdempotent(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")

	chat, err := s.CreateChat(alice.ID, "Original", "niko", nil)
	require.NoError(t, err)

	renamed, err := s.UpdateChatTitle(chat.ID, alice.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)

	again, err := s.UpdateChatTitle(chat.ID, alice.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Title)

	got, err := s.GetChatByID(chat.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestDeleteChat(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")

	chat, err := s.CreateChat(alice.ID, "Doomed", "niko", nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteChat(chat.ID, alice.ID))

	_, err = s.GetChatByID(chat.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteChat(chat.ID, alice.ID), ErrNotFound)
}

func TestCompanionCRUDAndOwnership(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	companion, err := s.CreateCompanion(&Companion{
		UserID:       alice.ID,
		Name:         "Aria",
		Gender:       "female",
		Avatar:       "🎵",
		Color:        "#123456",
		Description:  "A musical companion",
		SystemPrompt: "You are Aria.",
		PersonalityTraits: []PersonalityTrait{
			{Name: "Humor", Value: 70},
		},
		Embedding: []float32{0.1, 0.2},
	})
	require.NoError(t, err)
	assert.True(t, companion.IsCustom)
	assert.NotEmpty(t, companion.ID)

	got, err := s.GetCompanionByID(companion.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aria", got.Name)
	require.Len(t, got.PersonalityTraits, 1)
	assert.Equal(t, 70, got.PersonalityTraits[0].Value)
	assert.Equal(t, []float32{0.1, 0.2}, got.Embedding)

	// Foreign reads and writes look like missing records.
	_, err = s.GetCompanionByID(companion.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteCompanion(companion.ID, bob.ID), ErrNotFound)

	require.NoError(t, s.DeleteCompanion(companion.ID, alice.ID))
	_, err = s.GetCompanionByID(companion.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompanionUpdateRefreshesUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")

	companion, err := s.CreateCompanion(&Companion{
		UserID:       alice.ID,
		Name:         "Aria",
		SystemPrompt: "You are Aria.",
	})
	require.NoError(t, err)
	createdAt := companion.UpdatedAt

	time.Sleep(10 * time.Millisecond)
	companion.Description = "Updated description"
	updated, err := s.UpdateCompanion(companion)
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(createdAt))

	got, err := s.GetCompanionByID(companion.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated description", got.Description)
}

func TestListCompanionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	alice := createTestUser(t, s, "alice@example.com")

	older, err := s.CreateCompanion(&Companion{UserID: alice.ID, Name: "First", SystemPrompt: "p"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	newer, err := s.CreateCompanion(&Companion{UserID: alice.ID, Name: "Second", SystemPrompt: "p"})
	require.NoError(t, err)

	companions, err := s.GetCompanionsByUserID(alice.ID)
	require.NoError(t, err)
	require.Len(t, companions, 2)
	assert.Equal(t, newer.ID, companions[0].ID)
	assert.Equal(t, older.ID, companions[1].ID)
}
