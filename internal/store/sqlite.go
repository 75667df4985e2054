package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrNotFound covers both a genuinely absent record and a record owned by a
// different user; callers must not be able to tell the two cases apart.
var ErrNotFound = errors.New("record not found")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        email TEXT UNIQUE NOT NULL,
        name TEXT NOT NULL,
        selected_persona TEXT NOT NULL DEFAULT 'niko',
        theme TEXT NOT NULL DEFAULT 'dark',
        notifications BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        title TEXT NOT NULL DEFAULT 'New Chat',
        persona TEXT NOT NULL DEFAULT 'niko',
        messages_json TEXT NOT NULL DEFAULT '[]',
        summary TEXT NOT NULL DEFAULT '',
        last_activity DATETIME DEFAULT CURRENT_TIMESTAMP,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS companions (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        name TEXT NOT NULL,
        gender TEXT NOT NULL DEFAULT 'other',
        avatar TEXT NOT NULL DEFAULT '💖',
        color TEXT NOT NULL DEFAULT '#7c3aed',
        description TEXT NOT NULL DEFAULT '',
        traits_json TEXT NOT NULL DEFAULT '[]',
        system_prompt TEXT NOT NULL,
        embedding_json TEXT NOT NULL DEFAULT '[]',
        is_custom BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	return s.scanUser(s.db.QueryRow(
		"SELECT id, email, name, selected_persona, theme, notifications, created_at FROM users WHERE email = ?", email))
}

func (s *SQLiteStore) GetUserByID(id int64) (*User, error) {
	return s.scanUser(s.db.QueryRow(
		"SELECT id, email, name, selected_persona, theme, notifications, created_at FROM users WHERE id = ?", id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.SelectedPersona, &user.Theme, &user.Notifications, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(email, name string) (*User, error) {
	res, err := s.db.Exec(
		"INSERT INTO users (email, name) VALUES (?, ?)", email, name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetUserByID(id)
}

func (s *SQLiteStore) UpdateUserProfile(userID int64, selectedPersona, theme *string, notifications *bool) (*User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if selectedPersona != nil {
		user.SelectedPersona = *selectedPersona
	}
	if theme != nil {
		user.Theme = *theme
	}
	if notifications != nil {
		user.Notifications = *notifications
	}
	_, err = s.db.Exec(
		"UPDATE users SET selected_persona = ?, theme = ?, notifications = ? WHERE id = ?",
		user.SelectedPersona, user.Theme, user.Notifications, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}
	return user, nil
}

// Chat methods

func (s *SQLiteStore) CreateChat(userID int64, title, personaID string, messages []Message) (*Chat, error) {
	if title == "" {
		title = "New Chat"
	}
	if personaID == "" {
		personaID = "niko"
	}
	if messages == nil {
		messages = []Message{}
	}

	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}

	chatID := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.db.Exec(
		"INSERT INTO chats (id, user_id, title, persona, messages_json, summary, last_activity, created_at) VALUES (?, ?, ?, ?, ?, '', ?, ?)",
		chatID, userID, title, personaID, string(messagesJSON), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat: %w", err)
	}

	return &Chat{
		ID:           chatID,
		UserID:       userID,
		Title:        title,
		Persona:      personaID,
		Messages:     messages,
		Summary:      "",
		LastActivity: now,
		CreatedAt:    now,
	}, nil
}

func (s *SQLiteStore) GetChatByID(chatID string, userID int64) (*Chat, error) {
	var chat Chat
	var messagesJSON string
	err := s.db.QueryRow(
		"SELECT id, user_id, title, persona, messages_json, summary, last_activity, created_at FROM chats WHERE id = ? AND user_id = ?",
		chatID, userID).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Persona, &messagesJSON, &chat.Summary, &chat.LastActivity, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if err := json.Unmarshal([]byte(messagesJSON), &chat.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages for chat %s: %w", chat.ID, err)
	}
	return &chat, nil
}

// GetChatsByUserID lists a user's chats most recent first. Message bodies are
// not loaded; list views only need the header fields.
func (s *SQLiteStore) GetChatsByUserID(userID int64) ([]Chat, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, title, persona, summary, last_activity, created_at FROM chats WHERE user_id = ? ORDER BY last_activity DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Persona, &chat.Summary, &chat.LastActivity, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// UpdateChatMessages replaces the transcript and summary wholesale and
// refreshes last_activity. Last write wins; there is no version check.
func (s *SQLiteStore) UpdateChatMessages(chatID string, userID int64, messages []Message, summary string) (*Chat, error) {
	if messages == nil {
		messages = []Message{}
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}

	res, err := s.db.Exec(
		"UPDATE chats SET messages_json = ?, summary = ?, last_activity = ? WHERE id = ? AND user_id = ?",
		string(messagesJSON), summary, time.Now().UTC(), chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update chat messages: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetChatByID(chatID, userID)
}

func (s *SQLiteStore) UpdateChatTitle(chatID string, userID int64, title string) (*Chat, error) {
	res, err := s.db.Exec(
		"UPDATE chats SET title = ? WHERE id = ? AND user_id = ?", title, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update chat title: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetChatByID(chatID, userID)
}

func (s *SQLiteStore) DeleteChat(chatID string, userID int64) error {
	res, err := s.db.Exec("DELETE FROM chats WHERE id = ? AND user_id = ?", chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Companion methods

func (s *SQLiteStore) CreateCompanion(companion *Companion) (*Companion, error) {
	traitsJSON, err := json.Marshal(companionTraits(companion))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal traits: %w", err)
	}
	embeddingJSON, err := json.Marshal(companionEmbedding(companion))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	companion.ID = uuid.NewString()
	companion.IsCustom = true
	now := time.Now().UTC()
	companion.CreatedAt = now
	companion.UpdatedAt = now

	_, err = s.db.Exec(
		`INSERT INTO companions (id, user_id, name, gender, avatar, color, description, traits_json, system_prompt, embedding_json, is_custom, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?)`,
		companion.ID, companion.UserID, companion.Name, companion.Gender, companion.Avatar, companion.Color,
		companion.Description, string(traitsJSON), companion.SystemPrompt, string(embeddingJSON),
		companion.CreatedAt, companion.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert companion: %w", err)
	}
	return companion, nil
}

func (s *SQLiteStore) GetCompanionByID(companionID string, userID int64) (*Companion, error) {
	var c Companion
	var traitsJSON, embeddingJSON string
	err := s.db.QueryRow(
		`SELECT id, user_id, name, gender, avatar, color, description, traits_json, system_prompt, embedding_json, is_custom, created_at, updated_at
         FROM companions WHERE id = ? AND user_id = ?`, companionID, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Gender, &c.Avatar, &c.Color, &c.Description,
			&traitsJSON, &c.SystemPrompt, &embeddingJSON, &c.IsCustom, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get companion: %w", err)
	}
	if err := json.Unmarshal([]byte(traitsJSON), &c.PersonalityTraits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal traits for companion %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(embeddingJSON), &c.Embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding for companion %s: %w", c.ID, err)
	}
	return &c, nil
}

func (s *SQLiteStore) GetCompanionsByUserID(userID int64) ([]Companion, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, gender, avatar, color, description, traits_json, system_prompt, is_custom, created_at, updated_at
         FROM companions WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query companions: %w", err)
	}
	defer rows.Close()

	var companions []Companion
	for rows.Next() {
		var c Companion
		var traitsJSON string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Gender, &c.Avatar, &c.Color, &c.Description,
			&traitsJSON, &c.SystemPrompt, &c.IsCustom, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan companion row: %w", err)
		}
		if err := json.Unmarshal([]byte(traitsJSON), &c.PersonalityTraits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal traits for companion %s: %w", c.ID, err)
		}
		companions = append(companions, c)
	}
	return companions, rows.Err()
}

func (s *SQLiteStore) UpdateCompanion(companion *Companion) (*Companion, error) {
	traitsJSON, err := json.Marshal(companionTraits(companion))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal traits: %w", err)
	}
	embeddingJSON, err := json.Marshal(companionEmbedding(companion))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	companion.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE companions SET name = ?, gender = ?, avatar = ?, color = ?, description = ?, traits_json = ?, system_prompt = ?, embedding_json = ?, updated_at = ?
         WHERE id = ? AND user_id = ?`,
		companion.Name, companion.Gender, companion.Avatar, companion.Color, companion.Description,
		string(traitsJSON), companion.SystemPrompt, string(embeddingJSON), companion.UpdatedAt,
		companion.ID, companion.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to update companion: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, ErrNotFound
	}
	return companion, nil
}

func (s *SQLiteStore) DeleteCompanion(companionID string, userID int64) error {
	res, err := s.db.Exec("DELETE FROM companions WHERE id = ? AND user_id = ?", companionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete companion: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func companionTraits(c *Companion) []PersonalityTrait {
	if c.PersonalityTraits == nil {
		return []PersonalityTrait{}
	}
	return c.PersonalityTraits
}

func companionEmbedding(c *Companion) []float32 {
	if c.Embedding == nil {
		return []float32{}
	}
	return c.Embedding
}
