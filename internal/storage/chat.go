package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/model"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/google/uuid"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 100
	topIntentLimit      = 10
)

const sessionColumns = `id, user_id, session_name, started_at, ended_at, is_active, message_count`

func scanSession(scanner interface{ Scan(...any) error }) (model.ChatSession, error) {
	var (
		cs    model.ChatSession
		ended sql.NullTime
	)
	err := scanner.Scan(&cs.ID, &cs.UserID, &cs.Name, &cs.StartedAt, &ended, &cs.IsActive, &cs.MessageCount)
	if ended.Valid {
		cs.EndedAt = &ended.Time
	}
	return cs, err
}

// CreateChatSession inserts a new active session.
func (s *SQLiteStorage) CreateChatSession(ctx context.Context, cs *model.ChatSession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if cs == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if err := validateString(cs.Name, "session name"); err != nil {
		return err
	}

	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	if cs.StartedAt.IsZero() {
		cs.StartedAt = s.now()
	}
	cs.StartedAt = cs.StartedAt.UTC()
	cs.IsActive = true
	cs.MessageCount = 0

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id, session_name, started_at, is_active, message_count)
		VALUES (?, ?, ?, ?, 1, 0)`, cs.ID, cs.UserID, cs.Name, cs.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat session: %w", err)
	}
	return nil
}

// GetChatSession returns one of a user's sessions.
func (s *SQLiteStorage) GetChatSession(ctx context.Context, userID, id string) (*model.ChatSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	cs, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM chat_sessions WHERE user_id = ? AND id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat session %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	return &cs, nil
}

// ListChatSessions returns a user's sessions filtered, sorted and paginated.
func (s *SQLiteStorage) ListChatSessions(ctx context.Context, userID string, filter service.SessionFilter) ([]model.ChatSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where := []string{"user_id = ?"}
	args := []any{userID}
	if filter.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, "session_name LIKE ?")
		args = append(args, "%"+search+"%")
	}

	orderBy := "started_at"
	if filter.SortBy == service.SortMessageCount {
		orderBy = "message_count"
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	if limit > maxSessionLimit {
		limit = maxSessionLimit
	}
	args = append(args, limit, max(filter.Offset, 0))

	query := fmt.Sprintf(`SELECT %s FROM chat_sessions WHERE %s ORDER BY %s %s, id LIMIT ? OFFSET ?`,
		sessionColumns, strings.Join(where, " AND "), orderBy, direction)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.ChatSession
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat session: %w", err)
		}
		result = append(result, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat sessions: %w", err)
	}
	return result, nil
}

// RenameChatSession changes a session's name.
func (s *SQLiteStorage) RenameChatSession(ctx context.Context, userID, id, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "session name"); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET session_name = ? WHERE user_id = ? AND id = ?`, name, userID, id)
	if err != nil {
		return fmt.Errorf("failed to rename chat session: %w", err)
	}
	return requireAffected(result, "chat session")
}

// EndChatSession marks a session inactive.
func (s *SQLiteStorage) EndChatSession(ctx context.Context, userID, id string, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET is_active = 0, ended_at = ? WHERE user_id = ? AND id = ?`,
		at.UTC(), userID, id)
	if err != nil {
		return fmt.Errorf("failed to end chat session: %w", err)
	}
	return requireAffected(result, "chat session")
}

// DeleteChatSession removes a session together with its messages.
func (s *SQLiteStorage) DeleteChatSession(ctx context.Context, userID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chat_messages WHERE session_id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("failed to delete chat messages: %w", err)
		}
		result, err := tx.ExecContext(ctx,
			`DELETE FROM chat_sessions WHERE user_id = ? AND id = ?`, userID, id)
		if err != nil {
			return fmt.Errorf("failed to delete chat session: %w", err)
		}
		return requireAffected(result, "chat session")
	})
}

// AppendChatMessage stores a message and increments its session's message count.
func (s *SQLiteStorage) AppendChatMessage(ctx context.Context, m *model.ChatMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMessage(m); err != nil {
		return err
	}

	var entities sql.NullString
	if m.Entities != nil {
		data, err := json.Marshal(m.Entities)
		if err != nil {
			return fmt.Errorf("failed to encode entities: %w", err)
		}
		entities = sql.NullString{String: string(data), Valid: true}
	}
	var confidence sql.NullFloat64
	if m.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *m.Confidence, Valid: true}
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	m.CreatedAt = m.CreatedAt.UTC()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE chat_sessions SET message_count = message_count + 1
			WHERE id = ? AND user_id = ?`, m.SessionID, m.UserID)
		if err != nil {
			return fmt.Errorf("failed to update message count: %w", err)
		}
		if err := requireAffected(result, "chat session"); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chat_messages (
				id, session_id, user_id, message_type, content, intent, entities,
				confidence, action_taken, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.SessionID, m.UserID, m.Type, m.Content, m.Intent, entities,
			confidence, m.ActionTaken, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert chat message: %w", err)
		}
		return nil
	})
}

// GetChatMessages returns a session's messages in the order they were written.
func (s *SQLiteStorage) GetChatMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, message_type, content, intent, entities,
			confidence, action_taken, created_at
		FROM chat_messages
		WHERE session_id = ? AND user_id = ?
		ORDER BY created_at, rowid`, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.ChatMessage
	for rows.Next() {
		var (
			m          model.ChatMessage
			entities   sql.NullString
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Type, &m.Content, &m.Intent,
			&entities, &confidence, &m.ActionTaken, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		if entities.Valid {
			var e model.Entities
			if err := json.Unmarshal([]byte(entities.String), &e); err != nil {
				return nil, fmt.Errorf("%w: entities of message %s: %v", common.ErrDatabaseCorrupted, m.ID, err)
			}
			m.Entities = &e
		}
		if confidence.Valid {
			c := confidence.Float64
			m.Confidence = &c
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}
	return result, nil
}

// GetChatAnalytics summarizes a user's chat activity since the given time.
func (s *SQLiteStorage) GetChatAnalytics(ctx context.Context, userID string, since time.Time) (*model.ChatAnalytics, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	since = since.UTC()

	a := &model.ChatAnalytics{
		ActionCounts: make(map[model.ActionType]int),
		TopIntents:   []model.IntentCount{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_active), 0)
		FROM chat_sessions WHERE user_id = ? AND started_at >= ?`, userID, since).
		Scan(&a.TotalSessions, &a.ActiveSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to count chat sessions: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_messages WHERE user_id = ? AND created_at >= ?`, userID, since).
		Scan(&a.TotalMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to count chat messages: %w", err)
	}
	if a.TotalSessions > 0 {
		avg := float64(a.TotalMessages) / float64(a.TotalSessions)
		a.AvgMessagesPerSession = math.Round(avg*100) / 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT intent, COUNT(*) AS n FROM chat_messages
		WHERE user_id = ? AND created_at >= ? AND message_type = 'user' AND intent != ''
		GROUP BY intent ORDER BY n DESC, intent LIMIT ?`, userID, since, topIntentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query intents: %w", err)
	}
	for rows.Next() {
		var ic model.IntentCount
		if err := rows.Scan(&ic.Intent, &ic.Count); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan intent count: %w", err)
		}
		a.TopIntents = append(a.TopIntents, ic)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating intents: %w", err)
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT action_taken, COUNT(*) FROM chat_messages
		WHERE user_id = ? AND created_at >= ? AND message_type = 'bot' AND action_taken != ''
		GROUP BY action_taken`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			action model.ActionType
			n      int
		)
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		a.ActionCounts[action] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating actions: %w", err)
	}
	return a, nil
}
