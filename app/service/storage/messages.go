package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"
)

const SessionDateLayout = "2006-01-02"

type Message struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	FromUser    bool      `json:"from_user"`
	SessionDate string    `json:"session_date"`
	Feedback    *bool     `json:"feedback,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type Feedback struct {
	ID               int64     `json:"id"`
	MessageID        int64     `json:"message_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	Positive         bool      `json:"positive"`
	Context          string    `json:"context"`
	Timestamp        time.Time `json:"timestamp"`
}

func (s *Store) SaveMessage(ctx context.Context, text string, fromUser bool) (int64, error) {
	now := s.now()

	res, err := s.exec(ctx,
		`INSERT INTO chat_messages (text, from_user, session_date, created_at) VALUES (?, ?, ?, ?)`,
		text, fromUser, now.Format(SessionDateLayout), toMillis(now))
	if err != nil {
		return 0, oops.Errorf("insert message: %w", err)
	}

	return res.LastInsertId()
}

// Messages returns the messages of one session date in chronological order.
func (s *Store) Messages(ctx context.Context, sessionDate string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, from_user, session_date, feedback, created_at
		FROM chat_messages WHERE session_date = ? ORDER BY created_at ASC, id ASC`, sessionDate)
	if err != nil {
		return nil, oops.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}

	return result, rows.Err()
}

func (s *Store) Message(ctx context.Context, id int64) (Message, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, from_user, session_date, feedback, created_at
		FROM chat_messages WHERE id = ?`, id)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, err
	}

	return m, true, nil
}

// PrecedingUserMessage finds the user message right before the given one.
func (s *Store) PrecedingUserMessage(ctx context.Context, id int64) (string, error) {
	var text string

	err := s.db.QueryRowContext(ctx, `
		SELECT text FROM chat_messages WHERE id < ? AND from_user = 1 ORDER BY id DESC LIMIT 1`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", oops.Errorf("query preceding message: %w", err)
	}

	return text, nil
}

func (s *Store) PruneMessages(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM chat_messages WHERE created_at < ?`, toMillis(before))
	if err != nil {
		return 0, oops.Errorf("prune messages: %w", err)
	}

	return res.RowsAffected()
}

func (s *Store) DeleteAllMessages(ctx context.Context) error {
	if _, err := s.exec(ctx, `DELETE FROM chat_messages`); err != nil {
		return oops.Errorf("delete messages: %w", err)
	}

	return nil
}

// SaveFeedback stores the feedback and marks the rated message.
func (s *Store) SaveFeedback(ctx context.Context, f Feedback) (int64, error) {
	if f.Timestamp.IsZero() {
		f.Timestamp = s.now()
	}

	res, err := s.exec(ctx, `
		INSERT INTO feedback (message_id, user_message, assistant_message, positive, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.MessageID, f.UserMessage, f.AssistantMessage, f.Positive, f.Context, toMillis(f.Timestamp))
	if err != nil {
		return 0, oops.Errorf("insert feedback: %w", err)
	}

	if _, err = s.exec(ctx, `UPDATE chat_messages SET feedback = ? WHERE id = ?`, f.Positive, f.MessageID); err != nil {
		return 0, oops.Errorf("mark message feedback: %w", err)
	}

	return res.LastInsertId()
}

func (s *Store) FeedbackCounts(ctx context.Context) (positive, negative int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(positive = 1), 0), COALESCE(SUM(positive = 0), 0) FROM feedback`).
		Scan(&positive, &negative)
	if err != nil {
		return 0, 0, oops.Errorf("count feedback: %w", err)
	}

	return positive, negative, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (Message, error) {
	var (
		m        Message
		feedback sql.NullBool
		ts       int64
	)

	if err := row.Scan(&m.ID, &m.Text, &m.FromUser, &m.SessionDate, &feedback, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, err
		}
		return Message{}, oops.Errorf("scan message: %w", err)
	}

	if feedback.Valid {
		m.Feedback = &feedback.Bool
	}
	m.Timestamp = fromMillis(ts)

	return m, nil
}
