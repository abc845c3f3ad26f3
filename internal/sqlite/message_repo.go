// Package sqlite реализует хранилище сообщений поверх database/sql для
// локальной разработки; контракт тот же, что у postgres-реализации.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cwrk-planet/comments-service/internal/domain"

	_ "modernc.org/sqlite"
)

type MessageRepository struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*MessageRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	r := &MessageRepository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *MessageRepository) Close() error { return r.db.Close() }

func (r *MessageRepository) ensureSchema(ctx context.Context) error {
	const q = `
	CREATE TABLE IF NOT EXISTS messages (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id  INTEGER   NOT NULL,
		sender      TEXT      NOT NULL,
		content     TEXT      NOT NULL,
		created_at  TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS messages_subject_idx
		ON messages (subject_id, created_at DESC, id DESC);
	`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *MessageRepository) Save(ctx context.Context, subjectID int64, sender, content string) (*domain.Message, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (subject_id, sender, content, created_at)
		VALUES (?, ?, ?, ?)
	`, subjectID, sender, content, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &domain.Message{
		ID:        id,
		SubjectID: subjectID,
		Sender:    sender,
		Content:   content,
		CreatedAt: now,
	}, nil
}

func (r *MessageRepository) ListBySubject(ctx context.Context, subjectID int64) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_id, sender, content, created_at
		FROM messages
		WHERE subject_id = ?
		ORDER BY created_at DESC, id DESC
	`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0, 16)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
