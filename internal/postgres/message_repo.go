package postgres

import (
	"context"

	"github.com/cwrk-planet/comments-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// EnsureSchema создаёт таблицу сообщений, если её ещё нет.
// id — bigserial: уникальный, монотонно растущий, не переиспользуется.
func (r *MessageRepository) EnsureSchema(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS messages (
			id          BIGSERIAL PRIMARY KEY,
			subject_id  BIGINT      NOT NULL,
			sender      TEXT        NOT NULL,
			content     TEXT        NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS messages_subject_idx
			ON messages (subject_id, created_at DESC, id DESC);
	`
	_, err := r.db.Exec(ctx, q)
	return err
}

func (r *MessageRepository) Save(ctx context.Context, subjectID int64, sender, content string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (subject_id, sender, content)
		VALUES ($1, $2, $3)
		RETURNING id, subject_id, sender, content, created_at
	`, subjectID, sender, content)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.SubjectID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

// ListBySubject возвращает все сообщения треда, новые первыми.
// Для неизвестного subject id — пустой срез, не ошибка.
func (r *MessageRepository) ListBySubject(ctx context.Context, subjectID int64) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, subject_id, sender, content, created_at
		FROM messages
		WHERE subject_id = $1
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
