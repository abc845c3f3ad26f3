package domain

import "time"

// Message — одно сообщение в треде сотрудника. Записывается один раз,
// никогда не изменяется и не удаляется этим сервисом.
type Message struct {
	ID        int64     `db:"id"`
	SubjectID int64     `db:"subject_id"`
	Sender    string    `db:"sender"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}
