package ws

import (
	"time"

	"github.com/cwrk-planet/comments-service/internal/domain"
)

// Типы кадров live-канала
const (
	TypeJoin = "join" // подписка соединения на тред сотрудника
	TypeChat = "chat" // чат-сообщение (relay или результат durable-записи)
)

// Frame — единый формат кадра.
// Join: {type:"join", subjectId, sender}.
// Chat: {id, sender, content, subjectId, timestamp}; id может быть клиентским
// для live-only кадров — серверный id появляется только после durable-записи.
type Frame struct {
	Type      string    `json:"type,omitempty"`
	ID        int64     `json:"id,omitempty"`
	SubjectID int64     `json:"subjectId"`
	Sender    string    `json:"sender,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatFrame строит кадр из сохранённого сообщения: несёт канонические
// id и timestamp, чтобы клиент мог сразу снять свой placeholder.
func ChatFrame(m domain.Message) Frame {
	return Frame{
		Type:      TypeChat,
		ID:        m.ID,
		SubjectID: m.SubjectID,
		Sender:    m.Sender,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
	}
}
