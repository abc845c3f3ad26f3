package http

import (
	"time"

	"github.com/cwrk-planet/comments-service/internal/domain"
)

type CreateMessageRequest struct {
	SubjectID int64  `json:"subjectId"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
}

type MessageItem struct {
	ID        int64     `json:"id"`
	SubjectID int64     `json:"subjectId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func toItem(m domain.Message) MessageItem {
	return MessageItem{
		ID:        m.ID,
		SubjectID: m.SubjectID,
		Sender:    m.Sender,
		Content:   m.Content,
		Timestamp: m.CreatedAt.Truncate(time.Millisecond),
	}
}
