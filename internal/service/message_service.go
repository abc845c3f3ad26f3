package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwrk-planet/comments-service/internal/domain"
	"github.com/cwrk-planet/comments-service/pkg/errs"
)

const maxContentLen = 4000

// MessageRepo — контракт хранилища (postgres или sqlite).
type MessageRepo interface {
	Save(ctx context.Context, subjectID int64, sender, content string) (*domain.Message, error)
	ListBySubject(ctx context.Context, subjectID int64) ([]domain.Message, error)
}

type MessageService struct {
	repo MessageRepo
}

func NewMessageService(repo MessageRepo) *MessageService {
	return &MessageService{repo: repo}
}

// Append валидирует и записывает сообщение. Broadcast здесь не делается:
// рассылка — забота вызывающего, и только после подтверждённой записи.
func (s *MessageService) Append(ctx context.Context, subjectID int64, sender, content string) (*domain.Message, error) {
	if subjectID <= 0 {
		return nil, domain.ErrInvalidSubject
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return nil, domain.ErrEmptySender
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	if len(content) > maxContentLen {
		return nil, domain.ErrContentTooLong
	}

	msg, err := s.repo.Save(ctx, subjectID, sender, content)
	if err != nil {
		return nil, fmt.Errorf("%w: save message: %v", errs.ErrStorage, err)
	}
	return msg, nil
}

// ListBySubject возвращает все сообщения треда, новые первыми.
func (s *MessageService) ListBySubject(ctx context.Context, subjectID int64) ([]domain.Message, error) {
	msgs, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", errs.ErrStorage, err)
	}
	return msgs, nil
}
