package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/comments-service/internal/domain"
	"github.com/cwrk-planet/comments-service/pkg/errs"
)

type fakeRepo struct {
	saves   int
	lastArg domain.Message
	saveErr error
	list    []domain.Message
	listErr error
}

func (r *fakeRepo) Save(ctx context.Context, subjectID int64, sender, content string) (*domain.Message, error) {
	r.saves++
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	m := domain.Message{
		ID:        int64(r.saves),
		SubjectID: subjectID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	r.lastArg = m
	return &m, nil
}

func (r *fakeRepo) ListBySubject(ctx context.Context, subjectID int64) ([]domain.Message, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.list, nil
}

func TestAppend_ValidMessage(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewMessageService(repo)

	msg, err := svc.Append(context.Background(), 42, "Alice", "  Hello  ")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if msg.ID == 0 {
		t.Error("id must be assigned")
	}
	if msg.Content != "Hello" {
		t.Errorf("content = %q, want trimmed %q", msg.Content, "Hello")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("timestamp must be assigned")
	}
}

func TestAppend_RejectsEmptyContent(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewMessageService(repo)

	for _, content := range []string{"", "   ", "\t\n "} {
		_, err := svc.Append(context.Background(), 42, "Alice", content)
		if !errors.Is(err, domain.ErrEmptyContent) {
			t.Errorf("content %q: err = %v, want ErrEmptyContent", content, err)
		}
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("content %q: error must be a validation error", content)
		}
	}
	if repo.saves != 0 {
		t.Fatalf("repo.Save called %d times for invalid content, want 0", repo.saves)
	}
}

func TestAppend_RejectsBadShape(t *testing.T) {
	svc := NewMessageService(&fakeRepo{})

	if _, err := svc.Append(context.Background(), 0, "Alice", "hi"); !errors.Is(err, domain.ErrInvalidSubject) {
		t.Errorf("zero subject: err = %v, want ErrInvalidSubject", err)
	}
	if _, err := svc.Append(context.Background(), 42, "  ", "hi"); !errors.Is(err, domain.ErrEmptySender) {
		t.Errorf("blank sender: err = %v, want ErrEmptySender", err)
	}
	long := strings.Repeat("x", maxContentLen+1)
	if _, err := svc.Append(context.Background(), 42, "Alice", long); !errors.Is(err, domain.ErrContentTooLong) {
		t.Errorf("long content: err = %v, want ErrContentTooLong", err)
	}
}

func TestAppend_WrapsStorageFailure(t *testing.T) {
	repo := &fakeRepo{saveErr: errors.New("connection refused")}
	svc := NewMessageService(repo)

	_, err := svc.Append(context.Background(), 42, "Alice", "hi")
	if !errors.Is(err, errs.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if errors.Is(err, errs.ErrValidation) {
		t.Fatal("storage failure must not look like a validation error")
	}
}

func TestListBySubject_EmptyThread(t *testing.T) {
	svc := NewMessageService(&fakeRepo{list: []domain.Message{}})

	msgs, err := svc.ListBySubject(context.Background(), 999)
	if err != nil {
		t.Fatalf("ListBySubject failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
}
