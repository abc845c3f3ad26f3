package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestRepo(t *testing.T) *MessageRepository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("open sqlite repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSave_AssignsMonotonicIDs(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	var prev int64
	for _, content := range []string{"first", "second", "third"} {
		msg, err := repo.Save(ctx, 42, "Alice", content)
		if err != nil {
			t.Fatalf("save %q: %v", content, err)
		}
		if msg.ID <= prev {
			t.Fatalf("id %d not greater than previous %d", msg.ID, prev)
		}
		if msg.CreatedAt.IsZero() {
			t.Fatal("timestamp must be assigned")
		}
		prev = msg.ID
	}
}

func TestListBySubject_NewestFirst(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		if _, err := repo.Save(ctx, 42, "Alice", content); err != nil {
			t.Fatalf("save %q: %v", content, err)
		}
	}
	// another thread, must not leak into the listing
	if _, err := repo.Save(ctx, 7, "Bob", "other thread"); err != nil {
		t.Fatalf("save foreign: %v", err)
	}

	msgs, err := repo.ListBySubject(ctx, 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	// same-timestamp rows fall back to id order, so ids are strictly descending
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID >= msgs[i-1].ID {
			t.Fatalf("not newest-first: ids %d then %d", msgs[i-1].ID, msgs[i].ID)
		}
	}
	if msgs[0].Content != "third" {
		t.Fatalf("newest content = %q, want %q", msgs[0].Content, "third")
	}
}

func TestListBySubject_EmptyThread(t *testing.T) {
	repo := openTestRepo(t)

	msgs, err := repo.ListBySubject(context.Background(), 999)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if msgs == nil {
		t.Fatal("empty thread must return an empty slice, not nil")
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0", len(msgs))
	}
}
