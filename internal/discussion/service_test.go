package discussion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/events"
	"github.com/UkralStul/matjip-discussion/internal/storage"
	"github.com/UkralStul/matjip-discussion/internal/storage/inmemory"
)

var (
	alice = &domain.Principal{UserID: "alice", Nickname: "앨리스", Role: domain.RoleUser}
	bob   = &domain.Principal{UserID: "bob", Nickname: "밥", Role: domain.RoleUser}
	carol = &domain.Principal{UserID: "carol", Nickname: "캐롤", Role: domain.RoleUser}
	admin = &domain.Principal{UserID: "admin", Nickname: "관리자", Role: domain.RoleAdmin}
)

const validBody = `{"ops":[{"insert":"정말 맛있어요\n"}]}`

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestService(t *testing.T, opts ...Option) (*Service, storage.Storage) {
	t.Helper()
	store := inmemory.New()
	opts = append([]Option{WithLogger(quietLogger()), WithObserver(events.NewCommentObserver())}, opts...)
	return New(store, opts...), store
}

func mustCreateItem(t *testing.T, s *Service, p *domain.Principal, space domain.Space, kind domain.Kind, title string) *domain.ContentItem {
	t.Helper()
	item, err := s.CreateItem(context.Background(), p, space, ItemInput{Kind: kind, Title: title, Body: validBody})
	require.NoError(t, err)
	return item
}

func mustComment(t *testing.T, s *Service, p *domain.Principal, itemID int64, content string, parent *int64) *domain.Comment {
	t.Helper()
	c, err := s.AddComment(context.Background(), p, domain.SpaceBoard, itemID, CommentInput{Content: content, ParentID: parent})
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }

// faultyStore ломает UpdateItem, в том числе внутри транзакции.
type faultyStore struct {
	storage.Storage
}

var errBoom = errors.New("disk on fire")

func (f faultyStore) UpdateItem(ctx context.Context, item *domain.ContentItem) error {
	return errBoom
}

func (f faultyStore) Atomic(ctx context.Context, fn func(tx storage.Storage) error) error {
	return f.Storage.Atomic(ctx, func(tx storage.Storage) error {
		return fn(faultyStore{Storage: tx})
	})
}
