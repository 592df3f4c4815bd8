package dataloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/storage"
	"github.com/UkralStul/matjip-discussion/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore считает обращения к батч-методу.
type countingStore struct {
	storage.Storage
	calls int
}

func (c *countingStore) GetRepliesByParentIDs(ctx context.Context, ids []int64) (map[int64][]*domain.Comment, error) {
	c.calls++
	return c.Storage.GetRepliesByParentIDs(ctx, ids)
}

func TestLoaders_RepliesBatchesInOneCall(t *testing.T) {
	ctx := context.Background()
	mem := inmemory.New()
	item, err := mem.CreateItem(ctx, &domain.ContentItem{Space: domain.SpaceBoard, Kind: domain.KindReview, Title: "t", AuthorID: "a"})
	require.NoError(t, err)
	p1, err := mem.CreateComment(ctx, &domain.Comment{ItemID: item.ID, AuthorID: "a", Content: "p1"})
	require.NoError(t, err)
	p2, err := mem.CreateComment(ctx, &domain.Comment{ItemID: item.ID, AuthorID: "a", Content: "p2"})
	require.NoError(t, err)
	r1, err := mem.CreateComment(ctx, &domain.Comment{ItemID: item.ID, ParentID: &p1.ID, AuthorID: "b", Content: "r1"})
	require.NoError(t, err)

	store := &countingStore{Storage: mem}
	loaders := NewLoaders(store)

	replies, err := loaders.Replies(ctx, []int64{p1.ID, p2.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
	require.Len(t, replies[p1.ID], 1)
	assert.Equal(t, r1.ID, replies[p1.ID][0].ID)
	assert.Empty(t, replies[p2.ID])
}

func TestMiddleware_InjectsLoaders(t *testing.T) {
	var got *Loaders
	h := Middleware(inmemory.New())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = For(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotNil(t, got)
	assert.Nil(t, For(context.Background()))
}
