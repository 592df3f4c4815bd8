package discussion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/matjip-discussion/internal/domain"
)

func TestCreateItem(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, alice, domain.SpaceBoard, ItemInput{Title: "  맛집  ", Body: validBody})
	require.NoError(t, err)
	assert.Equal(t, "맛집", item.Title)
	assert.Equal(t, domain.KindReview, item.Kind)
	assert.Equal(t, domain.SpaceBoard, item.Space)
	assert.Equal(t, "alice", item.AuthorID)
	assert.Equal(t, "앨리스", item.AuthorNickname)
	assert.Zero(t, item.CommentCount)
	assert.Zero(t, item.RecommendCount)
	assert.False(t, item.Hidden)
	assert.False(t, item.CreatedAt.IsZero())
}

func TestCreateItem_Validation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input ItemInput
		code  domain.Code
	}{
		{"empty title", ItemInput{Title: "   ", Body: validBody}, domain.CodeValidation},
		{"one char title", ItemInput{Title: " 맛 ", Body: validBody}, domain.CodeValidation},
		{"empty delta body", ItemInput{Title: "맛집", Body: `{"ops":[{"insert":"\n"}]}`}, domain.CodeValidation},
		{"blank body", ItemInput{Title: "맛집", Body: "  "}, domain.CodeValidation},
		{"unknown kind", ItemInput{Kind: "POLL", Title: "맛집", Body: validBody}, domain.CodeValidation},
		{"notice by user", ItemInput{Kind: domain.KindNotice, Title: "공지", Body: validBody}, domain.CodePermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateItem(ctx, alice, domain.SpaceBoard, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, domain.CodeOf(err))
		})
	}

	_, err := s.CreateItem(ctx, nil, domain.SpaceBoard, ItemInput{Title: "맛집", Body: validBody})
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestCreateItem_MediaOnlyBody(t *testing.T) {
	s, _ := newTestService(t)

	item, err := s.CreateItem(context.Background(), alice, domain.SpaceBlog, ItemInput{
		Title: "사진만",
		Body:  `{"ops":[{"insert":{"image":"https://cdn.example/a.png"}},{"insert":"\n"}]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SpaceBlog, item.Space)
}

func TestCreateItem_AdminNotice(t *testing.T) {
	s, _ := newTestService(t)

	item := mustCreateItem(t, s, admin, domain.SpaceBoard, domain.KindNotice, "공지사항")
	assert.Equal(t, domain.KindNotice, item.Kind)
}

func TestGetItem_WrongSpaceIsNotFound(t *testing.T) {
	s, _ := newTestService(t)
	item := mustCreateItem(t, s, alice, domain.SpaceBoard, "", "맛집")

	_, err := s.GetItem(context.Background(), alice, domain.SpaceBlog, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.GetItem(context.Background(), alice, domain.SpaceBoard, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetItem_CountsViewsInBackground(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	item := mustCreateItem(t, s, alice, domain.SpaceBoard, "", "맛집")

	got, err := s.GetItem(ctx, nil, domain.SpaceBoard, item.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Recommended)

	assert.Eventually(t, func() bool {
		stored, err := store.GetItem(ctx, item.ID)
		return err == nil && stored.ViewCount == 1
	}, time.Second, 5*time.Millisecond)
}

func TestGetItem_RecommendedForCaller(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateItem(t, s, alice, domain.SpaceBoard, "", "맛집")

	_, err := s.ToggleRecommendation(ctx, bob, domain.SpaceBoard, item.ID)
	require.NoError(t, err)

	got, err := s.GetItem(ctx, bob, domain.SpaceBoard, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Recommended)
	assert.True(t, *got.Recommended)
	assert.Equal(t, int64(1), got.RecommendCount)

	got, err = s.GetItem(ctx, carol, domain.SpaceBoard, item.ID)
	require.NoError(t, err)
	assert.False(t, *got.Recommended)
}

func TestIncrementView_UnknownIsNoop(t *testing.T) {
	s, _ := newTestService(t)
	assert.NotPanics(t, func() { s.IncrementView(context.Background(), 12345) })
}

func TestGetItem_HiddenVisibility(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateItem(t, s, alice, domain.SpaceBoard, "", "맛집")

	_, err := s.ManualHide(ctx, admin, domain.SpaceBoard, item.ID)
	require.NoError(t, err)

	_, err = s.GetItem(ctx, bob, domain.SpaceBoard, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetItem(ctx, nil, domain.SpaceBoard, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.GetItem(ctx, alice, domain.SpaceBoard, item.ID)
	require.NoError(t, err)
	assert.True(t, got.Hidden)
	got, err = s.GetItem(ctx, admin, domain.SpaceBoard, item.ID)
	require.NoError(t, err)
	assert.True(t, got.Hidden)
}

func TestUpdateItem(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateItem(t, s, alice, domain.SpaceBoard, "", "맛집")
	input := ItemInput{Title: "맛집 후기", Body: "수정된 본문"}

	_, err := s.UpdateItem(ctx, bob, domain.SpaceBoard, item.ID, input)
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = s.UpdateItem(ctx, nil, domain.SpaceBoard, item.ID, input)
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	_, err = s.UpdateItem(ctx, alice, domain.SpaceBoard, 404, input)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.UpdateItem(ctx, alice, domain.SpaceBoard, item.ID, ItemInput{Title: "x", Body: validBody})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.UpdateItem(ctx, alice, domain.SpaceBoard, item.ID, ItemInput{Kind: domain.KindNotice, Title: "맛집", Body: validBody})
	assert.ErrorIs(t, err, domain.ErrPermission)

	updated, err := s.UpdateItem(ctx, alice, domain.SpaceBoard, item.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "맛집 후기", updated.Title)
	assert.Equal(t, item.CreatedAt, updated.CreatedAt)

	byAdmin, err := s.UpdateItem(ctx, admin, domain.SpaceBoard, item.ID, ItemInput{Title: "관리자 수정", Body: validBody})
	require.NoError(t, err)
	assert.Equal(t, "alice", byAdmin.AuthorID)
}

func TestDeleteItem(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	item := mustCreateItem(t, s, alice, domain.SpaceBoard, "", "맛집")
	c := mustComment(t, s, bob, item.ID, "좋아요", nil)

	assert.ErrorIs(t, s.DeleteItem(ctx, bob, domain.SpaceBoard, item.ID), domain.ErrPermission)
	assert.ErrorIs(t, s.DeleteItem(ctx, alice, domain.SpaceBlog, item.ID), domain.ErrNotFound)

	require.NoError(t, s.DeleteItem(ctx, alice, domain.SpaceBoard, item.ID))

	_, err := s.GetItem(ctx, admin, domain.SpaceBoard, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetComment(ctx, c.ID)
	assert.Error(t, err)
	assert.ErrorIs(t, s.DeleteItem(ctx, alice, domain.SpaceBoard, item.ID), domain.ErrNotFound)
}

func TestPinUnpin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	item := mustCreateItem(t, s, alice, domain.SpaceBoard, "", "맛집")

	_, err := s.Pin(ctx, alice, domain.SpaceBoard, item.ID)
	assert.ErrorIs(t, err, domain.ErrPermission)

	pinned, err := s.Pin(ctx, admin, domain.SpaceBoard, item.ID)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)

	again, err := s.Pin(ctx, admin, domain.SpaceBoard, item.ID)
	require.NoError(t, err)
	assert.True(t, again.Pinned)

	unpinned, err := s.Unpin(ctx, admin, domain.SpaceBoard, item.ID)
	require.NoError(t, err)
	assert.False(t, unpinned.Pinned)
}
