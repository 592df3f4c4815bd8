package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTitle(t *testing.T) {
	got, err := NormalizeTitle("  맛집  ")
	require.NoError(t, err)
	assert.Equal(t, "맛집", got)

	// "맛" в разложенной форме (NFD) - три кодовые точки, после NFC одна.
	decomposed := "\u1106\u1161\u11ba"
	_, err = NormalizeTitle(decomposed)
	assert.ErrorIs(t, err, ErrValidation, "single syllable must stay below the minimum")

	_, err = NormalizeTitle("   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NormalizeTitle(strings.Repeat("가", MaxTitleLength+1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNormalizeComment(t *testing.T) {
	_, err := NormalizeComment(" \n ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NormalizeComment(strings.Repeat("a", MaxCommentLength+1))
	assert.ErrorIs(t, err, ErrValidation)

	got, err := NormalizeComment(" 좋아요 ")
	require.NoError(t, err)
	assert.Equal(t, "좋아요", got)
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFoundf("item %d not found", 7))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestCanModify(t *testing.T) {
	item := &ContentItem{AuthorID: "user-a"}
	author := &Principal{UserID: "user-a", Role: RoleUser}
	stranger := &Principal{UserID: "user-b", Role: RoleUser}
	admin := &Principal{UserID: "admin", Role: RoleAdmin}

	assert.True(t, CanModify(author, item))
	assert.False(t, CanModify(stranger, item))
	assert.True(t, CanModify(admin, item))
	assert.False(t, CanModify(nil, item))
	assert.False(t, CanModify(&Principal{}, &Comment{}), "empty ids never match")
	assert.True(t, CanModify(System, &Comment{AuthorID: "x"}))
}

func TestActionApplies(t *testing.T) {
	assert.True(t, ActionHideContent.Applies(TargetContent))
	assert.False(t, ActionHideContent.Applies(TargetComment))
	assert.True(t, ActionDeleteComment.Applies(TargetComment))
	assert.False(t, ActionDeleteComment.Applies(TargetContent))
}
