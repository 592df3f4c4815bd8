package discussion

import (
	"context"

	"github.com/UkralStul/matjip-discussion/internal/dataloader"
	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/events"
	"github.com/UkralStul/matjip-discussion/internal/storage"
)

// CommentInput - тело нового комментария.
type CommentInput struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parentId,omitempty"`
}

func (s *Service) AddComment(ctx context.Context, p *domain.Principal, space domain.Space, itemID int64, in CommentInput) (*domain.Comment, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	content, err := domain.NormalizeComment(in.Content)
	if err != nil {
		return nil, err
	}
	item, err := visibleItem(ctx, s.store, p, space, itemID)
	if err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.store.GetComment(ctx, *in.ParentID)
		if err != nil {
			return nil, notFound(err, "parent comment %d not found", *in.ParentID)
		}
		if parent.ItemID != item.ID {
			return nil, domain.NotFoundf("parent comment %d not found", *in.ParentID)
		}
		// Ответить можно только на комментарий верхнего уровня.
		if parent.IsReply() {
			return nil, domain.ErrInvalidNesting
		}
	}

	now := s.now()
	created, err := s.store.CreateComment(ctx, &domain.Comment{
		ItemID:         item.ID,
		ParentID:       in.ParentID,
		AuthorID:       p.UserID,
		AuthorNickname: p.Nickname,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}
	s.publish(item.ID, events.CommentCreated, created)
	return created, nil
}

func (s *Service) EditComment(ctx context.Context, p *domain.Principal, id int64, content string) (*domain.Comment, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	content, err := domain.NormalizeComment(content)
	if err != nil {
		return nil, err
	}
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, notFound(err, "comment %d not found", id)
	}
	if !domain.CanModify(p, c) {
		return nil, domain.Permissionf("only the author or an admin can edit comment %d", id)
	}
	if c.Deleted {
		return nil, domain.Conflictf("comment %d is deleted", id)
	}

	c.Content = content
	c.UpdatedAt = s.now()
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, notFound(err, "comment %d not found", id)
	}
	s.publish(c.ItemID, events.CommentUpdated, c)
	return c, nil
}

// DeleteComment мягко удаляет комментарий; ответы остаются на месте.
func (s *Service) DeleteComment(ctx context.Context, p *domain.Principal, id int64) error {
	if err := requireAuth(p); err != nil {
		return err
	}
	c, changed, err := s.deleteComment(ctx, s.store, p, id)
	if err != nil {
		return err
	}
	if changed {
		s.publish(c.ItemID, events.CommentDeleted, c)
	}
	return nil
}

// deleteComment возвращает changed=false, если комментарий уже был удалён.
func (s *Service) deleteComment(ctx context.Context, st storage.Storage, p *domain.Principal, id int64) (*domain.Comment, bool, error) {
	c, err := st.GetComment(ctx, id)
	if err != nil {
		return nil, false, notFound(err, "comment %d not found", id)
	}
	if !domain.CanModify(p, c) {
		return nil, false, domain.Permissionf("only the author or an admin can delete comment %d", id)
	}
	if c.Deleted {
		return c, false, nil
	}
	c.Deleted = true
	c.Content = domain.DeletedCommentPlaceholder
	c.UpdatedAt = s.now()
	if err := st.UpdateComment(ctx, c); err != nil {
		return nil, false, notFound(err, "comment %d not found", id)
	}
	return c, true, nil
}

// ListComments собирает дерево: верхний уровень в заданном порядке, ответы всегда по возрастанию.
func (s *Service) ListComments(ctx context.Context, p *domain.Principal, space domain.Space, itemID int64, sort domain.CommentSort) ([]*domain.CommentThread, error) {
	switch sort {
	case "":
		sort = domain.SortCreated
	case domain.SortCreated, domain.SortLatest:
	default:
		return nil, domain.Validationf("unknown sort %q", sort)
	}
	item, err := visibleItem(ctx, s.store, p, space, itemID)
	if err != nil {
		return nil, err
	}

	top, err := s.store.GetTopLevelComments(ctx, item.ID, sort == domain.SortLatest)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(top))
	for i, c := range top {
		ids[i] = c.ID
	}
	replies, err := s.replies(ctx, ids)
	if err != nil {
		return nil, err
	}

	threads := make([]*domain.CommentThread, len(top))
	for i, c := range top {
		r := replies[c.ID]
		if r == nil {
			r = []*domain.Comment{}
		}
		threads[i] = &domain.CommentThread{Comment: c, Replies: r}
	}
	return threads, nil
}

// replies берёт загрузчик запроса, если он есть, иначе идёт в хранилище напрямую.
func (s *Service) replies(ctx context.Context, parentIDs []int64) (map[int64][]*domain.Comment, error) {
	if len(parentIDs) == 0 {
		return map[int64][]*domain.Comment{}, nil
	}
	if l := dataloader.For(ctx); l != nil {
		return l.Replies(ctx, parentIDs)
	}
	return s.store.GetRepliesByParentIDs(ctx, parentIDs)
}
