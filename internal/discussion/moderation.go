package discussion

import (
	"context"
	"errors"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/events"
	"github.com/UkralStul/matjip-discussion/internal/storage"
)

// ApplyReportAction применяет модерационное действие к цели.
// Отсутствующая цель или цель, уже находящаяся в нужном состоянии, - не ошибка.
func (s *Service) ApplyReportAction(ctx context.Context, action domain.ActionType, targetType domain.TargetType, targetID int64) error {
	c, err := s.applyAction(ctx, s.store, action, targetType, targetID)
	if err != nil {
		return err
	}
	if c != nil {
		s.publish(c.ItemID, events.CommentDeleted, c)
	}
	return nil
}

// applyAction возвращает комментарий, если он был удалён именно сейчас.
func (s *Service) applyAction(ctx context.Context, st storage.Storage, action domain.ActionType, targetType domain.TargetType, targetID int64) (*domain.Comment, error) {
	if !action.Applies(targetType) {
		return nil, domain.Validationf("action %s does not apply to %s", action, targetType)
	}
	switch action {
	case domain.ActionHideContent:
		_, err := s.setHidden(ctx, st, targetID, true)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	case domain.ActionDeleteComment:
		c, changed, err := s.deleteComment(ctx, st, domain.System, targetID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		if err != nil || !changed {
			return nil, err
		}
		return c, nil
	}
	return nil, domain.Validationf("unknown action %q", action)
}

// ManualHide скрывает материал вне процесса жалоб; статусы жалоб не меняются.
func (s *Service) ManualHide(ctx context.Context, p *domain.Principal, space domain.Space, id int64) (*domain.ContentItem, error) {
	return s.moderateItem(ctx, p, space, id, "item hidden", func(st storage.Storage) (*domain.ContentItem, error) {
		return s.setHidden(ctx, st, id, true)
	})
}

func (s *Service) ManualRestore(ctx context.Context, p *domain.Principal, space domain.Space, id int64) (*domain.ContentItem, error) {
	return s.moderateItem(ctx, p, space, id, "item restored", func(st storage.Storage) (*domain.ContentItem, error) {
		return s.setHidden(ctx, st, id, false)
	})
}

func (s *Service) Pin(ctx context.Context, p *domain.Principal, space domain.Space, id int64) (*domain.ContentItem, error) {
	return s.moderateItem(ctx, p, space, id, "item pinned", func(st storage.Storage) (*domain.ContentItem, error) {
		return s.setPinned(ctx, st, id, true)
	})
}

func (s *Service) Unpin(ctx context.Context, p *domain.Principal, space domain.Space, id int64) (*domain.ContentItem, error) {
	return s.moderateItem(ctx, p, space, id, "item unpinned", func(st storage.Storage) (*domain.ContentItem, error) {
		return s.setPinned(ctx, st, id, false)
	})
}

func (s *Service) moderateItem(ctx context.Context, p *domain.Principal, space domain.Space, id int64, msg string, fn func(st storage.Storage) (*domain.ContentItem, error)) (*domain.ContentItem, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if _, err := loadItem(ctx, s.store, space, id); err != nil {
		return nil, err
	}
	item, err := fn(s.store)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, item); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, msg, "item_id", id, "admin_id", p.UserID)
	return item, nil
}
