package discussion

import (
	"context"
	"errors"
	"strings"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/storage"
)

// ItemInput - поля материала, задаваемые автором.
type ItemInput struct {
	Kind  domain.Kind `json:"kind"`
	Title string      `json:"title"`
	Body  string      `json:"body"`
}

// validateContent нормализует заголовок и проверяет, что тело не пустое.
func (s *Service) validateContent(title, body string) (string, string, error) {
	t, err := domain.NormalizeTitle(title)
	if err != nil {
		return "", "", err
	}
	text := strings.TrimSpace(s.inspector.PlainText(body))
	if text == "" && !s.inspector.HasMedia(body) {
		return "", "", domain.Validationf("body must contain text or media")
	}
	return t, text, nil
}

func resolveKind(p *domain.Principal, kind domain.Kind) (domain.Kind, error) {
	if kind == "" {
		kind = domain.KindReview
	}
	if !kind.Valid() {
		return "", domain.Validationf("unknown kind %q", kind)
	}
	if kind == domain.KindNotice && !p.IsAdmin() {
		return "", domain.Permissionf("only admins can post notices")
	}
	return kind, nil
}

func (s *Service) CreateItem(ctx context.Context, p *domain.Principal, space domain.Space, in ItemInput) (*domain.ContentItem, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	if !space.Valid() {
		return nil, domain.Validationf("unknown space %q", space)
	}
	kind, err := resolveKind(p, in.Kind)
	if err != nil {
		return nil, err
	}
	title, text, err := s.validateContent(in.Title, in.Body)
	if err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.store.CreateItem(ctx, &domain.ContentItem{
		Space:          space,
		Kind:           kind,
		Title:          title,
		Body:           in.Body,
		BodyText:       text,
		AuthorID:       p.UserID,
		AuthorNickname: p.Nickname,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "item created", "item_id", created.ID, "space", space, "kind", kind, "author_id", p.UserID)
	return created, nil
}

// GetItem отдаёт материал с производными счётчиками и засчитывает просмотр.
func (s *Service) GetItem(ctx context.Context, p *domain.Principal, space domain.Space, id int64) (*domain.ContentItem, error) {
	item, err := visibleItem(ctx, s.store, p, space, id)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, item); err != nil {
		return nil, err
	}
	if p != nil && p.UserID != "" {
		rec, err := s.store.HasRecommendation(ctx, p.UserID, item.ID)
		if err != nil {
			return nil, err
		}
		item.Recommended = &rec
	}
	s.recordView(item.ID)
	return item, nil
}

// Visible проверяет, что материал существует в пространстве и виден вызывающему.
func (s *Service) Visible(ctx context.Context, p *domain.Principal, space domain.Space, id int64) error {
	_, err := visibleItem(ctx, s.store, p, space, id)
	return err
}

// recordView увеличивает счётчик в фоне и не влияет на чтение.
func (s *Service) recordView(id int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), viewTimeout)
		defer cancel()
		s.IncrementView(ctx, id)
	}()
}

// IncrementView - просмотр засчитывается по возможности; неизвестный id игнорируется.
func (s *Service) IncrementView(ctx context.Context, id int64) {
	err := s.store.IncrementView(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.WarnContext(ctx, "view increment failed", "item_id", id, "error", err)
	}
}

func (s *Service) UpdateItem(ctx context.Context, p *domain.Principal, space domain.Space, id int64, in ItemInput) (*domain.ContentItem, error) {
	if err := requireAuth(p); err != nil {
		return nil, err
	}
	item, err := loadItem(ctx, s.store, space, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanModify(p, item) {
		return nil, domain.Permissionf("only the author or an admin can edit item %d", id)
	}
	kind := item.Kind
	if in.Kind != "" && in.Kind != item.Kind {
		if kind, err = resolveKind(p, in.Kind); err != nil {
			return nil, err
		}
	}
	title, text, err := s.validateContent(in.Title, in.Body)
	if err != nil {
		return nil, err
	}

	item.Kind = kind
	item.Title = title
	item.Body = in.Body
	item.BodyText = text
	item.UpdatedAt = s.now()
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, notFound(err, "item %d not found", id)
	}
	if err := s.decorate(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem удаляет материал безвозвратно вместе с комментариями.
func (s *Service) DeleteItem(ctx context.Context, p *domain.Principal, space domain.Space, id int64) error {
	if err := requireAuth(p); err != nil {
		return err
	}
	item, err := loadItem(ctx, s.store, space, id)
	if err != nil {
		return err
	}
	if !domain.CanModify(p, item) {
		return domain.Permissionf("only the author or an admin can delete item %d", id)
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return notFound(err, "item %d not found", id)
	}
	s.log.InfoContext(ctx, "item deleted", "item_id", id, "actor_id", p.UserID)
	return nil
}

// setHidden идемпотентен: повторная установка того же значения ничего не пишет.
func (s *Service) setHidden(ctx context.Context, st storage.Storage, id int64, hidden bool) (*domain.ContentItem, error) {
	item, err := st.GetItem(ctx, id)
	if err != nil {
		return nil, notFound(err, "item %d not found", id)
	}
	if item.Hidden == hidden {
		return item, nil
	}
	item.Hidden = hidden
	item.UpdatedAt = s.now()
	if err := st.UpdateItem(ctx, item); err != nil {
		return nil, notFound(err, "item %d not found", id)
	}
	return item, nil
}

func (s *Service) setPinned(ctx context.Context, st storage.Storage, id int64, pinned bool) (*domain.ContentItem, error) {
	item, err := st.GetItem(ctx, id)
	if err != nil {
		return nil, notFound(err, "item %d not found", id)
	}
	if item.Pinned == pinned {
		return item, nil
	}
	item.Pinned = pinned
	item.UpdatedAt = s.now()
	if err := st.UpdateItem(ctx, item); err != nil {
		return nil, notFound(err, "item %d not found", id)
	}
	return item, nil
}
