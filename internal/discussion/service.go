// Package discussion - движок обсуждений: материалы, комментарии, рекомендации и модерация жалоб.
package discussion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/events"
	"github.com/UkralStul/matjip-discussion/internal/richtext"
	"github.com/UkralStul/matjip-discussion/internal/storage"
)

const viewTimeout = 5 * time.Second

// Service - точка входа для всех операций над обсуждениями.
type Service struct {
	store     storage.Storage
	inspector richtext.Inspector
	observer  *events.CommentObserver
	log       *slog.Logger
	now       func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

func WithInspector(i richtext.Inspector) Option { return func(s *Service) { s.inspector = i } }

// WithObserver подключает рассылку событий комментариев.
func WithObserver(o *events.CommentObserver) Option { return func(s *Service) { s.observer = o } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func New(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:     store,
		inspector: richtext.DeltaInspector{},
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store отдаёт хранилище сервиса, например для middleware загрузчиков.
func (s *Service) Store() storage.Storage { return s.store }

func requireAuth(p *domain.Principal) error {
	if p == nil || p.UserID == "" {
		return domain.ErrAuthentication
	}
	return nil
}

func requireAdmin(p *domain.Principal) error {
	if err := requireAuth(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return domain.Permissionf("admin role required")
	}
	return nil
}

// canSeeHidden - скрытое видят только администраторы и автор.
func canSeeHidden(p *domain.Principal, item *domain.ContentItem) bool {
	return p.IsAdmin() || domain.IsOwner(p, item)
}

// notFound переводит storage.ErrNotFound в доменную ошибку.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return domain.NotFoundf(format, args...)
	}
	return err
}

// loadItem возвращает материал, только если он принадлежит пространству.
func loadItem(ctx context.Context, st storage.Storage, space domain.Space, id int64) (*domain.ContentItem, error) {
	item, err := st.GetItem(ctx, id)
	if err != nil {
		return nil, notFound(err, "item %d not found", id)
	}
	if space != "" && item.Space != space {
		return nil, domain.NotFoundf("item %d not found", id)
	}
	return item, nil
}

// visibleItem дополнительно прячет скрытые материалы от посторонних.
func visibleItem(ctx context.Context, st storage.Storage, p *domain.Principal, space domain.Space, id int64) (*domain.ContentItem, error) {
	item, err := loadItem(ctx, st, space, id)
	if err != nil {
		return nil, err
	}
	if item.Hidden && !canSeeHidden(p, item) {
		return nil, domain.NotFoundf("item %d not found", id)
	}
	return item, nil
}

// decorate заполняет производные счётчики одним запросом на все материалы.
func (s *Service) decorate(ctx context.Context, items ...*domain.ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	stats, err := s.store.ItemStats(ctx, ids)
	if err != nil {
		return fmt.Errorf("item stats: %w", err)
	}
	for _, item := range items {
		st := stats[item.ID]
		item.RecommendCount = st.RecommendCount
		item.CommentCount = st.CommentCount
		item.ReportCount = st.ReportCount
		item.TotalReportCount = st.TotalReportCount
	}
	return nil
}

func (s *Service) publish(itemID int64, typ events.EventType, c *domain.Comment) {
	if s.observer == nil || c == nil {
		return
	}
	cp := *c
	s.observer.Publish(itemID, events.CommentEvent{Type: typ, Comment: &cp})
}
