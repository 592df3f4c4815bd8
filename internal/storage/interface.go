package storage

import (
	"context"
	"errors"

	"github.com/UkralStul/matjip-discussion/internal/domain"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate - нарушено ограничение уникальности.
	ErrDuplicate = errors.New("storage: duplicate record")
)

// PaginationArgs - аргументы для пагинации смещением.
type PaginationArgs struct {
	Offset int
	Limit  int
}

// ItemFilter - условия выборки материалов.
type ItemFilter struct {
	Space         domain.Space
	Kind          domain.Kind // пусто - любой
	Keyword       string
	SearchType    domain.SearchType
	IncludeHidden bool
}

// ItemStats - производные счётчики материала.
type ItemStats struct {
	RecommendCount   int64
	CommentCount     int64
	ReportCount      int64
	TotalReportCount int64
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	CreateItem(ctx context.Context, item *domain.ContentItem) (*domain.ContentItem, error)
	GetItem(ctx context.Context, id int64) (*domain.ContentItem, error)
	UpdateItem(ctx context.Context, item *domain.ContentItem) error
	// DeleteItem удаляет материал вместе с комментариями и рекомендациями. Жалобы остаются.
	DeleteItem(ctx context.Context, id int64) error
	IncrementView(ctx context.Context, id int64) error
	// ListItems сортирует закреплённые первыми, затем по убыванию id.
	ListItems(ctx context.Context, filter ItemFilter, args PaginationArgs) ([]*domain.ContentItem, int64, error)
	CountItems(ctx context.Context, filter ItemFilter) (int64, error)
	ItemStats(ctx context.Context, ids []int64) (map[int64]ItemStats, error)

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetComment(ctx context.Context, id int64) (*domain.Comment, error)
	UpdateComment(ctx context.Context, comment *domain.Comment) error
	GetTopLevelComments(ctx context.Context, itemID int64, newestFirst bool) ([]*domain.Comment, error)

	// Метод для Dataloader'а: ответы всегда по возрастанию времени создания.
	GetRepliesByParentIDs(ctx context.Context, parentIDs []int64) (map[int64][]*domain.Comment, error)

	// AddRecommendation возвращает ErrDuplicate, если рекомендация уже есть.
	AddRecommendation(ctx context.Context, userID string, itemID int64) error
	RemoveRecommendation(ctx context.Context, userID string, itemID int64) (bool, error)
	HasRecommendation(ctx context.Context, userID string, itemID int64) (bool, error)
	CountRecommendations(ctx context.Context, itemID int64) (int64, error)

	// CreateReport возвращает ErrDuplicate при второй PENDING жалобе на ту же цель.
	CreateReport(ctx context.Context, report *domain.Report) (*domain.Report, error)
	GetReport(ctx context.Context, id int64) (*domain.Report, error)
	FindPendingReport(ctx context.Context, reporterID string, targetType domain.TargetType, targetID int64) (*domain.Report, error)
	// ResolveReport сохраняет решение, только если жалоба ещё PENDING. false - жалоба уже закрыта.
	ResolveReport(ctx context.Context, report *domain.Report) (bool, error)
	// ListReports фильтрует по статусу (пусто - все), новые первыми.
	ListReports(ctx context.Context, status domain.ReportStatus, args PaginationArgs) ([]*domain.Report, int64, error)

	// Atomic выполняет fn в транзакции; любая ошибка откатывает все изменения.
	Atomic(ctx context.Context, fn func(tx Storage) error) error
	Ping(ctx context.Context) error
}
