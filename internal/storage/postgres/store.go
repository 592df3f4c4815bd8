package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// Config - параметры подключения.
type Config struct {
	DSN      string
	LogLevel logger.LogLevel
}

// New создает новый экземпляр хранилища PostgreSQL и выполняет миграцию схемы.
func New(cfg Config) (*Store, error) {
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := NewFromDB(db)
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromDB оборачивает уже открытое соединение gorm (используется в тестах).
func NewFromDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate выполняет миграцию схемы.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&domain.ContentItem{}, &domain.Comment{}, &domain.Recommendation{}, &domain.Report{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// translate приводит ошибки gorm к ошибкам пакета storage.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrDuplicate
	default:
		return err
	}
}

// === Item Methods ===

func (s *Store) CreateItem(ctx context.Context, item *domain.ContentItem) (*domain.ContentItem, error) {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, translate(err)
	}
	// GORM автоматически заполнит ID, CreatedAt и UpdatedAt после создания
	return item, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*domain.ContentItem, error) {
	var item domain.ContentItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *Store) UpdateItem(ctx context.Context, item *domain.ContentItem) error {
	res := s.db.WithContext(ctx).Model(item).
		Select("kind", "title", "body", "body_text", "hidden", "pinned", "updated_at").
		Updates(item)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.ContentItem{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		if err := tx.Delete(&domain.Comment{}, "item_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Recommendation{}, "item_id = ?", id).Error
	})
}

func (s *Store) IncrementView(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&domain.ContentItem{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func (s *Store) filtered(ctx context.Context, f storage.ItemFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&domain.ContentItem{})
	if f.Space != "" {
		q = q.Where("space = ?", f.Space)
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	if !f.IncludeHidden {
		q = q.Where("hidden = ?", false)
	}

	keyword := strings.TrimSpace(f.Keyword)
	if keyword == "" {
		return q
	}
	like := escapeLike(keyword)
	switch f.SearchType {
	case domain.SearchTitle:
		q = q.Where("title ILIKE ?", like)
	case domain.SearchContent:
		q = q.Where("body_text ILIKE ?", like)
	case domain.SearchAuthor:
		q = q.Where("author_nickname ILIKE ?", like)
	case domain.SearchComment:
		q = q.Where("EXISTS (SELECT 1 FROM comments WHERE comments.item_id = content_items.id AND comments.deleted = false AND comments.content ILIKE ?)", like)
	default:
		q = q.Where("(title ILIKE ? OR body_text ILIKE ?)", like, like)
	}
	return q
}

func (s *Store) ListItems(ctx context.Context, f storage.ItemFilter, args storage.PaginationArgs) ([]*domain.ContentItem, int64, error) {
	var total int64
	if err := s.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []*domain.ContentItem
	q := s.filtered(ctx, f).Order("pinned DESC").Order("id DESC").Offset(args.Offset)
	if args.Limit > 0 {
		q = q.Limit(args.Limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) CountItems(ctx context.Context, f storage.ItemFilter) (int64, error) {
	var total int64
	err := s.filtered(ctx, f).Count(&total).Error
	return total, err
}

type countRow struct {
	ID int64
	N  int64
}

func (s *Store) ItemStats(ctx context.Context, ids []int64) (map[int64]storage.ItemStats, error) {
	result := make(map[int64]storage.ItemStats, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	for _, id := range ids {
		result[id] = storage.ItemStats{}
	}

	// Четыре сгруппированных запроса вместо N+1 на страницу
	queries := []struct {
		query string
		set   func(*storage.ItemStats, int64)
	}{
		{"SELECT item_id AS id, count(*) AS n FROM recommendations WHERE item_id IN ? GROUP BY item_id",
			func(st *storage.ItemStats, n int64) { st.RecommendCount = n }},
		{"SELECT item_id AS id, count(*) AS n FROM comments WHERE deleted = false AND item_id IN ? GROUP BY item_id",
			func(st *storage.ItemStats, n int64) { st.CommentCount = n }},
		{"SELECT target_id AS id, count(*) AS n FROM reports WHERE target_type = 'CONTENT' AND status <> 'REJECTED' AND target_id IN ? GROUP BY target_id",
			func(st *storage.ItemStats, n int64) { st.ReportCount = n }},
		{"SELECT target_id AS id, count(*) AS n FROM reports WHERE target_type = 'CONTENT' AND target_id IN ? GROUP BY target_id",
			func(st *storage.ItemStats, n int64) { st.TotalReportCount = n }},
	}

	db := s.db.WithContext(ctx)
	for _, q := range queries {
		var rows []countRow
		if err := db.Raw(q.query, ids).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("item stats: %w", err)
		}
		for _, r := range rows {
			st := result[r.ID]
			q.set(&st, r.N)
			result[r.ID] = st
		}
	}
	return result, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	// Проверяем существование материала и родителя в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var itemCount int64
		if err := tx.Model(&domain.ContentItem{}).Where("id = ?", comment.ItemID).Count(&itemCount).Error; err != nil {
			return err
		}
		if itemCount == 0 {
			return storage.ErrNotFound
		}

		if comment.ParentID != nil {
			var parentCommentCount int64
			if err := tx.Model(&domain.Comment{}).Where("id = ?", *comment.ParentID).Count(&parentCommentCount).Error; err != nil {
				return err
			}
			if parentCommentCount == 0 {
				return storage.ErrNotFound
			}
		}

		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return comment, nil
}

func (s *Store) GetComment(ctx context.Context, id int64) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (s *Store) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	res := s.db.WithContext(ctx).Model(comment).
		Select("content", "deleted", "updated_at").
		Updates(comment)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) GetTopLevelComments(ctx context.Context, itemID int64, newestFirst bool) ([]*domain.Comment, error) {
	order := "id ASC"
	if newestFirst {
		order = "id DESC"
	}
	var comments []*domain.Comment
	// Выбираем только комментарии верхнего уровня (parent_id IS NULL)
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND parent_id IS NULL", itemID).
		Order(order).
		Find(&comments).Error
	return comments, err
}

// === Dataloader Method ===

func (s *Store) GetRepliesByParentIDs(ctx context.Context, parentIDs []int64) (map[int64][]*domain.Comment, error) {
	result := make(map[int64][]*domain.Comment, len(parentIDs))
	if len(parentIDs) == 0 {
		return result, nil
	}

	var comments []*domain.Comment
	// Загружаем все дочерние комментарии для всех переданных parentID одним запросом
	err := s.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("parent_id, created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	for _, c := range comments {
		if c.ParentID != nil {
			result[*c.ParentID] = append(result[*c.ParentID], c)
		}
	}
	return result, nil
}

// === Recommendation Methods ===

func (s *Store) AddRecommendation(ctx context.Context, userID string, itemID int64) error {
	rec := &domain.Recommendation{UserID: userID, ItemID: itemID}
	return translate(s.db.WithContext(ctx).Create(rec).Error)
}

func (s *Store) RemoveRecommendation(ctx context.Context, userID string, itemID int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&domain.Recommendation{}, "user_id = ? AND item_id = ?", userID, itemID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) HasRecommendation(ctx context.Context, userID string, itemID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Recommendation{}).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Count(&n).Error
	return n > 0, err
}

func (s *Store) CountRecommendations(ctx context.Context, itemID int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Recommendation{}).Where("item_id = ?", itemID).Count(&n).Error
	return n, err
}

// === Report Methods ===

func (s *Store) CreateReport(ctx context.Context, report *domain.Report) (*domain.Report, error) {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, translate(err)
	}
	return report, nil
}

func (s *Store) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	var r domain.Report
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) FindPendingReport(ctx context.Context, reporterID string, targetType domain.TargetType, targetID int64) (*domain.Report, error) {
	var r domain.Report
	err := s.db.WithContext(ctx).
		Where("reporter_id = ? AND target_type = ? AND target_id = ? AND status = ?", reporterID, targetType, targetID, domain.ReportPending).
		First(&r).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) ResolveReport(ctx context.Context, report *domain.Report) (bool, error) {
	// Условное обновление: вторая попытка закрыть жалобу ничего не меняет
	res := s.db.WithContext(ctx).Model(&domain.Report{}).
		Where("id = ? AND status = ?", report.ID, domain.ReportPending).
		Updates(map[string]any{
			"status":       report.Status,
			"action_type":  report.ActionType,
			"processed_by": report.ProcessedBy,
			"process_note": report.ProcessNote,
			"processed_at": report.ProcessedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ListReports(ctx context.Context, status domain.ReportStatus, args storage.PaginationArgs) ([]*domain.Report, int64, error) {
	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&domain.Report{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []*domain.Report
	page := base().Order("id DESC").Offset(args.Offset)
	if args.Limit > 0 {
		page = page.Limit(args.Limit)
	}
	if err := page.Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// Atomic выполняет fn в транзакции gorm; вложенные вызовы используют savepoint'ы.
func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

var _ storage.Storage = (*Store)(nil)
