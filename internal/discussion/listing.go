package discussion

import (
	"context"
	"strings"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/storage"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListQuery - параметры списка материалов. Страницы нумеруются с нуля.
type ListQuery struct {
	Kind       domain.Kind
	Keyword    string
	SearchType domain.SearchType
	Page       int
	Size       int
}

// ItemPage - страница списка: объявления и обычные материалы раздельно.
type ItemPage struct {
	Notices       []*domain.ContentItem `json:"notices"`
	Contents      []*domain.ContentItem `json:"contents"`
	TotalElements int64                 `json:"totalElements"`
	TotalPages    int                   `json:"totalPages"`
	Page          int                   `json:"page"`
	Size          int                   `json:"size"`

	// Только в админском списке, где каждая корзина листается сама.
	NoticeTotalElements  *int64 `json:"noticeTotalElements,omitempty"`
	ContentTotalElements *int64 `json:"contentTotalElements,omitempty"`
}

func normalizePage(page, size int) (int, int, error) {
	if page < 0 {
		return 0, 0, domain.Validationf("page must not be negative")
	}
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 0 || size > MaxPageSize:
		return 0, 0, domain.Validationf("size must be between 1 and %d", MaxPageSize)
	}
	return page, size, nil
}

func totalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func (q ListQuery) filter(space domain.Space, kind domain.Kind, includeHidden bool) storage.ItemFilter {
	return storage.ItemFilter{
		Space:         space,
		Kind:          kind,
		Keyword:       q.Keyword,
		SearchType:    q.SearchType,
		IncludeHidden: includeHidden,
	}
}

func (q ListQuery) normalize(space domain.Space) (ListQuery, error) {
	if !space.Valid() {
		return q, domain.Validationf("unknown space %q", space)
	}
	if q.Kind != "" && !q.Kind.Valid() {
		return q, domain.Validationf("unknown kind %q", q.Kind)
	}
	q.Keyword = strings.TrimSpace(q.Keyword)
	switch {
	case q.SearchType == "" && q.Keyword != "":
		q.SearchType = domain.SearchTitleContent
	case q.SearchType != "" && !q.SearchType.Valid():
		return q, domain.Validationf("unknown search type %q", q.SearchType)
	}
	var err error
	q.Page, q.Size, err = normalizePage(q.Page, q.Size)
	return q, err
}

func (q ListQuery) wants(kind domain.Kind) bool { return q.Kind == "" || q.Kind == kind }

// ListItems - публичный список: скрытое исключено, объявления идут первыми,
// а пагинация сквозная по обеим корзинам.
func (s *Service) ListItems(ctx context.Context, space domain.Space, q ListQuery) (*ItemPage, error) {
	q, err := q.normalize(space)
	if err != nil {
		return nil, err
	}
	offset := q.Page * q.Size
	page := &ItemPage{
		Notices:  []*domain.ContentItem{},
		Contents: []*domain.ContentItem{},
		Page:     q.Page,
		Size:     q.Size,
	}

	var noticeTotal int64
	if q.wants(domain.KindNotice) {
		page.Notices, noticeTotal, err = s.store.ListItems(ctx, q.filter(space, domain.KindNotice, false),
			storage.PaginationArgs{Offset: offset, Limit: q.Size})
		if err != nil {
			return nil, err
		}
	}

	var contentTotal int64
	if q.wants(domain.KindReview) {
		f := q.filter(space, domain.KindReview, false)
		remaining := q.Size - len(page.Notices)
		if remaining > 0 {
			contentOffset := offset - int(noticeTotal)
			if contentOffset < 0 {
				contentOffset = 0
			}
			page.Contents, contentTotal, err = s.store.ListItems(ctx, f,
				storage.PaginationArgs{Offset: contentOffset, Limit: remaining})
		} else {
			contentTotal, err = s.store.CountItems(ctx, f)
		}
		if err != nil {
			return nil, err
		}
	}

	page.TotalElements = noticeTotal + contentTotal
	page.TotalPages = totalPages(page.TotalElements, q.Size)
	return s.finishPage(ctx, page)
}

// ListItemsAdmin листает каждую корзину независимо и включает скрытые материалы.
func (s *Service) ListItemsAdmin(ctx context.Context, p *domain.Principal, space domain.Space, q ListQuery) (*ItemPage, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	q, err := q.normalize(space)
	if err != nil {
		return nil, err
	}
	args := storage.PaginationArgs{Offset: q.Page * q.Size, Limit: q.Size}
	page := &ItemPage{
		Notices:  []*domain.ContentItem{},
		Contents: []*domain.ContentItem{},
		Page:     q.Page,
		Size:     q.Size,
	}

	var noticeTotal, contentTotal int64
	if q.wants(domain.KindNotice) {
		if page.Notices, noticeTotal, err = s.store.ListItems(ctx, q.filter(space, domain.KindNotice, true), args); err != nil {
			return nil, err
		}
	}
	if q.wants(domain.KindReview) {
		if page.Contents, contentTotal, err = s.store.ListItems(ctx, q.filter(space, domain.KindReview, true), args); err != nil {
			return nil, err
		}
	}

	page.NoticeTotalElements = &noticeTotal
	page.ContentTotalElements = &contentTotal
	page.TotalElements = noticeTotal + contentTotal
	page.TotalPages = max(totalPages(noticeTotal, q.Size), totalPages(contentTotal, q.Size))
	return s.finishPage(ctx, page)
}

func orEmpty(items []*domain.ContentItem) []*domain.ContentItem {
	if items == nil {
		return []*domain.ContentItem{}
	}
	return items
}

func (s *Service) finishPage(ctx context.Context, page *ItemPage) (*ItemPage, error) {
	page.Notices = orEmpty(page.Notices)
	page.Contents = orEmpty(page.Contents)
	all := make([]*domain.ContentItem, 0, len(page.Notices)+len(page.Contents))
	all = append(append(all, page.Notices...), page.Contents...)
	if err := s.decorate(ctx, all...); err != nil {
		return nil, err
	}
	return page, nil
}
