package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/storage"
)

type recKey struct {
	userID string
	itemID int64
}

type pendingKey struct {
	reporterID string
	targetType domain.TargetType
	targetID   int64
}

// state - все данные хранилища. Значения хранятся копиями, чтобы clone был дешёвым.
type state struct {
	nextItemID    int64
	nextCommentID int64
	nextReportID  int64

	items            map[int64]domain.ContentItem
	comments         map[int64]domain.Comment
	commentsByItem   map[int64][]int64 // map[itemID][]commentID (только корневые)
	commentsByParent map[int64][]int64 // map[parentID][]commentID
	recommendations  map[recKey]time.Time
	reports          map[int64]domain.Report
	pendingReports   map[pendingKey]int64
}

func newState() *state {
	return &state{
		items:            make(map[int64]domain.ContentItem),
		comments:         make(map[int64]domain.Comment),
		commentsByItem:   make(map[int64][]int64),
		commentsByParent: make(map[int64][]int64),
		recommendations:  make(map[recKey]time.Time),
		reports:          make(map[int64]domain.Report),
		pendingReports:   make(map[pendingKey]int64),
	}
}

func cloneIndex(src map[int64][]int64) map[int64][]int64 {
	dst := make(map[int64][]int64, len(src))
	for k, v := range src {
		dst[k] = append([]int64(nil), v...)
	}
	return dst
}

func (st *state) clone() *state {
	c := &state{
		nextItemID:       st.nextItemID,
		nextCommentID:    st.nextCommentID,
		nextReportID:     st.nextReportID,
		items:            make(map[int64]domain.ContentItem, len(st.items)),
		comments:         make(map[int64]domain.Comment, len(st.comments)),
		commentsByItem:   cloneIndex(st.commentsByItem),
		commentsByParent: cloneIndex(st.commentsByParent),
		recommendations:  make(map[recKey]time.Time, len(st.recommendations)),
		reports:          make(map[int64]domain.Report, len(st.reports)),
		pendingReports:   make(map[pendingKey]int64, len(st.pendingReports)),
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.comments {
		c.comments[k] = v
	}
	for k, v := range st.recommendations {
		c.recommendations[k] = v
	}
	for k, v := range st.reports {
		c.reports[k] = v
	}
	for k, v := range st.pendingReports {
		c.pendingReports[k] = v
	}
	return c
}

// Store реализует интерфейс Storage в памяти.
// Atomic работает на копии состояния и подменяет его только при успехе.
type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) view() *view { return &view{st: s.st, now: s.now} }

// === Item Methods ===

func (s *Store) CreateItem(ctx context.Context, item *domain.ContentItem) (*domain.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateItem(ctx, item)
}

func (s *Store) GetItem(ctx context.Context, id int64) (*domain.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetItem(ctx, id)
}

func (s *Store) UpdateItem(ctx context.Context, item *domain.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateItem(ctx, item)
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteItem(ctx, id)
}

func (s *Store) IncrementView(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().IncrementView(ctx, id)
}

func (s *Store) ListItems(ctx context.Context, filter storage.ItemFilter, args storage.PaginationArgs) ([]*domain.ContentItem, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListItems(ctx, filter, args)
}

func (s *Store) CountItems(ctx context.Context, filter storage.ItemFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().CountItems(ctx, filter)
}

func (s *Store) ItemStats(ctx context.Context, ids []int64) (map[int64]storage.ItemStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ItemStats(ctx, ids)
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateComment(ctx, comment)
}

func (s *Store) GetComment(ctx context.Context, id int64) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetComment(ctx, id)
}

func (s *Store) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateComment(ctx, comment)
}

func (s *Store) GetTopLevelComments(ctx context.Context, itemID int64, newestFirst bool) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetTopLevelComments(ctx, itemID, newestFirst)
}

func (s *Store) GetRepliesByParentIDs(ctx context.Context, parentIDs []int64) (map[int64][]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetRepliesByParentIDs(ctx, parentIDs)
}

// === Recommendation Methods ===

func (s *Store) AddRecommendation(ctx context.Context, userID string, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().AddRecommendation(ctx, userID, itemID)
}

func (s *Store) RemoveRecommendation(ctx context.Context, userID string, itemID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().RemoveRecommendation(ctx, userID, itemID)
}

func (s *Store) HasRecommendation(ctx context.Context, userID string, itemID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().HasRecommendation(ctx, userID, itemID)
}

func (s *Store) CountRecommendations(ctx context.Context, itemID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().CountRecommendations(ctx, itemID)
}

// === Report Methods ===

func (s *Store) CreateReport(ctx context.Context, report *domain.Report) (*domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateReport(ctx, report)
}

func (s *Store) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().GetReport(ctx, id)
}

func (s *Store) FindPendingReport(ctx context.Context, reporterID string, targetType domain.TargetType, targetID int64) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().FindPendingReport(ctx, reporterID, targetType, targetID)
}

func (s *Store) ResolveReport(ctx context.Context, report *domain.Report) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ResolveReport(ctx, report)
}

func (s *Store) ListReports(ctx context.Context, status domain.ReportStatus, args storage.PaginationArgs) ([]*domain.Report, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().ListReports(ctx, status, args)
}

func (s *Store) Atomic(ctx context.Context, fn func(tx storage.Storage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.st.clone()
	if err := fn(&view{st: draft, now: s.now}); err != nil {
		return err
	}
	s.st = draft
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// view - реализация Storage без блокировок; вызывающий держит мьютекс Store.
type view struct {
	st  *state
	now func() time.Time
}

func (v *view) CreateItem(ctx context.Context, item *domain.ContentItem) (*domain.ContentItem, error) {
	v.st.nextItemID++
	now := v.now()
	stored := *item
	stored.ID = v.st.nextItemID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	v.st.items[stored.ID] = stored

	out := stored
	return &out, nil
}

func (v *view) GetItem(ctx context.Context, id int64) (*domain.ContentItem, error) {
	item, ok := v.st.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &item, nil
}

func (v *view) UpdateItem(ctx context.Context, item *domain.ContentItem) error {
	stored, ok := v.st.items[item.ID]
	if !ok {
		return storage.ErrNotFound
	}
	stored.Kind = item.Kind
	stored.Title = item.Title
	stored.Body = item.Body
	stored.BodyText = item.BodyText
	stored.Hidden = item.Hidden
	stored.Pinned = item.Pinned
	stored.UpdatedAt = v.now()
	v.st.items[item.ID] = stored
	item.UpdatedAt = stored.UpdatedAt
	return nil
}

func (v *view) DeleteItem(ctx context.Context, id int64) error {
	if _, ok := v.st.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(v.st.items, id)

	for cid, c := range v.st.comments {
		if c.ItemID != id {
			continue
		}
		delete(v.st.comments, cid)
		delete(v.st.commentsByParent, cid)
	}
	delete(v.st.commentsByItem, id)

	for k := range v.st.recommendations {
		if k.itemID == id {
			delete(v.st.recommendations, k)
		}
	}
	return nil
}

func (v *view) IncrementView(ctx context.Context, id int64) error {
	item, ok := v.st.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	item.ViewCount++
	v.st.items[id] = item
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func (v *view) matches(item domain.ContentItem, f storage.ItemFilter, keyword string) bool {
	if f.Space != "" && item.Space != f.Space {
		return false
	}
	if f.Kind != "" && item.Kind != f.Kind {
		return false
	}
	if item.Hidden && !f.IncludeHidden {
		return false
	}
	if keyword == "" {
		return true
	}

	switch f.SearchType {
	case domain.SearchTitle:
		return containsFold(item.Title, keyword)
	case domain.SearchContent:
		return containsFold(item.BodyText, keyword)
	case domain.SearchAuthor:
		return containsFold(item.AuthorNickname, keyword)
	case domain.SearchComment:
		for _, c := range v.st.comments {
			if c.ItemID == item.ID && !c.Deleted && containsFold(c.Content, keyword) {
				return true
			}
		}
		return false
	default:
		return containsFold(item.Title, keyword) || containsFold(item.BodyText, keyword)
	}
}

func (v *view) ListItems(ctx context.Context, f storage.ItemFilter, args storage.PaginationArgs) ([]*domain.ContentItem, int64, error) {
	keyword := strings.ToLower(strings.TrimSpace(f.Keyword))

	matched := make([]domain.ContentItem, 0)
	for _, item := range v.st.items {
		if v.matches(item, f, keyword) {
			matched = append(matched, item)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Pinned != matched[j].Pinned {
			return matched[i].Pinned
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start, end := paginate(len(matched), args)
	out := make([]*domain.ContentItem, 0, end-start)
	for i := start; i < end; i++ {
		item := matched[i]
		out = append(out, &item)
	}
	return out, total, nil
}

func (v *view) CountItems(ctx context.Context, f storage.ItemFilter) (int64, error) {
	keyword := strings.ToLower(strings.TrimSpace(f.Keyword))
	var n int64
	for _, item := range v.st.items {
		if v.matches(item, f, keyword) {
			n++
		}
	}
	return n, nil
}

// paginate возвращает границы страницы; Limit <= 0 означает "без ограничения".
func paginate(n int, args storage.PaginationArgs) (int, int) {
	start := args.Offset
	if start < 0 {
		start = 0
	}
	if start >= n {
		return n, n
	}
	end := n
	if args.Limit > 0 && start+args.Limit < n {
		end = start + args.Limit
	}
	return start, end
}

func (v *view) ItemStats(ctx context.Context, ids []int64) (map[int64]storage.ItemStats, error) {
	wanted := make(map[int64]bool, len(ids))
	result := make(map[int64]storage.ItemStats, len(ids))
	for _, id := range ids {
		wanted[id] = true
		result[id] = storage.ItemStats{}
	}

	for k := range v.st.recommendations {
		if wanted[k.itemID] {
			st := result[k.itemID]
			st.RecommendCount++
			result[k.itemID] = st
		}
	}
	for _, c := range v.st.comments {
		if wanted[c.ItemID] && !c.Deleted {
			st := result[c.ItemID]
			st.CommentCount++
			result[c.ItemID] = st
		}
	}
	for _, r := range v.st.reports {
		if r.TargetType != domain.TargetContent || !wanted[r.TargetID] {
			continue
		}
		st := result[r.TargetID]
		st.TotalReportCount++
		if r.Status != domain.ReportRejected {
			st.ReportCount++
		}
		result[r.TargetID] = st
	}
	return result, nil
}

func (v *view) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if _, ok := v.st.items[comment.ItemID]; !ok {
		return nil, storage.ErrNotFound
	}
	if comment.ParentID != nil {
		if _, ok := v.st.comments[*comment.ParentID]; !ok {
			return nil, storage.ErrNotFound
		}
	}

	v.st.nextCommentID++
	now := v.now()
	stored := *comment
	stored.ID = v.st.nextCommentID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	v.st.comments[stored.ID] = stored

	// Обновление индексов для иерархии
	if stored.ParentID == nil {
		v.st.commentsByItem[stored.ItemID] = append(v.st.commentsByItem[stored.ItemID], stored.ID)
	} else {
		v.st.commentsByParent[*stored.ParentID] = append(v.st.commentsByParent[*stored.ParentID], stored.ID)
	}

	out := stored
	return &out, nil
}

func (v *view) GetComment(ctx context.Context, id int64) (*domain.Comment, error) {
	c, ok := v.st.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (v *view) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	stored, ok := v.st.comments[comment.ID]
	if !ok {
		return storage.ErrNotFound
	}
	stored.Content = comment.Content
	stored.Deleted = comment.Deleted
	stored.UpdatedAt = v.now()
	v.st.comments[comment.ID] = stored
	comment.UpdatedAt = stored.UpdatedAt
	return nil
}

func (v *view) GetTopLevelComments(ctx context.Context, itemID int64, newestFirst bool) ([]*domain.Comment, error) {
	ids := v.st.commentsByItem[itemID]
	out := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := v.st.comments[id]; ok {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) GetRepliesByParentIDs(ctx context.Context, parentIDs []int64) (map[int64][]*domain.Comment, error) {
	results := make(map[int64][]*domain.Comment, len(parentIDs))

	for _, pID := range parentIDs {
		childIDs := v.st.commentsByParent[pID]
		children := make([]*domain.Comment, 0, len(childIDs))
		for _, cID := range childIDs {
			if c, ok := v.st.comments[cID]; ok {
				children = append(children, &c)
			}
		}
		// Важно: Dataloader'у нужны отсортированные данные для консистентности
		sort.Slice(children, func(i, j int) bool {
			if children[i].CreatedAt.Equal(children[j].CreatedAt) {
				return children[i].ID < children[j].ID
			}
			return children[i].CreatedAt.Before(children[j].CreatedAt)
		})
		results[pID] = children
	}

	return results, nil
}

func (v *view) AddRecommendation(ctx context.Context, userID string, itemID int64) error {
	if _, ok := v.st.items[itemID]; !ok {
		return storage.ErrNotFound
	}
	key := recKey{userID: userID, itemID: itemID}
	if _, ok := v.st.recommendations[key]; ok {
		return storage.ErrDuplicate
	}
	v.st.recommendations[key] = v.now()
	return nil
}

func (v *view) RemoveRecommendation(ctx context.Context, userID string, itemID int64) (bool, error) {
	key := recKey{userID: userID, itemID: itemID}
	if _, ok := v.st.recommendations[key]; !ok {
		return false, nil
	}
	delete(v.st.recommendations, key)
	return true, nil
}

func (v *view) HasRecommendation(ctx context.Context, userID string, itemID int64) (bool, error) {
	_, ok := v.st.recommendations[recKey{userID: userID, itemID: itemID}]
	return ok, nil
}

func (v *view) CountRecommendations(ctx context.Context, itemID int64) (int64, error) {
	var n int64
	for k := range v.st.recommendations {
		if k.itemID == itemID {
			n++
		}
	}
	return n, nil
}

func keyOf(r *domain.Report) pendingKey {
	return pendingKey{reporterID: r.ReporterID, targetType: r.TargetType, targetID: r.TargetID}
}

func (v *view) CreateReport(ctx context.Context, report *domain.Report) (*domain.Report, error) {
	key := keyOf(report)
	if report.Status == domain.ReportPending {
		if _, ok := v.st.pendingReports[key]; ok {
			return nil, storage.ErrDuplicate
		}
	}

	v.st.nextReportID++
	stored := *report
	stored.ID = v.st.nextReportID
	stored.CreatedAt = v.now()
	v.st.reports[stored.ID] = stored
	if stored.Status == domain.ReportPending {
		v.st.pendingReports[key] = stored.ID
	}

	out := stored
	return &out, nil
}

func (v *view) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	r, ok := v.st.reports[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (v *view) FindPendingReport(ctx context.Context, reporterID string, targetType domain.TargetType, targetID int64) (*domain.Report, error) {
	id, ok := v.st.pendingReports[pendingKey{reporterID: reporterID, targetType: targetType, targetID: targetID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v.GetReport(ctx, id)
}

func (v *view) ResolveReport(ctx context.Context, report *domain.Report) (bool, error) {
	stored, ok := v.st.reports[report.ID]
	if !ok {
		return false, storage.ErrNotFound
	}
	if stored.Status != domain.ReportPending {
		return false, nil
	}
	stored.Status = report.Status
	stored.ActionType = report.ActionType
	stored.ProcessedBy = report.ProcessedBy
	stored.ProcessNote = report.ProcessNote
	stored.ProcessedAt = report.ProcessedAt
	v.st.reports[report.ID] = stored
	delete(v.st.pendingReports, keyOf(&stored))
	return true, nil
}

func (v *view) ListReports(ctx context.Context, status domain.ReportStatus, args storage.PaginationArgs) ([]*domain.Report, int64, error) {
	matched := make([]domain.Report, 0)
	for _, r := range v.st.reports {
		if status == "" || r.Status == status {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	start, end := paginate(len(matched), args)
	out := make([]*domain.Report, 0, end-start)
	for i := start; i < end; i++ {
		r := matched[i]
		out = append(out, &r)
	}
	return out, int64(len(matched)), nil
}

// Atomic внутри транзакции работает как вложенный снимок.
func (v *view) Atomic(ctx context.Context, fn func(tx storage.Storage) error) error {
	draft := v.st.clone()
	if err := fn(&view{st: draft, now: v.now}); err != nil {
		return err
	}
	*v.st = *draft
	return nil
}

func (v *view) Ping(ctx context.Context) error { return nil }

var (
	_ storage.Storage = (*Store)(nil)
	_ storage.Storage = (*view)(nil)
)
