package domain

import "time"

// Space - независимое пространство материалов (доска или блог).
type Space string

const (
	SpaceBoard Space = "BOARD"
	SpaceBlog  Space = "BLOG"
)

// Valid сообщает, известно ли пространство.
func (s Space) Valid() bool { return s == SpaceBoard || s == SpaceBlog }

// Kind - тип материала внутри пространства.
type Kind string

const (
	KindNotice Kind = "NOTICE"
	KindReview Kind = "REVIEW"
)

func (k Kind) Valid() bool { return k == KindNotice || k == KindReview }

// ContentItem представляет пост доски или блога.
type ContentItem struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Space          Space     `json:"space" gorm:"type:varchar(16);not null;index"`
	Kind           Kind      `json:"kind" gorm:"type:varchar(16);not null;index"`
	Title          string    `json:"title" gorm:"type:varchar(255);not null"`
	Body           string    `json:"body" gorm:"type:text;not null"`
	BodyText       string    `json:"-" gorm:"type:text;not null;default:''"` // извлечённый текст для поиска
	AuthorID       string    `json:"authorId" gorm:"type:varchar(255);not null;index"`
	AuthorNickname string    `json:"authorNickname" gorm:"type:varchar(255);not null"`
	Hidden         bool      `json:"hidden" gorm:"not null;default:false"`
	Pinned         bool      `json:"pinned" gorm:"not null;default:false"`
	ViewCount      int64     `json:"viewCount" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"not null"`

	// Производные поля, всегда пересчитываются из строк хранилища.
	RecommendCount   int64 `json:"recommendCount" gorm:"-"`
	CommentCount     int64 `json:"commentCount" gorm:"-"`
	ReportCount      int64 `json:"reportCount" gorm:"-"`      // жалобы со статусом != REJECTED
	TotalReportCount int64 `json:"totalReportCount" gorm:"-"` // все жалобы за всё время
	Recommended      *bool `json:"recommended,omitempty" gorm:"-"`
}

func (ContentItem) TableName() string { return "content_items" }

// OwnerID реализует Owned.
func (c *ContentItem) OwnerID() string { return c.AuthorID }

// DeletedCommentPlaceholder заменяет текст мягко удалённого комментария.
const DeletedCommentPlaceholder = "삭제된 댓글입니다."

// Comment представляет комментарий к материалу. Вложенность ограничена одним уровнем.
type Comment struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ItemID         int64     `json:"itemId" gorm:"not null;index"`
	ParentID       *int64    `json:"parentId,omitempty" gorm:"index"`
	AuthorID       string    `json:"authorId" gorm:"type:varchar(255);not null"`
	AuthorNickname string    `json:"authorNickname" gorm:"type:varchar(255);not null"`
	Content        string    `json:"content" gorm:"type:varchar(2000);not null"`
	Deleted        bool      `json:"deleted" gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"not null"`
}

func (c *Comment) OwnerID() string { return c.AuthorID }

// IsReply сообщает, является ли комментарий ответом.
func (c *Comment) IsReply() bool { return c.ParentID != nil }

// CommentThread - комментарий верхнего уровня со своими ответами.
type CommentThread struct {
	*Comment
	Replies []*Comment `json:"replies"`
}

// CommentSort задаёт порядок комментариев верхнего уровня.
type CommentSort string

const (
	SortCreated CommentSort = "CREATED"
	SortLatest  CommentSort = "LATEST"
)

// Recommendation - рекомендация пользователя; не больше одной на пару (пользователь, материал).
type Recommendation struct {
	UserID    string    `json:"userId" gorm:"type:varchar(255);primaryKey"`
	ItemID    int64     `json:"itemId" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

// RecommendState - авторитетное состояние после переключения.
type RecommendState struct {
	Recommended    bool  `json:"recommended"`
	RecommendCount int64 `json:"recommendCount"`
}

type TargetType string

const (
	TargetContent TargetType = "CONTENT"
	TargetComment TargetType = "COMMENT"
)

func (t TargetType) Valid() bool { return t == TargetContent || t == TargetComment }

type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportAccepted ReportStatus = "ACCEPTED"
	ReportRejected ReportStatus = "REJECTED"
)

func (s ReportStatus) Valid() bool {
	return s == ReportPending || s == ReportAccepted || s == ReportRejected
}

// Terminal сообщает, что из статуса больше нет переходов.
func (s ReportStatus) Terminal() bool { return s == ReportAccepted || s == ReportRejected }

type ActionType string

const (
	ActionHideContent   ActionType = "HIDE_CONTENT"
	ActionDeleteComment ActionType = "DELETE_COMMENT"
)

// Applies сообщает, допустимо ли действие для типа цели.
func (a ActionType) Applies(t TargetType) bool {
	return (a == ActionHideContent && t == TargetContent) || (a == ActionDeleteComment && t == TargetComment)
}

// Report - жалоба пользователя на материал или комментарий.
// Уникальный частичный индекс не даёт одному автору держать две PENDING жалобы на одну цель.
type Report struct {
	ID          int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	TargetType  TargetType   `json:"targetType" gorm:"type:varchar(16);not null;uniqueIndex:idx_reports_pending,where:status = 'PENDING'"`
	TargetID    int64        `json:"targetId" gorm:"not null;index;uniqueIndex:idx_reports_pending,where:status = 'PENDING'"`
	ItemID      int64        `json:"itemId" gorm:"not null;index"` // материал, которому принадлежит цель
	ReporterID  string       `json:"reporterId" gorm:"type:varchar(255);not null;uniqueIndex:idx_reports_pending,where:status = 'PENDING'"`
	Reason      string       `json:"reason" gorm:"type:varchar(500);not null"`
	Status      ReportStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	ActionType  *ActionType  `json:"actionType,omitempty" gorm:"type:varchar(32)"`
	ProcessedBy *string      `json:"processedBy,omitempty" gorm:"type:varchar(255)"`
	ProcessNote *string      `json:"processNote,omitempty" gorm:"type:text"`
	CreatedAt   time.Time    `json:"createdAt" gorm:"not null"`
	ProcessedAt *time.Time   `json:"processedAt,omitempty"`
}

// SearchType определяет, по какому полю ищется ключевое слово.
type SearchType string

const (
	SearchTitle        SearchType = "TITLE"
	SearchContent      SearchType = "CONTENT"
	SearchAuthor       SearchType = "AUTHOR"
	SearchComment      SearchType = "COMMENT"
	SearchTitleContent SearchType = "TITLE_CONTENT"
)

func (s SearchType) Valid() bool {
	switch s {
	case SearchTitle, SearchContent, SearchAuthor, SearchComment, SearchTitleContent:
		return true
	}
	return false
}
