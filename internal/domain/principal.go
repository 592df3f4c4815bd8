package domain

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Principal - текущий пользователь, полученный от коллаборатора аутентификации.
type Principal struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Role     Role   `json:"role"`
}

// System - исполнитель модерационных действий по жалобам.
var System = &Principal{UserID: "SYSTEM", Nickname: "system", Role: RoleAdmin}

func (p *Principal) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

// Owned - ресурс с автором.
type Owned interface {
	OwnerID() string
}

// CanModify - единственная проверка прав автора или администратора.
func CanModify(p *Principal, r Owned) bool {
	if p == nil || r == nil {
		return false
	}
	return p.IsAdmin() || (p.UserID != "" && p.UserID == r.OwnerID())
}

// IsOwner сообщает, что принципал - автор ресурса (без учёта роли).
func IsOwner(p *Principal, r Owned) bool {
	return p != nil && r != nil && p.UserID != "" && p.UserID == r.OwnerID()
}
