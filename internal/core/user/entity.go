package user

import "time"

// Role はユーザーの権限です。
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User はユーザーエンティティです。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal は認証済みの呼び出し元です。
type Principal struct {
	UserID string
	Email  string
	Roles  []Role
}

// HasRole は role を持つかを返します。
func (p *Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Token は発行済みのアクセストークンです。
type Token struct {
	Value     string
	ExpiresAt time.Time
}
