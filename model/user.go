package model

import "time"

// Role is the authorization level attached to an account. Privileged access
// is decided by this field only, never by comparing against a literal
// credential such as an email address.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

/*

User is one registered account row in the "users" collection.

Id: primary key, the canonical ownership key for likes, saves and comments.
Email is a mutable credential and must never be used as an ownership key.
PasswordHash: argon2id encoded hash, never the raw credential.

*/

type User struct {
	Id           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	Email        string `gorm:"uniqueIndex"`
	FullName     string
	Role         Role
	PasswordHash string
}

func (User) TableName() string {
	return "users"
}

// Identity is the read-only snapshot of the signed-in principal that the
// session manager hands to downstream consumers. Only the session manager
// writes it, everyone else treats it as immutable.
type Identity struct {
	Id       string
	FullName string
	Email    string
	Role     Role
}

// IsAdmin is nil-safe so callers can gate on a possibly absent identity.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// IdentityOf builds the principal snapshot from an account row.
func IdentityOf(u *User) *Identity {
	if u == nil {
		return nil
	}
	return &Identity{
		Id:       u.Id,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
	}
}
