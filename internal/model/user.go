// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — plain values with no behaviour
// attached beyond small helper methods. Go favours composition over inheritance.
package model

import "time"

// Privilege is the coarse, account-wide role of a user.
//
// PRIVILEGE vs RESOURCE ROLE:
// Privilege ("user"/"admin") applies to the whole account — admins can manage
// other accounts. A resource Role ("viewer"/"editor"/"owner") is scoped to one
// specific project, task or idea. The two are deliberately separate concepts:
// an admin is not automatically an owner of anything.
type Privilege string

const (
	PrivilegeUser  Privilege = "user"
	PrivilegeAdmin Privilege = "admin"
)

// User represents a registered account.
//
// WHY ID int64?
// User IDs are assigned by SQLite's INTEGER PRIMARY KEY (an auto-incrementing
// rowid). int64 matches what database/sql returns from LastInsertId.
//
// PasswordHash holds the bcrypt output and is NEVER serialized to JSON —
// the `json:"-"` tag excludes it from every API response.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Privileges   Privilege `json:"privileges"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the account-wide admin privilege.
func (u *User) IsAdmin() bool {
	return u.Privileges == PrivilegeAdmin
}
