// Package models holds the records persisted by the server repositories.
package models

// User is a registered account. PasswordHash is the encoded argon2id hash,
// never the password itself.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
}
