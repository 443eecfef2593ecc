// Password hashing utilities.
//
// WHY BCRYPT?
// bcrypt is a password hashing function designed to be slow. That slowness
// is a security feature: it makes brute-force attacks expensive. bcrypt
// also generates and embeds a random salt automatically, so two users with
// the same password get different hashes and no separate salt column is
// needed.
//
// NEVER store passwords in plain text or with fast hashes (MD5, SHA-256) —
// those fall to GPU rigs in minutes. bcrypt with cost 12 takes ~250ms per
// attempt: negligible for a login, brutal for an attacker.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Cost 12 takes roughly ~250ms on a
// modern server; tune so hashing stays in the 200–300ms range on your
// production hardware.
const defaultCost = 12

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected: tests use
// cost 4 (the bcrypt minimum) to run in milliseconds without changing the
// logic under test.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom cost.
// Use bcrypt.MinCost (4) in tests; never in production.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// The output is self-contained (version, cost, salt, digest) — store it
// directly; Verify knows how to decode it.
//
// bcrypt silently truncates inputs past 72 bytes, so longer passwords are
// rejected explicitly rather than surprising the caller.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored bcrypt hash.
//
// It returns false for a wrong password AND for a malformed stored hash —
// a corrupted database row must read as "wrong password", never as a panic
// or a pass. bcrypt.CompareHashAndPassword compares in constant time, so
// response timing leaks nothing about how close a guess was.
func (p *PasswordService) Verify(hash, plaintext string) bool {
	// A malformed stored hash errors just like a mismatch, and both read as
	// "wrong password" — a corrupted row must never pass or panic.
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
