// Package auth holds the credential primitives: bcrypt password hashing,
// signed session tokens, the Google authorization-code client and the
// id_token verifier. Nothing here touches storage.
//
// PASSWORD DIGESTS:
// A stored digest is the full output of bcrypt.GenerateFromPassword:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 iterations)
//	 version
//
// Salt and cost travel inside the digest, so the users table needs no
// extra columns.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the production bcrypt work factor (~250ms per hash).
const defaultCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer input is silently
// truncated by the algorithm, so Hash rejects it instead.
const maxPasswordBytes = 72

var (
	// ErrNoPassword means the account has no digest at all: it was created
	// through the identity provider and can only sign in there.
	ErrNoPassword = errors.New("auth: account has no password")

	// ErrPasswordMismatch means the digest exists and the password is wrong.
	ErrPasswordMismatch = errors.New("auth: invalid password")
)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected: tests use
// 4, the bcrypt minimum, to stay fast.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Use 4 in tests in other packages. Never in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns a salted bcrypt digest of plaintext.
//
// Returns an error if the plaintext is longer than 72 bytes.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks plaintext against a stored digest.
//
// The three outcomes callers care about are distinguishable:
//
//	nil                  → match
//	ErrNoPassword        → hash is empty (identity-provider-only account)
//	ErrPasswordMismatch  → wrong password
//
// Any other error means the stored digest is corrupt.
//
// bcrypt.CompareHashAndPassword compares in constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrNoPassword
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
