package user

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// SHA256Hasher stores the unsalted hex SHA-256 digest of the password, the
// format of existing credential files.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(pw string) (string, error) {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:]), nil
}

func (h SHA256Hasher) Verify(hash, pw string) bool {
	want, _ := h.Hash(pw)
	return ConstantTimeCompare(strings.ToLower(hash), want)
}

func (SHA256Hasher) NeedsRehash(string) bool { return false }

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NeedsRehash is true for digests from another scheme or another cost.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	if !isBcrypt(hash) {
		return true
	}
	c, err := bcrypt.Cost([]byte(hash))
	return err != nil || c != b.cost()
}

// NewHasher returns the hasher named by the users.hasher setting.
func NewHasher(name string, cost int) PasswordHasher {
	if strings.EqualFold(name, "bcrypt") {
		return BcryptHasher{Cost: cost}
	}
	return SHA256Hasher{}
}

// verify checks pw against a stored digest of either scheme.
func verify(hash, pw string) bool {
	if isBcrypt(hash) {
		return BcryptHasher{}.Verify(hash, pw)
	}
	return SHA256Hasher{}.Verify(hash, pw)
}

func isBcrypt(hash string) bool { return strings.HasPrefix(hash, "$2") }

// ConstantTimeCompare helper.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
