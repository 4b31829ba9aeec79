// Package credentials checks presented secrets against stored bcrypt
// hashes. It is the leaf collaborator of the login flow: it never sees
// users or tenants, only a plaintext and a hash.
package credentials

import (
	"golang.org/x/crypto/bcrypt"
)

// Verifier compares a presented secret against a stored hash.
type Verifier interface {
	Verify(plain, storedHash string) bool
}

// BcryptVerifier implements Verifier with bcrypt comparison.
type BcryptVerifier struct {
	cost int
}

// NewBcryptVerifier creates a verifier. Cost is used only for Hash;
// verification reads the cost embedded in the stored hash.
func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

// Verify reports whether plain matches the stored bcrypt hash.
func (v *BcryptVerifier) Verify(plain, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plain)) == nil
}

// Hash produces a bcrypt hash of the given secret for provisioning flows.
func (v *BcryptVerifier) Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), v.cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// dummyHash is a valid bcrypt hash of an unguessable value. Comparing
// against it when the username does not exist keeps login latency
// indistinguishable from the wrong-password case, so responses cannot be
// used to enumerate accounts.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// VerifyDummy burns a bcrypt comparison without granting access.
// Always returns false.
func (v *BcryptVerifier) VerifyDummy(plain string) bool {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
	return false
}
