package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminGate guards the ops endpoints with a basic-auth credential pair.
// An empty password leaves the gate disabled and every check fails.
type AdminGate struct {
	user string
	hash []byte
}

// NewAdminGate hashes the password once up front. Pass an empty
// password to run with the ops endpoints locked.
func NewAdminGate(user, password string) (*AdminGate, error) {
	if password == "" {
		return &AdminGate{user: user}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &AdminGate{user: user, hash: hash}, nil
}

// Enabled reports whether credentials were configured.
func (g *AdminGate) Enabled() bool {
	return len(g.hash) > 0
}

// Check validates a basic-auth pair. Both comparisons always run so the
// response time does not reveal which half was wrong.
func (g *AdminGate) Check(user, password string) bool {
	if !g.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(g.user)) == 1
	passOK := bcrypt.CompareHashAndPassword(g.hash, []byte(password)) == nil
	return userOK && passOK
}
