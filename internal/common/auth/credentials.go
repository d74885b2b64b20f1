// internal/common/auth/credentials.go
package auth

import (
	"fmt"
	"strings"

	"agritrust-workers/internal/common/config"
	"agritrust-workers/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator resolves a username/password pair to a user.
type Authenticator interface {
	Authenticate(username, password string) (*models.User, bool)
}

type credential struct {
	user models.User
	hash []byte
}

// CredentialTable is an in-memory lookup built from configuration. Usernames
// are matched case-insensitively after trimming.
type CredentialTable struct {
	users map[string]credential
	dummy []byte
}

func NewCredentialTable(users []config.UserConfig) (*CredentialTable, error) {
	t := &CredentialTable{users: make(map[string]credential, len(users))}

	for _, u := range users {
		key := normalizeUsername(u.Username)
		if key == "" {
			return nil, fmt.Errorf("credential table: empty username")
		}
		if _, dup := t.users[key]; dup {
			return nil, fmt.Errorf("credential table: duplicate username %q", key)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("credential table: user %q has an invalid bcrypt hash: %w", key, err)
		}

		display := u.DisplayName
		if display == "" {
			display = key
		}
		t.users[key] = credential{
			user: models.User{
				Username:    key,
				DisplayName: display,
				Role:        models.Role(u.Role),
				Branch:      u.Branch,
			},
			hash: []byte(u.PasswordHash),
		}
	}

	// compared against for unknown users so both paths cost one bcrypt check
	dummy, err := bcrypt.GenerateFromPassword([]byte("agritrust-unknown-user"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	t.dummy = dummy
	return t, nil
}

func (t *CredentialTable) Authenticate(username, password string) (*models.User, bool) {
	cred, ok := t.users[normalizeUsername(username)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(t.dummy, []byte(password))
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword(cred.hash, []byte(password)); err != nil {
		return nil, false
	}
	u := cred.user
	return &u, true
}

func (t *CredentialTable) Len() int {
	return len(t.users)
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HashPassword is used by tooling that writes auth.users entries.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
