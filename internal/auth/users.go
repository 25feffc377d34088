// Package auth holds the built-in user directory, session tokens and the
// middleware that turns a token into a request identity.
package auth

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type account struct {
	User
	hash []byte
}

// Credential is a plaintext account definition, hashed when the directory
// is built.
type Credential struct {
	Username string
	Password string
	Role     string
}

// DemoCredentials are the accounts a fresh installation ships with.
func DemoCredentials() []Credential {
	return []Credential{
		{Username: "user", Password: "user123", Role: RoleUser},
		{Username: "admin", Password: "admin123", Role: RoleAdmin},
	}
}

// Directory is an immutable set of accounts.
type Directory struct {
	accounts map[string]account
}

func NewDirectory(creds []Credential, cost int) (*Directory, error) {
	d := &Directory{accounts: make(map[string]account, len(creds))}
	for _, c := range creds {
		if c.Username == "" {
			return nil, errors.New("auth: empty username")
		}
		if c.Role != RoleUser && c.Role != RoleAdmin {
			return nil, fmt.Errorf("auth: %s: unknown role %q", c.Username, c.Role)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("auth: hash %s: %w", c.Username, err)
		}
		d.accounts[c.Username] = account{User: User{Username: c.Username, Role: c.Role}, hash: hash}
	}
	return d, nil
}

// Authenticate checks the password. Unknown users and wrong passwords give
// the same error.
func (d *Directory) Authenticate(username, password string) (User, error) {
	acc, ok := d.accounts[username]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return acc.User, nil
}

// CountRole is the number of accounts with the given role.
func (d *Directory) CountRole(role string) int {
	n := 0
	for _, acc := range d.accounts {
		if acc.Role == role {
			n++
		}
	}
	return n
}

func (d *Directory) Users() []User {
	out := make([]User, 0, len(d.accounts))
	for _, acc := range d.accounts {
		out = append(out, acc.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
