package fakebackend

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-contest-portal/backend"
	"github.com/pkg/errors"
)

// Role of a signed in user. Higher roles include the lower ones.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleJudge  Role = "judge"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleJudge:  2,
	RoleAdmin:  3,
}

// Includes reports whether r grants at least the privileges of other.
func (r Role) Includes(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"` // never serialize
	Blocked      bool      `json:"blocked,omitempty"`
	LastLogin    time.Time `json:"lastLogin,omitempty"`
}

func (u *User) profile() backend.User {
	return backend.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}
}

// AddUser creates or replaces the user with the given email.
func (b *Backend) AddUser(email, password, name string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("[Backend.AddUser] email and password are required")
	}
	if _, ok := roleRank[role]; !ok {
		return nil, errors.Errorf("[Backend.AddUser] unknown role %q", role)
	}
	hash, err := b.hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Backend.AddUser] hash password")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u := &User{Email: email, Name: name, Role: role, PasswordHash: hash}
	if existing, ok := b.users[email]; ok {
		u.ID = existing.ID
	} else {
		u.ID = uuid.New().String()
	}
	b.users[email] = u
	b.userIDs[u.ID] = email
	return u, nil
}

// SetBlocked stops a user from signing in. Tokens already issued stay valid until they expire.
func (b *Backend) SetBlocked(email string, blocked bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[strings.ToLower(email)]
	if !ok {
		return errors.Errorf("[Backend.SetBlocked] user %q not found", email)
	}
	u.Blocked = blocked
	return nil
}

// SignIn is the password grant.
func (b *Backend) SignIn(req backend.SignInRequest) (*backend.TokenResponse, *backend.Error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	b.mu.Lock()
	u, ok := b.users[email]
	if !ok || !checkHash(req.Password, u.PasswordHash) {
		b.mu.Unlock()
		return nil, &backend.Error{Status: http.StatusBadRequest, Code: "invalid_grant", Message: "Invalid login credentials"}
	}
	if u.Blocked {
		b.mu.Unlock()
		return nil, &backend.Error{Status: http.StatusBadRequest, Code: "user_banned", Message: "User is banned"}
	}
	u.LastLogin = b.clock.Now()
	profile := u.profile()
	b.mu.Unlock()

	token, err := b.issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, &backend.Error{Status: http.StatusInternalServerError, Message: err.Error()}
	}
	return &backend.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(b.tokenTTL / time.Second),
		User:        profile,
	}, nil
}
