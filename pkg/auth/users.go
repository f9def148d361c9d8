package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// User is a venue operator able to place orders. PasswordHash is bcrypt.
type User struct {
	FirstName    string
	LastName     string
	Email        string
	Username     string
	PasswordHash []byte
}

func (u User) String() string {
	return fmt.Sprintf("User{firstName=%q, lastName=%q, email=%q, username=*****}", u.FirstName, u.LastName, u.Email)
}

// UserStore holds users in memory.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]User // username -> user
	cost  int
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]User), cost: bcrypt.DefaultCost}
}

// Add hashes password and stores the user, replacing any user of the same name.
func (s *UserStore) Add(u User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", u.Username, err)
	}
	u.PasswordHash = hash

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
	return nil
}

// AddAdmin registers the system administrator.
func (s *UserStore) AddAdmin(username, password string) error {
	return s.Add(User{
		FirstName: "Administrator",
		LastName:  "Administrator",
		Email:     "admin@limitbook.local",
		Username:  username,
	}, password)
}

// Login checks the password against the stored hash.
func (s *UserStore) Login(username, password string) (User, error) {
	s.mu.RLock()
	u, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
