package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/uhyunpark/limitbook/pkg/util"
)

func TestUserStore_Login(t *testing.T) {
	s := NewUserStore()
	if err := s.AddAdmin("admin", "s3cret"); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid", username: "admin", password: "s3cret"},
		{name: "wrong password", username: "admin", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "bob", password: "s3cret", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := s.Login(tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && u.Username != tt.username {
				t.Errorf("Login() user = %v", u)
			}
		})
	}
}

func TestUser_StringHidesSecrets(t *testing.T) {
	u := User{Username: "admin", PasswordHash: []byte("hash")}
	if s := u.String(); s == "" || strings.Contains(s, "admin") || strings.Contains(s, "hash") {
		t.Errorf("String() leaks credentials: %s", s)
	}
}

func TestTokenIssuer(t *testing.T) {
	clock := util.NewManualClock(time.Now())
	ti := NewTokenIssuer("test-secret", time.Hour, clock)

	tok, err := ti.Generate("validUser")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !ti.Validate(tok) {
		t.Fatalf("fresh token rejected")
	}
	name, err := ti.Username(tok)
	if err != nil || name != "validUser" {
		t.Errorf("Username() = %q, %v", name, err)
	}

	if ti.Validate("invalidToken") {
		t.Errorf("garbage token accepted")
	}
	if _, err := ti.Username("invalidToken"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Username(garbage) error = %v, want ErrInvalidToken", err)
	}

	other := NewTokenIssuer("other-secret", time.Hour, clock)
	if other.Validate(tok) {
		t.Errorf("token accepted under a different secret")
	}

	clock.Advance(2 * time.Hour)
	if ti.Validate(tok) {
		t.Errorf("expired token accepted")
	}

	if empty, err := ti.Generate(""); err != nil || empty == "" {
		t.Errorf("Generate(\"\") = %q, %v", empty, err)
	}
}
