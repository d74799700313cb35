package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shuleapp/shule/core"
)

func testTokenService(secret string, delta time.Duration) *TokenService {
	conf := &core.Config{
		AppName:   "Shule",
		SecretKey: secret,
		Server:    core.ServerConfig{JWTExpirationDelta: delta},
	}
	return NewTokenService(conf)
}

func TestTokenIssueVerify(t *testing.T) {
	ts := testTokenService("s3cret", 10*time.Minute)
	acct := Account{ID: "01", Role: RoleStudent}

	token, err := ts.Issue(acct)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	assert.NotEmpty(t, token)

	claims, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	assert.Equal(t, acct.ID, claims.Subject)
	assert.Equal(t, RoleStudent, claims.Role)
	assert.Equal(t, "Shule", claims.Issuer)
}

func TestTokenVerifyRejections(t *testing.T) {
	ts := testTokenService("s3cret", 10*time.Minute)

	valid, err := ts.Issue(Account{ID: "01", Role: RoleTeacher})
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	// issued in the past, already beyond its lifetime
	expiredTs := testTokenService("s3cret", 10*time.Minute)
	expiredTs.nowFunc = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredTs.Issue(Account{ID: "01", Role: RoleTeacher})
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	otherKey, err := testTokenService("an0ther-s3cret", 10*time.Minute).Issue(Account{ID: "01"})
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", ErrInvalidToken},
		{"garbage", "not.a.token", ErrInvalidToken},
		{"tampered", valid + "x", ErrInvalidToken},
		{"wrong key", otherKey, ErrInvalidToken},
		{"expired", expired, ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ts.Verify(tt.token)
			assert.Nil(t, claims)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}
