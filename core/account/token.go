package account

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/shuleapp/shule/core"
)

var (
	// errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims represents the authorization claims transmitted via a JWT.
// Subject carries the account identity; Role is embedded so routes can be
// gated without a store lookup.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role,omitempty"`
}

// TokenService issues and verifies the signed bearer tokens binding an
// account identity to its role. Rotating the signing key invalidates all
// outstanding tokens; there is no refresh mechanism.
type TokenService struct {
	issuer          string
	secretKey       []byte
	expirationDelta time.Duration

	nowFunc func() time.Time // mockable
}

func NewTokenService(conf *core.Config) *TokenService {
	return &TokenService{
		issuer:          conf.AppName,
		secretKey:       []byte(conf.SecretKey),
		expirationDelta: conf.Server.JWTExpirationDelta,
		nowFunc:         time.Now,
	}
}

// Issue generates a signed token string for the given account.
func (ts *TokenService) Issue(acct Account) (string, error) {
	now := ts.nowFunc()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ts.issuer,
			Subject:   acct.ID,
			ExpiresAt: now.Add(ts.expirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role: acct.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secretKey)
}

// Verify checks the signature and expiry of a token string and returns its claims.
func (ts *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return ts.secretKey, nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
