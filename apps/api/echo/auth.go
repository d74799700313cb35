package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/account"
)

const (
	claimsContextKey  = "accountToken"
	accountContextKey = "account"
)

// jwtMiddleware verifies the bearer token's signature and expiry and stashes
// the parsed claims on the request context.
func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    claimsContextKey,
		Claims:        new(account.Claims),
	})
}

func getContextClaims(ctx echo.Context) (account.Claims, error) {
	if token, ok := ctx.Get(claimsContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*account.Claims); ok {
			return *claims, nil
		}
	}
	return account.Claims{}, errUnauthorized
}

// getContextAccount resolves the authenticated account, loading it from the
// store on first use. A token whose account no longer exists is rejected,
// which makes deletion an immediate revocation.
func getContextAccount(ctx echo.Context, svc *account.Service, clms ...account.Claims) (account.Account, error) {
	if acct, ok := ctx.Get(accountContextKey).(account.Account); ok {
		return acct, nil
	}

	var claims account.Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return account.Account{}, errors.Wrap(err, "getting context claims")
		}
	}

	acct, err := svc.GetByID(ctx.Request().Context(), claims.Role, claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return account.Account{}, errUnauthorized
		}
		return account.Account{}, errors.Wrap(err, "finding account by ID")
	}
	ctx.Set(accountContextKey, acct)
	return acct, nil
}
