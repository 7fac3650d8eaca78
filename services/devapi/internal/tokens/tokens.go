package tokens

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/unisocial/internal/platform/auth"
)

var ErrRefreshWindowClosed = errors.New("token too old to refresh")

type Service struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	// RefreshWindow is how long after expiry a token may still be traded
	// for a new one.
	RefreshWindow time.Duration
}

func (s Service) Verifier() auth.JWTVerifier {
	return auth.JWTVerifier{Secret: s.Secret}
}

func (s Service) NewAccessToken(userID, username string, now time.Time) (string, time.Time, error) {
	if len(s.Secret) == 0 {
		return "", time.Time{}, errors.New("missing jwt secret")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	exp := now.Add(s.AccessTokenTTL)

	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s Service) ParseAccessToken(tokenString string) (*auth.Claims, error) {
	return s.Verifier().Parse(tokenString)
}

// ParseForRefresh checks the signature of a possibly expired token and
// accepts it while now is within RefreshWindow of its expiry.
func (s Service) ParseForRefresh(tokenString string, now time.Time) (*auth.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &auth.Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*auth.Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	if claims.ExpiresAt != nil && now.After(claims.ExpiresAt.Add(s.RefreshWindow)) {
		return nil, ErrRefreshWindowClosed
	}
	return claims, nil
}
