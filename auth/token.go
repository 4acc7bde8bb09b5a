// Package auth issues the JWTs that identify an account to the API and
// keeps track of the refresh tokens that are still valid.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are carried by both token kinds. Kind keeps a refresh token from
// being accepted as an access token and the other way round.
type Claims struct {
	AccountID uint   `json:"account_id"`
	Kind      string `json:"kind"`
	jwt.RegisteredClaims
}

// Pair is what a successful login or refresh returns.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Issue signs a new access and refresh token for the account.
func (i *Issuer) Issue(accountID uint) (Pair, error) {
	access, err := i.sign(accountID, kindAccess, AccessTokenTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("error generating token: %w", err)
	}
	refresh, err := i.sign(accountID, kindRefresh, RefreshTokenTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("error generating refresh token: %w", err)
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) sign(accountID uint, kind string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		AccountID: accountID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// Two tokens issued in the same second must still differ.
			ID: uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ParseAccess validates an access token and returns its account id.
func (i *Issuer) ParseAccess(token string) (uint, error) {
	return i.parse(token, kindAccess)
}

// ParseRefresh validates a refresh token and returns its account id. The
// caller still has to check that the token has not been revoked.
func (i *Issuer) ParseRefresh(token string) (uint, error) {
	return i.parse(token, kindRefresh)
}

func (i *Issuer) parse(tokenString, kind string) (uint, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Kind != kind || claims.AccountID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.AccountID, nil
}
