package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
	"github.com/LabMasd/craftorcrap-sub000/pkg/hash"
)

// ErrInvalidCredentials is returned by an Authenticator that does not
// accept the presented token.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator turns a bearer token into a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Chain tries each Authenticator in order; the first that accepts wins.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, token string) (string, error) {
	for _, a := range c {
		userID, err := a.Authenticate(ctx, token)
		if err == nil {
			return userID, nil
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			return "", err
		}
	}
	return "", ErrInvalidCredentials
}

// JWTAuthenticator accepts HS256 session tokens issued by the identity
// provider. The subject claim is the user id.
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

// NewJWTAuthenticator creates a JWTAuthenticator. An empty issuer skips the
// issuer check.
func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrInvalidCredentials
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidCredentials
	}
	return claims.Subject, nil
}

// TokenStore looks up the owner of an extension API token by its hash.
type TokenStore interface {
	UserForToken(ctx context.Context, tokenHash string) (string, error)
}

// APITokenAuthenticator accepts long-lived extension tokens. Only the
// SHA-256 hash of a token is ever stored.
type APITokenAuthenticator struct {
	store TokenStore
}

func NewAPITokenAuthenticator(store TokenStore) *APITokenAuthenticator {
	return &APITokenAuthenticator{store: store}
}

func (a *APITokenAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := a.store.UserForToken(ctx, hash.SHA256Hex(token))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup api token: %w", err)
	}
	return userID, nil
}
