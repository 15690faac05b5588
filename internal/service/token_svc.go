package service

import (
	"context"
	"errors"
	"strings"

	"github.com/LabMasd/craftorcrap-sub000/pkg/hash"
)

// APITokenPrefix marks extension API tokens so they are recognizable in
// config files and bug reports.
const APITokenPrefix = "coc_"

// minRevokePrefix keeps a revoke from matching more tokens than intended.
const minRevokePrefix = 8

var ErrInvalidRevokePrefix = errors.New("token hash prefix must be at least 8 hex characters")

type TokenStore interface {
	Create(ctx context.Context, userID, label, tokenHash string) (int64, error)
	Revoke(ctx context.Context, hashPrefix string) (int64, error)
}

// IssuedToken is returned once at issue time; only Hash is persisted.
type IssuedToken struct {
	ID    int64
	Token string
	Hash  string
}

// TokenService issues and revokes extension API tokens.
type TokenService struct {
	store TokenStore
}

func NewTokenService(store TokenStore) *TokenService {
	return &TokenService{store: store}
}

// Issue creates a new API token for userID.
func (s *TokenService) Issue(ctx context.Context, userID, label string) (*IssuedToken, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	raw, err := hash.NewToken(32)
	if err != nil {
		return nil, err
	}
	token := APITokenPrefix + raw
	tokenHash := hash.SHA256Hex(token)

	id, err := s.store.Create(ctx, userID, strings.TrimSpace(label), tokenHash)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{ID: id, Token: token, Hash: tokenHash}, nil
}

// Revoke revokes tokens by full token, full hash or hash prefix.
func (s *TokenService) Revoke(ctx context.Context, tokenOrHash string) (int64, error) {
	v := strings.TrimSpace(tokenOrHash)
	if strings.HasPrefix(v, APITokenPrefix) {
		v = hash.SHA256Hex(v)
	}
	v = strings.ToLower(v)
	if len(v) < minRevokePrefix || strings.Trim(v, "0123456789abcdef") != "" {
		return 0, ErrInvalidRevokePrefix
	}
	return s.store.Revoke(ctx, v)
}
