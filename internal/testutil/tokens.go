package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
)

type apiToken struct {
	id      int64
	userID  string
	label   string
	hash    string
	revoked bool
}

// TokenStore is an in-memory api_tokens table.
type TokenStore struct {
	mu     sync.Mutex
	tokens []*apiToken
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

func (s *TokenStore) UserForToken(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.hash == tokenHash && !t.revoked {
			return t.userID, nil
		}
	}
	return "", repository.ErrNotFound
}

func (s *TokenStore) Create(_ context.Context, userID, label, tokenHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.tokens) + 1)
	s.tokens = append(s.tokens, &apiToken{id: id, userID: userID, label: label, hash: tokenHash})
	return id, nil
}

func (s *TokenStore) Revoke(_ context.Context, hashPrefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.tokens {
		if !t.revoked && strings.HasPrefix(t.hash, hashPrefix) {
			t.revoked = true
			n++
		}
	}
	return n, nil
}
