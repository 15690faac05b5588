// Package identity decides who is casting a vote. A voter is either an
// authenticated user or an anonymous caller identified by a client-supplied
// opaque value (a browser fingerprint on the feed, a voter token on boards).
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind tells which column of the vote tables carries the identity.
type Kind string

const (
	KindUser        Kind = "user"
	KindFingerprint Kind = "fingerprint"
	KindVoterToken  Kind = "voter_token"
)

// UnknownIP is recorded when no client address can be derived.
const UnknownIP = "unknown"

var (
	ErrAuthRequired                = errors.New("authentication required")
	ErrVoterIdentificationRequired = errors.New("voter token required for anonymous board votes")
	ErrFingerprintRequired         = errors.New("fingerprint required for anonymous votes")
	ErrInvalidFingerprint          = errors.New("fingerprint must be 1-128 printable characters")
	ErrInvalidVoterToken           = errors.New("voter token must be 8-128 characters of [A-Za-z0-9_-]")
)

var voterTokenRe = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Identity is the resolved voter. Exactly one of UserID, Fingerprint and
// VoterToken is set, matching Kind. IP is always populated.
type Identity struct {
	Kind        Kind
	UserID      string
	Fingerprint string
	VoterToken  string
	IP          string
}

// Anonymous reports whether the voter is not an authenticated user.
func (id Identity) Anonymous() bool {
	return id.Kind != KindUser
}

// Value returns the identifying value for the identity's kind.
func (id Identity) Value() string {
	switch id.Kind {
	case KindUser:
		return id.UserID
	case KindFingerprint:
		return id.Fingerprint
	case KindVoterToken:
		return id.VoterToken
	}
	return ""
}

// Key returns a stable "kind:value" string, e.g. for logs and locks.
func (id Identity) Key() string {
	return string(id.Kind) + ":" + id.Value()
}

// Request carries the caller-supplied inputs relevant to identity.
type Request struct {
	Authorization string
	ForwardedFor  string
	RealIP        string
	Fingerprint   string
	VoterToken    string
}

// FromHeaders builds a Request from a header getter such as fiber's Ctx.Get.
// Values are copied: fiber reuses the request buffer once the handler
// returns, and voter IPs outlive the request in the ledger.
func FromHeaders(get func(key string, defaultValue ...string) string) Request {
	return Request{
		Authorization: strings.Clone(get("Authorization")),
		ForwardedFor:  strings.Clone(get("X-Forwarded-For")),
		RealIP:        strings.Clone(get("X-Real-IP")),
	}
}

// IP returns the request's client address.
func (r Request) IP() string {
	return ClientIP(r.ForwardedFor, r.RealIP)
}

// ClientIP derives the client address: the first hop of X-Forwarded-For,
// then X-Real-IP, then UnknownIP.
func ClientIP(forwardedFor, realIP string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP = strings.TrimSpace(realIP); realIP != "" {
		return realIP
	}
	return UnknownIP
}

// BearerToken extracts the credential from an "Authorization: Bearer" value.
func BearerToken(authorization string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Resolver maps request inputs to an Identity for each voting surface.
type Resolver struct {
	auth Authenticator
}

// NewResolver creates a Resolver. A nil Authenticator treats every caller
// as anonymous.
func NewResolver(auth Authenticator) *Resolver {
	return &Resolver{auth: auth}
}

// User returns the authenticated user id, or "" when the request carries no
// valid credential. Only store failures are returned as errors.
func (r *Resolver) User(ctx context.Context, req Request) (string, error) {
	token := BearerToken(req.Authorization)
	if token == "" || r.auth == nil {
		return "", nil
	}
	userID, err := r.auth.Authenticate(ctx, token)
	if errors.Is(err, ErrInvalidCredentials) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	return userID, nil
}

// ForFeed resolves a public feed voter: the user when authenticated,
// otherwise the fingerprint plus client IP.
func (r *Resolver) ForFeed(ctx context.Context, req Request) (Identity, error) {
	ip := req.IP()
	userID, err := r.User(ctx, req)
	if err != nil {
		return Identity{}, err
	}
	if userID != "" {
		return Identity{Kind: KindUser, UserID: userID, IP: ip}, nil
	}

	fp := strings.TrimSpace(req.Fingerprint)
	if fp == "" {
		return Identity{}, ErrFingerprintRequired
	}
	if !validFingerprint(fp) {
		return Identity{}, ErrInvalidFingerprint
	}
	return Identity{Kind: KindFingerprint, Fingerprint: fp, IP: ip}, nil
}

// ForExtension resolves an extension voter. A valid bearer credential is
// mandatory.
func (r *Resolver) ForExtension(ctx context.Context, req Request) (Identity, error) {
	userID, err := r.User(ctx, req)
	if err != nil {
		return Identity{}, err
	}
	if userID == "" {
		return Identity{}, ErrAuthRequired
	}
	return Identity{Kind: KindUser, UserID: userID, IP: req.IP()}, nil
}

// ForBoard resolves a board voter. Anonymous callers need the board to allow
// anonymous votes and must present a voter token.
func (r *Resolver) ForBoard(ctx context.Context, req Request, allowAnonymous bool) (Identity, error) {
	ip := req.IP()
	userID, err := r.User(ctx, req)
	if err != nil {
		return Identity{}, err
	}
	if userID != "" {
		return Identity{Kind: KindUser, UserID: userID, IP: ip}, nil
	}
	if !allowAnonymous {
		return Identity{}, ErrAuthRequired
	}

	token := strings.TrimSpace(req.VoterToken)
	if token == "" {
		return Identity{}, ErrVoterIdentificationRequired
	}
	if !voterTokenRe.MatchString(token) {
		return Identity{}, ErrInvalidVoterToken
	}
	return Identity{Kind: KindVoterToken, VoterToken: token, IP: ip}, nil
}

func validFingerprint(fp string) bool {
	if len(fp) > 128 {
		return false
	}
	for i := 0; i < len(fp); i++ {
		if fp[i] < 0x21 || fp[i] > 0x7e {
			return false
		}
	}
	return true
}
