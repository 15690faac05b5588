package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LabMasd/craftorcrap-sub000/internal/identity"
	"github.com/LabMasd/craftorcrap-sub000/internal/model"
	"github.com/LabMasd/craftorcrap-sub000/internal/service"
	"github.com/LabMasd/craftorcrap-sub000/internal/testutil"
)

type memBackend struct {
	store    *testutil.MemStore
	tokens   *testutil.TokenStore
	migrated int
	closed   int
}

func (b *memBackend) Migrate(context.Context) error {
	b.migrated++
	return nil
}

func (b *memBackend) Reconcile(ctx context.Context) (int, int, error) {
	return RunReconcile(ctx, b.store, nil)
}

func (b *memBackend) Tokens() *service.TokenService { return service.NewTokenService(b.tokens) }

func (b *memBackend) Close() { b.closed++ }

func newBackend() *memBackend {
	return &memBackend{store: testutil.NewMemStore(), tokens: testutil.NewTokenStore()}
}

func run(t *testing.T, b Backend, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(func(context.Context) (Backend, error) { return b, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(nil)
	require.NotNil(t, cmd)
	assert.Equal(t, "craftctl", cmd.Use)

	for _, name := range []string{"migrate", "reconcile", "token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	b := newBackend()
	_, err := run(t, b, "migrate", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Zero(t, b.migrated)
}

func TestMigrateCommand(t *testing.T) {
	b := newBackend()
	out, err := run(t, b, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version")
	assert.Equal(t, 1, b.migrated)
	assert.Equal(t, 1, b.closed)
}

func TestOpenError(t *testing.T) {
	cmd := NewRootCommand(func(context.Context) (Backend, error) { return nil, errors.New("connection refused") })
	cmd.SetArgs([]string{"migrate"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReconcileCommand(t *testing.T) {
	ctx := context.Background()
	b := newBackend()

	drifted := b.store.AddSubmission("https://dribbble.com/shots/1")
	b.store.AddSubmission("https://dribbble.com/shots/2")
	_, err := b.store.RecordVote(ctx, model.Vote{SubmissionID: drifted, Verdict: model.VerdictCraft, Fingerprint: "f1", IPAddress: "1.1.1.1"})
	require.NoError(t, err)
	b.store.SetTotals(drifted, model.Totals{Craft: 7, Crap: 2})

	out, err := run(t, b, "reconcile", "--format", "json")
	require.NoError(t, err)

	var res ReconcileResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, ReconcileResult{Repaired: 1, Rescored: 1}, res)

	totals, err := b.store.GetTotals(ctx, drifted)
	require.NoError(t, err)
	assert.Equal(t, model.Totals{Craft: 1}, totals)
	assert.InDelta(t, service.WilsonLowerBound(totals), b.store.Score(drifted), 1e-9)

	out, err = run(t, b, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "repaired 0 submission(s)")
}

func TestTokenCommands(t *testing.T) {
	ctx := context.Background()
	b := newBackend()
	auth := identity.NewAPITokenAuthenticator(b.tokens)

	_, err := run(t, b, "token", "issue")
	require.Error(t, err, "--user is required")

	out, err := run(t, b, "token", "issue", "--user", "user_9", "--label", "laptop", "--format", "json")
	require.NoError(t, err)

	var issued struct {
		Token string `json:"token"`
		Hash  string `json:"hash"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &issued))
	require.NotEmpty(t, issued.Token)

	userID, err := auth.Authenticate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user_9", userID)

	_, err = run(t, b, "token", "revoke", "abc")
	require.ErrorIs(t, err, service.ErrInvalidRevokePrefix)

	out, err = run(t, b, "token", "revoke", issued.Hash[:12])
	require.NoError(t, err)
	assert.Contains(t, out, "revoked 1 token(s)")

	_, err = auth.Authenticate(ctx, issued.Token)
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}
