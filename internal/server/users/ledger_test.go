package users

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkowalczyk/filekeeper/internal/common"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(filepath.Join(t.TempDir(), "users.auth"))
	require.NoError(t, err)
	return l
}

func TestLedger_CreateThenFind(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, &User{Username: "alice", Secret: "s3cr3t", PublicQuota: 10, PrivateQuota: 10}))

	got, err := l.Find(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, 10, got.PublicQuota)
	require.Equal(t, 10, got.PrivateQuota)
	require.Equal(t, 0.0, got.PublicUsed)
	require.Equal(t, 0.0, got.PrivateUsed)
}

func TestLedger_FindFirstMatchWins(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, &User{Username: "alice", Secret: "first", PublicQuota: 1, PrivateQuota: 1}))
	require.NoError(t, l.Create(ctx, &User{Username: "alice", Secret: "second", PublicQuota: 2, PrivateQuota: 2}))

	got, err := l.Find(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "first", got.Secret)
}

func TestLedger_FindMissing(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Find(context.Background(), "nobody")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestLedger_MalformedLineIsParseErrorNotCrash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.auth")
	require.NoError(t, os.WriteFile(path, []byte("broken-line-without-fields\nalice:pw:10:10:0:0\n"), 0o600))

	l, err := NewLedger(path)
	require.NoError(t, err)
	ctx := context.Background()

	// The malformed record itself is rejected with a parse error.
	_, err = l.Find(ctx, "broken-line-without-fields")
	require.ErrorIs(t, err, common.ErrLedgerCorrupt)

	// Well-formed records around it stay reachable.
	got, err := l.Find(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
}

func TestLedger_DeleteRemovesOnlyMatch(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, &User{Username: "alice", Secret: "a", PublicQuota: 1, PrivateQuota: 1}))
	require.NoError(t, l.Create(ctx, &User{Username: "bob", Secret: "b", PublicQuota: 2, PrivateQuota: 2}))

	require.NoError(t, l.Delete(ctx, "alice"))

	_, err := l.Find(ctx, "alice")
	require.ErrorIs(t, err, common.ErrNotFound)

	got, err := l.Find(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, "bob", got.Username)
}

func TestLedger_DeleteMissingLeavesFileByteIdentical(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, &User{Username: "alice", Secret: "a", PublicQuota: 1, PrivateQuota: 1}))
	before, err := os.ReadFile(l.path)
	require.NoError(t, err)

	require.ErrorIs(t, l.Delete(ctx, "nobody"), common.ErrNotFound)

	after, err := os.ReadFile(l.path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestLedger_AlterPreservesUsedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.auth")
	// Inject a record with nonzero usage directly.
	require.NoError(t, os.WriteFile(path, []byte("alice:oldpw:10:10:3:1.5\n"), 0o600))

	l, err := NewLedger(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.Alter(ctx, "alice", "newpw", 50, 60))

	got, err := l.Find(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "newpw", got.Secret)
	require.Equal(t, 50, got.PublicQuota)
	require.Equal(t, 60, got.PrivateQuota)
	require.Equal(t, 3.0, got.PublicUsed)
	require.Equal(t, 1.5, got.PrivateUsed)
}

func TestLedger_AlterMissingUser(t *testing.T) {
	l := newTestLedger(t)
	require.ErrorIs(t, l.Alter(context.Background(), "nobody", "pw", 1, 1), common.ErrNotFound)
}

func TestLedger_AlterRewritesSingleLineInPlace(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, &User{Username: "a", Secret: "1", PublicQuota: 1, PrivateQuota: 1}))
	require.NoError(t, l.Create(ctx, &User{Username: "b", Secret: "2", PublicQuota: 2, PrivateQuota: 2}))
	require.NoError(t, l.Create(ctx, &User{Username: "c", Secret: "3", PublicQuota: 3, PrivateQuota: 3}))

	require.NoError(t, l.Alter(ctx, "b", "new", 9, 9))

	lines, err := l.readLines()
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Equal(t, "a:1:1:1:0:0", lines[0])
	require.Equal(t, "b:new:9:9:0:0", lines[1])
	require.Equal(t, "c:3:3:3:0:0", lines[2])
}

func TestLedger_GetLineRawOrEmpty(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, &User{Username: "alice", Secret: "pw", PublicQuota: 10, PrivateQuota: 20}))

	line, err := l.GetLine(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice:pw:10:20:0:0", line)

	line, err = l.GetLine(ctx, "nobody")
	require.NoError(t, err)
	require.Equal(t, "", line)
}

func TestLedger_AddUsage(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, &User{Username: "alice", Secret: "pw", PublicQuota: 10, PrivateQuota: 10}))
	require.NoError(t, l.AddUsage(ctx, "alice", 2.5, 0))
	require.NoError(t, l.AddUsage(ctx, "alice", 0, 1))

	got, err := l.Find(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2.5, got.PublicUsed)
	require.Equal(t, 1.0, got.PrivateUsed)
}

func TestLedger_ConcurrentMutationsDoNotCorrupt(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Create(ctx, &User{Username: "keep", Secret: "k", PublicQuota: 1, PrivateQuota: 1}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_ = l.Create(ctx, &User{Username: "churn", Secret: "c", PublicQuota: 1, PrivateQuota: 1})
			_ = l.Delete(ctx, "churn")
		}
	}()
	for i := 0; i < 20; i++ {
		_, err := l.Find(ctx, "keep")
		require.NoError(t, err)
	}
	<-done

	got, err := l.Find(ctx, "keep")
	require.NoError(t, err)
	require.Equal(t, "keep", got.Username)
}

func TestParseLine_RoundTrip(t *testing.T) {
	u := &User{Username: "alice", Secret: "pw", PublicQuota: 10, PrivateQuota: 20, PublicUsed: 1.25, PrivateUsed: 0}
	got, err := ParseLine(u.Line())
	require.NoError(t, err)
	require.Equal(t, u, got)
}

func TestParseLine_WrongFieldCount(t *testing.T) {
	_, err := ParseLine("alice:pw:10")
	require.ErrorIs(t, err, common.ErrLedgerCorrupt)
}
