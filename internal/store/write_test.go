package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

func userFields(name, email string) wire.Object {
	return wire.NewObject(
		wire.F("name", wire.String(name)),
		wire.F("email", wire.String(email)),
	)
}

// insertCommitted inserts one document in its own committed transaction.
func insertCommitted(t *testing.T, s *Store, table string, fields wire.Object) schema.DocID {
	t.Helper()
	ctx := context.Background()
	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	id, err := txn.Insert(ctx, table, fields)
	require.NoError(t, err)
	require.NoError(t, txn.Commit())
	return id
}

func TestInsert_GetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := insertCommitted(t, s, "users", userFields("alice", "alice@example.com"))
	assert.EqualValues(t, "doc-1", id)

	got, err := s.Get(ctx, "users", id)
	require.NoError(t, err)

	want := wire.NewObject(
		wire.F("name", wire.String("alice")),
		wire.F("email", wire.String("alice@example.com")),
		wire.F("_id", wire.String("doc-1")),
		wire.F("_creationTime", wire.Int(fixedClock().UnixMilli())),
	)
	assert.True(t, wire.Equal(want, got), "got %#v", got)
}

func TestGet_MissingIsNull(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Get(context.Background(), "users", "doc-404")
	require.NoError(t, err)
	assert.Equal(t, wire.Null{}, got)
}

func TestGet_UndeclaredTable(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "ghosts", "doc-1")
	require.Error(t, err)
}

func TestInsert_TxnSeesOwnWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	id, err := txn.Insert(ctx, "users", userFields("bob", "bob@example.com"))
	require.NoError(t, err)

	got, err := txn.Get(ctx, "users", id)
	require.NoError(t, err)
	obj, ok := got.(wire.Object)
	require.True(t, ok)
	assert.Equal(t, wire.String("bob"), obj["name"])
}

func TestTxn_RollbackDiscards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	id, err := txn.Insert(ctx, "users", userFields("eve", "eve@example.com"))
	require.NoError(t, err)
	require.NoError(t, txn.Rollback())

	got, err := s.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.Equal(t, wire.Null{}, got)
}

func TestInsert_UniqueIndexConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertCommitted(t, s, "users", userFields("alice", "shared@example.com"))

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	_, err = txn.Insert(ctx, "users", userFields("impostor", "shared@example.com"))
	require.Error(t, err)
	assert.True(t, effect.HasCode(err, effect.CodeNotUnique), "got %v", err)
}

func TestPatch_MergesAndRebuildsIndexes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := insertCommitted(t, s, "users", userFields("carol", "old@example.com"))

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Patch(ctx, id, wire.NewObject(
		wire.F("email", wire.String("new@example.com")),
	)))
	require.NoError(t, txn.Commit())

	got, err := s.Get(ctx, "users", id)
	require.NoError(t, err)
	obj := got.(wire.Object)
	assert.Equal(t, wire.String("carol"), obj["name"], "untouched fields survive")
	assert.Equal(t, wire.String("new@example.com"), obj["email"])

	// The unique slot for the old value is free again.
	insertCommitted(t, s, "users", userFields("dan", "old@example.com"))
}

func TestPatch_MissingIsNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	err = txn.Patch(ctx, "doc-404", wire.NewObject(wire.F("name", wire.String("x"))))
	require.Error(t, err)
	assert.True(t, effect.HasCode(err, effect.CodeNotFound))
}

func TestPatch_UniqueConflictWithOtherDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertCommitted(t, s, "users", userFields("alice", "alice@example.com"))
	bob := insertCommitted(t, s, "users", userFields("bob", "bob@example.com"))

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	err = txn.Patch(ctx, bob, wire.NewObject(
		wire.F("email", wire.String("alice@example.com")),
	))
	require.Error(t, err)
	assert.True(t, effect.HasCode(err, effect.CodeNotUnique))
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := insertCommitted(t, s, "users", userFields("gone", "gone@example.com"))

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Delete(ctx, id))
	require.NoError(t, txn.Commit())

	got, err := s.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.Equal(t, wire.Null{}, got)

	// Index rows cascaded: the unique slot is free again.
	insertCommitted(t, s, "users", userFields("back", "gone@example.com"))
}

func TestDelete_MissingIsNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	err = txn.Delete(ctx, "doc-404")
	require.Error(t, err)
	assert.True(t, effect.HasCode(err, effect.CodeNotFound))
}

func TestInsert_UndeclaredTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback()

	_, err = txn.Insert(ctx, "ghosts", wire.NewObject())
	require.Error(t, err)
}
