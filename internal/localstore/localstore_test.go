package localstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterlab/rosterlab/internal/localstore"
)

func open(t *testing.T, path, user string) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(path, user)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "state", "rosterlab.db"), "ash")

	ids, err := s.Blacklist(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.Ban(ctx, 445))
	require.NoError(t, s.Ban(ctx, 983))
	require.NoError(t, s.Ban(ctx, 445))

	ids, err = s.Blacklist(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{445, 983}, ids)

	removed, err := s.Unban(ctx, 445)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Unban(ctx, 445)
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := s.ClearBlacklist(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBlacklist_PerUserAndDurable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rosterlab.db")

	ash, err := localstore.Open(path, "ash")
	require.NoError(t, err)
	require.NoError(t, ash.Ban(ctx, 149))
	require.NoError(t, ash.Close())

	misty := open(t, path, "misty")
	ids, err := misty.Blacklist(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	reopened := open(t, path, "ash")
	ids, err = reopened.Blacklist(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{149}, ids)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "rosterlab.db"), "")

	type state struct {
		Slots []int `json:"slots"`
	}
	var got state
	found, err := s.LoadSnapshot(ctx, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SaveSnapshot(ctx, state{Slots: []int{1, 2}}))
	require.NoError(t, s.SaveSnapshot(ctx, state{Slots: []int{3}}))

	found, err = s.LoadSnapshot(ctx, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []int{3}, got.Slots)
}
