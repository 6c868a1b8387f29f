package host

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	local, err := Open(ctx, logrus.New(), LocalConfig{})
	require.NoError(t, err)

	raw, err := local.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	require.NoError(t, local.KVStore(ctx, "ks", "key", json.RawMessage(`true`)))
	_, found, err := local.KVRead(ctx, "ks", "key")
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, local.Close())
}

func TestOpen_OnDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := LocalConfig{
		SQLitePath: filepath.Join(dir, "db.sqlite"),
		KVDir:      filepath.Join(dir, "kv"),
	}

	local, err := Open(context.Background(), logrus.New(), cfg)
	require.NoError(t, err)
	require.NoError(t, local.Close())
}
