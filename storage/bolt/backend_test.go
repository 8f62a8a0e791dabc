package bolt

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/poiesic/folio/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func TestOpenBackend_CreatesSchema(t *testing.T) {
	backend, err := OpenBackend(filepath.Join(t.TempDir(), "folio.db"), nil)
	require.NoError(t, err)
	defer backend.Close()

	version, err := backend.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint32(storage.SchemaVersion), version)

	for _, index := range storage.Indexes {
		found, err := backend.HasIndex(index)
		require.NoError(t, err)
		assert.True(t, found, "index %s should exist", index)
	}
}

func TestOpenBackend_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.db")

	backend, err := OpenBackend(path, nil)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(path, nil)
	require.NoError(t, err)
	defer backend.Close()

	version, err := backend.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint32(storage.SchemaVersion), version)
}

func TestOpenBackend_NewerVersionRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.db")

	backend, err := OpenBackend(path, nil)
	require.NoError(t, err)
	err = backend.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(metaBucket)).Put([]byte(schemaKey),
			binary.BigEndian.AppendUint32(nil, storage.SchemaVersion+1))
	})
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(path, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrSchemaVersion)
	assert.Nil(t, backend)
}

func TestOpenBackend_LockedByAnotherConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.db")

	first, err := OpenBackend(path, nil)
	require.NoError(t, err)
	defer first.Close()

	second, err := OpenBackend(path, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, bbolt.ErrTimeout)
	assert.Nil(t, second)
}

func TestOpenBackend_MissingDirectory(t *testing.T) {
	backend, err := OpenBackend(filepath.Join(t.TempDir(), "missing", "folio.db"), nil)
	assert.Error(t, err)
	assert.Nil(t, backend)
}
