package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func openRaw(t *testing.T, path string) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	return db
}

func TestEnsureSchema_FreshIndex(t *testing.T) {
	db := openRaw(t, filepath.Join(t.TempDir(), "index.db"))
	defer db.Close()

	require.NoError(t, ensureSchema(db))
	require.NoError(t, ensureSchema(db))

	require.NoError(t, db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(rootBucketName))
		require.NotNil(t, root)
		for _, name := range []string{registriesBucketName, manifestsBucketName, profilesBucketName, installedBucketName} {
			assert.NotNil(t, root.Bucket([]byte(name)), name)
		}
		version, err := schemaOf(root.Bucket([]byte(metaBucketName)))
		require.NoError(t, err)
		assert.Equal(t, latestSchema(), version)
		return nil
	}))
}

func TestEnsureSchema_RejectsNewerIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	db := openRaw(t, path)
	require.NoError(t, ensureSchema(db))
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(rootBucketName)).Bucket([]byte(metaBucketName))
		return meta.Put([]byte(schemaKey), []byte("99"))
	}))
	require.NoError(t, db.Close())

	_, err := OpenStore(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestEnsureSchema_CorruptMarker(t *testing.T) {
	db := openRaw(t, filepath.Join(t.TempDir(), "index.db"))
	defer db.Close()
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucketName))
		if err != nil {
			return err
		}
		meta, err := root.CreateBucketIfNotExists([]byte(metaBucketName))
		if err != nil {
			return err
		}
		return meta.Put([]byte(schemaKey), []byte("v1"))
	}))

	err := ensureSchema(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt index schema marker")
}
