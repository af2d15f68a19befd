package store

import (
	"fmt"
	"strconv"

	bolt "go.etcd.io/bbolt"
)

const (
	rootBucketName       = "composer_index"
	metaBucketName       = "meta"
	registriesBucketName = "registries"
	manifestsBucketName  = "manifests"
	profilesBucketName   = "profiles"
	installedBucketName  = "installed"
	schemaKey            = "schema"
)

// migration upgrades the index from version-1 to version.
type migration struct {
	version int
	apply   func(root *bolt.Bucket) error
}

// migrations run in order; the last entry is the current schema.
var migrations = []migration{
	{version: 1, apply: createBuckets(registriesBucketName, manifestsBucketName, profilesBucketName, installedBucketName)},
}

func latestSchema() int {
	return migrations[len(migrations)-1].version
}

func createBuckets(names ...string) func(*bolt.Bucket) error {
	return func(root *bolt.Bucket) error {
		for _, name := range names {
			if _, err := root.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	}
}

// ensureSchema brings the index up to the latest schema inside a single
// transaction, so a failed step leaves the file untouched.
func ensureSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucketName))
		if err != nil {
			return fmt.Errorf("create root bucket: %w", err)
		}
		meta, err := root.CreateBucketIfNotExists([]byte(metaBucketName))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}

		current, err := schemaOf(meta)
		if err != nil {
			return err
		}
		if current > latestSchema() {
			return fmt.Errorf("index schema %d is newer than supported schema %d", current, latestSchema())
		}
		for _, step := range migrations {
			if step.version <= current {
				continue
			}
			if err := step.apply(root); err != nil {
				return fmt.Errorf("migrate index to schema %d: %w", step.version, err)
			}
			current = step.version
		}
		return meta.Put([]byte(schemaKey), []byte(strconv.Itoa(current)))
	})
}

func schemaOf(meta *bolt.Bucket) (int, error) {
	raw := meta.Get([]byte(schemaKey))
	if raw == nil {
		return 0, nil
	}
	version, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("corrupt index schema marker %q", raw)
	}
	return version, nil
}
