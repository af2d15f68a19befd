package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"composer/internal/domain"
)

var ErrStoreClosed = errors.New("index store is closed")

// Store persists the source lists, profiles and installed contents.
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
	newID  func() (string, error)
}

func OpenStore(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure index dir: %w", err)
	}
	base, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	if err := ensureSchema(base); err != nil {
		_ = base.Close()
		return nil, err
	}
	return &Store{db: base, path: trimmed, newID: newSourceID}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) ListRegistries(ctx context.Context) (map[string]string, error) {
	return s.listLocators(ctx, registriesBucketName)
}

func (s *Store) ListManifests(ctx context.Context) (map[string]string, error) {
	return s.listLocators(ctx, manifestsBucketName)
}

// AddRegistry registers a registry URL and returns its new id.
func (s *Store) AddRegistry(ctx context.Context, locator string) (string, error) {
	return s.addLocator(ctx, registriesBucketName, locator)
}

// AddManifest registers a manifest locator and returns its new id.
func (s *Store) AddManifest(ctx context.Context, locator string) (string, error) {
	return s.addLocator(ctx, manifestsBucketName, locator)
}

func (s *Store) RemoveRegistry(ctx context.Context, id string) error {
	return s.removeLocator(ctx, registriesBucketName, id)
}

func (s *Store) RemoveManifest(ctx context.Context, id string) error {
	return s.removeLocator(ctx, manifestsBucketName, id)
}

// AddProfile registers an install target. Paths are unique.
func (s *Store) AddProfile(ctx context.Context, name, path string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return domain.Profile{}, domain.E(domain.CodeInvalidArgument, "add profile", "profile path is required", nil)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	id, err := s.newID()
	if err != nil {
		return domain.Profile{}, err
	}
	profile := domain.Profile{ID: id, Name: strings.TrimSpace(name), Path: path}
	if profile.Name == "" {
		profile.Name = filepath.Base(path)
	}

	err = s.update(func(tx *bolt.Tx) error {
		bucket := dataBucket(tx, profilesBucketName)
		duplicate := false
		if err := bucket.ForEach(func(_, value []byte) error {
			var existing domain.Profile
			if err := json.Unmarshal(value, &existing); err != nil {
				return err
			}
			duplicate = duplicate || existing.Path == profile.Path
			return nil
		}); err != nil {
			return err
		}
		if duplicate {
			return domain.E(domain.CodeAlreadyExists, "add profile", profile.Path, domain.ErrAlreadyAdded)
		}
		raw, err := json.Marshal(profile)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(profile.ID), raw)
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

// ListProfiles returns profiles in id order.
func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var profiles []domain.Profile
	err := s.view(func(tx *bolt.Tx) error {
		return dataBucket(tx, profilesBucketName).ForEach(func(_, value []byte) error {
			var profile domain.Profile
			if err := json.Unmarshal(value, &profile); err != nil {
				return fmt.Errorf("decode profile: %w", err)
			}
			profiles = append(profiles, profile)
			return nil
		})
	})
	return profiles, err
}

func (s *Store) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	var profile domain.Profile
	err := s.view(func(tx *bolt.Tx) error {
		raw := dataBucket(tx, profilesBucketName).Get([]byte(id))
		if raw == nil {
			return profileNotFound("get profile", id)
		}
		return json.Unmarshal(raw, &profile)
	})
	return profile, err
}

// RemoveProfile deletes a profile and its installed contents.
func (s *Store) RemoveProfile(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		profiles := dataBucket(tx, profilesBucketName)
		if profiles.Get([]byte(id)) == nil {
			return profileNotFound("remove profile", id)
		}
		if err := profiles.Delete([]byte(id)); err != nil {
			return err
		}
		installed := dataBucket(tx, installedBucketName)
		if installed.Bucket([]byte(id)) == nil {
			return nil
		}
		return installed.DeleteBucket([]byte(id))
	})
}

// InstalledContents returns the entries recorded as installed in a profile,
// keyed by content id.
func (s *Store) InstalledContents(ctx context.Context, profileID string) (map[string]domain.ContentEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contents := make(map[string]domain.ContentEntry)
	err := s.view(func(tx *bolt.Tx) error {
		if dataBucket(tx, profilesBucketName).Get([]byte(profileID)) == nil {
			return profileNotFound("installed contents", profileID)
		}
		bucket := dataBucket(tx, installedBucketName).Bucket([]byte(profileID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(key, value []byte) error {
			var entry domain.ContentEntry
			if err := json.Unmarshal(value, &entry); err != nil {
				return fmt.Errorf("decode installed %s: %w", key, err)
			}
			contents[string(key)] = entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return contents, nil
}

// RecordInstalled stores entries as installed in a profile, replacing any
// previous record for the same content id.
func (s *Store) RecordInstalled(ctx context.Context, profileID string, entries []domain.ContentEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		if dataBucket(tx, profilesBucketName).Get([]byte(profileID)) == nil {
			return profileNotFound("record installed", profileID)
		}
		bucket, err := dataBucket(tx, installedBucketName).CreateBucketIfNotExists([]byte(profileID))
		if err != nil {
			return fmt.Errorf("create installed bucket: %w", err)
		}
		for _, entry := range entries {
			if entry.ID == "" {
				return domain.E(domain.CodeInvalidArgument, "record installed", "content id is required", domain.ErrInvalidPayload)
			}
			raw, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(entry.ID), raw); err != nil {
				return fmt.Errorf("write installed %s: %w", entry.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) listLocators(ctx context.Context, name string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locators := make(map[string]string)
	err := s.view(func(tx *bolt.Tx) error {
		return dataBucket(tx, name).ForEach(func(key, value []byte) error {
			locators[string(key)] = string(value)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return locators, nil
}

func (s *Store) addLocator(ctx context.Context, name, locator string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", domain.E(domain.CodeInvalidArgument, "add "+singular(name), "locator is required", domain.ErrInvalidLocator)
	}
	id, err := s.newID()
	if err != nil {
		return "", err
	}
	err = s.update(func(tx *bolt.Tx) error {
		bucket := dataBucket(tx, name)
		duplicate := false
		if err := bucket.ForEach(func(_, value []byte) error {
			duplicate = duplicate || string(value) == locator
			return nil
		}); err != nil {
			return err
		}
		if duplicate {
			return domain.E(domain.CodeAlreadyExists, "add "+singular(name), locator, domain.ErrAlreadyAdded)
		}
		return bucket.Put([]byte(id), []byte(locator))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) removeLocator(ctx context.Context, name, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		bucket := dataBucket(tx, name)
		if bucket.Get([]byte(id)) == nil {
			return domain.E(domain.CodeNotFound, "remove "+singular(name), id, domain.ErrNotFound)
		}
		return bucket.Delete([]byte(id))
	})
}

func (s *Store) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

// dataBucket returns a bucket created by ensureSchema.
func dataBucket(tx *bolt.Tx, name string) *bolt.Bucket {
	return tx.Bucket([]byte(rootBucketName)).Bucket([]byte(name))
}

func profileNotFound(op, id string) error {
	return domain.E(domain.CodeNotFound, op, id, domain.ErrProfileNotFound)
}

func singular(bucket string) string {
	return strings.TrimSuffix(bucket, "s")
}

// newSourceID returns a UUIDv7 so ids sort in creation order.
func newSourceID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

// SortedIDs returns the keys of a locator map in ascending order.
func SortedIDs(locators map[string]string) []string {
	ids := make([]string, 0, len(locators))
	for id := range locators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ domain.SourceLister = (*Store)(nil)
