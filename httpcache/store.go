package httpcache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"github.com/pkgforge/pkgforge/pkglog"
)

var policyBucket = []byte("policies")

// Store persists one archived CachePolicy per cache key in a bolt-backed
// database. Bolt's mmap-backed Get already hands back a byte slice valid
// for the transaction's lifetime, so ParseArchived over that slice is the
// zero-copy fresh-path read this package's callers want; Get here copies
// the slice out before returning since it must outlive the read
// transaction.
type Store struct {
	db  *bolt.DB
	log *pkglog.Logger
}

// OpenStore opens (creating if absent) a bolt database at path for
// persisting cache-policy archives.
func OpenStore(path string, log *pkglog.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "httpcache: open store at %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(policyBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "httpcache: create policy bucket")
	}
	return &Store{db: db, log: pkglog.OrNop(log)}, nil
}

// Key derives the cache key for a method+URI pair.
func Key(method, uri string) string {
	sum := sha256.Sum256([]byte(method + " " + uri))
	return hex.EncodeToString(sum[:])
}

// Put persists policy's archived form under key.
func (s *Store) Put(key string, policy *CachePolicy) error {
	buf := policy.Archive()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(policyBucket).Put([]byte(key), buf)
	})
	if err != nil {
		return errors.Wrapf(err, "httpcache: put policy %s", key)
	}
	s.log.Debug("httpcache: stored policy", "key", key, "bytes", len(buf))
	return nil
}

// Get reads back the archived policy for key, validating but not fully
// deserializing it. Returns (nil, nil) on a cache miss.
func (s *Store) Get(key string) (*Archived, error) {
	var out *Archived
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(policyBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		buf := append([]byte(nil), raw...)
		archived, err := ParseArchived(buf)
		if err != nil {
			return err
		}
		out = archived
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "httpcache: get policy %s", key)
	}
	return out, nil
}

// Delete removes the archived policy for key, if any.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(policyBucket).Delete([]byte(key))
	})
	return errors.Wrapf(err, "httpcache: delete policy %s", key)
}

// Close closes the underlying bolt database.
func (s *Store) Close() error {
	return s.db.Close()
}
