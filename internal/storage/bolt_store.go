package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// seenBucket mirrors the postgres seen_entries table: entry id -> seenRecord.
var seenBucket = []byte("seen_entries")

type boltStore struct {
	db  *bolt.DB
	ret *retention
}

// openBolt opens (creating if needed) the bbolt file at path.
func openBolt(path string, opts Options) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(seenBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s bucket: %w", seenBucket, err)
	}

	return &boltStore{db: db, ret: newRetention(opts)}, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenEntry reports whether id holds a live record. An expired or
// unreadable record is removed and reported as unseen.
func (b *boltStore) SeenEntry(id string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}
	now := b.ret.now()
	if err := b.ret.sweep(now, b.purge); err != nil {
		return false, err
	}

	var (
		stale bool
		live  bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(seenBucket).Get([]byte(id))
		if raw == nil {
			return nil
		}
		rec, ok := decodeSeenRecord(raw)
		live = ok && rec.live(now)
		stale = !live
		return nil
	})
	if err != nil || !stale {
		return live, err
	}

	return false, b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(seenBucket).Delete([]byte(id))
	})
}

// MarkEntry stores a fresh record for id, replacing any previous one.
func (b *boltStore) MarkEntry(id string) error {
	if b == nil || b.db == nil {
		return nil
	}
	now := b.ret.now()
	if err := b.ret.sweep(now, b.purge); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(seenBucket).Put([]byte(id), encodeSeenRecord(b.ret.record(now)))
	})
}

// purge deletes every record that is expired or unreadable at now.
func (b *boltStore) purge(now time.Time) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(seenBucket)
		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if rec, ok := decodeSeenRecord(v); !ok || !rec.live(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
