package storage

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"
)

// seenRecordBytes is the encoded size of a seenRecord: marked-at followed by
// expires-at, both unix seconds, big endian.
const seenRecordBytes = 16

// seenRecord is what a persistent store keeps per announced entry.
type seenRecord struct {
	MarkedAt  time.Time
	ExpiresAt time.Time
}

func (r seenRecord) live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

func encodeSeenRecord(r seenRecord) []byte {
	buf := make([]byte, seenRecordBytes)
	binary.BigEndian.PutUint64(buf[:8], uint64(r.MarkedAt.Unix()))
	binary.BigEndian.PutUint64(buf[8:], uint64(r.ExpiresAt.Unix()))
	return buf
}

func decodeSeenRecord(value []byte) (seenRecord, bool) {
	if len(value) != seenRecordBytes {
		return seenRecord{}, false
	}
	marked := int64(binary.BigEndian.Uint64(value[:8]))
	expires := int64(binary.BigEndian.Uint64(value[8:]))
	if marked <= 0 || expires <= 0 {
		return seenRecord{}, false
	}
	return seenRecord{MarkedAt: time.Unix(marked, 0), ExpiresAt: time.Unix(expires, 0)}, true
}

// retention applies the entry TTL and throttles expired-entry sweeps for
// the bbolt and postgres backends.
type retention struct {
	ttl       time.Duration
	interval  time.Duration
	now       func() time.Time
	sweepMu   sync.Mutex
	lastSweep atomic.Int64
}

func newRetention(opts Options) *retention {
	opts = normalizeOptions(opts)
	r := &retention{ttl: opts.EntryTTL, interval: opts.CleanupInterval, now: time.Now}
	r.lastSweep.Store(r.now().UnixNano())
	return r
}

// record returns the record for an entry marked at now.
func (r *retention) record(now time.Time) seenRecord {
	return seenRecord{MarkedAt: now, ExpiresAt: now.Add(r.ttl)}
}

func (r *retention) due(now time.Time) bool {
	return now.Sub(time.Unix(0, r.lastSweep.Load())) >= r.interval
}

// sweep calls purge when the cleanup interval has elapsed since the last
// successful sweep. A failed purge is retried on the next call.
func (r *retention) sweep(now time.Time, purge func(now time.Time) error) error {
	if !r.due(now) {
		return nil
	}

	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()
	if !r.due(now) {
		return nil
	}

	if err := purge(now); err != nil {
		return err
	}
	r.lastSweep.Store(now.UnixNano())
	return nil
}
