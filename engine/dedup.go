package engine

import (
	"encoding/binary"
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// Dedup suppresses re-delivery of a push the engine has already seen,
// keyed by the fingerprint of its full JSON tree dump (Supplemented
// Features: servers may redeliver an unacknowledged push after a
// reconnect). A cuckoo filter is a deliberate trade of a small false-
// positive rate (an occasional real push dropped as a false duplicate)
// for O(1) space well below keeping every fingerprint in a map.
type Dedup struct {
	mu     sync.Mutex
	filter *cuckoo.Filter
}

// NewDedup builds a filter sized for a modest number of in-flight/recent
// pushes; it is not meant as a durable, unbounded-horizon record (that
// is PushLog's job).
func NewDedup() *Dedup {
	return &Dedup{filter: cuckoo.NewFilter(65536)}
}

// InsertUnique reports whether fp had not been seen before, inserting it
// if so. Returns false for a fingerprint the filter believes is a
// duplicate (possibly a false positive).
func (d *Dedup) InsertUnique(fp uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	var key [8]byte
	binary.BigEndian.PutUint64(key[:], fp)

	if d.filter.Lookup(key[:]) {
		return false
	}
	d.filter.InsertUnique(key[:])
	return true
}

// Reset discards all recorded fingerprints, so pushes seen before the
// call are no longer judged duplicates. The engine never calls it:
// fingerprints persist across reconnects.
func (d *Dedup) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filter = cuckoo.NewFilter(65536)
}
