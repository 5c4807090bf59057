package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/tidwall/buntdb"

	"github.com/ais-wire/resp3/internal/rlog"
)

// PushLog is an in-memory, queryable record of every push reply the
// engine has demultiplexed, keyed by arrival sequence and indexed by
// fingerprint for duplicate lookups. Grounded on core's use of an
// embedded key/value store for local side-channel bookkeeping rather
// than a full database; buntdb's :memory: mode gives range/index
// queries over the log without a persistence dependency this library
// has no business taking on.
type PushLog struct {
	db  *buntdb.DB
	seq uint64
}

// NewPushLog opens an in-memory pushlog. Panics only if buntdb's
// in-process memory backend fails to initialize, which indicates a
// corrupt build rather than a recoverable runtime condition.
func NewPushLog() *PushLog {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		panic(fmt.Sprintf("pushlog: failed to open in-memory store: %v", err))
	}
	_ = db.CreateIndex("fingerprint", "*", buntdb.IndexJSON("fp"))
	return &PushLog{db: db}
}

// Record appends dump (a push's JSON tree dump) under a monotonic key,
// tagging whether dedup already judged it a duplicate so later queries
// can distinguish delivered pushes from suppressed ones.
func (p *PushLog) Record(fp uint64, dump []byte, isDup bool) {
	n := atomic.AddUint64(&p.seq, 1)
	key := fmt.Sprintf("push:%020d", n)
	val := fmt.Sprintf(`{"fp":%d,"dup":%t,"tree":%s}`, fp, isDup, dump)
	err := p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, val, nil)
		return err
	})
	if err != nil {
		rlog.Warningf("pushlog: record failed: %v", err)
	}
}

// Len returns the number of recorded pushes, delivered or suppressed.
func (p *PushLog) Len() int {
	n := 0
	_ = p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("push:*", func(_, _ string) bool {
			n++
			return true
		})
	})
	return n
}

// Close releases the in-memory store.
func (p *PushLog) Close() error {
	return p.db.Close()
}
