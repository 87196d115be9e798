// Package state remembers which tasks were already reported to which chat
// thread, so repeated report cycles do not post the same task twice.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	bolt "go.etcd.io/bbolt"
)

// Ledger records reported task PHIDs per room.
type Ledger interface {
	Seen(room, phid string) (bool, error)
	Record(room string, phids ...string) error
	Count(room string) (int, error)
	Close() error
}

// Entry is one reported task.
type Entry struct {
	PHID       string
	ReportedAt time.Time
}

var bucketReported = []byte("reported")

// BoltLedger stores reported tasks in BoltDB: one nested bucket per room,
// task PHID -> first report time. A Bloom filter answers most negative
// lookups without opening a transaction.
type BoltLedger struct {
	db   *bolt.DB
	path string
	now  func() time.Time

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// Open opens or creates the ledger at path.
func Open(path string) (*BoltLedger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	l := &BoltLedger{
		db:     db,
		path:   path,
		now:    time.Now,
		filter: bloom.NewWithEstimates(10000, 0.001),
	}

	err = db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(bucketReported)
		if err != nil {
			return err
		}
		return root.ForEachBucket(func(room []byte) error {
			return root.Bucket(room).ForEach(func(phid, _ []byte) error {
				l.filter.AddString(ledgerKey(string(room), string(phid)))
				return nil
			})
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	return l, nil
}

// Path returns the database file path.
func (l *BoltLedger) Path() string {
	return l.path
}

// Seen reports whether phid was recorded for room.
func (l *BoltLedger) Seen(room, phid string) (bool, error) {
	l.mu.RLock()
	maybe := l.filter.TestString(ledgerKey(room, phid))
	l.mu.RUnlock()
	if !maybe {
		return false, nil
	}

	var found bool
	err := l.db.View(func(tx *bolt.Tx) error {
		b := roomBucket(tx, room)
		found = b != nil && b.Get([]byte(phid)) != nil
		return nil
	})
	return found, err
}

// Record marks phids as reported to room. Already recorded tasks keep their
// first report time.
func (l *BoltLedger) Record(room string, phids ...string) error {
	if len(phids) == 0 {
		return nil
	}
	stamp := []byte(l.now().UTC().Format(time.RFC3339))

	err := l.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bucketReported).CreateBucketIfNotExists([]byte(room))
		if err != nil {
			return err
		}
		for _, phid := range phids {
			if b.Get([]byte(phid)) != nil {
				continue
			}
			if err := b.Put([]byte(phid), stamp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record tasks: %w", err)
	}

	l.mu.Lock()
	for _, phid := range phids {
		l.filter.AddString(ledgerKey(room, phid))
	}
	l.mu.Unlock()
	return nil
}

// Count returns how many tasks were recorded for room.
func (l *BoltLedger) Count(room string) (int, error) {
	var n int
	err := l.db.View(func(tx *bolt.Tx) error {
		if b := roomBucket(tx, room); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Entries returns the tasks recorded for room, oldest first.
func (l *BoltLedger) Entries(room string) ([]Entry, error) {
	var entries []Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		b := roomBucket(tx, room)
		if b == nil {
			return nil
		}
		return b.ForEach(func(phid, stamp []byte) error {
			at, err := time.Parse(time.RFC3339, string(stamp))
			if err != nil {
				return fmt.Errorf("bad timestamp for %s: %w", phid, err)
			}
			entries = append(entries, Entry{PHID: string(phid), ReportedAt: at})
			return nil
		})
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ReportedAt.Before(entries[j].ReportedAt)
	})
	return entries, err
}

// Close closes the database.
func (l *BoltLedger) Close() error {
	return l.db.Close()
}

func roomBucket(tx *bolt.Tx, room string) *bolt.Bucket {
	root := tx.Bucket(bucketReported)
	if root == nil {
		return nil
	}
	return root.Bucket([]byte(room))
}

func ledgerKey(room, phid string) string {
	return room + "\x00" + phid
}

// MemoryLedger keeps reported tasks in memory for the life of the process.
type MemoryLedger struct {
	dedup *Deduplicator

	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		dedup:  NewDeduplicator(1000),
		counts: make(map[string]int),
	}
}

// Seen reports whether phid was recorded for room.
func (m *MemoryLedger) Seen(room, phid string) (bool, error) {
	return m.dedup.HasSeen(ledgerKey(room, phid)), nil
}

// Record marks phids as reported to room.
func (m *MemoryLedger) Record(room string, phids ...string) error {
	keys := make([]string, len(phids))
	for i, phid := range phids {
		keys[i] = ledgerKey(room, phid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[room] += m.dedup.Add(keys...)
	return nil
}

// Count returns how many tasks were recorded for room.
func (m *MemoryLedger) Count(room string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[room], nil
}

// Close is a no-op.
func (m *MemoryLedger) Close() error {
	return nil
}
