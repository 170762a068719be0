package tracker

import (
	"sync"

	"github.com/trackgrid/trackgrid/internal/migration"
	"github.com/trackgrid/trackgrid/internal/priority"
	"github.com/zeebo/xxh3"
)

// Cache memoizes parsed trackers keyed by (path, content hash), and
// aggregation results keyed by a hash of the tracker set plus a caller-
// supplied migration fingerprint. mtime does not survive the temp-file-then-
// rename atomic write this package performs, so content hashing is used
// instead of an mtime-keyed cache.
// A Cache is single-threaded in spirit (tied to one run) but the embedded
// mutex makes it safe to share across goroutines that merely read/write
// entries, not to reason about concurrently.
type Cache struct {
	mu      sync.Mutex
	parsed  map[string]parsedEntry
	aggregs map[uint64]AggregateResult
}

type parsedEntry struct {
	hash uint64
	file *File
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		parsed:  make(map[string]parsedEntry),
		aggregs: make(map[uint64]AggregateResult),
	}
}

// HashContent returns the xxh3 hash used as the cache fingerprint for raw
// tracker bytes.
func HashContent(data []byte) uint64 {
	return xxh3.Hash(data)
}

// ReadCached behaves like Read, but returns a memoized *File when the file's
// content hash matches the last read, skipping re-parsing.
func (c *Cache) ReadCached(path string, typ Type) (*File, error) {
	data, err := readFileOrEmpty(path)
	if err != nil {
		return nil, err
	}
	hash := HashContent(data)

	c.mu.Lock()
	if entry, ok := c.parsed[path]; ok && entry.hash == hash {
		c.mu.Unlock()
		return entry.file, nil
	}
	c.mu.Unlock()

	f, err := Parse(path, typ, data)
	if err != nil {
		return f, err
	}

	c.mu.Lock()
	c.parsed[path] = parsedEntry{hash: hash, file: f}
	c.mu.Unlock()
	return f, nil
}

// Invalidate drops any cached parse for path, used after a write.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.parsed, path)
	c.mu.Unlock()
}

// AggregateFingerprint combines a migration fingerprint with every tracker
// path involved and its content hash, in order, so any change to them
// invalidates the memoized aggregation.
func AggregateFingerprint(migrationHash uint64, paths []string, hashes []uint64) uint64 {
	buf := make([]byte, 0, 8+8*len(paths))
	buf = appendUint64(buf, migrationHash)
	for _, p := range paths {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	for _, h := range hashes {
		buf = appendUint64(buf, h)
	}
	return xxh3.Hash(buf)
}

func appendUint64(buf []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v))
		v >>= 8
	}
	return buf
}

func (c *Cache) lookupAggregate(fp uint64) (AggregateResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.aggregs[fp]
	return r, ok
}

func (c *Cache) storeAggregate(fp uint64, r AggregateResult) {
	c.mu.Lock()
	c.aggregs[fp] = r
	c.mu.Unlock()
}

// AggregateCached wraps Aggregate with memoization: aggregation over the
// same tracker set and migration map is skipped if an
// identical (paths, content, migration) fingerprint was already computed
// this run.
func (c *Cache) AggregateCached(refs []TrackerRef, mig *migration.Map, table *priority.Table) (AggregateResult, error) {
	paths := make([]string, len(refs))
	hashes := make([]uint64, len(refs))
	for i, ref := range refs {
		data, err := readFileOrEmpty(ref.Path)
		if err != nil {
			return nil, err
		}
		paths[i] = ref.Path
		hashes[i] = HashContent(data)
	}
	fp := AggregateFingerprint(mig.Fingerprint(), paths, hashes)

	if cached, ok := c.lookupAggregate(fp); ok {
		return cached, nil
	}

	result, err := Aggregate(refs, mig, table, c)
	if err != nil {
		return nil, err
	}
	c.storeAggregate(fp, result)
	return result, nil
}
