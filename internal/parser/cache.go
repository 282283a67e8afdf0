package parser

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codeindex/pkg/types"
)

// cacheEntry is an immutable snapshot of one file's last parse. Entries are
// replaced whole on every change and never edited in place.
type cacheEntry struct {
	checksum string
	result   *types.ParseResult
	content  []byte // Source the tree was built from, needed to diff the next version
	tree     any    // Backend syntax tree, nil when the strategy builds none
}

// resultCache maps file ids to their last parse
type resultCache struct {
	entries *lru.Cache[string, *cacheEntry]
}

func newResultCache(size int) *resultCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		// Only fails for non-positive sizes
		panic(err)
	}
	return &resultCache{entries: entries}
}

func (c *resultCache) get(fileID string) (*cacheEntry, bool) {
	return c.entries.Get(fileID)
}

func (c *resultCache) put(fileID string, e *cacheEntry) {
	c.entries.Add(fileID, e)
}

func (c *resultCache) remove(fileID string) {
	c.entries.Remove(fileID)
}

func (c *resultCache) len() int {
	return c.entries.Len()
}

// checksum returns the hex SHA-256 of content
func checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
