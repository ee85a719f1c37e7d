package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// Keys embed the snapshot epoch and version, so a committed write makes every
// older entry unreachable and lets it expire on its TTL. The epoch keeps
// instances and restarts sharing one redis from reading each other's entries.
const (
	FeedItemsKeyPrefix = "feed:items:%s:v%d"
	SearchKeyPrefix    = "search:%s:v%d:%s:%s"
)

const (
	FeedItemsTTL = time.Minute
	SearchTTL    = 30 * time.Second
)

func FeedItemsKey(epoch string, version uint64) string {
	return fmt.Sprintf(FeedItemsKeyPrefix, epoch, version)
}

// SearchKey hashes the normalized query to keep keys short and free of
// whitespace.
func SearchKey(epoch string, version uint64, filter, normalizedQuery string) string {
	sum := sha1.Sum([]byte(normalizedQuery))
	return fmt.Sprintf(SearchKeyPrefix, epoch, version, filter, hex.EncodeToString(sum[:8]))
}
