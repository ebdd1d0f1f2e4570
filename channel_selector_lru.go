package privatepub

import (
	"fmt"
	"hash/fnv"

	lru "github.com/hashicorp/golang-lru"
)

// Protected channel lists are short, most entries are match results for distinct channels.
const (
	DefaultChannelSelectorStoreLRUMaxEntriesPerShard = int64(1e4)
	DefaultChannelSelectorStoreLRUShardCount         = int64(16)
)

// NewChannelSelectorStoreLRU creates a ChannelSelectorStore with a sharded LRU cache.
// A maxEntriesPerShard of 0 disables the cache.
func NewChannelSelectorStoreLRU(maxEntriesPerShard, shardCount int64) (*ChannelSelectorStore, error) {
	if maxEntriesPerShard < 0 || shardCount < 0 {
		return nil, fmt.Errorf("%w: channel selector cache sizes must be positive", ErrInvalidConfig)
	}
	if maxEntriesPerShard == 0 {
		return &ChannelSelectorStore{}, nil
	}
	if shardCount == 0 {
		shardCount = DefaultChannelSelectorStoreLRUShardCount
	}

	cache := make(shardedLRUCache, shardCount)
	for i := range cache {
		c, err := lru.New(int(maxEntriesPerShard))
		if err != nil {
			return nil, fmt.Errorf("unable to create the channel selector cache: %w", err)
		}

		cache[i] = c
	}

	return &ChannelSelectorStore{cache: cache}, nil
}

// shardedLRUCache spreads keys over several LRU caches to reduce lock contention.
type shardedLRUCache []*lru.Cache

func (c shardedLRUCache) Get(key string) (interface{}, bool) {
	return c.shard(key).Get(key)
}

func (c shardedLRUCache) Add(key string, value interface{}) {
	c.shard(key).Add(key, value)
}

func (c shardedLRUCache) shard(key string) *lru.Cache {
	h := fnv.New32a()
	h.Write([]byte(key))

	return c[h.Sum32()%uint32(len(c))]
}
