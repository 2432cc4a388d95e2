package catalog

import (
	"context"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// NameCache resolves set names through an LRU cache, refilling it from the whole
// catalog on a miss. Concurrent misses share a single catalog call.
type NameCache struct {
	catalog domain.SetCatalog
	cache   *lru.Cache
	group   singleflight.Group
}

func NewNameCache(catalog domain.SetCatalog, size int) (*NameCache, error) {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &NameCache{catalog: catalog, cache: cache}, nil
}

// SetName returns the set's display name; found is false when the catalog does not know it.
func (c *NameCache) SetName(ctx context.Context, setID string) (name string, found bool, err error) {
	if v, ok := c.cache.Get(setID); ok {
		return v.(string), true, nil
	}

	_, err, _ = c.group.Do("all", func() (interface{}, error) {
		sets, err := c.catalog.GetAllSets(ctx)
		if err != nil {
			return nil, err
		}
		for id, n := range sets {
			c.cache.Add(id, n)
		}
		return nil, nil
	})
	if err != nil {
		return "", false, err
	}

	if v, ok := c.cache.Get(setID); ok {
		return v.(string), true, nil
	}
	return "", false, nil
}
