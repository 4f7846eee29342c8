package refs

import (
	"github.com/antgroup/gitvault/cache"
)

const packedRefsCacheKey = "packed-refs"

// CachedBackend decorates a Backend with a read-through cache over
// ReadPackedRefs, so repeated resolves against a large packed-refs file
// don't re-read and re-parse it on every call. The cache is invalidated
// whenever WritePackedRefs rewrites the file.
type CachedBackend struct {
	Backend
	cache *cache.Cache[*PackedRefs]
}

// NewCachedBackend wraps b with c, which callers size and TTL according to
// their own packed-refs churn rate.
func NewCachedBackend(b Backend, c *cache.Cache[*PackedRefs]) *CachedBackend {
	return &CachedBackend{Backend: b, cache: c}
}

func (b *CachedBackend) ReadPackedRefs() (*PackedRefs, error) {
	if p, ok := b.cache.Get(packedRefsCacheKey); ok {
		return p, nil
	}
	p, err := b.Backend.ReadPackedRefs()
	if err != nil {
		return nil, err
	}
	b.cache.Set(packedRefsCacheKey, p)
	return p, nil
}

func (b *CachedBackend) WritePackedRefs(p *PackedRefs) error {
	if err := b.Backend.WritePackedRefs(p); err != nil {
		return err
	}
	b.cache.Invalidate(packedRefsCacheKey)
	return nil
}
