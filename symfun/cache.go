package symfun

import (
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lunfardo314/easysym/expr"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

const DefaultCacheCapacity = 256

// Key identifies compile inputs: expression structure, ordered input symbols,
// library and custom function sources
type Key [blake2b.Size256]byte

func (k Key) String() string {
	return fmt.Sprintf("%x", k[:8])
}

// KeyOf computes the cache key of the compile inputs. Loggers do not contribute
func KeyOf(e expr.Expr, symbols []*expr.Symbol, opts ...CompileOption) Key {
	options := makeCompileOptions(opts)
	buf := make([]byte, 0, 256)
	buf = append(buf, expr.Key(e)...)
	buf = append(buf, '|')
	if symbols == nil {
		buf = append(buf, '*')
	}
	for _, s := range symbols {
		var id uint64
		if s != nil {
			id = s.ID()
		}
		buf = binary.BigEndian.AppendUint64(buf, id)
	}
	buf = append(buf, '|')
	buf = binary.BigEndian.AppendUint64(buf, options.lib.ID())
	for _, src := range options.sources {
		buf = append(buf, '|')
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(src)))
		buf = append(buf, src...)
	}
	return blake2b.Sum256(buf)
}

// Cache memoizes compiled functions with least-recently-used eviction.
// A hit returns the very instance stored by the miss
type Cache struct {
	lru       *lru.Cache[Key, *CompiledFunction]
	flight    singleflight.Group
	log       *zap.SugaredLogger
	hits      *atomic.Uint64
	misses    *atomic.Uint64
	evictions *atomic.Uint64
}

type CacheStats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func NewCache(capacity int, log *zap.SugaredLogger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ret := &Cache{
		log:       log.Named("cache"),
		hits:      atomic.NewUint64(0),
		misses:    atomic.NewUint64(0),
		evictions: atomic.NewUint64(0),
	}
	var err error
	ret.lru, err = lru.NewWithEvict[Key, *CompiledFunction](capacity, func(key Key, f *CompiledFunction) {
		ret.evictions.Inc()
		ret.log.Debugf("evicted %s: %s", key, f.source)
	})
	if err != nil {
		return nil, fmt.Errorf("NewCache: %w", err)
	}
	return ret, nil
}

// GetOrCompile returns the function stored under key or stores the result of
// compile. Concurrent misses on the same key compile once
func (c *Cache) GetOrCompile(key Key, compile func() (*CompiledFunction, error)) (*CompiledFunction, error) {
	if f, ok := c.lru.Get(key); ok {
		c.hits.Inc()
		return f, nil
	}
	v, err, _ := c.flight.Do(string(key[:]), func() (interface{}, error) {
		// another flight may have stored it between the lookup and now
		if f, ok := c.lru.Get(key); ok {
			c.hits.Inc()
			return f, nil
		}
		c.misses.Inc()
		f, err := compile()
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, f)
		c.log.Debugf("stored %s: %s", key, f.source)
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CompiledFunction), nil
}

// Compile is Compile memoized by KeyOf
func (c *Cache) Compile(e expr.Expr, symbols []*expr.Symbol, opts ...CompileOption) (*CompiledFunction, error) {
	return c.GetOrCompile(KeyOf(e, symbols, opts...), func() (*CompiledFunction, error) {
		return Compile(e, symbols, opts...)
	})
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

func (c *Cache) Purge() {
	c.lru.Purge()
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Len:       c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

var defaultCache = mustNewCache(DefaultCacheCapacity)

func mustNewCache(capacity int) *Cache {
	ret, err := NewCache(capacity, nil)
	if err != nil {
		panic(err)
	}
	return ret
}

// DefaultCache is the cache used by CompileOrGetCached
func DefaultCache() *Cache {
	return defaultCache
}

// CompileOrGetCached compiles through the process wide default cache
func CompileOrGetCached(e expr.Expr, symbols []*expr.Symbol, opts ...CompileOption) (*CompiledFunction, error) {
	return defaultCache.Compile(e, symbols, opts...)
}
