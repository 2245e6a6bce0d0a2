package proxy

import (
	"fmt"
	"sync"

	"github.com/agilira/go-errors"
)

// Catalog provides named aspects at wiring time.
//
// Expected usage:
//
//	cfg, ok, err := cat.Resolve("timer")
type Catalog interface {
	Resolve(name string) (cfg Config, ok bool, err error)
}

// MapCatalog is a simple in-memory Catalog. It is safe for concurrent use.
type MapCatalog struct {
	mu    sync.RWMutex
	items map[string]Config
}

func NewMapCatalog() *MapCatalog {
	return &MapCatalog{items: map[string]Config{}}
}

// Provide stores cfg under name and returns the catalog for chaining.
func (c *MapCatalog) Provide(name string, cfg Config) *MapCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[name] = cfg
	return c
}

// Resolve implements Catalog and converts panics into errors.
func (c *MapCatalog) Resolve(name string) (cfg Config, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			cfg = Config{}
			ok = false
			err = errors.New(ErrCodeCatalogPanic, fmt.Sprintf("catalog: panic during Resolve(%q): %v", name, rec))
		}
	}()

	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok = c.items[name]
	return cfg, ok, nil
}

// Get returns the Config if present.
func (c *MapCatalog) Get(name string) (Config, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.items[name]
	return cfg, ok
}

// MustGet returns the Config or panics with a helpful message.
func (c *MapCatalog) MustGet(name string) Config {
	cfg, ok := c.Get(name)
	if !ok {
		panic(fmt.Errorf("proxy: catalog missing aspect %q", name))
	}
	return cfg
}

// Names lists the provided aspect names in no particular order.
func (c *MapCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.items))
	for name := range c.items {
		out = append(out, name)
	}
	return out
}

// Compose resolves each name in cat and chains the results in order. A
// missing name is an error with code PROXY_ASPECT_NOT_FOUND; catalog errors
// are wrapped with the offending name.
func Compose(cat Catalog, names ...string) (Config, error) {
	if len(names) == 0 {
		return Config{}, nil
	}
	if cat == nil {
		return Config{}, errors.New(ErrCodeAspectNotFound, fmt.Sprintf("proxy: no catalog to resolve %q", names[0]))
	}

	cfgs := make([]Config, 0, len(names))
	for _, name := range names {
		cfg, ok, err := cat.Resolve(name)
		if err != nil {
			return Config{}, errors.Wrap(err, ErrCodeAspectNotFound, fmt.Sprintf("proxy: resolve aspect %q", name))
		}
		if !ok {
			return Config{}, errors.New(ErrCodeAspectNotFound, fmt.Sprintf("proxy: aspect %q not found", name))
		}
		cfgs = append(cfgs, cfg)
	}
	return Chain(cfgs...), nil
}
