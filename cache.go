package main

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/icexin/chunkmesh/mesh"
	"github.com/pkg/errors"
)

// CachedModel is the mesh of one chunk at one version. Model is nil for
// chunks without a visible face.
type CachedModel struct {
	Id      Vec3
	Version int64
	Model   *mesh.Model
}

// release frees the buffer but leaves Model untouched, the render loop may
// still be reading it.
func (m *CachedModel) release() {
	if m.Model != nil && m.Model.Buffer != nil {
		m.Model.Buffer.Release()
	}
}

// ModelCache keeps the most recently built chunk models. Models leaving the
// cache, by eviction, replacement or removal, are released.
type ModelCache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

func NewModelCache(size int) (*ModelCache, error) {
	c, err := lru.NewWithEvict(size, func(key, value interface{}) {
		value.(*CachedModel).release()
	})
	if err != nil {
		return nil, errors.Wrap(err, "model cache")
	}
	return &ModelCache{lru: c}, nil
}

// Put stores m unless a model of a newer version is already cached, in
// which case m is released. It reports whether m was stored.
func (c *ModelCache) Put(m *CachedModel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.lru.Peek(m.Id); ok {
		old := v.(*CachedModel)
		if old == m {
			return true
		}
		if old.Version > m.Version {
			m.release()
			return false
		}
		// Add does not evict on replace
		old.release()
	}
	c.lru.Add(m.Id, m)
	return true
}

func (c *ModelCache) Get(id Vec3) (*CachedModel, bool) {
	v, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*CachedModel), true
}

// Peek is Get without touching the entry's recency.
func (c *ModelCache) Peek(id Vec3) (*CachedModel, bool) {
	v, ok := c.lru.Peek(id)
	if !ok {
		return nil, false
	}
	return v.(*CachedModel), true
}

func (c *ModelCache) Remove(id Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(id)
}

// DropOutside removes the models of chunks whose column is farther than
// radius chunks from center's and returns how many were removed.
func (c *ModelCache) DropOutside(center Vec3, radius int) int {
	var far []Vec3
	c.Range(func(m *CachedModel) bool {
		dx, dz := m.Id.X-center.X, m.Id.Z-center.Z
		if dx*dx+dz*dz > radius*radius {
			far = append(far, m.Id)
		}
		return true
	})
	for _, id := range far {
		c.Remove(id)
	}
	return len(far)
}

// Range calls f for every cached model, oldest first, until f returns false.
func (c *ModelCache) Range(f func(m *CachedModel) bool) {
	for _, k := range c.lru.Keys() {
		v, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		if !f(v.(*CachedModel)) {
			return
		}
	}
}

func (c *ModelCache) Len() int {
	return c.lru.Len()
}

// Purge releases every cached model.
func (c *ModelCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
