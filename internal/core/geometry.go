package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vovakirdan/gridverse/internal/store"
	"golang.org/x/sync/singleflight"
)

// Geometry is the static layout of a room in cells.
type Geometry struct {
	Width     int
	Height    int
	Obstacles []store.Obstacle
}

type geometryEntry struct {
	geo      *Geometry
	loadedAt time.Time
}

// GeometryCache is a read-through cache of room geometry. Concurrent misses
// for the same room share one store read. A ttl of zero never expires.
type GeometryCache struct {
	rooms store.RoomStore
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[RoomKey]geometryEntry
	// gens is bumped by Invalidate so an in-flight load cannot store stale data.
	gens map[RoomKey]uint64
}

// NewGeometryCache constructs a cache backed by rooms.
func NewGeometryCache(rooms store.RoomStore, ttl time.Duration) *GeometryCache {
	return &GeometryCache{
		rooms:   rooms,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[RoomKey]geometryEntry),
		gens:    make(map[RoomKey]uint64),
	}
}

// Get returns the geometry for key. A missing room yields ErrRoomNotFound.
func (c *GeometryCache) Get(ctx context.Context, key RoomKey) (*Geometry, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && (c.ttl <= 0 || c.now().Sub(e.loadedAt) < c.ttl) {
		c.mu.Unlock()
		return e.geo, nil
	}
	gen := c.gens[key]
	c.mu.Unlock()

	// The load is shared by every waiter, so one caller going away must not fail the rest.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		room, err := c.rooms.GetRoom(loadCtx, key.Kind, key.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, key)
			}
			return nil, fmt.Errorf("load room %s: %w", key, err)
		}

		geo := &Geometry{
			Width:     room.Width,
			Height:    room.Height,
			Obstacles: room.Obstacles,
		}

		c.mu.Lock()
		if c.gens[key] == gen {
			c.entries[key] = geometryEntry{geo: geo, loadedAt: c.now()}
		}
		c.mu.Unlock()
		return geo, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Geometry), nil
}

// Invalidate drops the cached geometry for key.
func (c *GeometryCache) Invalidate(key RoomKey) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()

	c.group.Forget(key.String())
}
