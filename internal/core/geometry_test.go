package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/gridverse/internal/store"
)

func TestGeometryCacheReadThroughAndInvalidate(t *testing.T) {
	st := newMemStore()
	st.addRoom(store.RoomKindSpace, "1", 20, 20)
	cache := NewGeometryCache(st, 0)
	ctx := context.Background()
	key := RoomKey{Kind: store.RoomKindSpace, ID: "1"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()

	geo, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if geo.Width != 20 {
		t.Fatalf("unexpected geometry %+v", geo)
	}
	hits := st.hits()
	if hits < 1 || hits > 20 {
		t.Fatalf("unexpected store reads: %d", hits)
	}

	if _, err := cache.Get(ctx, key); err != nil || st.hits() != hits {
		t.Fatalf("expected cached read, store reads %d -> %d", hits, st.hits())
	}

	st.addRoom(store.RoomKindSpace, "1", 30, 30)
	cache.Invalidate(key)
	geo, err = cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if geo.Width != 30 {
		t.Fatalf("expected reloaded geometry, got %+v", geo)
	}
}

func TestGeometryCacheTTL(t *testing.T) {
	st := newMemStore()
	st.addRoom(store.RoomKindMap, "7", 10, 10)
	cache := NewGeometryCache(st, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	key := RoomKey{Kind: store.RoomKindMap, ID: "7"}

	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("Get: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.Get(context.Background(), key); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.hits() != 2 {
		t.Fatalf("expected expired entry to reload, store reads = %d", st.hits())
	}
}

func TestGeometryCacheMissingRoom(t *testing.T) {
	cache := NewGeometryCache(newMemStore(), 0)
	_, err := cache.Get(context.Background(), RoomKey{Kind: store.RoomKindSpace, ID: "404"})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

// slowRooms blocks GetRoom until release is closed or ctx is done.
type slowRooms struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *slowRooms) GetRoom(ctx context.Context, kind store.RoomKind, id string) (*store.Room, error) {
	r.once.Do(func() { close(r.started) })
	select {
	case <-r.release:
		return &store.Room{Kind: kind, ID: id, Width: 8, Height: 8}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestGeometryCacheSharedLoadSurvivesCallerCancel(t *testing.T) {
	rooms := &slowRooms{started: make(chan struct{}), release: make(chan struct{})}
	cache := NewGeometryCache(rooms, 0)
	key := RoomKey{Kind: store.RoomKindMap, ID: "1"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctxA, key)
		errA <- err
	}()
	<-rooms.started

	errB := make(chan error, 1)
	go func() {
		geo, err := cache.Get(context.Background(), key)
		if err == nil && geo.Width != 8 {
			err = errors.New("unexpected geometry")
		}
		errB <- err
	}()
	// Let B attach to the in-flight load before A goes away.
	time.Sleep(20 * time.Millisecond)

	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(rooms.release)

	select {
	case err := <-errB:
		if err != nil {
			t.Fatalf("second caller failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("second caller never returned")
	}
	<-errA
}
