package slot

import (
	"context"
	"fmt"
	"sync"
)

/*
Store is an interface to manage a store where slots can be created,
retrieved, updated and deleted at checkpoint time.

All its methods take a context that may allow cancelling the operation
(thus forcing the return of an error) if the implementation allows it.
*/
type Store interface {
	// Create takes a slot and stores it for the
	// first time in the store, creating an ID for
	// it and setting it on the slot. It returns
	// an error if the slot cannot be stored.
	Create(ctx context.Context, s *Slot) error
	// Get takes an id and returns the slot in the
	// store with that id (or nil if it cannot be
	// found) or an error if the store cannot be
	// queried
	Get(ctx context.Context, id string) (*Slot, error)
	// Store takes a slot already existing in the store
	// and updates it on the store. It expects the slot
	// to have an ID which it will not alter. It returns
	// an error if the update cannot be performed.
	Store(ctx context.Context, s *Slot) error
	// Delete takes a slot already existing in the store
	// and deletes it on the store. It returns an error
	// if the slot exists but the deletion cannot be
	// performed.
	Delete(ctx context.Context, s *Slot) error
	// Close closes the store, implementations should
	// free any resources in use as well as ensure
	// any pending changes are applied before returning
	// (unless the context expires). It returns an error
	// if the Close cannot be completed (because of the
	// context or another error)
	Close(ctx context.Context) error
}

type memoryStore struct {
	slots  map[string]*Slot
	lock   *sync.RWMutex
	nextID uint64
}

// NewMemoryStore returns an implementation
// of Store with the process memory space
// as underlying backend
func NewMemoryStore() Store {
	return &memoryStore{
		slots: make(map[string]*Slot),
		lock:  &sync.RWMutex{},
	}
}

func (ms *memoryStore) Create(ctx context.Context, s *Slot) error {
	return ms.withLock(ctx, func(ctx context.Context) error {
		taken := true
		for taken {
			if err := ctx.Err(); err != nil {
				return err
			}
			ms.nextID++
			s.ID = fmt.Sprintf("%d", ms.nextID)
			_, taken = ms.slots[s.ID]
		}
		ms.slots[s.ID] = s
		return nil
	})
}

func (ms *memoryStore) Get(ctx context.Context, id string) (*Slot, error) {
	var s *Slot
	err := ms.withRLock(ctx, func(ctx context.Context) error {
		s = ms.slots[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (ms *memoryStore) Store(ctx context.Context, s *Slot) error {
	return ms.withLock(ctx, func(ctx context.Context) error {
		ms.slots[s.ID] = s
		return nil
	})
}

func (ms *memoryStore) Delete(ctx context.Context, s *Slot) error {
	return ms.withLock(ctx, func(ctx context.Context) error {
		delete(ms.slots, s.ID)
		return nil
	})
}

func (ms *memoryStore) Close(ctx context.Context) error {
	return nil
}

func (ms *memoryStore) withLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		ms.lock.Lock()
		select {
		case <-ctx.Done():
			ms.lock.Unlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.Unlock()
	}
	return f(ctx)
}

func (ms *memoryStore) withRLock(ctx context.Context, f func(ctx context.Context) error) error {
	gotLock := make(chan struct{})
	go func() {
		ms.lock.RLock()
		select {
		case <-ctx.Done():
			ms.lock.RUnlock()
		case gotLock <- struct{}{}:
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gotLock:
		defer ms.lock.RUnlock()
	}
	return f(ctx)
}
