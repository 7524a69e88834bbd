package store

import (
	"fmt"
	"os"
	"sync"

	"smilestore/internal/domain"
)

const locksDir = ".locks"

// lockType serialises index read-modify-write for t. The returned func
// releases both the in-process mutex and the advisory file lock.
func (s *Store) lockType(t domain.EntityType) (func(), error) {
	mu, _ := s.locks.LoadOrCompute(t, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()

	if !s.fileLocks {
		return mu.Unlock, nil
	}

	name := s.fs.Join(locksDir, t.String()+".lock")
	f, err := s.fs.OpenFile(name, os.O_CREATE|os.O_RDWR, blobMode)
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("%w: open lock %s: %v", domain.ErrStorageIO, name, err)
	}
	if err := f.Lock(); err != nil {
		_ = f.Close()
		mu.Unlock()
		return nil, fmt.Errorf("%w: lock %s: %v", domain.ErrStorageIO, name, err)
	}
	return func() {
		_ = f.Unlock()
		_ = f.Close()
		mu.Unlock()
	}, nil
}
