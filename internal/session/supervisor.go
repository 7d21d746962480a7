package session

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
)

// Supervisor is the process-wide connection-id/secret-key allocator
// used for CancelRequest (spec.md §4.3). IDs are handed out from a
// bounded range and returned to a FIFO pool on Free so they can be
// reused, mirroring the bounded-range allocator shape of
// `hamzaKhattat-ara-production-system/internal/router/did_manager.go`'s
// in-memory id pool.
type Supervisor struct {
	mu     sync.Mutex
	minID  int32
	maxID  int32
	next   int32
	free   []int32
	active map[int32]int32 // id -> secret key
}

// NewSupervisor builds a Supervisor handing out ids in [minID, maxID].
func NewSupervisor(minID, maxID int32) *Supervisor {
	return &Supervisor{
		minID:  minID,
		maxID:  maxID,
		next:   minID,
		active: make(map[int32]int32),
	}
}

// Alloc reserves a fresh connection id and a random secret key. ok is
// false when the id space is exhausted (spec.md §4.3's `Exhausted`).
func (s *Supervisor) Alloc() (id int32, secret int32, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.free); n > 0 {
		id = s.free[0]
		s.free = s.free[1:]
	} else if s.next <= s.maxID {
		id = s.next
		s.next++
	} else {
		return 0, 0, false
	}

	secret = randomSecret()
	s.active[id] = secret
	return id, secret, true
}

// Free releases id back to the pool for reuse.
func (s *Supervisor) Free(id int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[id]; !ok {
		return
	}
	delete(s.active, id)
	s.free = append(s.free, id)
}

// Verify reports whether id is currently allocated with the given
// secret key, the check a CancelRequest must pass before its target
// connection is interrupted.
func (s *Supervisor) Verify(id int32, key int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	got, ok := s.active[id]
	return ok && got == key
}

func randomSecret() int32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is a fatal platform condition; a
		// zero-ish fallback keeps allocation from panicking mid-plan.
		return 1
	}
	return int32(binary.BigEndian.Uint32(buf[:]))
}
