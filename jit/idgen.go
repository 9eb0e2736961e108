package jit

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// idCounter and newCorrelationID are adapted from the teacher's
// `storage/fast_uuid.go` newUUID: a lock-free counter XORed with a
// time-derived seed, stamped with the RFC 4122 variant and version-4 bits,
// so the hot path of recording a CompileError never pays for
// crypto/rand-backed uuid.New()'s mutex.
var idCounter uint64 = uint64(time.Now().UnixNano())

func newCorrelationID() uuid.UUID {
	var b [16]byte
	n := atomic.AddUint64(&idCounter, 1)
	seed := n ^ uint64(time.Now().UnixNano())
	binary.LittleEndian.PutUint64(b[0:8], seed)
	binary.LittleEndian.PutUint64(b[8:16], n)
	b[8] = (b[8] & 0x3f) | 0x80 // RFC 4122 variant
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	id, _ := uuid.FromBytes(b[:])
	return id
}
