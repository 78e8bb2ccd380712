package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: 48-bit millisecond timestamp then 80 random bits,
// Crockford base32, so they sort by submission time.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var idGen struct {
	mu   sync.Mutex
	last uint64
	seq  uint16
}

// NewJobID returns a fresh ULID. IDs minted in the same millisecond carry
// an increasing sequence in their first random bytes.
func NewJobID() string {
	return newULID(time.Now())
}

func newULID(now time.Time) string {
	ms := uint64(now.UnixMilli())

	idGen.mu.Lock()
	if ms == idGen.last {
		idGen.seq++
	} else {
		idGen.last, idGen.seq = ms, 0
	}
	seq := idGen.seq
	idGen.mu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint16(b[0:2], uint16(ms>>32))
	binary.BigEndian.PutUint32(b[2:6], uint32(ms))
	_, _ = rand.Read(b[8:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeCrockford(b)
}

// encodeCrockford renders 128 bits as 26 base32 digits, most significant
// first. The leading digit holds only the top 3 bits.
func encodeCrockford(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])
	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
