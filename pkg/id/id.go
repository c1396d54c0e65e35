// Package id mints ULID strings for OCA group tokens and order-record ids.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator mints time-sortable ULIDs. Each generator owns its entropy, so
// components that need their own id stream (or a deterministic one in
// tests) can be handed a dedicated instance.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator returns a generator with crypto-seeded monotonic entropy:
// ids minted within the same millisecond still sort.
func NewGenerator() *Generator {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

// New returns a fresh ULID string.
//
// OCA group tokens in particular must be unique per bracket: reusing one
// would link unrelated brackets into a single cancel set at the broker.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.entropy)
	if err != nil {
		// Only possible if time goes backwards or entropy fails.
		panic(err)
	}
	return u.String()
}
