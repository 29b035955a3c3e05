package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var defaultGen = NewGenerator()

// Generator hands out ULIDs from its own monotonic entropy source. Ids from
// one generator sort in the order they were created as long as their
// timestamps never go backwards.
type Generator struct {
	mu   sync.Mutex
	mono io.Reader
}

func NewGenerator() *Generator {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{mono: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// At returns a ULID stamped with t. Times outside the ULID range are clamped
// to its bounds, so pre-1970 dates share timestamp zero and keep creation
// order through the monotonic entropy.
func (g *Generator) At(t time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(timestamp(t), g.mono)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func timestamp(t time.Time) uint64 {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	if uint64(ms) > ulid.MaxTime() {
		return ulid.MaxTime()
	}
	return uint64(ms)
}

// New returns a ULID stamped with the wall clock from the shared generator.
func New() string {
	id, err := defaultGen.At(time.Now().UTC())
	if err != nil {
		// Monotonic entropy is exhausted only after 2^80 ids in one millisecond.
		panic(err)
	}
	return id
}
