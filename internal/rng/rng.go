package rng

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"math"
	mathrand "math/rand"
	"sync"
	"time"
)

// Source yields uniformly distributed floats in [0,1).
type Source interface {
	Float64() float64
}

// Locked wraps a math/rand generator so one source can be shared by the
// worker loop and request handlers.
type Locked struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

func New(seed int64) *Locked {
	return &Locked{rand: mathrand.New(mathrand.NewSource(seed))}
}

// NewEntropy seeds from crypto/rand, falling back to the wall clock.
func NewEntropy() *Locked {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return New(time.Now().UnixNano())
	}
	return New(int64(binary.LittleEndian.Uint64(buf[:])))
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rand.Float64()
}

// Reader turns a source into a byte stream, one draw per byte, so seeded
// sources can feed APIs such as uuid.NewRandomFromReader.
func Reader(src Source) io.Reader {
	return sourceReader{src}
}

type sourceReader struct {
	src Source
}

func (r sourceReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(IntRange(r.src, 0, 255))
	}
	return len(p), nil
}

func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// IntRange draws an integer in [lo, hi].
func IntRange(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	n := int(math.Floor(src.Float64() * float64(hi-lo+1)))
	if n > hi-lo {
		n = hi - lo
	}
	return lo + n
}

func Bernoulli(src Source, p float64) bool {
	return src.Float64() < p
}

func Pick[T any](src Source, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[IntRange(src, 0, len(items)-1)]
}

// Weighted returns the index of the bucket a single draw lands in. Weights
// need not sum to one; the last bucket absorbs rounding.
func Weighted(src Source, weights []float64) int {
	if len(weights) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := src.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}
