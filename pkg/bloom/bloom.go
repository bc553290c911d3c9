// Package bloom implements a space-efficient probabilistic membership test
// over uint64 keys, used by the T2 LSM engine (pkg/voltstore) to avoid
// unnecessary index scans on sorted-run lookups.
package bloom

import (
	"encoding/binary"
	"math"
)

// Filter is a Kirsch-Mitzenmacher double-hashing bloom filter: k hash
// positions are derived from two base hashes (h1, h2) as h1 + i*h2, which
// is statistically equivalent to k independent hash functions.
type Filter struct {
	bits []uint64 // bit array, 64 bits per word
	m    uint64   // number of bits
	k    uint64   // number of hash functions
}

// New returns a filter sized for n expected insertions at target false
// positive rate p. Both must be positive; p should be in (0,1).
func New(n uint64, p float64) *Filter {
	if n == 0 {
		n = 1
	}
	if p <= 0 || p >= 1 {
		p = 0.01
	}
	m := optimalM(n, p)
	k := optimalK(m, n)
	words := (m + 63) / 64
	return &Filter{
		bits: make([]uint64, words),
		m:    words * 64,
		k:    k,
	}
}

func optimalM(n uint64, p float64) uint64 {
	m := math.Ceil(-1 * float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if m < 8 {
		m = 8
	}
	return uint64(m)
}

func optimalK(m, n uint64) uint64 {
	k := math.Round(float64(m) / float64(n) * math.Ln2)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	return uint64(k)
}

// hash64 returns two independent-ish 64-bit hashes of key using splitmix64,
// seeded differently, for the Kirsch-Mitzenmacher construction.
func hash64(key uint64) (h1, h2 uint64) {
	h1 = splitmix64(key ^ 0x9E3779B97F4A7C15)
	h2 = splitmix64(key ^ 0xBF58476D1CE4E5B9)
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x = x ^ (x >> 31)
	return x
}

// Insert adds key to the filter.
func (f *Filter) Insert(key uint64) {
	h1, h2 := hash64(key)
	for i := uint64(0); i < f.k; i++ {
		pos := (h1 + i*h2) % f.m
		f.bits[pos/64] |= 1 << (pos % 64)
	}
}

// MayContain reports whether key might be in the filter. False means key
// is definitely absent; true means key is present or this is a false
// positive.
func (f *Filter) MayContain(key uint64) bool {
	h1, h2 := hash64(key)
	for i := uint64(0); i < f.k; i++ {
		pos := (h1 + i*h2) % f.m
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// Bytes serializes the filter: m:u64 LE | k:u64 LE | bit words as u64 LE.
func (f *Filter) Bytes() []byte {
	buf := make([]byte, 16+len(f.bits)*8)
	binary.LittleEndian.PutUint64(buf[0:8], f.m)
	binary.LittleEndian.PutUint64(buf[8:16], f.k)
	for i, w := range f.bits {
		binary.LittleEndian.PutUint64(buf[16+i*8:24+i*8], w)
	}
	return buf
}

// FromBytes deserializes a filter produced by Bytes.
func FromBytes(data []byte) (*Filter, error) {
	if len(data) < 16 {
		return nil, ErrShortBloom
	}
	m := binary.LittleEndian.Uint64(data[0:8])
	k := binary.LittleEndian.Uint64(data[8:16])
	rest := data[16:]
	if uint64(len(rest))%8 != 0 {
		return nil, ErrShortBloom
	}
	words := make([]uint64, len(rest)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(rest[i*8 : i*8+8])
	}
	return &Filter{bits: words, m: m, k: k}, nil
}
