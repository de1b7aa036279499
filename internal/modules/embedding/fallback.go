package embedding

import (
	"context"
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"
)

// FallbackVector derives a unit-length vector of length dim from text alone.
// The BLAKE2b-512 digest of text seeds a counter-mode expansion until dim
// bytes exist; each byte maps linearly onto [-1, 1].
func FallbackVector(text string, dim int) []float32 {
	if dim <= 0 {
		return nil
	}
	seed := blake2b.Sum512([]byte(text))
	buf := make([]byte, 0, dim+blake2b.Size)
	buf = append(buf, seed[:]...)
	var counter [8]byte
	for i := uint64(1); len(buf) < dim; i++ {
		binary.BigEndian.PutUint64(counter[:], i)
		h, _ := blake2b.New512(nil)
		_, _ = h.Write(seed[:])
		_, _ = h.Write(counter[:])
		buf = h.Sum(buf)
	}

	out := make([]float32, dim)
	var norm float64
	for i := 0; i < dim; i++ {
		v := float64(buf[i])/127.5 - 1
		out[i] = float32(v)
		norm += v * v
	}
	// Bytes are integers, so no component is exactly zero and norm > 0.
	inv := 1 / math.Sqrt(norm)
	for i := range out {
		out[i] = float32(float64(out[i]) * inv)
	}
	return out
}

// HashProvider is a deterministic Provider for offline runs and tests. Its
// vectors are tagged provider, unlike the adapter's own fallback.
type HashProvider struct {
	Dim int
}

func (p HashProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FallbackVector(text, p.Dim), nil
}
