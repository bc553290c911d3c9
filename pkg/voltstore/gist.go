package voltstore

import (
	"math"

	"github.com/voltxa/voltdb/pkg/voltframe"
)

// ExtractGist reduces a frame to a single 256-dim unit-L2 vector by
// averaging the R0 resolution of every populated slot that has one, then
// normalizing. Returns false if no slot has an R0 resolution, or if the
// mean vector's norm is too small to normalize (matches
// voltframe.TensorFrame.NormalizeSlot's near-zero threshold).
func ExtractGist(f *voltframe.TensorFrame) (*voltframe.Vector, bool) {
	var sum voltframe.Vector
	count := 0
	for _, s := range f.Slots {
		if s == nil || s.Resolutions[0] == nil {
			continue
		}
		r0 := s.Resolutions[0]
		for i, v := range r0 {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil, false
	}
	for i := range sum {
		sum[i] /= float32(count)
	}
	var sumSq float64
	for _, v := range sum {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm < 1e-10 {
		return nil, false
	}
	for i := range sum {
		sum[i] = float32(float64(sum[i]) / norm)
	}
	return &sum, true
}

// CosineDistance returns 1 - cosine_similarity(a, b), assuming both are
// already unit-L2 vectors (so the dot product alone gives similarity).
func CosineDistance(a, b *voltframe.Vector) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return 1 - dot
}
