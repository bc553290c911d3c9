package bloom

import "errors"

// ErrShortBloom indicates a serialized bloom filter buffer is too short or
// malformed to decode. Callers should use errors.Is(err, ErrShortBloom).
var ErrShortBloom = errors.New("bloom: short buffer")
