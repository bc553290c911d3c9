package voltframe

import "errors"

// Error classification sentinels.
//
// Concrete errors returned by this package wrap one of these. Callers
// should classify with errors.Is, not by comparing message text.
var (
	// ErrBus reports codebook/vector validation failures — the contract
	// the encoder owes the store (finite values, expected shape). The
	// codebook itself lives outside this module; this sentinel exists so
	// that ingestion-time validation failures are classifiable the same
	// way the reference source classifies them.
	ErrBus = errors.New("voltframe: bus")

	// ErrFrame reports slot/resolution range errors, empty-slot access,
	// or a vector that cannot be normalized (zero or near-zero norm).
	ErrFrame = errors.New("voltframe: frame")
)
