// Package voltframe defines the TensorFrame data model: the fixed-shape,
// sparse 3D tensor [16 slots x 4 resolutions x 256 dims] that is the unit of
// storage for the VoltDB tiered memory store.
package voltframe

import (
	"encoding/json"
	"fmt"
	"math"
)

// Fixed TensorFrame shape.
const (
	// MaxSlots is the number of slot positions in a TensorFrame (S).
	MaxSlots = 16
	// NumResolutions is the number of nested detail levels per slot (R).
	NumResolutions = 4
	// SlotDim is the dimensionality of every resolution vector (D).
	SlotDim = 256
)

// Vector is one resolution embedding: 256 float32 values.
type Vector = [SlotDim]float32

// SlotRole names the semantic role a populated slot plays in a frame.
type SlotRole struct {
	tag  uint8
	free uint8 // only meaningful when tag == slotRoleFreeTag
}

const slotRoleFreeTag = 9

// Named roles. Free holds an open-ended 8-bit discriminant for roles not
// covered by the nine fixed names.
var (
	RoleAgent      = SlotRole{tag: 0}
	RolePredicate  = SlotRole{tag: 1}
	RolePatient    = SlotRole{tag: 2}
	RoleLocation   = SlotRole{tag: 3}
	RoleTime       = SlotRole{tag: 4}
	RoleManner     = SlotRole{tag: 5}
	RoleInstrument = SlotRole{tag: 6}
	RoleCause      = SlotRole{tag: 7}
	RoleResult     = SlotRole{tag: 8}
)

// Free returns the open-ended role variant carrying the given discriminant.
func Free(n uint8) SlotRole { return SlotRole{tag: slotRoleFreeTag, free: n} }

// IsFree reports whether r is the open-ended Free(n) variant, returning n.
func (r SlotRole) IsFree() (n uint8, ok bool) {
	if r.tag == slotRoleFreeTag {
		return r.free, true
	}
	return 0, false
}

// Bytes encodes the role as the (tag, data) byte pair used by the
// compressed/gist binary codec (pkg/voltstore). data is only meaningful
// when tag selects Free.
func (r SlotRole) Bytes() (tag, data uint8) { return r.tag, r.free }

// RoleFromBytes decodes a (tag, data) byte pair into a SlotRole.
// Returns false for unknown tags.
func RoleFromBytes(tag, data uint8) (SlotRole, bool) {
	if tag <= 8 {
		return SlotRole{tag: tag}, true
	}
	if tag == slotRoleFreeTag {
		return SlotRole{tag: tag, free: data}, true
	}
	return SlotRole{}, false
}

// roleWire is SlotRole's JSON-visible shape, since tag/free are otherwise
// unexported (the public API goes through Bytes/RoleFromBytes).
type roleWire struct {
	Tag  uint8 `json:"tag"`
	Free uint8 `json:"free"`
}

func (r SlotRole) MarshalJSON() ([]byte, error) {
	return json.Marshal(roleWire{Tag: r.tag, Free: r.free})
}

func (r *SlotRole) UnmarshalJSON(data []byte) error {
	var w roleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.tag, r.free = w.Tag, w.Free
	return nil
}

func (r SlotRole) String() string {
	names := [...]string{"Agent", "Predicate", "Patient", "Location", "Time", "Manner", "Instrument", "Cause", "Result"}
	if int(r.tag) < len(names) {
		return names[r.tag]
	}
	return fmt.Sprintf("Free(%d)", r.free)
}

// DiscourseType classifies a frame's communicative function.
type DiscourseType uint8

const (
	DiscourseQuery DiscourseType = iota
	DiscourseStatement
	DiscourseCommand
	DiscourseResponse
	DiscourseCreative
	DiscourseUnknown
)

func (d DiscourseType) String() string {
	switch d {
	case DiscourseQuery:
		return "query"
	case DiscourseStatement:
		return "statement"
	case DiscourseCommand:
		return "command"
	case DiscourseResponse:
		return "response"
	case DiscourseCreative:
		return "creative"
	default:
		return "unknown"
	}
}

// SourceTag names where a slot's content was written from.
type SourceTag uint8

const (
	SourceEmpty SourceTag = iota
	SourceTranslator
	SourceSoftCore
	SourceHardCore
	SourceMemory
	SourcePersonal
)

// SlotMeta is per-slot metadata: certainty, provenance, freshness.
type SlotMeta struct {
	// Certainty (gamma) in [0,1].
	Certainty float32
	Source    SourceTag
	// UpdatedAt is the last-write timestamp in microseconds since epoch.
	UpdatedAt uint64
	NeedsVerify bool
}

// SlotData is a populated slot: a role plus up to four resolution vectors
// and an optional VQ-VAE codebook index ("Bus" collaborator, out of scope).
type SlotData struct {
	Role        SlotRole
	Resolutions [NumResolutions]*Vector
	CodebookID  *uint16
}

// NewSlotData creates an empty slot with the given role.
func NewSlotData(role SlotRole) SlotData {
	return SlotData{Role: role}
}

// WriteResolution sets resolution r of the slot in place. Out-of-range r is
// a caller bug (mirrors the reference source's array-indexing panic surface)
// and is guarded at the TensorFrame level instead, where it can return an error.
func (s *SlotData) WriteResolution(r int, v Vector) {
	s.Resolutions[r] = &v
}

// FrameMeta is frame-level metadata.
type FrameMeta struct {
	FrameID         uint64
	StrandID        uint64
	CreatedAt       uint64 // microseconds since epoch
	GlobalCertainty float32
	DiscourseType   DiscourseType
	Verified        bool
	ProofLength     uint32
	RARIterations   uint32
}

// TensorFrame is the fundamental unit of storage: a structured 3D tensor
// [16 slots x 4 resolutions x 256 dims]. Most slots are empty; a typical
// frame uses a handful of slots at one or two resolutions.
type TensorFrame struct {
	Slots [MaxSlots]*SlotData
	Meta  [MaxSlots]SlotMeta
	FrameMeta FrameMeta
}

// New returns an empty TensorFrame.
func New() *TensorFrame {
	return &TensorFrame{}
}

// IsEmpty reports whether every slot is unpopulated.
func (f *TensorFrame) IsEmpty() bool {
	for _, s := range f.Slots {
		if s != nil {
			return false
		}
	}
	return true
}

// ActiveSlotCount returns the number of populated slots.
func (f *TensorFrame) ActiveSlotCount() int {
	n := 0
	for _, s := range f.Slots {
		if s != nil {
			n++
		}
	}
	return n
}

// WriteSlot sets slot data at index.
func (f *TensorFrame) WriteSlot(index int, data SlotData) error {
	if index < 0 || index >= MaxSlots {
		return fmt.Errorf("slot index %d out of range [0,%d): %w", index, MaxSlots, ErrFrame)
	}
	f.Slots[index] = &data
	return nil
}

// ReadSlot returns the slot at index.
func (f *TensorFrame) ReadSlot(index int) (*SlotData, error) {
	if index < 0 || index >= MaxSlots {
		return nil, fmt.Errorf("slot index %d out of range [0,%d): %w", index, MaxSlots, ErrFrame)
	}
	if f.Slots[index] == nil {
		return nil, fmt.Errorf("slot %d is empty: %w", index, ErrFrame)
	}
	return f.Slots[index], nil
}

// ClearSlot empties the slot at index and resets its metadata.
func (f *TensorFrame) ClearSlot(index int) error {
	if index < 0 || index >= MaxSlots {
		return fmt.Errorf("slot index %d out of range [0,%d): %w", index, MaxSlots, ErrFrame)
	}
	f.Slots[index] = nil
	f.Meta[index] = SlotMeta{}
	return nil
}

// MinCertainty returns the minimum certainty across populated slots, or
// false if no slot is populated.
func (f *TensorFrame) MinCertainty() (float32, bool) {
	have := false
	var min float32
	for i, s := range f.Slots {
		if s == nil {
			continue
		}
		g := f.Meta[i].Certainty
		if !have || g < min {
			min = g
			have = true
		}
	}
	return min, have
}

// DataSizeBytes returns the approximate size in bytes of populated
// resolution data (ignores metadata overhead).
func (f *TensorFrame) DataSizeBytes() int {
	total := 0
	for _, s := range f.Slots {
		if s == nil {
			continue
		}
		for _, r := range s.Resolutions {
			if r != nil {
				total += SlotDim * 4
			}
		}
	}
	return total
}

// WriteAt writes a raw embedding at a specific slot and resolution,
// creating the slot with the given role if it does not yet exist.
func (f *TensorFrame) WriteAt(slotIndex, resolution int, role SlotRole, data Vector) error {
	if slotIndex < 0 || slotIndex >= MaxSlots {
		return fmt.Errorf("slot index %d out of range [0,%d): %w", slotIndex, MaxSlots, ErrFrame)
	}
	if resolution < 0 || resolution >= NumResolutions {
		return fmt.Errorf("resolution %d out of range [0,%d): %w", resolution, NumResolutions, ErrFrame)
	}
	if f.Slots[slotIndex] == nil {
		f.Slots[slotIndex] = &SlotData{Role: role}
	}
	f.Slots[slotIndex].Resolutions[resolution] = &data
	return nil
}

// NormalizeSlot L2-normalizes the vector at (slotIndex, resolution) in place.
func (f *TensorFrame) NormalizeSlot(slotIndex, resolution int) error {
	if slotIndex < 0 || slotIndex >= MaxSlots {
		return fmt.Errorf("slot index %d out of range [0,%d): %w", slotIndex, MaxSlots, ErrFrame)
	}
	if resolution < 0 || resolution >= NumResolutions {
		return fmt.Errorf("resolution %d out of range [0,%d): %w", resolution, NumResolutions, ErrFrame)
	}
	slot := f.Slots[slotIndex]
	if slot == nil {
		return fmt.Errorf("slot %d is empty: %w", slotIndex, ErrFrame)
	}
	vec := slot.Resolutions[resolution]
	if vec == nil {
		return fmt.Errorf("resolution %d is empty in slot %d: %w", resolution, slotIndex, ErrFrame)
	}
	var sumSq float64
	for _, x := range vec {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm < 1e-10 {
		return fmt.Errorf("cannot normalize zero vector at slot %d, resolution %d: %w", slotIndex, resolution, ErrFrame)
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return nil
}

// NormalizeAll normalizes every populated resolution in every active slot.
// Stops and returns the first error encountered (partial normalization may
// have occurred).
func (f *TensorFrame) NormalizeAll() error {
	for slotIdx := 0; slotIdx < MaxSlots; slotIdx++ {
		if f.Slots[slotIdx] == nil {
			continue
		}
		for resIdx := 0; resIdx < NumResolutions; resIdx++ {
			if f.Slots[slotIdx].Resolutions[resIdx] == nil {
				continue
			}
			if err := f.NormalizeSlot(slotIdx, resIdx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Merge combines two TensorFrames, resolving per-slot conflicts by keeping
// the higher-certainty slot (ties favor the receiver f). Frame metadata is
// merged with f's strand/discourse type preferred and global certainty
// recomputed from the result.
func (f *TensorFrame) Merge(other *TensorFrame, now uint64) *TensorFrame {
	merged := New()
	for i := 0; i < MaxSlots; i++ {
		a, b := f.Slots[i], other.Slots[i]
		switch {
		case a != nil && b != nil:
			if f.Meta[i].Certainty >= other.Meta[i].Certainty {
				merged.Slots[i] = a
				merged.Meta[i] = f.Meta[i]
			} else {
				merged.Slots[i] = b
				merged.Meta[i] = other.Meta[i]
			}
		case a != nil:
			merged.Slots[i] = a
			merged.Meta[i] = f.Meta[i]
		case b != nil:
			merged.Slots[i] = b
			merged.Meta[i] = other.Meta[i]
		}
	}

	merged.FrameMeta = FrameMeta{
		StrandID:      f.FrameMeta.StrandID,
		DiscourseType: f.FrameMeta.DiscourseType,
		CreatedAt:     now,
		RARIterations: f.FrameMeta.RARIterations + other.FrameMeta.RARIterations,
		Verified:      false,
		ProofLength:   maxU32(f.FrameMeta.ProofLength, other.FrameMeta.ProofLength),
	}
	if gc, ok := merged.MinCertainty(); ok {
		merged.FrameMeta.GlobalCertainty = gc
	}
	return merged
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
