package voltstore

import (
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/voltxa/voltdb/pkg/voltframe"
)

// CompressedSlot retains only the coarsest two resolutions (R0, R1) of a
// slot, plus an optional codebook reference standing in for the discarded
// finer resolutions. Grounded on compressed.rs's CompressedSlot.
type CompressedSlot struct {
	Role       voltframe.SlotRole
	Certainty  float32
	R0         *voltframe.Vector
	R1         *voltframe.Vector
	CodebookID *uint16
}

// CompressedFrame is a TensorFrame with all slots downgraded to
// CompressedSlot. Grounded on compressed.rs's CompressedFrame.
type CompressedFrame struct {
	FrameID         uint64
	StrandID        uint64
	CreatedAt       uint64
	GlobalCertainty float32
	DiscourseType   voltframe.DiscourseType
	Verified        bool
	Slots           [voltframe.MaxSlots]*CompressedSlot
}

// GistFrame retains only each populated slot's R0 vector plus the
// frame-level gist vector, discarding role, certainty, and every other
// resolution. Grounded on compressed.rs's GistFrame.
type GistFrame struct {
	FrameID         uint64
	StrandID        uint64
	CreatedAt       uint64
	GlobalCertainty float32
	SlotGists       [voltframe.MaxSlots]*voltframe.Vector
	GistVector      voltframe.Vector
}

// Tombstone marks a frame as reclaimed, optionally pointing at the frame
// (e.g. a wisdom frame from consolidation) that superseded it. Grounded on
// compressed.rs's Tombstone.
type Tombstone struct {
	FrameID       uint64
	StrandID      uint64
	TombstonedAt  uint64
	SupersededBy  *uint64
}

// FrameEntry is the tagged union of the four decay levels, as stored in T2.
// Exactly one of Full/Compressed/Gist/Tomb is non-nil.
type FrameEntry struct {
	Full       *voltframe.TensorFrame
	Compressed *CompressedFrame
	Gist       *GistFrame
	Tomb       *Tombstone
}

func (e *FrameEntry) DecayLevel() DecayLevel {
	switch {
	case e.Full != nil:
		return DecayFull
	case e.Compressed != nil:
		return DecayCompressed
	case e.Gist != nil:
		return DecayGist
	default:
		return DecayTombstoned
	}
}

func (e *FrameEntry) FrameID() uint64 {
	switch {
	case e.Full != nil:
		return e.Full.FrameMeta.FrameID
	case e.Compressed != nil:
		return e.Compressed.FrameID
	case e.Gist != nil:
		return e.Gist.FrameID
	default:
		return e.Tomb.FrameID
	}
}

func (e *FrameEntry) StrandID() uint64 {
	switch {
	case e.Full != nil:
		return e.Full.FrameMeta.StrandID
	case e.Compressed != nil:
		return e.Compressed.StrandID
	case e.Gist != nil:
		return e.Gist.StrandID
	default:
		return e.Tomb.StrandID
	}
}

func (e *FrameEntry) CreatedAt() uint64 {
	switch {
	case e.Full != nil:
		return e.Full.FrameMeta.CreatedAt
	case e.Compressed != nil:
		return e.Compressed.CreatedAt
	case e.Gist != nil:
		return e.Gist.CreatedAt
	default:
		return e.Tomb.TombstonedAt
	}
}

// GlobalCertainty returns the frame's certainty, or 0 for tombstones.
func (e *FrameEntry) GlobalCertainty() float32 {
	switch {
	case e.Full != nil:
		return e.Full.FrameMeta.GlobalCertainty
	case e.Compressed != nil:
		return e.Compressed.GlobalCertainty
	case e.Gist != nil:
		return e.Gist.GlobalCertainty
	default:
		return 0
	}
}

// Compress downgrades a TensorFrame to CompressedFrame, keeping only R0/R1
// of each populated slot.
func Compress(f *voltframe.TensorFrame) *CompressedFrame {
	cf := &CompressedFrame{
		FrameID:         f.FrameMeta.FrameID,
		StrandID:        f.FrameMeta.StrandID,
		CreatedAt:       f.FrameMeta.CreatedAt,
		GlobalCertainty: f.FrameMeta.GlobalCertainty,
		DiscourseType:   f.FrameMeta.DiscourseType,
		Verified:        f.FrameMeta.Verified,
	}
	for i, s := range f.Slots {
		if s == nil {
			continue
		}
		cs := &CompressedSlot{
			Role:       s.Role,
			Certainty:  f.Meta[i].Certainty,
			CodebookID: s.CodebookID,
		}
		if s.Resolutions[0] != nil {
			v := *s.Resolutions[0]
			cs.R0 = &v
		}
		if s.Resolutions[1] != nil {
			v := *s.Resolutions[1]
			cs.R1 = &v
		}
		cf.Slots[i] = cs
	}
	return cf
}

// ToGistFrame downgrades a CompressedFrame to a GistFrame: each slot's R0
// vector (if any) survives as-is, a slot with no R0 is dropped entirely
// even if it was populated in the CompressedFrame, and gist carries the
// frame-level gist vector, the normalized mean of the R0s (see gist.go).
func (cf *CompressedFrame) ToGistFrame(gist *voltframe.Vector) *GistFrame {
	gf := &GistFrame{
		FrameID:         cf.FrameID,
		StrandID:        cf.StrandID,
		CreatedAt:       cf.CreatedAt,
		GlobalCertainty: cf.GlobalCertainty,
		GistVector:      *gist,
	}
	for i, s := range cf.Slots {
		if s == nil || s.R0 == nil {
			continue
		}
		v := *s.R0
		gf.SlotGists[i] = &v
	}
	return gf
}

// ToTombstone reclaims a GistFrame entirely, optionally recording the
// frame that superseded it (e.g. a consolidation wisdom frame).
func (gf *GistFrame) ToTombstone(tombstonedAt uint64, supersededBy *uint64) *Tombstone {
	return &Tombstone{
		FrameID:      gf.FrameID,
		StrandID:     gf.StrandID,
		TombstonedAt: tombstonedAt,
		SupersededBy: supersededBy,
	}
}

// --- binary codec ---
//
// Full frames are serialized with encoding/json, matching the teacher's
// pervasive choice of JSON for on-disk structures.
// Compressed/Gist/Tombstone use fixed little-endian binary layouts (role as
// a (tag,free) byte pair, discourse type as one byte, a u16 slot-presence
// bitmask, f32 arrays). Each populated CompressedSlot is written as role
// tag, role data, certainty, then a single flags byte (bit 0: R0 follows,
// bit 1: R1 follows, bit 2: codebook id follows) and the present fields in
// that order; R0, R1 and the codebook id share that one flags byte rather
// than each having a flag byte of its own.

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putF32(buf []byte, v float32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	return append(buf, b[:]...)
}

func putVector(buf []byte, v *voltframe.Vector) []byte {
	for _, f := range v {
		buf = putF32(buf, f)
	}
	return buf
}

func readU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, wrapStorage("read u64", errTruncated)
	}
	return binary.LittleEndian.Uint64(b[:8]), b[8:], nil
}

func readF32(b []byte) (float32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, wrapStorage("read f32", errTruncated)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b[:4])), b[4:], nil
}

func readVector(b []byte) (*voltframe.Vector, []byte, error) {
	var v voltframe.Vector
	for i := range v {
		f, rest, err := readF32(b)
		if err != nil {
			return nil, nil, err
		}
		v[i] = f
		b = rest
	}
	return &v, b, nil
}

// ToBinary encodes a CompressedFrame per the on-disk layout described
// above.
func (cf *CompressedFrame) ToBinary() []byte {
	buf := make([]byte, 0, 256)
	buf = putU64(buf, cf.FrameID)
	buf = putU64(buf, cf.StrandID)
	buf = putU64(buf, cf.CreatedAt)
	buf = putF32(buf, cf.GlobalCertainty)
	buf = append(buf, byte(cf.DiscourseType))
	if cf.Verified {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	var presence uint16
	for i, s := range cf.Slots {
		if s != nil {
			presence |= 1 << uint(i)
		}
	}
	var pb [2]byte
	binary.LittleEndian.PutUint16(pb[:], presence)
	buf = append(buf, pb[:]...)
	for _, s := range cf.Slots {
		if s == nil {
			continue
		}
		roleTag, roleData := s.Role.Bytes()
		buf = append(buf, roleTag, roleData)
		buf = putF32(buf, s.Certainty)
		var sp byte
		if s.R0 != nil {
			sp |= 1
		}
		if s.R1 != nil {
			sp |= 2
		}
		if s.CodebookID != nil {
			sp |= 4
		}
		buf = append(buf, sp)
		if s.R0 != nil {
			buf = putVector(buf, s.R0)
		}
		if s.R1 != nil {
			buf = putVector(buf, s.R1)
		}
		if s.CodebookID != nil {
			var cb [2]byte
			binary.LittleEndian.PutUint16(cb[:], *s.CodebookID)
			buf = append(buf, cb[:]...)
		}
	}
	return buf
}

// CompressedFrameFromBinary decodes a buffer produced by ToBinary.
func CompressedFrameFromBinary(b []byte) (*CompressedFrame, error) {
	cf := &CompressedFrame{}
	var err error
	cf.FrameID, b, err = readU64(b)
	if err != nil {
		return nil, err
	}
	cf.StrandID, b, err = readU64(b)
	if err != nil {
		return nil, err
	}
	cf.CreatedAt, b, err = readU64(b)
	if err != nil {
		return nil, err
	}
	cf.GlobalCertainty, b, err = readF32(b)
	if err != nil {
		return nil, err
	}
	if len(b) < 1 {
		return nil, wrapStorage("discourse type", errTruncated)
	}
	cf.DiscourseType = voltframe.DiscourseType(b[0])
	b = b[1:]
	if len(b) < 1 {
		return nil, wrapStorage("verified flag", errTruncated)
	}
	cf.Verified = b[0] != 0
	b = b[1:]
	if len(b) < 2 {
		return nil, wrapStorage("slot presence", errTruncated)
	}
	presence := binary.LittleEndian.Uint16(b[:2])
	b = b[2:]
	for i := 0; i < voltframe.MaxSlots; i++ {
		if presence&(1<<uint(i)) == 0 {
			continue
		}
		if len(b) < 2 {
			return nil, wrapStorage("slot role", errTruncated)
		}
		role, ok := voltframe.RoleFromBytes(b[0], b[1])
		if !ok {
			return nil, wrapStorage("slot role", errBadRole)
		}
		b = b[2:]
		cs := &CompressedSlot{Role: role}
		var err error
		cs.Certainty, b, err = readF32(b)
		if err != nil {
			return nil, err
		}
		if len(b) < 1 {
			return nil, wrapStorage("slot presence byte", errTruncated)
		}
		sp := b[0]
		b = b[1:]
		if sp&1 != 0 {
			cs.R0, b, err = readVector(b)
			if err != nil {
				return nil, err
			}
		}
		if sp&2 != 0 {
			cs.R1, b, err = readVector(b)
			if err != nil {
				return nil, err
			}
		}
		if sp&4 != 0 {
			if len(b) < 2 {
				return nil, wrapStorage("codebook id", errTruncated)
			}
			id := binary.LittleEndian.Uint16(b[:2])
			cs.CodebookID = &id
			b = b[2:]
		}
		cf.Slots[i] = cs
	}
	return cf, nil
}

// ToBinary encodes a GistFrame: header, slot_presence bitmask, one
// 256-f32-LE vector per populated slot (in increasing slot-index order),
// then the frame-level 256-f32-LE gist vector — always present, per
// compressed.rs's gist_frame_to_binary.
func (gf *GistFrame) ToBinary() []byte {
	buf := make([]byte, 0, 64)
	buf = putU64(buf, gf.FrameID)
	buf = putU64(buf, gf.StrandID)
	buf = putU64(buf, gf.CreatedAt)
	buf = putF32(buf, gf.GlobalCertainty)
	var presence uint16
	for i, v := range gf.SlotGists {
		if v != nil {
			presence |= 1 << uint(i)
		}
	}
	var pb [2]byte
	binary.LittleEndian.PutUint16(pb[:], presence)
	buf = append(buf, pb[:]...)
	for _, v := range gf.SlotGists {
		if v != nil {
			buf = putVector(buf, v)
		}
	}
	buf = putVector(buf, &gf.GistVector)
	return buf
}

// GistFrameFromBinary decodes a buffer produced by ToBinary.
func GistFrameFromBinary(b []byte) (*GistFrame, error) {
	gf := &GistFrame{}
	var err error
	gf.FrameID, b, err = readU64(b)
	if err != nil {
		return nil, err
	}
	gf.StrandID, b, err = readU64(b)
	if err != nil {
		return nil, err
	}
	gf.CreatedAt, b, err = readU64(b)
	if err != nil {
		return nil, err
	}
	gf.GlobalCertainty, b, err = readF32(b)
	if err != nil {
		return nil, err
	}
	if len(b) < 2 {
		return nil, wrapStorage("gist presence", errTruncated)
	}
	presence := binary.LittleEndian.Uint16(b[:2])
	b = b[2:]
	for i := 0; i < voltframe.MaxSlots; i++ {
		if presence&(1<<uint(i)) == 0 {
			continue
		}
		var v *voltframe.Vector
		v, b, err = readVector(b)
		if err != nil {
			return nil, err
		}
		gf.SlotGists[i] = v
	}
	var gv *voltframe.Vector
	gv, _, err = readVector(b)
	if err != nil {
		return nil, err
	}
	gf.GistVector = *gv
	return gf, nil
}

// ToBinary encodes a Tombstone.
func (t *Tombstone) ToBinary() []byte {
	buf := make([]byte, 0, 32)
	buf = putU64(buf, t.FrameID)
	buf = putU64(buf, t.StrandID)
	buf = putU64(buf, t.TombstonedAt)
	if t.SupersededBy != nil {
		buf = append(buf, 1)
		buf = putU64(buf, *t.SupersededBy)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// TombstoneFromBinary decodes a buffer produced by ToBinary.
func TombstoneFromBinary(b []byte) (*Tombstone, error) {
	t := &Tombstone{}
	var err error
	t.FrameID, b, err = readU64(b)
	if err != nil {
		return nil, err
	}
	t.StrandID, b, err = readU64(b)
	if err != nil {
		return nil, err
	}
	t.TombstonedAt, b, err = readU64(b)
	if err != nil {
		return nil, err
	}
	if len(b) < 1 {
		return nil, wrapStorage("superseded flag", errTruncated)
	}
	has := b[0] != 0
	b = b[1:]
	if has {
		var id uint64
		id, b, err = readU64(b)
		if err != nil {
			return nil, err
		}
		t.SupersededBy = &id
	}
	return t, nil
}

// entryWireTag identifies the FrameEntry variant in ToBinary's one-byte
// header.
const (
	entryTagTomb       byte = 0
	entryTagGist       byte = 1
	entryTagCompressed byte = 2
	entryTagFull       byte = 3
)

// ToBinary encodes a FrameEntry: a one-byte decay-level tag followed by
// the variant's payload. Full frames are JSON; the rest use the fixed
// binary layouts above.
func (e *FrameEntry) ToBinary() ([]byte, error) {
	switch {
	case e.Full != nil:
		payload, err := json.Marshal(e.Full)
		if err != nil {
			return nil, wrapStorage("marshal full frame", err)
		}
		return append([]byte{entryTagFull}, payload...), nil
	case e.Compressed != nil:
		return append([]byte{entryTagCompressed}, e.Compressed.ToBinary()...), nil
	case e.Gist != nil:
		return append([]byte{entryTagGist}, e.Gist.ToBinary()...), nil
	default:
		return append([]byte{entryTagTomb}, e.Tomb.ToBinary()...), nil
	}
}

// FrameEntryFromBinary decodes a buffer produced by ToBinary.
func FrameEntryFromBinary(b []byte) (*FrameEntry, error) {
	if len(b) < 1 {
		return nil, wrapStorage("frame entry tag", errTruncated)
	}
	tag, payload := b[0], b[1:]
	switch tag {
	case entryTagFull:
		var f voltframe.TensorFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, wrapStorage("unmarshal full frame", err)
		}
		return &FrameEntry{Full: &f}, nil
	case entryTagCompressed:
		cf, err := CompressedFrameFromBinary(payload)
		if err != nil {
			return nil, err
		}
		return &FrameEntry{Compressed: cf}, nil
	case entryTagGist:
		gf, err := GistFrameFromBinary(payload)
		if err != nil {
			return nil, err
		}
		return &FrameEntry{Gist: gf}, nil
	case entryTagTomb:
		t, err := TombstoneFromBinary(payload)
		if err != nil {
			return nil, err
		}
		return &FrameEntry{Tomb: t}, nil
	default:
		return nil, wrapStorage("frame entry tag", errBadDecayTag)
	}
}
