package voltframe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFrameIsEmpty(t *testing.T) {
	f := New()
	require.True(t, f.IsEmpty())
	require.Equal(t, 0, f.ActiveSlotCount())
}

func TestWriteAndReadSlot(t *testing.T) {
	f := New()
	slot := NewSlotData(RoleAgent)
	slot.WriteResolution(0, Vector{0.5})
	require.NoError(t, f.WriteSlot(0, slot))
	require.Equal(t, 1, f.ActiveSlotCount())

	read, err := f.ReadSlot(0)
	require.NoError(t, err)
	require.Equal(t, RoleAgent, read.Role)
}

func TestSlotOutOfRange(t *testing.T) {
	f := New()
	err := f.WriteSlot(MaxSlots, NewSlotData(RoleAgent))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFrame))
}

func TestReadEmptySlotErrors(t *testing.T) {
	f := New()
	_, err := f.ReadSlot(0)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFrame))
}

func TestClearSlot(t *testing.T) {
	f := New()
	require.NoError(t, f.WriteSlot(0, NewSlotData(RoleAgent)))
	require.Equal(t, 1, f.ActiveSlotCount())
	require.NoError(t, f.ClearSlot(0))
	require.Equal(t, 0, f.ActiveSlotCount())
}

func TestMinCertainty(t *testing.T) {
	f := New()
	_, ok := f.MinCertainty()
	require.False(t, ok)

	require.NoError(t, f.WriteSlot(0, NewSlotData(RoleAgent)))
	require.NoError(t, f.WriteSlot(1, NewSlotData(RolePredicate)))
	f.Meta[0].Certainty = 0.95
	f.Meta[1].Certainty = 0.78

	min, ok := f.MinCertainty()
	require.True(t, ok)
	require.Equal(t, float32(0.78), min)
}

func TestDataSizeBytes(t *testing.T) {
	f := New()
	slot := NewSlotData(RoleAgent)
	slot.WriteResolution(0, Vector{1.0})
	slot.WriteResolution(1, Vector{1.0})
	require.NoError(t, f.WriteSlot(0, slot))

	require.Equal(t, 2048, f.DataSizeBytes())
}

func TestWriteAtCreatesSlotIfMissing(t *testing.T) {
	f := New()
	var v Vector
	v[0] = 0.42
	require.NoError(t, f.WriteAt(3, 1, RolePatient, v))

	slot, err := f.ReadSlot(3)
	require.NoError(t, err)
	require.Equal(t, RolePatient, slot.Role)
	require.NotNil(t, slot.Resolutions[1])
	require.Nil(t, slot.Resolutions[0])
}

func TestMergeConflictResolvedByHigherCertainty(t *testing.T) {
	f1 := New()
	var v1 Vector
	v1[0] = 1.0
	require.NoError(t, f1.WriteAt(0, 0, RoleAgent, v1))
	f1.Meta[0].Certainty = 0.9

	f2 := New()
	var v2 Vector
	v2[0] = 2.0
	require.NoError(t, f2.WriteAt(0, 0, RoleAgent, v2))
	f2.Meta[0].Certainty = 0.7

	merged := f1.Merge(f2, 1000)
	slot, err := merged.ReadSlot(0)
	require.NoError(t, err)
	require.Equal(t, float32(1.0), slot.Resolutions[0][0])
	require.Equal(t, float32(0.9), merged.Meta[0].Certainty)
}

func TestMergeEqualCertaintyPrefersReceiver(t *testing.T) {
	f1 := New()
	var v1 Vector
	v1[0] = 1.0
	require.NoError(t, f1.WriteAt(0, 0, RoleAgent, v1))
	f1.Meta[0].Certainty = 0.8

	f2 := New()
	var v2 Vector
	v2[0] = 2.0
	require.NoError(t, f2.WriteAt(0, 0, RoleAgent, v2))
	f2.Meta[0].Certainty = 0.8

	merged := f1.Merge(f2, 1000)
	slot, err := merged.ReadSlot(0)
	require.NoError(t, err)
	require.Equal(t, float32(1.0), slot.Resolutions[0][0])
}

func TestMergeRecalculatesGlobalCertainty(t *testing.T) {
	f1 := New()
	require.NoError(t, f1.WriteSlot(0, NewSlotData(RoleAgent)))
	f1.Meta[0].Certainty = 0.95

	f2 := New()
	require.NoError(t, f2.WriteSlot(1, NewSlotData(RolePredicate)))
	f2.Meta[1].Certainty = 0.78

	merged := f1.Merge(f2, 1000)
	require.Equal(t, float32(0.78), merged.FrameMeta.GlobalCertainty)
}

func TestNormalizeSlotProducesUnitVector(t *testing.T) {
	f := New()
	var v Vector
	for i := range v {
		v[i] = 2.0
	}
	require.NoError(t, f.WriteAt(0, 0, RoleAgent, v))
	require.NoError(t, f.NormalizeSlot(0, 0))
	require.True(t, UnitNorm(f.Slots[0].Resolutions[0], 1e-6))
}

func TestNormalizeZeroVectorReturnsError(t *testing.T) {
	f := New()
	var v Vector
	require.NoError(t, f.WriteAt(0, 0, RoleAgent, v))
	err := f.NormalizeSlot(0, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFrame))
}

func TestRoleBytesRoundtrip(t *testing.T) {
	roles := []SlotRole{RoleAgent, RolePredicate, RolePatient, RoleLocation, RoleTime, RoleManner, RoleInstrument, RoleCause, RoleResult, Free(7)}
	for _, r := range roles {
		tag, data := r.Bytes()
		got, ok := RoleFromBytes(tag, data)
		require.True(t, ok)
		require.Equal(t, r, got)
	}
	_, ok := RoleFromBytes(99, 0)
	require.False(t, ok)
}
