package voltstore

import "github.com/voltxa/voltdb/pkg/voltframe"

// testFrame builds a minimal TensorFrame with one populated slot (role
// Agent, R0 set to dir repeated across all 256 dims and then unit-normalized)
// and the given certainty. Good enough to exercise gisting, ANN indexing,
// and GC scoring without needing a real embedding.
func testFrame(dir float32, certainty float32) *voltframe.TensorFrame {
	f := voltframe.New()
	slot := voltframe.NewSlotData(voltframe.RoleAgent)
	var v voltframe.Vector
	for i := range v {
		v[i] = dir
	}
	slot.WriteResolution(0, v)
	_ = f.WriteSlot(0, slot)
	_ = f.NormalizeSlot(0, 0)
	f.Meta[0].Certainty = certainty
	return f
}
