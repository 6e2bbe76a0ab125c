package touch

// Tracking ids are uint16, start at 1 and wrap back to 1 right before the
// ceiling; 0 is reserved as "no contact" and never assigned.
const (
	trackingIDFirst   = 1
	trackingIDCeiling = 0xffff
)

type slotState struct {
	occupied      bool
	trackingID    uint16
	seenThisFrame bool
}

// SlotTracker maps physical slots to stable tracking ids across report
// boundaries and derives the per-frame tool state from live occupancy.
// State is deliberately kept across re-initialization: slots occupied before
// a radio dropout persist until the device reports them gone.
type SlotTracker struct {
	slots          []slotState
	nextTrackingID uint16
	sink           Sink
}

func NewSlotTracker(slotCount int, sink Sink) *SlotTracker {
	if slotCount < 2 {
		slotCount = 2
	}
	return &SlotTracker{
		slots:          make([]slotState, slotCount),
		nextTrackingID: trackingIDFirst,
		sink:           sink,
	}
}

func (t *SlotTracker) SlotCount() int {
	return len(t.slots)
}

// Update processes one finger record. A valid record on a free slot starts a
// new contact; a record explicitly reporting a lifted finger ends it without
// waiting for the frame sweep.
func (t *SlotTracker) Update(rec FingerRecord) {
	if rec.Slot < 0 || rec.Slot >= len(t.slots) {
		return
	}
	s := &t.slots[rec.Slot]
	s.seenThisFrame = true

	if !rec.Valid {
		if s.occupied {
			s.occupied = false
			t.sink.Emit(ContactEnd{Slot: rec.Slot})
		}
		return
	}

	if !s.occupied {
		s.occupied = true
		s.trackingID = t.assignTrackingID()
		t.sink.Emit(ContactBegin{Slot: rec.Slot, TrackingID: s.trackingID})
	}
	t.sink.Emit(ContactMove{Slot: rec.Slot, X: rec.X, Y: rec.Y, Pressure: rec.Pressure})
}

func (t *SlotTracker) assignTrackingID() uint16 {
	id := t.nextTrackingID
	t.nextTrackingID++
	if t.nextTrackingID == trackingIDCeiling {
		t.nextTrackingID = trackingIDFirst
	}
	return id
}

// FinalizeFrame ends every occupied slot the frame did not mention, resets
// the per-frame marks and emits the tool state for the completed frame.
func (t *SlotTracker) FinalizeFrame() {
	occupied := 0
	for i := range t.slots {
		s := &t.slots[i]
		if !s.seenThisFrame && s.occupied {
			s.occupied = false
			t.sink.Emit(ContactEnd{Slot: i})
		}
		s.seenThisFrame = false
		if s.occupied {
			occupied++
		}
	}
	t.sink.Emit(ToolState{Count: occupied})
}

// ApplyFrame feeds a decoded frame through Update and finalizes when the
// frame is complete (packed encodings may spread one frame over reports).
func (t *SlotTracker) ApplyFrame(f Frame) {
	for _, rec := range f.Fingers {
		t.Update(rec)
	}
	if f.Complete {
		t.FinalizeFrame()
	}
}

// TrackingID returns the live tracking id of a slot, 0 when unoccupied.
func (t *SlotTracker) TrackingID(slot int) uint16 {
	if slot < 0 || slot >= len(t.slots) || !t.slots[slot].occupied {
		return 0
	}
	return t.slots[slot].trackingID
}
