package touch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutro/unitouch/touch"
)

type recorder struct {
	events []touch.Event
}

func (r *recorder) Emit(ev touch.Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) reset() {
	r.events = nil
}

func completeFrame(fingers ...touch.FingerRecord) touch.Frame {
	return touch.Frame{Fingers: fingers, Complete: true}
}

func TestTrackingIDStableAcrossFrames(t *testing.T) {
	rec := &recorder{}
	tr := touch.NewSlotTracker(2, rec)

	for i := 0; i < 25; i++ {
		tr.ApplyFrame(completeFrame(touch.FingerRecord{Valid: true, Slot: 0, X: uint16(i), Y: 10}))
		require.Equal(t, uint16(1), tr.TrackingID(0))
	}

	begins := 0
	for _, ev := range rec.events {
		if _, isBegin := ev.(touch.ContactBegin); isBegin {
			begins++
		}
	}
	assert.Equal(t, 1, begins, "a held contact must begin exactly once")
}

func TestTrackingIDsStrictlyIncrease(t *testing.T) {
	rec := &recorder{}
	tr := touch.NewSlotTracker(2, rec)

	var ids []uint16
	for i := 0; i < 3; i++ {
		tr.ApplyFrame(completeFrame(touch.FingerRecord{Valid: true, Slot: 0, X: 1, Y: 1}))
		ids = append(ids, tr.TrackingID(0))
		tr.ApplyFrame(completeFrame())
	}

	assert.Equal(t, []uint16{1, 2, 3}, ids)
}

func TestTrackingIDWrapSkipsReservedValues(t *testing.T) {
	tr := touch.NewSlotTracker(2, touch.SinkFunc(func(touch.Event) {}))

	var last uint16
	for i := 0; i < 0xfffe; i++ {
		tr.ApplyFrame(completeFrame(touch.FingerRecord{Valid: true, Slot: 0, X: 1, Y: 1}))
		id := tr.TrackingID(0)
		require.NotZero(t, id)
		require.NotEqual(t, uint16(0xffff), id)
		last = id
		tr.ApplyFrame(completeFrame())
	}

	assert.Equal(t, uint16(0xfffe), last)
	tr.ApplyFrame(completeFrame(touch.FingerRecord{Valid: true, Slot: 0, X: 1, Y: 1}))
	assert.Equal(t, uint16(1), tr.TrackingID(0), "ids wrap back to 1")
}

func TestUnseenSlotEndsOnFinalize(t *testing.T) {
	rec := &recorder{}
	tr := touch.NewSlotTracker(2, rec)

	tr.ApplyFrame(completeFrame(
		touch.FingerRecord{Valid: true, Slot: 0, X: 1, Y: 1},
		touch.FingerRecord{Valid: true, Slot: 1, X: 2, Y: 2},
	))
	rec.reset()

	tr.ApplyFrame(completeFrame(touch.FingerRecord{Valid: true, Slot: 0, X: 1, Y: 1}))

	require.Equal(t, []touch.Event{
		touch.ContactMove{Slot: 0, X: 1, Y: 1},
		touch.ContactEnd{Slot: 1},
		touch.ToolState{Count: 1},
	}, rec.events)
	assert.Zero(t, tr.TrackingID(1))
}

func TestExplicitLiftEndsImmediately(t *testing.T) {
	rec := &recorder{}
	tr := touch.NewSlotTracker(2, rec)

	tr.ApplyFrame(completeFrame(touch.FingerRecord{Valid: true, Slot: 0, X: 1, Y: 1}))
	rec.reset()

	tr.Update(touch.FingerRecord{Valid: false, Slot: 0})
	require.Equal(t, []touch.Event{touch.ContactEnd{Slot: 0}}, rec.events)

	// A second lift on the now free slot is silent.
	rec.reset()
	tr.Update(touch.FingerRecord{Valid: false, Slot: 0})
	assert.Empty(t, rec.events)
}

func TestToolStateFollowsOccupancy(t *testing.T) {
	rec := &recorder{}
	tr := touch.NewSlotTracker(4, rec)

	toolState := func() touch.ToolState {
		for i := len(rec.events) - 1; i >= 0; i-- {
			if ts, isToolState := rec.events[i].(touch.ToolState); isToolState {
				return ts
			}
		}
		t.Fatal("no tool state emitted")
		return touch.ToolState{}
	}

	tr.ApplyFrame(completeFrame(
		touch.FingerRecord{Valid: true, Slot: 0, X: 1, Y: 1},
		touch.FingerRecord{Valid: true, Slot: 1, X: 2, Y: 2},
		touch.FingerRecord{Valid: true, Slot: 2, X: 3, Y: 3},
	))
	assert.Equal(t, 3, toolState().Count)

	tr.ApplyFrame(completeFrame(touch.FingerRecord{Valid: true, Slot: 1, X: 2, Y: 2}))
	assert.Equal(t, 1, toolState().Count)

	tr.ApplyFrame(completeFrame())
	assert.Equal(t, 0, toolState().Count)
}

func TestIncompleteFrameDefersFinalize(t *testing.T) {
	rec := &recorder{}
	tr := touch.NewSlotTracker(4, rec)

	tr.ApplyFrame(completeFrame(
		touch.FingerRecord{Valid: true, Slot: 0, X: 1, Y: 1},
		touch.FingerRecord{Valid: true, Slot: 1, X: 2, Y: 2},
		touch.FingerRecord{Valid: true, Slot: 2, X: 3, Y: 3},
	))
	rec.reset()

	// Three contacts split over two reports: the slot untouched by the first
	// report half must survive until the closing half has been applied.
	tr.ApplyFrame(touch.Frame{
		Fingers: []touch.FingerRecord{
			{Valid: true, Slot: 0, X: 1, Y: 1},
			{Valid: true, Slot: 1, X: 2, Y: 2},
		},
		Complete: false,
	})
	assert.NotZero(t, tr.TrackingID(2))
	assert.Empty(t, filterContactEnds(rec.events))

	tr.ApplyFrame(completeFrame(touch.FingerRecord{Valid: true, Slot: 2, X: 3, Y: 3}))
	assert.Empty(t, filterContactEnds(rec.events))
	assert.NotZero(t, tr.TrackingID(2))
}

func filterContactEnds(events []touch.Event) (ends []touch.ContactEnd) {
	for _, ev := range events {
		if e, isEnd := ev.(touch.ContactEnd); isEnd {
			ends = append(ends, e)
		}
	}
	return
}

func TestSlotCountFloor(t *testing.T) {
	tr := touch.NewSlotTracker(1, touch.SinkFunc(func(touch.Event) {}))
	assert.Equal(t, 2, tr.SlotCount())
}
