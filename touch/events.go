package touch

import "fmt"

// Event is one decoded input event handed to the sink. The concrete types
// below are the full set a device session may emit.
type Event interface {
	fmt.Stringer
}

type ContactBegin struct {
	Slot       int
	TrackingID uint16
}

func (e ContactBegin) String() string {
	return fmt.Sprintf("contact begin: slot %d tracking id %d", e.Slot, e.TrackingID)
}

type ContactMove struct {
	Slot     int
	X        uint16
	Y        uint16
	Pressure uint8
}

func (e ContactMove) String() string {
	return fmt.Sprintf("contact move: slot %d x %d y %d pressure %d", e.Slot, e.X, e.Y, e.Pressure)
}

type ContactEnd struct {
	Slot int
}

func (e ContactEnd) String() string {
	return fmt.Sprintf("contact end: slot %d", e.Slot)
}

// ToolState reports the number of live contacts after a completed frame.
// Emitted once per frame, also when the count did not change.
type ToolState struct {
	Count int
}

func (e ToolState) String() string {
	return fmt.Sprintf("tool state: %d finger(s)", e.Count)
}

type ButtonState struct {
	Button  Button
	Pressed bool
}

func (e ButtonState) String() string {
	return fmt.Sprintf("button %s: pressed %v", e.Button, e.Pressed)
}

type RelativeMotion struct {
	DX int
	DY int
}

func (e RelativeMotion) String() string {
	return fmt.Sprintf("relative motion: dx %d dy %d", e.DX, e.DY)
}

// Sink consumes decoded events. Called from the single report-processing
// path of one device; implementations need no locking of their own.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) {
	f(ev)
}
