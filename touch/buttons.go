package touch

import "fmt"

type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle

	buttonCount
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "LEFT"
	case ButtonRight:
		return "RIGHT"
	case ButtonMiddle:
		return "MIDDLE"
	}
	return fmt.Sprintf("Unknown button %d", int(b))
}

// DepressorSource names the report path holding a button down. These mice
// report the same button through several overlapping paths with differing
// delay; tracking the holder keeps the races from toggling the button.
type DepressorSource byte

const (
	DEPRESSOR_NONE DepressorSource = iota
	DEPRESSOR_MOUSE
	DEPRESSOR_RAWPTS
	DEPRESSOR_LEGACY
)

func (s DepressorSource) String() string {
	switch s {
	case DEPRESSOR_NONE:
		return "NONE"
	case DEPRESSOR_MOUSE:
		return "MOUSE REPORT"
	case DEPRESSOR_RAWPTS:
		return "RAW POINTS FEATURE"
	case DEPRESSOR_LEGACY:
		return "LEGACY FEATURE"
	}
	return fmt.Sprintf("Unknown depressor source %02x", byte(s))
}

// ButtonArbiter reconciles the independent button report paths into one
// logical state per button. Rule: a free button is taken by whichever source
// first reports it pressed; only that holder may release it again. Everything
// else is a no-op.
type ButtonArbiter struct {
	holder [buttonCount]DepressorSource
	sink   Sink
}

func NewButtonArbiter(sink Sink) *ButtonArbiter {
	return &ButtonArbiter{sink: sink}
}

func (a *ButtonArbiter) Observe(src DepressorSource, btn Button, pressed bool) {
	if src == DEPRESSOR_NONE || btn < 0 || btn >= buttonCount {
		return
	}
	switch {
	case a.holder[btn] == DEPRESSOR_NONE && pressed:
		a.holder[btn] = src
	case a.holder[btn] == src && !pressed:
		a.holder[btn] = DEPRESSOR_NONE
	}
}

func (a *ButtonArbiter) Pressed(btn Button) bool {
	return btn >= 0 && btn < buttonCount && a.holder[btn] != DEPRESSOR_NONE
}

func (a *ButtonArbiter) Holder(btn Button) DepressorSource {
	if btn < 0 || btn >= buttonCount {
		return DEPRESSOR_NONE
	}
	return a.holder[btn]
}

// EmitStates reports all three buttons. Downstream consumers rely on the
// redundant reaffirmation for consistent framing with position events, so
// this runs after every report that reaches the arbiter.
func (a *ButtonArbiter) EmitStates() {
	for btn := ButtonLeft; btn < buttonCount; btn++ {
		a.sink.Emit(ButtonState{Button: btn, Pressed: a.holder[btn] != DEPRESSOR_NONE})
	}
}
