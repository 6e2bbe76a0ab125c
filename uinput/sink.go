//go:build linux

// Package uinput forwards decoded touch events to a virtual multitouch
// device, the host-input boundary of the decoder core.
package uinput

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/lutro/unitouch/touch"
)

const (
	maxNameSize = 80
	absSize     = 64

	devCreate  = 0x5501
	devDestroy = 0x5502
	setEvBit   = 0x40045564
	setKeyBit  = 0x40045565
	setRelBit  = 0x40045566
	setAbsBit  = 0x40045567

	busUSB = 0x03

	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	synReport = 0x00

	relX = 0x00
	relY = 0x01

	btnLeft       = 0x110
	btnRight      = 0x111
	btnMiddle     = 0x112
	btnTouch      = 0x14a
	btnToolFinger = 0x145
	btnToolDouble = 0x14d
	btnToolTriple = 0x14e
	btnToolQuad   = 0x14f

	absMtSlot       = 0x2f
	absMtPositionX  = 0x35
	absMtPositionY  = 0x36
	absMtTrackingID = 0x39
	absMtPressure   = 0x3a
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type userDev struct {
	Name       [maxNameSize]byte
	ID         inputID
	EffectsMax uint32
	Absmax     [absSize]int32
	Absmin     [absSize]int32
	Absfuzz    [absSize]int32
	Absflat    [absSize]int32
}

type event struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Sink writes decoded events to /dev/uinput. A frame is flushed (SYN_REPORT)
// on tool-state and button events, which close a logical report.
type Sink struct {
	deviceFile *os.File
}

// NewSink creates the virtual device sized to the session geometry.
func NewSink(path, name string, geometry touch.TouchpadGeometry) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, fmt.Errorf("could not open uinput device: %w", err)
	}

	s := &Sink{deviceFile: f}
	if err := s.setup(name, geometry); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ioctl(req, value uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, s.deviceFile.Fd(), req, value)
	if errno != 0 {
		return errno
	}
	return nil
}

func (s *Sink) setup(name string, geometry touch.TouchpadGeometry) error {
	for _, ev := range []uintptr{evSyn, evKey, evRel, evAbs} {
		if err := s.ioctl(setEvBit, ev); err != nil {
			return fmt.Errorf("registering event type %#x failed: %w", ev, err)
		}
	}
	for _, key := range []uintptr{
		btnLeft, btnRight, btnMiddle,
		btnTouch, btnToolFinger, btnToolDouble, btnToolTriple, btnToolQuad,
	} {
		if err := s.ioctl(setKeyBit, key); err != nil {
			return fmt.Errorf("registering key %#x failed: %w", key, err)
		}
	}
	for _, rel := range []uintptr{relX, relY} {
		if err := s.ioctl(setRelBit, rel); err != nil {
			return fmt.Errorf("registering relative axis %#x failed: %w", rel, err)
		}
	}
	for _, abs := range []uintptr{absMtSlot, absMtPositionX, absMtPositionY, absMtTrackingID, absMtPressure} {
		if err := s.ioctl(setAbsBit, abs); err != nil {
			return fmt.Errorf("registering absolute axis %#x failed: %w", abs, err)
		}
	}

	var dev userDev
	copy(dev.Name[:], name)
	dev.ID = inputID{Bustype: busUSB, Vendor: 0x046d, Version: 1}
	dev.Absmax[absMtSlot] = int32(geometry.SlotCount() - 1)
	dev.Absmax[absMtPositionX] = int32(geometry.XSize)
	dev.Absmax[absMtPositionY] = int32(geometry.YSize)
	dev.Absmax[absMtTrackingID] = 0xffff
	dev.Absmax[absMtPressure] = 255

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, dev); err != nil {
		return fmt.Errorf("encoding user device failed: %w", err)
	}
	if _, err := s.deviceFile.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing user device failed: %w", err)
	}
	if err := s.ioctl(devCreate, 0); err != nil {
		return fmt.Errorf("creating virtual device failed: %w", err)
	}
	return nil
}

func (s *Sink) write(events []event) error {
	buf := new(bytes.Buffer)
	for _, ev := range events {
		if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
			return err
		}
	}
	_, err := s.deviceFile.Write(buf.Bytes())
	return err
}

// Emit implements touch.Sink. Write errors are swallowed; a stalled virtual
// device must not break report processing.
func (s *Sink) Emit(ev touch.Event) {
	var events []event

	switch e := ev.(type) {
	case touch.ContactBegin:
		events = []event{
			{Type: evAbs, Code: absMtSlot, Value: int32(e.Slot)},
			{Type: evAbs, Code: absMtTrackingID, Value: int32(e.TrackingID)},
		}
	case touch.ContactMove:
		events = []event{
			{Type: evAbs, Code: absMtSlot, Value: int32(e.Slot)},
			{Type: evAbs, Code: absMtPositionX, Value: int32(e.X)},
			{Type: evAbs, Code: absMtPositionY, Value: int32(e.Y)},
			{Type: evAbs, Code: absMtPressure, Value: int32(e.Pressure)},
		}
	case touch.ContactEnd:
		events = []event{
			{Type: evAbs, Code: absMtSlot, Value: int32(e.Slot)},
			{Type: evAbs, Code: absMtTrackingID, Value: -1},
		}
	case touch.ToolState:
		events = []event{
			{Type: evKey, Code: btnTouch, Value: boolVal(e.Count > 0)},
			{Type: evKey, Code: btnToolFinger, Value: boolVal(e.Count == 1)},
			{Type: evKey, Code: btnToolDouble, Value: boolVal(e.Count == 2)},
			{Type: evKey, Code: btnToolTriple, Value: boolVal(e.Count == 3)},
			{Type: evKey, Code: btnToolQuad, Value: boolVal(e.Count == 4)},
			{Type: evSyn, Code: synReport},
		}
	case touch.ButtonState:
		events = []event{
			{Type: evKey, Code: buttonCode(e.Button), Value: boolVal(e.Pressed)},
			{Type: evSyn, Code: synReport},
		}
	case touch.RelativeMotion:
		events = []event{
			{Type: evRel, Code: relX, Value: int32(e.DX)},
			{Type: evRel, Code: relY, Value: int32(e.DY)},
			{Type: evSyn, Code: synReport},
		}
	default:
		return
	}

	_ = s.write(events)
}

func buttonCode(b touch.Button) uint16 {
	switch b {
	case touch.ButtonRight:
		return btnRight
	case touch.ButtonMiddle:
		return btnMiddle
	default:
		return btnLeft
	}
}

func boolVal(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (s *Sink) Close() error {
	_ = s.ioctl(devDestroy, 0)
	return s.deviceFile.Close()
}
