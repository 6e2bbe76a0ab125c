package touch

const FIXED_SLOT_RECORD_LEN = 4

// FingerRecord is one decoded contact of one report. Slot is the physical
// slot index the record belongs to; Valid tells whether the slot holds a
// live contact (a record may explicitly report a lifted finger).
type FingerRecord struct {
	Valid         bool
	Slot          int
	X             uint16
	Y             uint16
	Pressure      uint8
	ContactType   uint8
	ContactStatus uint8
	FingerID      uint8
}

// Frame is the common intermediate form both wire codecs produce. Complete
// marks that all contacts of the physical frame have been transmitted and the
// tracker may finalize.
type Frame struct {
	Fingers  []FingerRecord
	Complete bool
	Spurious bool
}

// ReportDecoder turns one raw report into a Frame. ok is false when the
// report does not address this decoder's feature (not an error); err signals
// a malformed buffer, in which case the report must be dropped whole.
type ReportDecoder interface {
	DecodeTouchReport(buf []byte) (frame Frame, ok bool, err error)
}

// RawPointsDecoder decodes the fixed-slot encoding of the touch mice: every
// report carries MaxFingers four-byte records, one per slot, empty slots
// filled with the all-0xff sentinel. Every report is a complete frame.
type RawPointsDecoder struct {
	Geometry     TouchpadGeometry
	FeatureIndex byte
}

func (d *RawPointsDecoder) DecodeTouchReport(buf []byte) (frame Frame, ok bool, err error) {
	if len(buf) < 4 || buf[0] != byte(REPORT_TYPE_HIDPP_LONG) {
		return
	}
	if buf[2] != d.FeatureIndex || buf[3]>>4 != 0 {
		return
	}

	fingers := int(d.Geometry.MaxFingers)
	payload := buf[4:]
	if len(payload) < fingers*FIXED_SLOT_RECORD_LEN {
		err = eTruncatedReport
		return
	}

	ok = true
	frame.Complete = true
	for i := 0; i < fingers; i++ {
		rec := payload[FIXED_SLOT_RECORD_LEN*i : FIXED_SLOT_RECORD_LEN*(i+1)]
		if rec[0] == 0xff && rec[1] == 0xff && rec[2] == 0xff && rec[3] == 0xff {
			// empty slot sentinel, never decoded numerically
			continue
		}
		x := uint16(rec[0])<<4 | uint16(rec[2]&0x0f)
		y := uint16(rec[1])<<4 | uint16(rec[2]>>4)
		widthX := uint16(rec[3]>>4) + 1
		widthY := uint16(rec[3]&0x0f) + 1
		x, y = d.Geometry.Mirror(x, y)

		frame.Fingers = append(frame.Fingers, FingerRecord{
			Valid:    true,
			Slot:     i,
			X:        x,
			Y:        y,
			Pressure: clampPressure(widthX * widthY * 3),
		})
	}
	return
}

func clampPressure(p uint16) uint8 {
	if p < 30 {
		return 30
	}
	if p > 255 {
		return 255
	}
	return uint8(p)
}

// EncodeFixedSlot builds the wire form of one fixed-slot record, the inverse
// of the RawPointsDecoder record decode. An invalid record encodes as the
// empty-slot sentinel. Mirroring is not applied; x and y are device units.
func EncodeFixedSlot(valid bool, x, y uint16, widthX, widthY uint8) (rec [FIXED_SLOT_RECORD_LEN]byte) {
	if !valid {
		return [FIXED_SLOT_RECORD_LEN]byte{0xff, 0xff, 0xff, 0xff}
	}
	rec[0] = byte(x >> 4)
	rec[1] = byte(y >> 4)
	rec[2] = byte(y&0x0f)<<4 | byte(x&0x0f)
	rec[3] = (widthX-1)<<4 | (widthY-1)&0x0f
	return
}

// DecodeMouseMotion extracts the 12-bit signed relative deltas of a legacy
// mouse report. The fields are sign extended by shifting into the top of a
// 32-bit word and back down.
func DecodeMouseMotion(buf []byte) (dx, dy int, err error) {
	if len(buf) < REPORT_TYPE_MOUSE_MIN_LEN || buf[0] != byte(REPORT_TYPE_MOUSE) {
		err = eTruncatedReport
		return
	}

	vx := int32(buf[3]) | int32(buf[4]&0x0f)<<8
	vx = vx << 20 >> 20
	dx = int(vx)

	vy := int32(buf[5])<<4 | int32(buf[4]>>4)
	vy = vy << 20 >> 20
	dy = int(vy)
	return
}

// MouseButtonBits returns the button bitmask byte of a legacy mouse report
// (bit 0 left, bit 1 right, bit 2 middle).
func MouseButtonBits(buf []byte) (bits byte, ok bool) {
	if len(buf) < 2 || buf[0] != byte(REPORT_TYPE_MOUSE) {
		return 0, false
	}
	return buf[1], true
}
