package touch

// Packed dual-finger payload of the wireless touchpads: one long report
// carries a timestamp plus two 7-byte touch records. Frames with more than
// two contacts span several reports chained by the end-of-frame flag.
const (
	RAW_XY_RECORD_LEN      = 7
	RAW_XY_FIRST_RECORD    = 6 // report header + 16-bit timestamp
	RAW_XY_SECOND_RECORD   = RAW_XY_FIRST_RECORD + RAW_XY_RECORD_LEN
	RAW_XY_MAX_SLOTS       = 5
	EVENT_TOUCHPAD_RAW_XY  = 0x3
	EVENT_TOUCHPAD_RAW_XY_ = 0x0
)

// RawXYDecoder decodes the packed dual-finger encoding. There is no
// empty-slot sentinel; occupancy is carried by the contact status bits.
type RawXYDecoder struct {
	FeatureIndex byte
}

func (d *RawXYDecoder) DecodeTouchReport(buf []byte) (frame Frame, ok bool, err error) {
	if len(buf) < 4 || buf[0] != byte(REPORT_TYPE_HIDPP_LONG) {
		return
	}
	if buf[2] != d.FeatureIndex {
		return
	}
	if fn := buf[3] >> 4; fn != EVENT_TOUCHPAD_RAW_XY && fn != EVENT_TOUCHPAD_RAW_XY_ {
		return
	}
	if len(buf) < REPORT_TYPE_HIDPP_LONG_LEN {
		err = eTruncatedReport
		return
	}

	ok = true
	endOfFrame := buf[RAW_XY_FIRST_RECORD+6]&0x01 != 0
	frame.Spurious = buf[RAW_XY_FIRST_RECORD+6]>>1&0x01 != 0
	fingerCount := int(buf[RAW_XY_SECOND_RECORD+6] & 0x0f)

	if fingerCount >= 1 {
		frame.Fingers = append(frame.Fingers,
			decodeRawXYRecord(buf[RAW_XY_FIRST_RECORD:RAW_XY_SECOND_RECORD]))
		if (endOfFrame && fingerCount == 4) || (!endOfFrame && fingerCount >= 2) {
			frame.Fingers = append(frame.Fingers,
				decodeRawXYRecord(buf[RAW_XY_SECOND_RECORD:RAW_XY_SECOND_RECORD+RAW_XY_RECORD_LEN]))
		}
	}

	frame.Complete = endOfFrame || fingerCount <= 2
	return
}

// decodeRawXYRecord reproduces the firmware's exact bit arithmetic: the major
// position byte is shifted left by two inside eight bits (dropping the two
// status bits) before being joined with the minor byte.
func decodeRawXYRecord(rec []byte) FingerRecord {
	xM := rec[0] << 2
	yM := rec[2] << 2

	fingerID := rec[6] >> 4
	status := rec[2] >> 6

	return FingerRecord{
		Valid:         status != 0,
		Slot:          int(fingerID) - 1,
		X:             uint16(xM)<<6 | uint16(rec[1]),
		Y:             uint16(yM)<<6 | uint16(rec[3]),
		Pressure:      rec[5],
		ContactType:   rec[0] >> 6,
		ContactStatus: status,
		FingerID:      fingerID,
	}
}
