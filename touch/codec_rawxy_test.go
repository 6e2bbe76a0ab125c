package touch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutro/unitouch/touch"
)

// encodeRawXYRecord builds one packed 7-byte touch record. The position major
// byte carries bits 8..13 in its low six bits; the two top bits of byte 0 are
// the contact type, of byte 2 the contact status.
func encodeRawXYRecord(x, y uint16, area, fingerID, status byte) (rec [7]byte) {
	rec[0] = byte(x >> 8)
	rec[1] = byte(x)
	rec[2] = status<<6 | byte(y>>8)
	rec[3] = byte(y)
	rec[5] = area
	rec[6] = fingerID << 4
	return
}

func buildRawXYReport(featureIndex byte, rec1, rec2 [7]byte, endOfFrame, spurious bool, fingerCount byte) []byte {
	buf := make([]byte, touch.REPORT_TYPE_HIDPP_LONG_LEN)
	buf[0] = byte(touch.REPORT_TYPE_HIDPP_LONG)
	buf[1] = 0x01
	buf[2] = featureIndex
	buf[3] = touch.EVENT_TOUCHPAD_RAW_XY << 4

	copy(buf[touch.RAW_XY_FIRST_RECORD:], rec1[:])
	copy(buf[touch.RAW_XY_SECOND_RECORD:], rec2[:])

	// The last byte of each record doubles as flag carrier: frame flags on
	// the first record, finger count on the second.
	if endOfFrame {
		buf[touch.RAW_XY_FIRST_RECORD+6] |= 0x01
	}
	if spurious {
		buf[touch.RAW_XY_FIRST_RECORD+6] |= 0x02
	}
	buf[touch.RAW_XY_SECOND_RECORD+6] |= fingerCount & 0x0f
	return buf
}

func TestRawXYRecordCount(t *testing.T) {
	rec1 := encodeRawXYRecord(100, 200, 10, 1, 1)
	rec2 := encodeRawXYRecord(300, 400, 10, 2, 1)

	tests := []struct {
		name        string
		endOfFrame  bool
		fingerCount byte
		records     int
		complete    bool
	}{
		{"single finger closes the frame", true, 1, 1, true},
		{"two fingers in one report", true, 2, 2, true},
		{"first half of a three finger frame", false, 3, 2, false},
		{"trailing third finger", true, 3, 1, true},
		{"trailing fingers of a four finger frame", true, 4, 2, true},
		{"no fingers", true, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := &touch.RawXYDecoder{FeatureIndex: 0x0f}
			buf := buildRawXYReport(0x0f, rec1, rec2, tt.endOfFrame, false, tt.fingerCount)

			frame, ok, err := dec.DecodeTouchReport(buf)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Len(t, frame.Fingers, tt.records)
			assert.Equal(t, tt.complete, frame.Complete)
		})
	}
}

func TestRawXYRecordFields(t *testing.T) {
	dec := &touch.RawXYDecoder{FeatureIndex: 0x0f}

	rec1 := encodeRawXYRecord(3700, 2480, 42, 1, 1)
	rec2 := encodeRawXYRecord(0, 0, 0, 2, 0)
	buf := buildRawXYReport(0x0f, rec1, rec2, true, false, 2)

	frame, ok, err := dec.DecodeTouchReport(buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, frame.Fingers, 2)

	f := frame.Fingers[0]
	assert.True(t, f.Valid)
	assert.Equal(t, 0, f.Slot)
	assert.Equal(t, uint16(3700), f.X)
	assert.Equal(t, uint16(2480), f.Y)
	assert.Equal(t, uint8(42), f.Pressure)
	assert.Equal(t, uint8(1), f.FingerID)

	// Status 0 marks a lifted finger; the record still addresses its slot.
	g := frame.Fingers[1]
	assert.False(t, g.Valid)
	assert.Equal(t, 1, g.Slot)
}

func TestRawXYSpuriousFlag(t *testing.T) {
	dec := &touch.RawXYDecoder{FeatureIndex: 0x0f}

	rec := encodeRawXYRecord(100, 100, 10, 1, 1)
	buf := buildRawXYReport(0x0f, rec, [7]byte{}, true, true, 1)

	frame, ok, err := dec.DecodeTouchReport(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, frame.Spurious)
}

func TestRawXYIgnoresForeignReports(t *testing.T) {
	dec := &touch.RawXYDecoder{FeatureIndex: 0x0f}
	rec := encodeRawXYRecord(100, 100, 10, 1, 1)

	wrongFeature := buildRawXYReport(0x0e, rec, [7]byte{}, true, false, 1)
	_, ok, err := dec.DecodeTouchReport(wrongFeature)
	require.NoError(t, err)
	assert.False(t, ok)

	wrongFunction := buildRawXYReport(0x0f, rec, [7]byte{}, true, false, 1)
	wrongFunction[3] = 0x50
	_, ok, err = dec.DecodeTouchReport(wrongFunction)
	require.NoError(t, err)
	assert.False(t, ok)
}
