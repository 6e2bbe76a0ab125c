package touch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutro/unitouch/touch"
)

func TestFeatureRequestReportSizing(t *testing.T) {
	short := touch.FeatureRequest{
		DeviceIndex:  1,
		FeatureIndex: 0,
		FuncID:       0x0,
		SoftwareID:   touch.SOFTWARE_ID,
		Params:       []byte{0x61, 0x10},
	}
	wire, err := short.Report().ToWire()
	require.NoError(t, err)
	assert.Len(t, wire, touch.REPORT_TYPE_HIDPP_SHORT_LEN)
	assert.Equal(t, byte(touch.REPORT_TYPE_HIDPP_SHORT), wire[0])
	assert.Equal(t, byte(0x0b), wire[3], "func and software id share one byte")
	assert.Equal(t, []byte{0x61, 0x10, 0x00}, wire[4:])

	long := short
	long.Params = []byte{1, 2, 3, 4}
	wire, err = long.Report().ToWire()
	require.NoError(t, err)
	assert.Len(t, wire, touch.REPORT_TYPE_HIDPP_LONG_LEN)
	assert.Equal(t, byte(touch.REPORT_TYPE_HIDPP_LONG), wire[0])
}

func TestFeatureRequestMatching(t *testing.T) {
	req := touch.FeatureRequest{
		DeviceIndex:  1,
		FeatureIndex: 0x0a,
		FuncID:       0x2,
		SoftwareID:   touch.SOFTWARE_ID,
	}

	rsp := &touch.FeatureReport{}
	require.NoError(t, rsp.FromWire([]byte{
		0x11, 0x01, 0x0a, 0x2b,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}))
	assert.True(t, req.Matches(rsp))
	assert.False(t, req.MatchesError(rsp))

	otherDevice := &touch.FeatureReport{}
	require.NoError(t, otherDevice.FromWire([]byte{
		0x11, 0x02, 0x0a, 0x2b,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}))
	assert.False(t, req.Matches(otherDevice))

	otherFunc := &touch.FeatureReport{}
	require.NoError(t, otherFunc.FromWire([]byte{
		0x11, 0x01, 0x0a, 0x0b,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}))
	assert.False(t, req.Matches(otherFunc))
}

func TestFeatureErrorResponse(t *testing.T) {
	req := touch.FeatureRequest{
		DeviceIndex:  1,
		FeatureIndex: 0x0a,
		FuncID:       0x2,
		SoftwareID:   touch.SOFTWARE_ID,
	}

	// Error responses carry 0x8f and echo the failed feature index in the
	// first parameter byte.
	rsp := &touch.FeatureReport{}
	require.NoError(t, rsp.FromWire([]byte{
		0x11, 0x01, 0x8f, 0x2b,
		0x0a, 0x02, 0x05, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}))
	assert.True(t, rsp.IsError())
	assert.True(t, req.MatchesError(rsp))
	assert.False(t, req.Matches(rsp))
}

func TestFromWireRejectsOtherTraffic(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"mouse report", []byte{0x02, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}},
		{"short buffer", []byte{0x10, 0x01}},
		{"long id with short length", []byte{0x11, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &touch.FeatureReport{}
			assert.Error(t, r.FromWire(tt.buf))
		})
	}
}
