package touch

import (
	"errors"
	"fmt"
)

var (
	eNoFeatureReport = errors.New("no valid HID++ feature report")
	eNoReportID      = errors.New("no valid report type (set to REPORT_TYPE_HIDPP_SHORT or REPORT_TYPE_HIDPP_LONG)")
	eTruncatedReport = errors.New("truncated report")
)

const (
	REPORT_TYPE_HIDPP_SHORT_LEN         = 7
	REPORT_TYPE_HIDPP_LONG_LEN          = 20
	REPORT_TYPE_HIDPP_SHORT_PAYLOAD_LEN = 3
	REPORT_TYPE_HIDPP_LONG_PAYLOAD_LEN  = 16

	// Legacy RF mouse reports carry button bits and 12-bit packed motion.
	REPORT_TYPE_MOUSE_MIN_LEN = 6
)

type ReportType byte

const (
	REPORT_TYPE_MOUSE       ReportType = 0x02
	REPORT_TYPE_HIDPP_SHORT ReportType = 0x10
	REPORT_TYPE_HIDPP_LONG  ReportType = 0x11
)

func (t ReportType) String() string {
	switch t {
	case REPORT_TYPE_MOUSE:
		return "RF mouse report"
	case REPORT_TYPE_HIDPP_SHORT:
		return "HID++ short message"
	case REPORT_TYPE_HIDPP_LONG:
		return "HID++ long message"
	}
	return fmt.Sprintf("Unknown report type %02x", byte(t))
}

// Feature index carried in error responses instead of the echoed request index.
const FEATURE_INDEX_ERROR = 0x8f

// FeatureReport is one HID++ 2.0 style feature message: feature index plus a
// function/software-id byte, followed by parameter bytes. The same framing is
// used for requests, responses and device-initiated events.
type FeatureReport struct {
	ReportID     ReportType
	DeviceIndex  byte
	FeatureIndex byte
	FuncSWID     byte // function code << 4 | software identifier
	Params       []byte
}

func (r *FeatureReport) Function() byte {
	return r.FuncSWID >> 4
}

func (r *FeatureReport) SoftwareID() byte {
	return r.FuncSWID & 0x0f
}

func (r *FeatureReport) IsError() bool {
	return r.FeatureIndex == FEATURE_INDEX_ERROR
}

func (r *FeatureReport) String() string {
	return fmt.Sprintf("Report type: %s, DeviceIndex: %#02x, FeatureIndex: %#02x, Func: %#x, SWID: %#x, Params: % #x",
		r.ReportID, r.DeviceIndex, r.FeatureIndex, r.Function(), r.SoftwareID(), r.Params)
}

func (r *FeatureReport) FromWire(payload []byte) (err error) {
	if len(payload) == REPORT_TYPE_HIDPP_LONG_LEN && payload[0] == byte(REPORT_TYPE_HIDPP_LONG) {
		r.ReportID = REPORT_TYPE_HIDPP_LONG
		r.DeviceIndex = payload[1]
		r.FeatureIndex = payload[2]
		r.FuncSWID = payload[3]
		r.Params = make([]byte, REPORT_TYPE_HIDPP_LONG_PAYLOAD_LEN)
		copy(r.Params, payload[4:])
		return
	}
	if len(payload) == REPORT_TYPE_HIDPP_SHORT_LEN && payload[0] == byte(REPORT_TYPE_HIDPP_SHORT) {
		r.ReportID = REPORT_TYPE_HIDPP_SHORT
		r.DeviceIndex = payload[1]
		r.FeatureIndex = payload[2]
		r.FuncSWID = payload[3]
		r.Params = make([]byte, REPORT_TYPE_HIDPP_SHORT_PAYLOAD_LEN)
		copy(r.Params, payload[4:])
		return
	}

	return eNoFeatureReport
}

func (r *FeatureReport) ToWire() (payload []byte, err error) {
	if r.ReportID == REPORT_TYPE_HIDPP_SHORT {
		payload := make([]byte, REPORT_TYPE_HIDPP_SHORT_LEN)
		payload[0] = byte(r.ReportID)
		payload[1] = r.DeviceIndex
		payload[2] = r.FeatureIndex
		payload[3] = r.FuncSWID
		if r.Params != nil {
			copy(payload[4:], r.Params)
		}
		return payload, nil
	}

	if r.ReportID == REPORT_TYPE_HIDPP_LONG {
		payload := make([]byte, REPORT_TYPE_HIDPP_LONG_LEN)
		payload[0] = byte(r.ReportID)
		payload[1] = r.DeviceIndex
		payload[2] = r.FeatureIndex
		payload[3] = r.FuncSWID
		if r.Params != nil {
			copy(payload[4:], r.Params)
		}
		return payload, nil
	}

	err = eNoReportID
	return
}

// FeatureRequest describes one synchronous command: the response mirrors the
// feature index and func/swid byte of the request.
type FeatureRequest struct {
	DeviceIndex  byte
	FeatureIndex byte
	FuncID       byte
	SoftwareID   byte
	Params       []byte
}

func (q FeatureRequest) Report() *FeatureReport {
	params := make([]byte, REPORT_TYPE_HIDPP_SHORT_PAYLOAD_LEN)
	reportType := REPORT_TYPE_HIDPP_SHORT
	if len(q.Params) > REPORT_TYPE_HIDPP_SHORT_PAYLOAD_LEN {
		params = make([]byte, REPORT_TYPE_HIDPP_LONG_PAYLOAD_LEN)
		reportType = REPORT_TYPE_HIDPP_LONG
	}
	copy(params, q.Params)

	return &FeatureReport{
		ReportID:     reportType,
		DeviceIndex:  q.DeviceIndex,
		FeatureIndex: q.FeatureIndex,
		FuncSWID:     q.FuncID<<4 | q.SoftwareID&0x0f,
		Params:       params,
	}
}

func (q FeatureRequest) String() string {
	return fmt.Sprintf("FeatureRequest DeviceIndex: %#02x, FeatureIndex: %#02x, Func: %#x, SWID: %#x, Params: % #x",
		q.DeviceIndex, q.FeatureIndex, q.FuncID, q.SoftwareID, q.Params)
}

// Matches reports whether rsp answers q. Error responses carry the feature
// index 0x8f with the original feature index in the first parameter.
func (q FeatureRequest) Matches(rsp *FeatureReport) bool {
	if rsp.DeviceIndex != q.DeviceIndex {
		return false
	}
	return rsp.FeatureIndex == q.FeatureIndex && rsp.Function() == q.FuncID && rsp.SoftwareID() == q.SoftwareID
}

func (q FeatureRequest) MatchesError(rsp *FeatureReport) bool {
	return rsp.DeviceIndex == q.DeviceIndex && rsp.IsError() && len(rsp.Params) > 0 && rsp.Params[0] == q.FeatureIndex
}

// Transport sends one feature command and blocks until the matching response
// arrives or the exchange fails. Implementations are half duplex: no second
// command may be issued while one is in flight on the same device.
type Transport interface {
	Exchange(req FeatureRequest) (params []byte, err error)
}
