package touch

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

var eShortResponse = errors.New("feature response too short")

const (
	SOFTWARE_ID = 0xB

	FEATURE_TOUCH_MOUSE_RAW_POINTS = 0x6110
	FEATURE_TOUCH_MOUSE_LEGACY     = 0x1b03

	// Function codes of the root feature (index 0).
	ROOT_FUNC_GET_FEATURE          = 0x0
	ROOT_FUNC_GET_PROTOCOL_VERSION = 0x1

	// Function codes of the touch features.
	FUNC_TOUCHPAD_GET_RAW_INFO         = 0x0
	FUNC_TOUCHPAD_SET_RAW_REPORT_STATE = 0x2
	FUNC_RAW_POINTS_BUTTON_EVENT       = 0x1

	// Raw points mode byte: raw finger data plus native motion reports.
	RAW_POINTS_MODE = 0x03

	// Raw XY touchpads use a well-known feature index, the firmware does not
	// require discovery through the root feature.
	RAW_XY_FEATURE_INDEX        = 0x0f
	RAW_XY_LEGACY_FEATURE_INDEX = 0x02

	// send_raw_reports | force_vs_area<<1 | sensor_enhanced_settings<<2
	RAW_XY_REPORT_STATE = 0x07

	// Surface the T650 is expected to report; a mismatch is logged and the
	// reported values used anyway.
	RAW_XY_EXPECTED_X_SIZE = 3700
	RAW_XY_EXPECTED_Y_SIZE = 2480
)

type Variant int

const (
	VariantRawPoints Variant = iota
	VariantRawXY
)

func (v Variant) String() string {
	switch v {
	case VariantRawPoints:
		return "raw points touch mouse"
	case VariantRawXY:
		return "raw XY touchpad"
	}
	return fmt.Sprintf("Unknown variant %d", int(v))
}

// Quirks carries per-product oddities resolved by the registration layer.
type Quirks struct {
	// The T620 reports buttons through the feature paths only; its legacy
	// mouse report bits must be ignored entirely.
	SuppressMouseButtons bool
}

// Device is one touch device session behind the receiver: it owns the codec,
// slot tracker and button arbiter and feeds decoded events to the sink.
// Reports are processed strictly one at a time.
type Device struct {
	transport   Transport
	sink        Sink
	variant     Variant
	quirks      Quirks
	deviceIndex byte

	geometry           TouchpadGeometry
	decoder            ReportDecoder
	tracker            *SlotTracker
	buttons            *ButtonArbiter
	rawFeatureIndex    byte
	legacyFeatureIndex byte

	// guards the two mode flags shared with the deferred retry path
	mu              sync.Mutex
	inRawMode       bool
	switchRequested bool
	retryWG         sync.WaitGroup
}

func NewDevice(transport Transport, variant Variant, deviceIndex byte, quirks Quirks, sink Sink) *Device {
	return &Device{
		transport:   transport,
		sink:        sink,
		variant:     variant,
		quirks:      quirks,
		deviceIndex: deviceIndex,
		buttons:     NewButtonArbiter(sink),
	}
}

func (d *Device) Geometry() TouchpadGeometry {
	return d.geometry
}

func (d *Device) InRawMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inRawMode
}

func (d *Device) exchange(featureIndex, funcID byte, params []byte) ([]byte, error) {
	return d.transport.Exchange(FeatureRequest{
		DeviceIndex:  d.deviceIndex,
		FeatureIndex: featureIndex,
		FuncID:       funcID,
		SoftwareID:   SOFTWARE_ID,
		Params:       params,
	})
}

func (d *Device) resolveFeature(featureID uint16) (index byte, err error) {
	rsp, err := d.exchange(0, ROOT_FUNC_GET_FEATURE, []byte{byte(featureID >> 8), byte(featureID & 0xff)})
	if err != nil {
		return 0, err
	}
	if len(rsp) < 1 {
		return 0, eShortResponse
	}
	log.Debugf("feature index of %#04x: %d", featureID, rsp[0])
	return rsp[0], nil
}

func (d *Device) queryProtocolVersion() error {
	rsp, err := d.exchange(0, ROOT_FUNC_GET_PROTOCOL_VERSION, nil)
	if err != nil {
		return err
	}
	if len(rsp) < 2 {
		return eShortResponse
	}
	// informational only
	log.Debugf("HID++ version: %d.%d", rsp[0], rsp[1])
	return nil
}

func (d *Device) queryRawInfo(featureIndex byte) (info TouchpadGeometry, err error) {
	rsp, err := d.exchange(featureIndex, FUNC_TOUCHPAD_GET_RAW_INFO, nil)
	if err != nil {
		return
	}
	if len(rsp) < 9 {
		err = eShortResponse
		return
	}
	info.XSize = uint16(rsp[0])<<8 | uint16(rsp[1])
	info.YSize = uint16(rsp[2])<<8 | uint16(rsp[3])
	info.Resolution = uint16(rsp[4])<<8 | uint16(rsp[5])
	info.Origin = OriginPosition(rsp[6])
	info.MaxFingers = rsp[7]
	info.MaxWidth = rsp[8]
	return
}

// Initialize runs the capability/config exchange: protocol version, feature
// index resolution, geometry query and the switch to raw report delivery.
// Any failing step aborts the sequence and leaves the device inoperable for
// touch input. Re-entrant: a rerun after reconnect keeps tracker and button
// state as is, so slots occupied before a radio dropout may persist.
func (d *Device) Initialize() error {
	if err := d.queryProtocolVersion(); err != nil {
		return fmt.Errorf("protocol version query failed: %w", err)
	}

	switch d.variant {
	case VariantRawPoints:
		if err := d.initializeRawPoints(); err != nil {
			return err
		}
	case VariantRawXY:
		if err := d.initializeRawXY(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown device variant %d", int(d.variant))
	}

	if d.tracker == nil {
		d.tracker = NewSlotTracker(d.geometry.SlotCount(), d.sink)
	}

	d.mu.Lock()
	d.inRawMode = true
	d.mu.Unlock()

	log.Infof("%s initialized: %s", d.variant, d.geometry)
	return nil
}

func (d *Device) initializeRawPoints() error {
	idx, err := d.resolveFeature(FEATURE_TOUCH_MOUSE_RAW_POINTS)
	if err != nil {
		return fmt.Errorf("resolving raw points feature failed: %w", err)
	}
	d.rawFeatureIndex = idx

	idx, err = d.resolveFeature(FEATURE_TOUCH_MOUSE_LEGACY)
	if err != nil {
		return fmt.Errorf("resolving legacy feature failed: %w", err)
	}
	d.legacyFeatureIndex = idx

	info, err := d.queryRawInfo(d.rawFeatureIndex)
	if err != nil {
		return fmt.Errorf("geometry query failed: %w", err)
	}
	d.geometry = info

	if _, err = d.exchange(d.rawFeatureIndex, FUNC_TOUCHPAD_SET_RAW_REPORT_STATE, []byte{RAW_POINTS_MODE}); err != nil {
		return fmt.Errorf("enabling raw report mode failed: %w", err)
	}

	d.decoder = &RawPointsDecoder{Geometry: d.geometry, FeatureIndex: d.rawFeatureIndex}
	return nil
}

func (d *Device) initializeRawXY() error {
	d.rawFeatureIndex = RAW_XY_FEATURE_INDEX
	d.legacyFeatureIndex = RAW_XY_LEGACY_FEATURE_INDEX

	info, err := d.queryRawInfo(d.rawFeatureIndex)
	if err != nil {
		return fmt.Errorf("geometry query failed: %w", err)
	}
	if info.XSize != RAW_XY_EXPECTED_X_SIZE || info.YSize != RAW_XY_EXPECTED_Y_SIZE {
		log.Errorf("unexpected touchpad size: should have %dx%d, but device reported %dx%d, ignoring",
			RAW_XY_EXPECTED_X_SIZE, RAW_XY_EXPECTED_Y_SIZE, info.XSize, info.YSize)
	}
	if info.MaxFingers == 0 || info.MaxFingers > RAW_XY_MAX_SLOTS {
		info.MaxFingers = RAW_XY_MAX_SLOTS
	}
	d.geometry = info

	if _, err = d.exchange(d.rawFeatureIndex, FUNC_TOUCHPAD_SET_RAW_REPORT_STATE, []byte{RAW_XY_REPORT_STATE}); err != nil {
		return fmt.Errorf("enabling raw report mode failed: %w", err)
	}

	d.decoder = &RawXYDecoder{FeatureIndex: d.rawFeatureIndex}
	return nil
}

// ScheduleRawModeRetry arms one deferred rerun of the initialization
// sequence outside the report path. At most one retry is in flight; a second
// request while one is pending is a no-op.
func (d *Device) ScheduleRawModeRetry() {
	d.mu.Lock()
	if d.switchRequested {
		d.mu.Unlock()
		return
	}
	d.switchRequested = true
	d.mu.Unlock()

	d.retryWG.Add(1)
	go func() {
		defer d.retryWG.Done()

		d.mu.Lock()
		already := d.inRawMode
		d.mu.Unlock()

		if !already {
			if err := d.Initialize(); err != nil {
				log.Errorf("unable to set raw report mode, the device may not be in range: %v", err)
			}
		}

		d.mu.Lock()
		d.switchRequested = false
		d.mu.Unlock()
	}()
}

// HandleConnectionChange re-arms raw mode when the device comes back into
// range. Tracker and button state are intentionally left alone.
func (d *Device) HandleConnectionChange(connected bool) {
	if !connected {
		return
	}
	if err := d.Initialize(); err != nil {
		log.Errorf("re-initialization after reconnect failed: %v", err)
	}
}

// Close synchronously waits for an in-flight deferred retry to finish.
func (d *Device) Close() {
	d.retryWG.Wait()
}

// HandleReport decodes one raw report and updates tracker and arbiter.
// Malformed reports are dropped whole: an error return means no event was
// emitted and no state was touched for this report.
func (d *Device) HandleReport(buf []byte) error {
	if len(buf) == 0 {
		return eTruncatedReport
	}

	switch ReportType(buf[0]) {
	case REPORT_TYPE_MOUSE:
		dx, dy, err := DecodeMouseMotion(buf)
		if err != nil {
			return err
		}
		d.sink.Emit(RelativeMotion{DX: dx, DY: dy})

		if bits, ok := MouseButtonBits(buf); ok && !d.quirks.SuppressMouseButtons {
			for btn := ButtonLeft; btn <= ButtonMiddle; btn++ {
				d.buttons.Observe(DEPRESSOR_MOUSE, btn, bits&(1<<uint(btn)) != 0)
			}
		}

	case REPORT_TYPE_HIDPP_LONG:
		if len(buf) < REPORT_TYPE_HIDPP_LONG_LEN {
			return eTruncatedReport
		}
		if d.decoder == nil {
			// raw mode not armed yet, nothing to decode
			return nil
		}
		frame, ok, err := d.decoder.DecodeTouchReport(buf)
		if err != nil {
			return err
		}
		if ok {
			d.tracker.ApplyFrame(frame)
		}
		d.observeFeatureButtons(buf)

	default:
		return nil
	}

	d.buttons.EmitStates()
	return nil
}

// observeFeatureButtons feeds the two feature-report button paths of the
// raw points mice. The raw XY touchpads report buttons through the legacy
// mouse report only.
func (d *Device) observeFeatureButtons(buf []byte) {
	if d.variant != VariantRawPoints {
		return
	}
	if buf[2] == d.legacyFeatureIndex {
		d.buttons.Observe(DEPRESSOR_LEGACY, ButtonMiddle, buf[5] != 0)
	}
	if buf[2] == d.rawFeatureIndex && buf[3]>>4 == FUNC_RAW_POINTS_BUTTON_EVENT {
		d.buttons.Observe(DEPRESSOR_RAWPTS, ButtonLeft, buf[4]&0x02 != 0)
	}
}
