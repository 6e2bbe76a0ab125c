package touch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/gousb"
	log "github.com/sirupsen/logrus"
)

var (
	eNoReceiver      = errors.New("no Logitech receiver dongle found")
	eExchangeTimeout = errors.New("USB response timeout")
	eErrorResponse   = errors.New("HID++ error response")
)

const (
	VID          gousb.ID = 0x046d
	PID_UNIFYING gousb.ID = 0xc52b //cu0007, cu0008, cu0012
	PID_NANO     gousb.ID = 0xc534

	exchangeTimeout = 500 * time.Millisecond
)

// ReportHandler consumes raw input reports that are not command responses.
type ReportHandler func(buf []byte)

// USBReceiver drives the wireless receiver over USB: input reports arrive on
// the 32-byte HID++ IN endpoint, commands go out as SET_REPORT control
// transfers. It implements Transport for the device sessions behind it and
// forwards everything that is not a pending command response to the handler.
type USBReceiver struct {
	UsbCtx     *gousb.Context
	Dev        *gousb.Device
	Config     *gousb.Config
	IfaceHIDPP *gousb.Interface
	EpInHidPP  *gousb.InEndpoint

	sndQueue chan []byte
	rcvQueue chan []byte
	cancel   context.CancelFunc
	ctx      context.Context

	handlerMu sync.Mutex
	onReport  ReportHandler

	// half duplex: one command exchange at a time
	exchangeMu sync.Mutex

	showInOut bool
}

func (u *USBReceiver) SetReportHandler(h ReportHandler) {
	u.handlerMu.Lock()
	u.onReport = h
	u.handlerMu.Unlock()
}

func (u *USBReceiver) SetShowInOut(show bool) {
	u.showInOut = show
}

func (u *USBReceiver) forwardReport(buf []byte) {
	u.handlerMu.Lock()
	h := u.onReport
	u.handlerMu.Unlock()
	if h != nil {
		h(buf)
	}
}

func (u *USBReceiver) rcvLoop() {
	buf := make([]byte, 32)

	for {
		n, err := u.EpInHidPP.ReadContext(u.ctx, buf)
		if err != nil {
			break
		}

		if u.showInOut {
			log.Debugf("In: % #x", buf[:n])
		}

		in := make([]byte, n)
		copy(in, buf[:n])

		select {
		case u.rcvQueue <- in:
		case <-u.ctx.Done():
			close(u.rcvQueue)
			return
		}
	}

	close(u.rcvQueue)
}

func (u *USBReceiver) sndLoop() {
Outer:
	for {
		select {
		case <-u.ctx.Done():
			break Outer
		case outdata := <-u.sndQueue:
			if u.showInOut {
				log.Debugf("Out: % #x", outdata)
			}
			u.Dev.Control(
				0x21,                                //bit7: Host to device, bit6..5: Class: 0x1, bit4..0: Interface: 0x01
				0x09,                                //request: 0x09 SET_REPORT
				0x0200|uint16(outdata[0]),           //Output: 0x02, Report ID
				uint16(u.IfaceHIDPP.Setting.Number), //interface index
				outdata,                             //payload
			)
		}
	}

	close(u.sndQueue)
}

// Run pumps input reports to the handler until the context or the receiver
// is closed. The exchange lock serializes Run with in-flight commands so a
// pending response is never stolen from Exchange (device half duplex).
func (u *USBReceiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-u.ctx.Done():
			return
		default:
		}

		u.exchangeMu.Lock()
		in, err := u.receive(50 * time.Millisecond)
		u.exchangeMu.Unlock()
		if err != nil {
			continue
		}
		u.forwardReport(in)
	}
}

func (u *USBReceiver) receive(timeout time.Duration) (buf []byte, err error) {
	ctx, cancel := context.WithTimeout(u.ctx, timeout)
	defer cancel()

	select {
	case rcv, ok := <-u.rcvQueue:
		if !ok {
			err = eExchangeTimeout
			return
		}
		buf = rcv
	case <-ctx.Done():
		err = eExchangeTimeout
	}
	return
}

// Exchange sends one feature command and collects input reports until the
// matching response or a matching error report arrives. Reports that belong
// to other traffic (RF input, notifications) are forwarded to the handler
// instead of being dropped.
func (u *USBReceiver) Exchange(req FeatureRequest) (params []byte, err error) {
	u.exchangeMu.Lock()
	defer u.exchangeMu.Unlock()

	outdata, err := req.Report().ToWire()
	if err != nil {
		return nil, err
	}

	select {
	case u.sndQueue <- outdata:
	case <-u.ctx.Done():
		return nil, eExchangeTimeout
	}

	deadline := time.Now().Add(exchangeTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, eExchangeTimeout
		}

		in, err := u.receive(remaining)
		if err != nil {
			return nil, err
		}

		rsp := &FeatureReport{}
		if parseErr := rsp.FromWire(in); parseErr != nil {
			u.forwardReport(in)
			continue
		}

		if req.Matches(rsp) {
			return rsp.Params, nil
		}
		if req.MatchesError(rsp) {
			return nil, eErrorResponse
		}

		u.forwardReport(in)
	}
}

func (u *USBReceiver) Close() {
	log.Info("closing Logitech receiver")
	if u.cancel != nil {
		u.cancel()
	}

	if u.IfaceHIDPP != nil {
		u.IfaceHIDPP.Close()
	}

	if u.Config != nil {
		u.Config.Close()
	}

	if u.Dev != nil {
		u.Dev.SetAutoDetach(false)
		u.Dev.Close()
	}

	if u.UsbCtx != nil {
		u.UsbCtx.Close()
	}
}

// OpenUSBReceiver locates the first known receiver on the bus, claims its
// HID++ interface and starts the send/receive pumps.
func OpenUSBReceiver() (res *USBReceiver, err error) {
	res = &USBReceiver{}

	res.UsbCtx = gousb.NewContext()

	if res.Dev, err = res.UsbCtx.OpenDeviceWithVIDPID(VID, PID_UNIFYING); err == nil && res.Dev != nil {
		log.Info("Logitech Unifying dongle found")
	} else if res.Dev, err = res.UsbCtx.OpenDeviceWithVIDPID(VID, PID_NANO); err == nil && res.Dev != nil {
		log.Info("Logitech Nano receiver found")
	} else {
		res.Close()
		return nil, eNoReceiver
	}

	//Get device config 1
	res.Config, err = res.Dev.Config(1)
	if err != nil {
		res.Close()
		return nil, errors.New("couldn't retrieve config 1 of receiver dongle")
	}

	log.Debug("using dongle USB config: ", res.Config.Desc.String())
	res.Dev.SetAutoDetach(true)

Outer:
	for _, ifaceDesc := range res.Config.Desc.Interfaces {
		for _, ifaceSettings := range ifaceDesc.AltSettings {
			for _, epDesc := range ifaceSettings.Endpoints {
				if epDesc.MaxPacketSize == 32 && epDesc.Direction == gousb.EndpointDirectionIn {
					// This is the HID++ EP
					res.IfaceHIDPP, err = res.Config.Interface(ifaceSettings.Number, ifaceSettings.Alternate)
					if err != nil {
						res.Close()
						return nil, errors.New("couldn't access HID++ USB interface")
					}
					log.Debug("HID++ interface: ", res.IfaceHIDPP.String())

					res.EpInHidPP, err = res.IfaceHIDPP.InEndpoint(epDesc.Number)
					if err != nil {
						res.Close()
						return nil, errors.New("couldn't access HID++ USB interface IN endpoint")
					}
					log.Debug("HID++ interface IN endpoint: ", res.EpInHidPP.String())
					break Outer
				}
			}
		}
	}

	if res.EpInHidPP == nil {
		res.Close()
		return nil, errors.New("couldn't find EP for HID++ input reports")
	}

	res.sndQueue = make(chan []byte)
	res.rcvQueue = make(chan []byte)

	res.ctx, res.cancel = context.WithCancel(context.Background())

	go res.rcvLoop()
	go res.sndLoop()

	return
}
