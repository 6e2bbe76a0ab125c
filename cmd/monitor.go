// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lutro/unitouch/config"
	"github.com/lutro/unitouch/touch"
)

var (
	monitorProduct uint16
	monitorIndex   uint8
)

// teeSink prints every event and optionally forwards to a second sink that
// becomes available only after initialization (the uinput device needs the
// session geometry).
type teeSink struct {
	forward touch.Sink
}

func (s *teeSink) Emit(ev touch.Event) {
	fmt.Println(ev.String())
	if s.forward != nil {
		s.forward.Emit(ev)
	}
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Switch a device into raw report mode and stream decoded touch events",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("loading config failed: %v", err)
		}

		devCfg, found := cfg.Lookup(monitorProduct)
		if !found {
			log.Fatalf("no device entry for product %#04x in %s", monitorProduct, configPath)
		}
		variant, err := variantFromString(devCfg.Variant)
		if err != nil {
			log.Fatal(err)
		}

		usb, err := touch.OpenUSBReceiver()
		if err != nil {
			log.Fatal(err)
		}
		defer usb.Close()
		usb.SetShowInOut(cfg.Receiver.ShowTraffic)

		sink := &teeSink{}
		dev := touch.NewDevice(usb, variant, byte(monitorIndex), touch.Quirks{
			SuppressMouseButtons: devCfg.SuppressMouseButtons,
		}, sink)
		defer dev.Close()

		if err := dev.Initialize(); err != nil {
			log.Errorf("initialization failed, device may be out of range: %v", err)
			dev.ScheduleRawModeRetry()
		} else if cfg.Sink.Uinput {
			forward, closeSink, err := newForwardSink(cfg.Sink, dev.Geometry())
			if err != nil {
				log.Errorf("event forwarding disabled: %v", err)
			} else {
				sink.forward = forward
				defer closeSink()
			}
		}

		usb.SetReportHandler(func(buf []byte) {
			if err := dev.HandleReport(buf); err != nil {
				log.Debugf("dropped report: %v (% #x)", err, buf)
			}
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Println("Decoding reports, press Ctrl-C to stop ...")
		usb.Run(ctx)
	},
}

func variantFromString(s string) (touch.Variant, error) {
	switch s {
	case "rawpoints":
		return touch.VariantRawPoints, nil
	case "rawxy":
		return touch.VariantRawXY, nil
	}
	return 0, fmt.Errorf("unknown device variant %q", s)
}

func init() {
	monitorCmd.Flags().Uint16Var(&monitorProduct, "product", 0x4027, "wireless product id of the device")
	monitorCmd.Flags().Uint8Var(&monitorIndex, "index", 1, "device index on the receiver (1..6)")
	rootCmd.AddCommand(monitorCmd)
}
