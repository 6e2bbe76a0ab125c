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
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lutro/unitouch/config"
	"github.com/lutro/unitouch/touch"
)

var (
	infoProduct uint16
	infoIndex   uint8
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Query a device's touch surface capabilities and enable raw mode",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("loading config failed: %v", err)
		}

		devCfg, found := cfg.Lookup(infoProduct)
		if !found {
			log.Fatalf("no device entry for product %#04x in %s", infoProduct, configPath)
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

		dev := touch.NewDevice(usb, variant, byte(infoIndex), touch.Quirks{
			SuppressMouseButtons: devCfg.SuppressMouseButtons,
		}, touch.SinkFunc(func(touch.Event) {}))
		defer dev.Close()

		if err := dev.Initialize(); err != nil {
			log.Fatalf("initialization failed: %v", err)
		}

		g := dev.Geometry()
		fmt.Printf("Device:      %s (%s)\n", devCfg.Name, variant)
		fmt.Printf("Surface:     %d x %d units\n", g.XSize, g.YSize)
		fmt.Printf("Resolution:  %d units/mm\n", g.Resolution)
		fmt.Printf("Origin:      %s\n", g.Origin)
		fmt.Printf("Max fingers: %d\n", g.MaxFingers)
		fmt.Printf("Raw mode:    %v\n", dev.InRawMode())
	},
}

func init() {
	infoCmd.Flags().Uint16Var(&infoProduct, "product", 0x4027, "wireless product id of the device")
	infoCmd.Flags().Uint8Var(&infoIndex, "index", 1, "device index on the receiver (1..6)")
	rootCmd.AddCommand(infoCmd)
}
