//go:build linux

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
	log "github.com/sirupsen/logrus"

	"github.com/lutro/unitouch/config"
	"github.com/lutro/unitouch/touch"
	"github.com/lutro/unitouch/uinput"
)

func newForwardSink(cfg config.SinkConfig, geometry touch.TouchpadGeometry) (touch.Sink, func(), error) {
	sink, err := uinput.NewSink(cfg.UinputPath, cfg.DeviceName, geometry)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("forwarding events to virtual device %q", cfg.DeviceName)
	return sink, func() { sink.Close() }, nil
}
