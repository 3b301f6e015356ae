//go:build linux

package core

/*------------------------------------------------------------------
 *
 * Purpose:	Discover candidate transceiver serial devices by enumerating
 *		the `tty` subsystem.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"

	"github.com/jochenvg/go-udev"
)

// DiscoverSerialTransceivers enumerates /dev tty nodes via udev and returns
// their device paths, for a caller to try in turn when no port was
// configured explicitly.
func DiscoverSerialTransceivers() ([]string, error) {
	u := udev.Udev{}
	enum := u.NewEnumerate()
	if err := enum.AddMatchSubsystem("tty"); err != nil {
		return nil, fmt.Errorf("radarkit: udev: match tty subsystem: %w", err)
	}
	devices, err := enum.Devices()
	if err != nil {
		return nil, fmt.Errorf("radarkit: udev: enumerate: %w", err)
	}

	paths := make([]string, 0, len(devices))
	for _, d := range devices {
		if node := d.Devnode(); node != "" {
			paths = append(paths, node)
		}
	}
	return paths, nil
}
