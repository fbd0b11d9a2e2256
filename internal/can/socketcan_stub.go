//go:build !linux

package can

import "errors"

// DialSocketCAN is only available on Linux. Other platforms can still run
// against the loopback bus or a framelog replay.
func DialSocketCAN(iface string) (Bus, error) {
	return nil, errors.New("can: socketcan is linux-only")
}
