package ports

import "net/netip"

// HostInfo supplies snapshot fields that come from the host computer rather
// than the bus: its network address and, on battery-backed displays, the
// display's own charge state.
type HostInfo interface {
	IPAddress() (netip.Addr, error)
	DisplayBattery() (soc float32, charging bool, err error)
}
