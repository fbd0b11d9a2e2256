// Package hostinfo reads snapshot fields that originate on the host computer
// instead of the bus: the wireless IPv4 address, and on Raspberry Pi displays
// the PiSugar UPS battery state via its local TCP control socket.
package hostinfo

import (
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/Engineers-of-Innovation/eoi-can/internal/ports"
)

// DefaultBatteryAddr is the PiSugar power manager's control socket.
const DefaultBatteryAddr = "127.0.0.1:8423"

type Probe struct {
	batteryAddr string
	timeout     time.Duration

	// interfaces is swappable for tests.
	interfaces func() ([]net.Interface, error)
}

func NewProbe(batteryAddr string) *Probe {
	if batteryAddr == "" {
		batteryAddr = DefaultBatteryAddr
	}
	return &Probe{
		batteryAddr: batteryAddr,
		timeout:     2 * time.Second,
		interfaces:  net.Interfaces,
	}
}

// IPAddress returns the first IPv4 address of the first interface whose name
// starts with "w", the kernel's naming for wireless interfaces.
func (p *Probe) IPAddress() (netip.Addr, error) {
	ifaces, err := p.interfaces()
	if err != nil {
		return netip.Addr{}, err
	}
	for _, iface := range ifaces {
		if !strings.HasPrefix(iface.Name, "w") {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				addr, _ := netip.AddrFromSlice(ip4)
				return addr, nil
			}
		}
	}
	return netip.Addr{}, fmt.Errorf("hostinfo: no wireless IPv4 address")
}

// DisplayBattery queries the PiSugar socket for charge percentage and
// charger presence. One query per connection, the way the daemon expects.
func (p *Probe) DisplayBattery() (float32, bool, error) {
	socStr, err := p.query("get battery")
	if err != nil {
		return 0, false, err
	}
	soc, err := strconv.ParseFloat(socStr, 32)
	if err != nil {
		return 0, false, fmt.Errorf("hostinfo: parse battery %q: %w", socStr, err)
	}

	chargingStr, err := p.query("get battery_power_plugged")
	if err != nil {
		return 0, false, err
	}
	return float32(soc), chargingStr == "true", nil
}

// query sends one command and returns the value after the "key: value" colon.
func (p *Probe) query(command string) (string, error) {
	conn, err := net.DialTimeout("tcp", p.batteryAddr, p.timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(p.timeout))

	if _, err := io.WriteString(conn, command+"\n"); err != nil {
		return "", err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		return "", err
	}
	_, value, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", fmt.Errorf("hostinfo: malformed response %q to %q", raw, command)
	}
	return strings.TrimSpace(value), nil
}

var _ ports.HostInfo = (*Probe)(nil)
