// Package netinfo reports the host's address on a named network interface
// for display on status screens. Every lookup is best effort.
package netinfo

import "net"

const (
	// Placeholder is returned whenever no address can be determined.
	Placeholder = "--.--.--"

	// DefaultInterface is the wireless interface on a typical board.
	DefaultInterface = "wlan0"
)

var interfaceAddrs = func(name string) ([]net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}

// InterfaceAddress returns the first IPv4 address bound to the named
// interface in dotted form, or Placeholder if there is none.
func InterfaceAddress(name string) string {
	if name == "" {
		return Placeholder
	}
	addrs, err := interfaceAddrs(name)
	if err != nil {
		return Placeholder
	}
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return Placeholder
}
