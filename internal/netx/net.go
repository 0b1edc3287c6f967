// Package netx contains low-level network helpers shared by the
// connectivity monitor.
package netx

import "net"

// HasActiveInterface reports whether any non-loopback interface is up and
// carries at least one address. This is the cheap OS-level check used as a
// pre-filter before probing the server: false means there is no point in
// issuing a health request at all.
func HasActiveInterface() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return true
	}
	return false
}
