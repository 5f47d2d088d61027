package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a cointhing found on the local network
type Device struct {
	// Instance is the advertised service instance name (e.g., "cointhing-desk")
	Instance string

	// Hostname is the mDNS hostname (e.g., "desk.local.")
	Hostname string

	// IP is the device address, IPv4 preferred
	IP string

	// Port is the config link port
	Port int

	// Path is the config link path from the "path" TXT record
	Path string

	// Version is the software version from the "version" TXT record
	Version string

	// TLS is set when the link is served as wss:// ("tls=1" TXT record)
	TLS bool

	// Metadata contains every mDNS TXT record
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("cointhing %s (%s) at %s", d.Instance, d.Hostname, d.Address())
}

// Address returns host:port of the config link
func (d *Device) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// LinkURL returns the WebSocket URL of the config link
func (d *Device) LinkURL() string {
	scheme := "ws://"
	if d.TLS {
		scheme = "wss://"
	}
	return scheme + d.Address() + d.Path
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
