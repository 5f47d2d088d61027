// Package discovery advertises and finds cointhings on the local network
// with multicast DNS.
//
// A running daemon registers its config link as a "_cointhing._tcp"
// service. TXT records carry the link path ("path=/link"), the software
// version ("version=1.2.0") and "tls=1" when the link is served as wss://.
// The CLI browses for the same service type to find devices without
// knowing their addresses.
//
// # Usage Example
//
//	ad, err := discovery.Advertise("", 8480, discovery.TXTRecords("/link", version.Version, false))
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
//
//	devices, err := discovery.NewScanner().Scan(ctx)
//	for _, d := range devices {
//	    fmt.Println(d.Instance, d.Address())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
