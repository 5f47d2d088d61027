package discovery

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/cointhing/cointhing/internal/logging"
)

const (
	// ServiceType is the mDNS service type cointhings advertise
	ServiceType = "_cointhing._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPath is the link path assumed when no "path" TXT record is present
	DefaultPath = "/link"

	txtPath    = "path"
	txtVersion = "version"
	txtTLS     = "tls"
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses for cointhings until the timeout or ctx ends and returns
// every device seen, deduplicated by instance name.
func (s *Scanner) Scan(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)

	var mu sync.Mutex
	seen := make(map[string]*Device)
	var order []string

	go func() {
		for entry := range entries {
			device := parseServiceEntry(entry)
			if device == nil {
				continue
			}
			mu.Lock()
			if _, ok := seen[device.Instance]; !ok {
				order = append(order, device.Instance)
			}
			seen[device.Instance] = device
			mu.Unlock()
			logging.Debug("Discovered device", zap.String("device", device.String()))
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	devices := make([]*Device, 0, len(order))
	for _, name := range order {
		devices = append(devices, seen[name])
	}
	return devices, nil
}

// parseServiceEntry converts a zeroconf service entry to a Device
// Returns nil if the entry has no usable address
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		// TXT records are in "key=value" format
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	path := metadata[txtPath]
	if path == "" {
		path = DefaultPath
	}

	instance := entry.Instance
	if instance == "" {
		instance = strings.TrimSuffix(entry.HostName, ".")
	}

	return &Device{
		Instance:     instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Path:         path,
		Version:      metadata[txtVersion],
		TLS:          metadata[txtTLS] == "1",
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertisement is a running mDNS registration.
type Advertisement struct {
	server *zeroconf.Server
}

// DefaultInstance returns "cointhing-<hostname>".
func DefaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "cointhing"
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return "cointhing-" + host
}

// TXTRecords builds the TXT records for an advertisement.
func TXTRecords(path, version string, secure bool) []string {
	if path == "" {
		path = DefaultPath
	}
	txt := []string{txtPath + "=" + path}
	if version != "" {
		txt = append(txt, txtVersion+"="+version)
	}
	if secure {
		txt = append(txt, txtTLS+"=1")
	}
	return txt
}

// Advertise registers the config link under ServiceType until Shutdown.
// An empty instance uses DefaultInstance.
func Advertise(instance string, port int, txt []string) (*Advertisement, error) {
	if instance == "" {
		instance = DefaultInstance()
	}
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising config link",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}

// QuickScan performs a fast scan with a 2-second timeout
func QuickScan(ctx context.Context) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = 2 * time.Second
	return scanner.Scan(ctx)
}
