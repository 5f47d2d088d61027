package config

import (
	"fmt"
	"strings"
	"time"
)

// CurrentVersion is the only config file version this build understands.
const CurrentVersion = 1

// Config is the daemon and CLI configuration file.
type Config struct {
	Version          int                `yaml:"version"`
	DataDir          string             `yaml:"data_dir"`            // directory holding settings.json and brightness.json
	LogLevel         string             `yaml:"log_level,omitempty"` // debug, info, warn, error; empty = silent
	Listen           Listen             `yaml:"listen"`
	MDNS             MDNS               `yaml:"mdns"`
	Time             TimeSync           `yaml:"time"`
	SnapshotInterval time.Duration      `yaml:"snapshot_interval"` // coin view refresh and stats log period
	Devices          map[string]*Device `yaml:"devices,omitempty"` // keyed by nickname
}

// Listen is where the config link accepts connections.
type Listen struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
	TLSCert string `yaml:"tls_cert,omitempty"` // serve wss:// when both files are set
	TLSKey  string `yaml:"tls_key,omitempty"`
}

// Address returns host:port.
func (l Listen) Address() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// TLS reports whether the link is served over TLS.
func (l Listen) TLS() bool {
	return l.TLSCert != "" && l.TLSKey != ""
}

// MDNS controls service advertisement on the local network.
type MDNS struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance,omitempty"` // defaults to the host name
}

// TimeSync selects the time source used for the stats clock.
type TimeSync struct {
	Source   string        `yaml:"source"`         // worldtimeapi, timeapi or none
	Zone     string        `yaml:"zone,omitempty"` // IANA zone name, timeapi only
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Device is a known cointhing on the network, as last seen by scan.
type Device struct {
	Address  string    `yaml:"address"`             // host:port of the config link
	LastSeen time.Time `yaml:"last_seen,omitempty"` // last discovery time
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:  CurrentVersion,
		DataDir:  "",
		LogLevel: "",
		Listen: Listen{
			Host: "0.0.0.0",
			Port: 8480,
			Path: "/link",
		},
		MDNS: MDNS{
			Enabled: true,
		},
		Time: TimeSync{
			Source:   "worldtimeapi",
			Interval: 6 * time.Hour,
			Timeout:  10 * time.Second,
		},
		SnapshotInterval: time.Minute,
		Devices:          make(map[string]*Device),
	}
}

var validTimeSources = map[string]bool{
	"worldtimeapi": true,
	"timeapi":      true,
	"none":         true,
}

var validLogLevels = map[string]bool{
	"":        true,
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate returns every problem found in c. An empty result means the
// configuration is usable.
func (c *Config) Validate() []error {
	var errs []error

	if c.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion))
	}
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		errs = append(errs, fmt.Errorf("listen.port must be 1-65535, got %d", c.Listen.Port))
	}
	if !strings.HasPrefix(c.Listen.Path, "/") {
		errs = append(errs, fmt.Errorf("listen.path must start with '/', got %q", c.Listen.Path))
	}
	if (c.Listen.TLSCert == "") != (c.Listen.TLSKey == "") {
		errs = append(errs, fmt.Errorf("listen.tls_cert and listen.tls_key must be set together"))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}

	source := strings.ToLower(c.Time.Source)
	if !validTimeSources[source] {
		errs = append(errs, fmt.Errorf("unknown time.source %q (want worldtimeapi, timeapi or none)", c.Time.Source))
	}
	if source != "none" {
		if c.Time.Interval < time.Minute {
			errs = append(errs, fmt.Errorf("time.interval must be at least 1m, got %s", c.Time.Interval))
		}
		if c.Time.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("time.timeout must be positive, got %s", c.Time.Timeout))
		}
	}
	if source == "timeapi" && c.Time.Zone == "" {
		errs = append(errs, fmt.Errorf("time.zone is required when time.source is timeapi"))
	}
	if c.SnapshotInterval <= 0 {
		errs = append(errs, fmt.Errorf("snapshot_interval must be positive, got %s", c.SnapshotInterval))
	}

	for name, d := range c.Devices {
		if d == nil || d.Address == "" {
			errs = append(errs, fmt.Errorf("device %q has no address", name))
		}
	}

	return errs
}

// GetDevice retrieves a known device by nickname.
// Returns nil if the device doesn't exist.
func (c *Config) GetDevice(name string) *Device {
	return c.Devices[name]
}

// EnsureDevice returns the entry for name, creating it if needed.
func (c *Config) EnsureDevice(name string) *Device {
	if c.Devices == nil {
		c.Devices = make(map[string]*Device)
	}
	if d, ok := c.Devices[name]; ok && d != nil {
		return d
	}
	d := &Device{}
	c.Devices[name] = d
	return d
}

// UpdateDeviceLastSeen records a discovery of name at address.
func (c *Config) UpdateDeviceLastSeen(name, address string) {
	d := c.EnsureDevice(name)
	d.Address = address
	d.LastSeen = time.Now()
}

// ResolveDevice maps a nickname to its address. Anything that is not a
// known nickname is returned as is, so host:port works too.
func (c *Config) ResolveDevice(nameOrAddress string) string {
	if d := c.GetDevice(nameOrAddress); d != nil && d.Address != "" {
		return d.Address
	}
	return nameOrAddress
}
