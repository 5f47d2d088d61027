package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Listen.Address() != "0.0.0.0:8480" {
		t.Errorf("Listen.Address() = %s", cfg.Listen.Address())
	}
	if !cfg.MDNS.Enabled {
		t.Error("mDNS should be enabled by default")
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default().Validate() = %v, want no errors", errs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"version", func(c *Config) { c.Version = 3 }, "unsupported config version"},
		{"port zero", func(c *Config) { c.Listen.Port = 0 }, "listen.port"},
		{"port too large", func(c *Config) { c.Listen.Port = 70000 }, "listen.port"},
		{"relative path", func(c *Config) { c.Listen.Path = "link" }, "listen.path"},
		{"tls cert without key", func(c *Config) { c.Listen.TLSCert = "cert.pem" }, "tls_key"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"time source", func(c *Config) { c.Time.Source = "sundial" }, "time.source"},
		{"time interval", func(c *Config) { c.Time.Interval = time.Second }, "time.interval"},
		{"time timeout", func(c *Config) { c.Time.Timeout = 0 }, "time.timeout"},
		{"timeapi without zone", func(c *Config) { c.Time.Source = "timeapi" }, "time.zone"},
		{"snapshot interval", func(c *Config) { c.SnapshotInterval = 0 }, "snapshot_interval"},
		{"device without address", func(c *Config) { c.Devices["desk"] = &Device{} }, "no address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("Validate() should report an error")
			}
			found := false
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want an error mentioning %q", errs, tt.want)
			}
		})
	}
}

func TestValidateSkipsTimingWhenSourceIsNone(t *testing.T) {
	cfg := Default()
	cfg.Time.Source = "none"
	cfg.Time.Interval = 0
	cfg.Time.Timeout = 0

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Listen.Port = -1
	cfg.LogLevel = "chatty"
	cfg.SnapshotInterval = -time.Second

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}

func TestListenTLS(t *testing.T) {
	l := Listen{}
	if l.TLS() {
		t.Error("TLS() should be false without files")
	}
	l.TLSCert, l.TLSKey = "cert.pem", "key.pem"
	if !l.TLS() {
		t.Error("TLS() should be true with both files")
	}
}
