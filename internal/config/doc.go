// Package config provides the cointhing daemon and CLI configuration.
//
// The configuration is a YAML file holding the data directory for the
// device files, the config link listen address, mDNS advertisement, the time
// source, log level and a small registry of known devices found by scan.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/cointhing/config.yaml or $HOME/.config/cointhing/config.yaml
//   - macOS: $HOME/.config/cointhing/config.yaml
//   - Windows: %LOCALAPPDATA%\cointhing\config.yaml
//
// A missing file is not an error: Load returns Default(). Command-line flags
// override individual values after loading.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if errs := cfg.Validate(); len(errs) > 0 {
//	    log.Fatal(errs[0])
//	}
//
//	cfg.UpdateDeviceLastSeen("kitchen", "192.168.1.40:8480")
//	if err := cfg.Save(""); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Load and Save are serialized by a package mutex and Save writes through a
// temporary file and rename. A *Config itself is not safe for concurrent
// mutation.
package config
