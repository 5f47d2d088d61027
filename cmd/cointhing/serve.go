package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cointhing/cointhing/internal/discovery"
	"github.com/cointhing/cointhing/internal/link"
	"github.com/cointhing/cointhing/internal/logging"
	"github.com/cointhing/cointhing/internal/settings"
	"github.com/cointhing/cointhing/internal/stats"
	"github.com/cointhing/cointhing/internal/timesource"
	"github.com/cointhing/cointhing/internal/ui"
	"github.com/cointhing/cointhing/internal/version"
)

// runMarker exists in the data directory while the daemon runs. Finding it
// at startup means the previous run did not shut down cleanly.
const runMarker = "running"

// Serve command flags
var (
	listenHost string
	listenPort int
	noMDNS     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cointhing daemon",
	Long: `Run the device daemon.

The daemon loads the settings from the data directory, keeps the stats
clock in sync with the configured time source and serves the config link
over WebSocket. Unless disabled, the link is advertised over mDNS so
'cointhing scan' can find it.`,
	Example: `  # Defaults from the config file
  cointhing serve

  # Custom data directory and port, no mDNS
  cointhing serve --data-dir /var/lib/cointhing --port 9000 --no-mdns

  # Debug logging
  cointhing serve --log-level debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenHost, "host", "", "Listen address (overrides config)")
	serveCmd.Flags().IntVar(&listenPort, "port", 0, "Listen port (overrides config)")
	serveCmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Do not advertise the config link over mDNS")

	rootCmd.AddCommand(serveCmd)
}

// checkRunMarker reports whether the marker from an earlier run is still
// present and then (re)creates it.
func checkRunMarker(fs afero.Fs) (unclean bool, err error) {
	unclean, err = afero.Exists(fs, runMarker)
	if err != nil {
		return false, err
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339) + "\n")
	return unclean, afero.WriteFile(fs, runMarker, stamp, 0644)
}

// clearRunMarker removes the marker on clean shutdown.
func clearRunMarker(fs afero.Fs) {
	if err := fs.Remove(runMarker); err != nil {
		logging.Warn("Failed to remove run marker", zap.Error(err))
	}
}

// refreshLoop copies the store's coins into the view and logs the counters
// every interval until ctx is done.
func refreshLoop(ctx context.Context, store *settings.Store, coins *settings.Coins, registry *stats.Registry, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			coins.AssignFrom(store)
			logging.Debug("Stats",
				zap.Uint32("coins", coins.Count()),
				zap.String("currency", coins.Currency1()),
				zap.String("stats", registry.ToJSON()),
			)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenHost != "" {
		cfg.Listen.Host = listenHost
	}
	if listenPort != 0 {
		cfg.Listen.Port = listenPort
	}
	if noMDNS {
		cfg.MDNS.Enabled = false
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	if logLevel == "" && cfg.LogLevel != "" {
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return err
		}
	}

	ctx := cmd.Context()

	registry := stats.New()
	coins := &settings.Coins{}

	var store *settings.Store
	store, dir, err := openStore(cfg, settings.WithOnChange(func(settings.Snapshot) {
		coins.AssignFrom(store)
	}))
	if err != nil {
		return err
	}
	coins.AssignFrom(store)

	fs := dataFs(dir)
	unclean, err := checkRunMarker(fs)
	if err != nil {
		logging.Warn("Failed to write run marker", zap.Error(err))
	}
	if unclean {
		registry.IncCrash()
		logging.Warn("Previous run did not shut down cleanly")
	}
	defer clearRunMarker(fs)

	src, err := timesource.New(cfg.Time.Source, cfg.Time.Zone, cfg.Time.Timeout)
	if err != nil {
		return err
	}
	if src != nil {
		go registry.RunTimeSync(ctx, src, cfg.Time.Interval)
	}

	go refreshLoop(ctx, store, coins, registry, cfg.SnapshotInterval)

	ln, err := net.Listen("tcp", cfg.Listen.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Listen.Address(), err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	scheme := "ws"
	if cfg.Listen.TLS() {
		tlsCfg, err := link.NewTLSConfig(cfg.Listen.TLSCert, cfg.Listen.TLSKey)
		if err != nil {
			_ = ln.Close()
			return err
		}
		ln = tls.NewListener(ln, tlsCfg)
		scheme = "wss"
	}

	srv := link.NewServer(store, registry, cfg.Listen.Path)

	if cfg.MDNS.Enabled {
		ad, err := discovery.Advertise(cfg.MDNS.Instance, port, discovery.TXTRecords(srv.Path(), version.Version, cfg.Listen.TLS()))
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			defer ad.Shutdown()
		}
	}

	timeSource := "none"
	if src != nil {
		timeSource = src.Name()
	}
	ui.NewPrinter(cmd.OutOrStdout()).PrintHeader("cointhing daemon", scheme+"://"+ln.Addr().String()+srv.Path(), map[string]string{
		"Data dir":    dir,
		"Time source": timeSource,
		"mDNS":        strconv.FormatBool(cfg.MDNS.Enabled),
		"Version":     version.Version,
	})

	logging.Info("Daemon started",
		zap.String("data_dir", dir),
		zap.Int("port", port),
		zap.Uint32("coins", coins.Count()),
		zap.Uint8("brightness", store.Brightness()),
	)

	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}
	logging.Info("Daemon stopped", zap.String("stats", registry.ToJSON()))
	return nil
}
