package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/cointhing/cointhing/internal/config"
	"github.com/cointhing/cointhing/internal/discovery"
	"github.com/cointhing/cointhing/internal/link"
	"github.com/cointhing/cointhing/internal/settings"
	"github.com/cointhing/cointhing/internal/ui"
)

// Device command flags
var (
	deviceAddr     string
	outputFormat   string
	requestTimeout time.Duration
	scanTimeout    time.Duration
	saveDevices    bool
	assumeYes      bool
	resetStats     bool
	insecureTLS    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceAddr, "device", "", "Device nickname, host:port or ws:// URL of a running daemon")
	rootCmd.PersistentFlags().BoolVar(&insecureTLS, "insecure", false, "Skip certificate verification for wss:// devices")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 10*time.Second, "Config link request timeout")

	showCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	statsCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	statsCmd.Flags().BoolVar(&resetStats, "reset", false, "Reset the counters after printing them")
	eraseCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	scanCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", discovery.DefaultScanTimeout, "How long to listen for devices")
	scanCmd.Flags().BoolVar(&saveDevices, "save", false, "Remember discovered devices in the config file")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(brightnessCmd)
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scanCmd)
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// openStore opens the settings store rooted at the configured data directory.
// settings.New reads both files.
func openStore(cfg *config.Config, opts ...settings.Option) (*settings.Store, string, error) {
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return settings.New(dataFs(dir), opts...), dir, nil
}

// dataFs confines file access to the data directory.
func dataFs(dir string) afero.Fs {
	return afero.NewBasePathFs(afero.NewOsFs(), dir)
}

// resolveDevice returns the link address for --device, falling back to
// mDNS discovery when exactly one device answers.
func resolveDevice(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if deviceAddr != "" {
		return cfg.ResolveDevice(deviceAddr), nil
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "No device specified, attempting auto-discovery...")
	devices, err := discovery.QuickScan(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return "", fmt.Errorf("no devices found. Use --device to specify one")
	case 1:
		fmt.Fprintf(cmd.ErrOrStderr(), "Found device: %s\n\n", devices[0])
		return devices[0].LinkURL(), nil
	default:
		for i, d := range devices {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d. %s\n", i+1, d)
		}
		return "", fmt.Errorf("multiple devices found. Use --device to specify which one")
	}
}

// dialDevice connects to the config link of the selected device.
func dialDevice(cmd *cobra.Command, cfg *config.Config) (*link.Client, string, error) {
	addr, err := resolveDevice(cmd, cfg)
	if err != nil {
		return nil, "", err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	var opts []link.DialOption
	if insecureTLS {
		opts = append(opts, link.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	}
	client, err := link.Dial(ctx, addr, opts...)
	if err != nil {
		return nil, "", err
	}
	url, _ := link.DialURL(addr)
	return client, url, nil
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

// readDocument reads a settings document from a file, or stdin for "-".
func readDocument(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// showCmd displays the current settings
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	Long: `Display the settings and backlight level.

Without --device the settings are read from the local data directory.
With --device they are fetched from a running daemon.`,
	Example: `  # Local data directory
  cointhing show

  # A daemon found by 'cointhing scan --save'
  cointhing show --device desk

  # The settings document, for editing and 'cointhing set'
  cointhing show --format json > settings.json`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var (
		snap       settings.Snapshot
		brightness uint8
		source     string
	)

	if deviceAddr == "" {
		store, dir, err := openStore(cfg)
		if err != nil {
			return err
		}
		snap, brightness, source = store.Snapshot(), store.Brightness(), dir
	} else {
		client, url, err := dialDevice(cmd, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := requestContext(cmd)
		defer cancel()
		u, err := client.Settings(ctx)
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		snap, brightness, source = u.Settings, u.Brightness, url
	}

	switch outputFormat {
	case "json":
		_, err := cmd.OutOrStdout().Write(append(settings.Encode(snap), '\n'))
		return err
	case "detailed":
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintHeader("Settings", source, nil)
		p.PrintSection(ui.RenderSettings(snap, brightness, p.Width()))
		return nil
	default:
		return fmt.Errorf("unknown format %q (use detailed or json)", outputFormat)
	}
}

// setCmd applies a settings document
var setCmd = &cobra.Command{
	Use:   "set <file|->",
	Short: "Apply a settings document",
	Long: `Replace the settings with a JSON settings document.

Fields missing from the document or holding invalid values fall back to
their defaults; the defaulted fields are listed after applying. A document
that is not valid JSON is rejected and nothing changes.`,
	Example: `  # Apply a file locally
  cointhing set settings.json

  # Pipe a document to a running daemon
  cat settings.json | cointhing set - --device 192.168.1.40:8480`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	doc, err := readDocument(cmd, args[0])
	if err != nil {
		return err
	}

	var (
		report settings.Report
		source string
	)

	if deviceAddr == "" {
		store, dir, err := openStore(cfg)
		if err != nil {
			return err
		}
		report, err = store.ApplyJSON(doc)
		if err != nil {
			return err
		}
		source = dir
	} else {
		client, url, err := dialDevice(cmd, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := requestContext(cmd)
		defer cancel()
		report, err = client.Apply(ctx, doc)
		if err != nil {
			return fmt.Errorf("failed to apply settings: %w", err)
		}
		source = url
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	if report.Clean() {
		p.PrintSuccess("Settings applied", map[string]string{"Target": source})
		return nil
	}
	r := ui.NewWarningResult("Settings applied with defaults", map[string]string{"Target": source})
	r.AddNote(fmt.Sprintf("%d field(s) defaulted, %d ignored", len(report.Defaulted), len(report.Ignored)))
	p.PrintResult(r)
	p.PrintSection(ui.RenderDecodeReport(report))
	return nil
}

// brightnessCmd sets the backlight level
var brightnessCmd = &cobra.Command{
	Use:   "brightness <level>",
	Short: "Set the backlight brightness",
	Long: fmt.Sprintf(`Set the backlight brightness to a level between %d and %d.

Levels below %d are rejected and the current level is kept.`,
		settings.MinBrightness, settings.MaxBrightness, settings.MinBrightness),
	Example: `  cointhing brightness 128
  cointhing brightness 255 --device desk`,
	Args: cobra.ExactArgs(1),
	RunE: runBrightness,
}

func parseBrightness(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid brightness %q: must be a number between %d and %d", s, settings.MinBrightness, settings.MaxBrightness)
	}
	b := uint8(v)
	if !settings.ValidBrightness(b) {
		return 0, fmt.Errorf("brightness %d too low: minimum is %d", b, settings.MinBrightness)
	}
	return b, nil
}

func runBrightness(cmd *cobra.Command, args []string) error {
	b, err := parseBrightness(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var source string
	if deviceAddr == "" {
		store, dir, err := openStore(cfg)
		if err != nil {
			return err
		}
		if !store.SetBrightness(b) {
			return fmt.Errorf("brightness %d rejected", b)
		}
		source = dir
	} else {
		client, url, err := dialDevice(cmd, cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := requestContext(cmd)
		defer cancel()
		if err := client.SetBrightness(ctx, b); err != nil {
			return fmt.Errorf("failed to set brightness: %w", err)
		}
		source = url
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Brightness set", map[string]string{
		"Brightness": ui.RenderBrightness(b),
		"Target":     source,
	})
	return nil
}

// eraseCmd resets the local data directory
var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the stored settings",
	Long: `Delete settings.json and brightness.json from the local data directory
and return to the built-in defaults.

This only works on a local data directory; stop the daemon first.`,
	Example: `  cointhing erase
  cointhing erase --yes --data-dir /var/lib/cointhing`,
	Args: cobra.NoArgs,
	RunE: runErase,
}

func runErase(cmd *cobra.Command, args []string) error {
	if deviceAddr != "" {
		return fmt.Errorf("erase is only supported on a local data directory")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, dir, err := openStore(cfg)
	if err != nil {
		return err
	}

	if !store.Exists() {
		ui.NewPrinter(cmd.OutOrStdout()).PrintResult(
			ui.NewWarningResult("Nothing to erase", map[string]string{"Data dir": dir}))
		return nil
	}

	if !assumeYes && !ui.ConfirmDestructive(cmd.InOrStdin(), cmd.OutOrStdout(), "ERASE SETTINGS", []string{
		"Removes the stored settings and brightness from " + dir,
		"The device falls back to its defaults on next start",
	}) {
		return nil
	}

	store.EraseAll()
	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Settings erased", map[string]string{"Data dir": dir})
	return nil
}

// statsCmd fetches counters and clock from a running daemon
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show daemon statistics",
	Long: `Fetch the counters, uptime and clock of a running daemon.

With --reset the counters are cleared after they are printed.`,
	Example: `  cointhing stats --device desk
  cointhing stats --format json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, url, err := dialDevice(cmd, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := requestContext(cmd)
	defer cancel()

	report, err := client.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	switch outputFormat {
	case "json":
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), report.JSON()); err != nil {
			return err
		}
	case "detailed":
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintHeader("Stats", url, nil)
		p.PrintSection(ui.RenderStats(report, p.Width()))
	default:
		return fmt.Errorf("unknown format %q (use detailed or json)", outputFormat)
	}

	if resetStats {
		if err := client.ResetStats(ctx); err != nil {
			return fmt.Errorf("failed to reset stats: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Counters reset.")
	}
	return nil
}

// watchCmd follows settings changes on a running daemon
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow settings changes live",
	Long: `Connect to a running daemon and redraw its settings every time they
change, whoever changed them.`,
	Example: `  cointhing watch --device desk`,
	Args:    cobra.NoArgs,
	RunE:    runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, url, err := dialDevice(cmd, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := requestContext(cmd)
	current, err := client.Settings(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	return ui.RunWatch(ui.NewWatchModel(url, &current, client.Updates(), client.Done()))
}

// scanCmd discovers daemons on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for cointhings on the network",
	Long: `Scan for cointhing daemons using mDNS/DNS-SD discovery.

With --save every device found is stored in the config file under its
instance name, so it can be used as --device <name> later.`,
	Example: `  cointhing scan
  cointhing scan --scan-timeout 10s --save`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Scan", discovery.ServiceType+"."+discovery.ServiceDomain, map[string]string{
		"Timeout": scanTimeout.String(),
	})

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	devices, err := scanner.Scan(cmd.Context())
	if err != nil {
		p.PrintError("Scan failed", err, []string{
			"Ensure the network interface supports multicast",
			"Allow mDNS (UDP port 5353) through the firewall",
		})
		return err
	}

	p.Newline()
	p.PrintSection(ui.RenderDevices(devices, p.Width()))

	if saveDevices && len(devices) > 0 {
		for _, d := range devices {
			cfg.UpdateDeviceLastSeen(d.Instance, d.LinkURL())
		}
		if err := cfg.Save(configPath); err != nil {
			return fmt.Errorf("failed to save devices: %w", err)
		}
		p.PrintSuccess("Devices saved", map[string]string{"Count": strconv.Itoa(len(devices))})
	}
	return nil
}
