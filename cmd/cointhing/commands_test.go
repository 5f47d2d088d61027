package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cointhing/cointhing/internal/config"
	"github.com/cointhing/cointhing/internal/discovery"
	"github.com/cointhing/cointhing/internal/link"
	"github.com/cointhing/cointhing/internal/logging"
	"github.com/cointhing/cointhing/internal/settings"
	"github.com/cointhing/cointhing/internal/stats"
)

const sampleDoc = `{"mode":2,"coins":[{"id":"bitcoin","symbol":"btc","name":"Bitcoin"},{"id":"ethereum","symbol":"eth","name":"Ethereum"}],"currencies":[{"currency":"eur","symbol":"€"},{"currency":"usd","symbol":"$"}],"swap_interval":1,"chart_period":3,"chart_style":1,"number_format":2,"heartbeat":false}`

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	// Flag variables are package globals and survive between runs.
	deviceAddr, outputFormat, dataDir, configPath, logLevel = "", "detailed", "", "", ""
	assumeYes, resetStats, saveDevices, insecureTLS = false, false, false, false
	requestTimeout, scanTimeout = 5*time.Second, discovery.DefaultScanTimeout

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// localArgs points the CLI at a temporary data dir and a missing config file.
func localArgs(t *testing.T, dir string, args ...string) []string {
	t.Helper()
	return append([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--data-dir", filepath.Join(dir, "data"),
	}, args...)
}

func TestParseBrightness(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{"10", 10, false},
		{"255", 255, false},
		{"128", 128, false},
		{"9", 0, true},
		{"0", 0, true},
		{"256", 0, true},
		{"-1", 0, true},
		{"bright", 0, true},
	}

	for _, tt := range tests {
		got, err := parseBrightness(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseBrightness(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseBrightness(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRunMarker(t *testing.T) {
	fs := afero.NewMemMapFs()

	unclean, err := checkRunMarker(fs)
	if err != nil || unclean {
		t.Fatalf("first start: unclean = %v, err = %v", unclean, err)
	}

	unclean, err = checkRunMarker(fs)
	if err != nil || !unclean {
		t.Fatalf("restart without shutdown: unclean = %v, err = %v", unclean, err)
	}

	clearRunMarker(fs)
	unclean, err = checkRunMarker(fs)
	if err != nil || unclean {
		t.Fatalf("after clean shutdown: unclean = %v, err = %v", unclean, err)
	}
}

func TestLocalSetAndShow(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "settings-in.json")
	if err := os.WriteFile(doc, []byte(sampleDoc), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", localArgs(t, dir, "set", doc)...)
	if err != nil {
		t.Fatalf("set error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Settings applied") {
		t.Errorf("set output:\n%s", out)
	}

	out, err = execute(t, "", localArgs(t, dir, "show", "--format", "json")...)
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	snap, report, err := settings.Decode([]byte(out))
	if err != nil {
		t.Fatalf("show output is not a settings document: %v\n%s", err, out)
	}
	if !report.Clean() {
		t.Errorf("show output should be complete, report = %+v", report)
	}
	if snap.Mode != settings.ModeTwoCoins || len(snap.Coins) != 2 || snap.Heartbeat {
		t.Errorf("snapshot = %+v", snap)
	}

	if _, err := os.Stat(filepath.Join(dir, "data", "settings.json")); err != nil {
		t.Errorf("settings.json not written: %v", err)
	}
}

func TestLocalSetFromStdinWithDefaults(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, `{"mode":1}`, localArgs(t, dir, "set", "-")...)
	if err != nil {
		t.Fatalf("set error = %v", err)
	}
	if !strings.Contains(out, "defaulted") {
		t.Errorf("expected defaulted fields in output:\n%s", out)
	}
}

func TestLocalSetRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()

	if _, err := execute(t, `{"mode":`, localArgs(t, dir, "set", "-")...); err == nil {
		t.Fatal("set should fail on invalid JSON")
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "settings.json")); !os.IsNotExist(err) {
		t.Errorf("settings.json should not exist, stat err = %v", err)
	}
}

func TestLocalBrightness(t *testing.T) {
	dir := t.TempDir()

	if _, err := execute(t, "", localArgs(t, dir, "brightness", "5")...); err == nil {
		t.Error("brightness 5 should be rejected")
	}
	if _, err := execute(t, "", localArgs(t, dir, "brightness", "200")...); err != nil {
		t.Fatalf("brightness 200 error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "data", "brightness.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"b":200}` {
		t.Errorf("brightness.json = %s", data)
	}
}

func TestLocalErase(t *testing.T) {
	dir := t.TempDir()
	settingsFile := filepath.Join(dir, "data", "settings.json")

	if _, err := execute(t, sampleDoc, localArgs(t, dir, "set", "-")...); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "no\n", localArgs(t, dir, "erase")...)
	if err != nil {
		t.Fatalf("erase error = %v", err)
	}
	if !strings.Contains(out, "cancelled") {
		t.Errorf("expected cancellation:\n%s", out)
	}
	if _, err := os.Stat(settingsFile); err != nil {
		t.Fatalf("declined erase removed the file: %v", err)
	}

	if _, err := execute(t, "", localArgs(t, dir, "erase", "--yes")...); err != nil {
		t.Fatalf("erase --yes error = %v", err)
	}
	if _, err := os.Stat(settingsFile); !os.IsNotExist(err) {
		t.Errorf("settings.json should be gone, stat err = %v", err)
	}

	out, err = execute(t, "", localArgs(t, dir, "erase", "--yes")...)
	if err != nil || !strings.Contains(out, "Nothing to erase") {
		t.Errorf("second erase: err = %v\n%s", err, out)
	}
}

func TestEraseRejectsDevice(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "", localArgs(t, dir, "erase", "--device", "10.0.0.5:8480")...); err == nil {
		t.Error("erase with --device should fail")
	}
}

func TestUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "", localArgs(t, dir, "show", "--format", "xml")...); err == nil {
		t.Error("unknown format should fail")
	}
}

// startDaemon serves a link over httptest backed by an in-memory store.
func startDaemon(t *testing.T) (string, *settings.Store, *stats.Registry) {
	t.Helper()
	store := settings.New(afero.NewMemMapFs())
	registry := stats.New()
	srv := link.NewServer(store, registry, link.DefaultPath)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + link.DefaultPath, store, registry
}

func TestRemoteCommands(t *testing.T) {
	url, store, registry := startDaemon(t)
	dir := t.TempDir()

	if _, err := execute(t, sampleDoc, localArgs(t, dir, "set", "-", "--device", url)...); err != nil {
		t.Fatalf("remote set error = %v", err)
	}
	if got := store.Mode(); got != settings.ModeTwoCoins {
		t.Errorf("store mode = %v, want two coins", got)
	}

	if _, err := execute(t, "", localArgs(t, dir, "brightness", "42", "--device", url)...); err != nil {
		t.Fatalf("remote brightness error = %v", err)
	}
	if got := store.Brightness(); got != 42 {
		t.Errorf("store brightness = %d, want 42", got)
	}

	out, err := execute(t, "", localArgs(t, dir, "show", "--device", url)...)
	if err != nil {
		t.Fatalf("remote show error = %v", err)
	}
	if !strings.Contains(out, "BTC") || !strings.Contains(out, "42") {
		t.Errorf("remote show output:\n%s", out)
	}

	out, err = execute(t, "", localArgs(t, dir, "stats", "--format", "json", "--reset", "--device", url)...)
	if err != nil {
		t.Fatalf("remote stats error = %v", err)
	}
	line := strings.SplitN(out, "\n", 2)[0]
	rep, err := stats.ParseReport([]byte(line))
	if err != nil {
		t.Fatalf("stats output is not a report: %v\n%s", err, out)
	}
	if rep.Counters.Get(stats.SettingsChange) != 1 {
		t.Errorf("settings_change = %d, want 1", rep.Counters.Get(stats.SettingsChange))
	}
	if got := registry.Get(stats.SettingsChange); got != 0 {
		t.Errorf("counters not reset, settings_change = %d", got)
	}
}

func TestRemoteSavedDeviceName(t *testing.T) {
	url, store, _ := startDaemon(t)
	dir := t.TempDir()

	cfgFile := filepath.Join(dir, "config.yaml")
	cfgYAML := "version: 1\ndevices:\n  desk:\n    address: " + url + "\n"
	if err := os.WriteFile(cfgFile, []byte(cfgYAML), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "", "--config", cfgFile, "brightness", "99", "--device", "desk"); err != nil {
		t.Fatalf("brightness via nickname error = %v", err)
	}
	if got := store.Brightness(); got != 99 {
		t.Errorf("store brightness = %d, want 99", got)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "cointhing ") {
		t.Errorf("version output = %q", out)
	}
}

func TestOpenStoreReadsEachFileOnce(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(cfg.DataDir, "settings.json"), []byte(sampleDoc), 0644); err != nil {
		t.Fatal(err)
	}

	store, dir, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	if dir != cfg.DataDir {
		t.Errorf("dir = %q, want %q", dir, cfg.DataDir)
	}
	if store.Mode() != settings.ModeTwoCoins {
		t.Errorf("Mode() = %v, want two coins", store.Mode())
	}

	reads := map[string]int{}
	for _, e := range logs.FilterMessage("File event").All() {
		ctx := e.ContextMap()
		if ev := ctx["event"]; ev == "read" || ev == "missing" {
			reads[ctx["path"].(string)]++
		}
	}
	for _, name := range []string{settings.DefaultSettingsFile, settings.DefaultBrightnessFile} {
		if reads[name] != 1 {
			t.Errorf("%s loaded %d times, want 1", name, reads[name])
		}
	}
}
