package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/cointhing/cointhing/internal/discovery"
	"github.com/cointhing/cointhing/internal/settings"
	"github.com/cointhing/cointhing/internal/stats"
)

const gaugeWidth = 24

func field(key, value string) string {
	return FieldKeyStyle.Render(key) + FieldValueStyle.Render(value)
}

func currencyLabel(c settings.Currency) string {
	if c.Currency == "" {
		return NoteStyle.Render("unset")
	}
	if c.Symbol == "" || c.Symbol == c.Currency {
		return c.Currency
	}
	return fmt.Sprintf("%s (%s)", c.Currency, c.Symbol)
}

// RenderBrightness draws the backlight level as a gauge followed by the raw value.
func RenderBrightness(b uint8) string {
	bar := progress.New(
		progress.WithSolidFill(string(PrimaryColor)),
		progress.WithWidth(gaugeWidth),
		progress.WithoutPercentage(),
	)
	return fmt.Sprintf("%s %d", bar.ViewAs(float64(b)/float64(settings.MaxBrightness)), b)
}

// RenderSettings renders a settings snapshot and the backlight level.
func RenderSettings(snap settings.Snapshot, brightness uint8, width int) string {
	width = clampWidth(width)

	var lines []string
	lines = append(lines, SectionTitleStyle.Render("Display"))
	lines = append(lines,
		field("Mode", snap.Mode.String()),
		field("Number format", snap.NumberFormat.String()),
		field("Chart period", snap.ChartPeriod.String()),
		field("Chart style", snap.ChartStyle.String()),
		field("Swap interval", snap.SwapInterval.String()),
		field("Heartbeat", onOff(snap.Heartbeat)),
		field("Brightness", RenderBrightness(brightness)),
	)

	lines = append(lines, "", SectionTitleStyle.Render("Currencies"))
	lines = append(lines,
		field("Primary", currencyLabel(snap.Currencies.Primary())),
		field("Secondary", currencyLabel(snap.Currencies.Secondary())),
	)

	lines = append(lines, "", SectionTitleStyle.Render(fmt.Sprintf("Coins (%d)", len(snap.Coins))))
	if len(snap.Coins) == 0 {
		lines = append(lines, FieldKeyStyle.Render("")+NoteStyle.Render("none configured"))
	}
	for i, c := range snap.Coins {
		label := strings.ToUpper(c.Symbol)
		if c.Name != "" {
			label += "  " + c.Name
		}
		lines = append(lines, field(fmt.Sprintf("%d", i), label+"  "+NoteStyle.Render("("+c.ID+")")))
	}

	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// RenderDecodeReport lists the fields a settings document did not supply
// as given. It returns "" for a clean report.
func RenderDecodeReport(r settings.Report) string {
	if r.Clean() {
		return ""
	}
	var lines []string
	for _, p := range r.Defaulted {
		lines = append(lines, WarningTitleStyle.Render(WarningMarker)+" "+FieldValueStyle.Render(p)+" "+NoteStyle.Render("defaulted"))
	}
	for _, p := range r.Ignored {
		lines = append(lines, NoteStyle.Render("· "+p+" ignored"))
	}
	return strings.Join(lines, "\n")
}

// RenderStats renders a stats report.
func RenderStats(r stats.Report, width int) string {
	width = clampWidth(width)

	var lines []string
	lines = append(lines, SectionTitleStyle.Render("Clock"))
	lines = append(lines,
		field("Local time", orUnknown(r.LocalTime)),
		field("UTC time", orUnknown(r.UTCTime)),
		field("Started", orUnknown(r.UTCStart)),
		field("Timezone", orUnknown(r.Timezone)),
		field("Uptime", (time.Duration(r.Uptime)*time.Second).String()),
	)

	lines = append(lines, "", SectionTitleStyle.Render("Counters"))
	for c := stats.Counter(0); c < stats.NumCounters; c++ {
		lines = append(lines, field(c.String(), fmt.Sprintf("%d", r.Counters.Get(c))))
	}

	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// RenderDevices renders the result of an mDNS scan.
func RenderDevices(devices []*discovery.Device, width int) string {
	width = clampWidth(width)
	if len(devices) == 0 {
		return WarningTitleStyle.Render(WarningMarker + " No devices found on your network")
	}

	var lines []string
	for _, d := range devices {
		lines = append(lines, SectionTitleStyle.Render(d.Instance))
		lines = append(lines, field("Address", d.Address()))
		lines = append(lines, field("Link", d.LinkURL()))
		if d.Version != "" {
			lines = append(lines, field("Version", d.Version))
		}
		lines = append(lines, "")
	}
	return lipgloss.NewStyle().Width(width).Render(strings.TrimRight(strings.Join(lines, "\n"), "\n"))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
