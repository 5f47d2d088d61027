package settings

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Mode is the device display mode.
type Mode uint8

const (
	ModeOneCoin       Mode = 1 // one coin with chart
	ModeTwoCoins      Mode = 2 // two coins side by side
	ModeMultipleCoins Mode = 3 // coins rotated every swap interval

	DefaultMode = ModeOneCoin
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m >= ModeOneCoin && m <= ModeMultipleCoins
}

func (m Mode) String() string {
	switch m {
	case ModeOneCoin:
		return "one coin"
	case ModeTwoCoins:
		return "two coins"
	case ModeMultipleCoins:
		return "multiple coins"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// NumberFormat selects thousands and decimal separators for prices.
type NumberFormat uint8

const (
	ThousandDotDecimalComma   NumberFormat = iota // 1.000,00
	ThousandBlankDecimalComma                     // 1 000,00
	DecimalComma                                  // 1000,00
	ThousandCommaDecimalDot                       // 1,000.00
	ThousandBlankDecimalDot                       // 1 000.00
	DecimalDot                                    // 1000.00

	DefaultNumberFormat = DecimalDot
)

var numberFormatSamples = [...]string{
	ThousandDotDecimalComma:   "1.000,00",
	ThousandBlankDecimalComma: "1 000,00",
	DecimalComma:              "1000,00",
	ThousandCommaDecimalDot:   "1,000.00",
	ThousandBlankDecimalDot:   "1 000.00",
	DecimalDot:                "1000.00",
}

// Valid reports whether f is a known number format.
func (f NumberFormat) Valid() bool {
	return int(f) < len(numberFormatSamples)
}

// String returns a sample rendering of one thousand in this format.
func (f NumberFormat) String() string {
	if !f.Valid() {
		return fmt.Sprintf("NumberFormat(%d)", uint8(f))
	}
	return numberFormatSamples[f]
}

// ChartPeriod is a bit set of chart windows shown by the device.
type ChartPeriod uint8

const (
	ChartPeriod24h ChartPeriod = 1 << iota
	ChartPeriod48h
	ChartPeriod30d
	ChartPeriod60d

	ChartPeriodAll = ChartPeriod24h | ChartPeriod48h | ChartPeriod30d | ChartPeriod60d

	DefaultChartPeriod = ChartPeriod24h
)

// Valid reports whether p selects at least one window and only known ones.
func (p ChartPeriod) Valid() bool {
	return p != 0 && p&^ChartPeriodAll == 0
}

// Has reports whether every window in q is selected in p.
func (p ChartPeriod) Has(q ChartPeriod) bool {
	return q != 0 && p&q == q
}

// Windows returns the selected chart windows, shortest first.
func (p ChartPeriod) Windows() []time.Duration {
	var out []time.Duration
	if p.Has(ChartPeriod24h) {
		out = append(out, 24*time.Hour)
	}
	if p.Has(ChartPeriod48h) {
		out = append(out, 48*time.Hour)
	}
	if p.Has(ChartPeriod30d) {
		out = append(out, 30*24*time.Hour)
	}
	if p.Has(ChartPeriod60d) {
		out = append(out, 60*24*time.Hour)
	}
	return out
}

func (p ChartPeriod) String() string {
	if !p.Valid() {
		return fmt.Sprintf("ChartPeriod(%d)", uint8(p))
	}
	var parts []string
	for _, f := range []struct {
		bit  ChartPeriod
		name string
	}{
		{ChartPeriod24h, "24h"},
		{ChartPeriod48h, "48h"},
		{ChartPeriod30d, "30d"},
		{ChartPeriod60d, "60d"},
	} {
		if p.Has(f.bit) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "+")
}

// Swap is the rotation interval between displayed coins.
type Swap uint8

const (
	SwapInterval1 Swap = iota // 5 seconds
	SwapInterval2             // 10 seconds
	SwapInterval3             // 30 seconds
	SwapInterval4             // 60 seconds

	DefaultSwapInterval = SwapInterval1
)

var swapDurations = [...]time.Duration{
	SwapInterval1: 5 * time.Second,
	SwapInterval2: 10 * time.Second,
	SwapInterval3: 30 * time.Second,
	SwapInterval4: 60 * time.Second,
}

// Valid reports whether s is a known interval.
func (s Swap) Valid() bool {
	return int(s) < len(swapDurations)
}

// Duration returns the rotation interval. Unknown values use the shortest one.
func (s Swap) Duration() time.Duration {
	if !s.Valid() {
		return swapDurations[DefaultSwapInterval]
	}
	return swapDurations[s]
}

func (s Swap) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Swap(%d)", uint8(s))
	}
	return s.Duration().String()
}

// ChartStyle is the chart rendering style.
type ChartStyle uint8

const (
	ChartStyleSimple ChartStyle = iota
	ChartStyleHighLow
	ChartStyleHighLowFirstLast

	DefaultChartStyle = ChartStyleSimple
)

// Valid reports whether c is a known style.
func (c ChartStyle) Valid() bool {
	return c <= ChartStyleHighLowFirstLast
}

func (c ChartStyle) String() string {
	switch c {
	case ChartStyleSimple:
		return "simple"
	case ChartStyleHighLow:
		return "high/low"
	case ChartStyleHighLowFirstLast:
		return "high/low/first/last"
	default:
		return fmt.Sprintf("ChartStyle(%d)", uint8(c))
	}
}

// Brightness limits. Values below MinBrightness are rejected.
const (
	MinBrightness uint8 = 10
	MaxBrightness uint8 = 255
)

// ValidBrightness reports whether b may be applied to the display.
func ValidBrightness(b uint8) bool {
	return b >= MinBrightness
}

// Coin is a tracked coin. ID is the price API identifier, e.g. "bitcoin".
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Currency is a fiat or crypto quote currency, e.g. {"eur", "€"}.
type Currency struct {
	Currency string `json:"currency"`
	Symbol   string `json:"symbol"`
}

// Currencies holds the primary (0) and secondary (1) quote currency.
// Both slots always exist; an unset slot holds empty strings.
type Currencies [2]Currency

// Primary returns slot 0.
func (c Currencies) Primary() Currency { return c[0] }

// Secondary returns slot 1.
func (c Currencies) Secondary() Currency { return c[1] }

// Overlay returns c with every slot marked in given taken from next.
func (c Currencies) Overlay(next Currencies, given [2]bool) Currencies {
	for i := range c {
		if given[i] {
			c[i] = next[i]
		}
	}
	return c
}

// Snapshot is a complete copy of the user settings.
type Snapshot struct {
	Mode         Mode
	Coins        []Coin
	Currencies   Currencies
	NumberFormat NumberFormat
	ChartPeriod  ChartPeriod
	SwapInterval Swap
	ChartStyle   ChartStyle
	Heartbeat    bool
}

// Defaults returns the compiled-in settings used before anything is configured.
func Defaults() Snapshot {
	return Snapshot{
		Mode:         DefaultMode,
		Coins:        []Coin{},
		NumberFormat: DefaultNumberFormat,
		ChartPeriod:  DefaultChartPeriod,
		SwapInterval: DefaultSwapInterval,
		ChartStyle:   DefaultChartStyle,
		Heartbeat:    true,
	}
}

// Clone returns a deep copy; the coin slice is never shared.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Coins = append(make([]Coin, 0, len(s.Coins)), s.Coins...)
	return out
}

// Equal reports field-by-field equality. A nil and an empty coin list are equal.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.Mode == o.Mode &&
		slices.Equal(s.Coins, o.Coins) &&
		s.Currencies == o.Currencies &&
		s.NumberFormat == o.NumberFormat &&
		s.ChartPeriod == o.ChartPeriod &&
		s.SwapInterval == o.SwapInterval &&
		s.ChartStyle == o.ChartStyle &&
		s.Heartbeat == o.Heartbeat
}

// sanitized replaces out-of-range enum values with their defaults and
// returns the names of the replaced fields.
func (s Snapshot) sanitized() (Snapshot, []string) {
	var fixed []string
	if !s.Mode.Valid() {
		s.Mode = DefaultMode
		fixed = append(fixed, keyMode)
	}
	if !s.NumberFormat.Valid() {
		s.NumberFormat = DefaultNumberFormat
		fixed = append(fixed, keyNumberFormat)
	}
	if !s.ChartPeriod.Valid() {
		s.ChartPeriod = DefaultChartPeriod
		fixed = append(fixed, keyChartPeriod)
	}
	if !s.SwapInterval.Valid() {
		s.SwapInterval = DefaultSwapInterval
		fixed = append(fixed, keySwapInterval)
	}
	if !s.ChartStyle.Valid() {
		s.ChartStyle = DefaultChartStyle
		fixed = append(fixed, keyChartStyle)
	}
	if s.Coins == nil {
		s.Coins = []Coin{}
	}
	return s, fixed
}
