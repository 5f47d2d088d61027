package settings

import (
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/cointhing/cointhing/internal/guard"
	"github.com/cointhing/cointhing/internal/logging"
)

// Default file names on the device filesystem.
const (
	DefaultSettingsFile   = "/settings.json"
	DefaultBrightnessFile = "/brightness.json"
)

// Option configures a Store.
type Option func(*Store)

// WithSettingsFile overrides the settings file name.
func WithSettingsFile(name string) Option {
	return func(s *Store) { s.settingsFile = name }
}

// WithBrightnessFile overrides the brightness file name.
func WithBrightnessFile(name string) Option {
	return func(s *Store) { s.brightnessFile = name }
}

// WithOnChange registers fn to run after every successful Apply, ApplyJSON
// or ApplyDocument. It runs without the store lock held and receives its own
// copy of the new settings. Load does not trigger it.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Store) {
		if fn != nil {
			s.onChange = append(s.onChange, fn)
		}
	}
}

// Store is the canonical in-memory settings and brightness, kept in sync
// with two small JSON files. All state and file access is serialized by a
// single mutex. Persistence is best effort: I/O failures are logged and the
// in-memory state stays authoritative.
type Store struct {
	fs             afero.Fs
	settingsFile   string
	brightnessFile string
	onChange       []func(Snapshot)

	mu         sync.Mutex
	state      Snapshot
	brightness uint8
}

// New creates a Store on fs and loads both files. Missing or corrupt files
// leave the compiled-in defaults in place.
func New(fs afero.Fs, opts ...Option) *Store {
	s := &Store{
		fs:             fs,
		settingsFile:   DefaultSettingsFile,
		brightnessFile: DefaultBrightnessFile,
		state:          Defaults(),
		brightness:     MaxBrightness,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Load()
	s.LoadBrightness()
	return s
}

// Paths returns the settings and brightness file names.
func (s *Store) Paths() (settingsFile, brightnessFile string) {
	return s.settingsFile, s.brightnessFile
}

// Load re-reads the settings file. If it is missing or cannot be parsed the
// current state is kept. The loaded state is not written back.
func (s *Store) Load() {
	defer guard.Acquire(&s.mu).Release()
	s.loadLocked()
}

func (s *Store) loadLocked() {
	data, exists, err := readFileIfExists(s.fs, s.settingsFile)
	if !exists {
		logging.LogFileEvent(s.settingsFile, "missing")
		return
	}
	if err != nil {
		logging.Warn("Failed to read settings file", zap.Error(err))
		return
	}

	logging.LogFileEvent(s.settingsFile, "read", zap.Int("bytes", len(data)))
	snap, report, err := Decode(data)
	if err != nil {
		logging.Warn("Ignoring unparsable settings file",
			zap.String("path", s.settingsFile),
			zap.Error(err),
		)
		logging.LogPayload("Settings file contents", data)
		return
	}
	logReport("settings file", report)
	snap.Currencies = s.state.Currencies.Overlay(snap.Currencies, report.CurrencySlots)
	s.applyLocked(snap, false)
}

// ApplyJSON decodes text and, on success, applies and persists it. A parse
// failure leaves state and files untouched and is returned as a *Error of
// type ErrTypeParse.
func (s *Store) ApplyJSON(text []byte) (Report, error) {
	snap, report, err := Decode(text)
	if err != nil {
		logging.Warn("Rejected settings payload", zap.Error(err))
		logging.LogPayload("Rejected settings payload", text)
		return Report{}, err
	}
	logReport("settings payload", report)
	s.apply(snap, &report.CurrencySlots, true)
	return report, nil
}

// ApplyDocument applies an already parsed settings document.
func (s *Store) ApplyDocument(doc map[string]any, persist bool) Report {
	snap, report := DecodeDocument(doc)
	logReport("settings document", report)
	s.apply(snap, &report.CurrencySlots, persist)
	return report
}

// Apply replaces the whole settings state with snap and optionally persists
// it. Out-of-range enum values in snap are replaced by their defaults.
func (s *Store) Apply(snap Snapshot, persist bool) {
	s.apply(snap, nil, persist)
}

// apply installs snap. When slots is set, only the marked currency slots are
// replaced and the others keep their current value.
func (s *Store) apply(snap Snapshot, slots *[2]bool, persist bool) {
	snap, fixed := snap.Clone().sanitized()
	if len(fixed) > 0 {
		logging.Warn("Replaced out-of-range settings with defaults", zap.Strings("fields", fixed))
	}

	func() {
		defer guard.Acquire(&s.mu).Release()
		if slots != nil {
			snap.Currencies = s.state.Currencies.Overlay(snap.Currencies, *slots)
		}
		s.applyLocked(snap, persist)
	}()

	for _, fn := range s.onChange {
		fn(snap.Clone())
	}
}

func (s *Store) applyLocked(snap Snapshot, persist bool) {
	s.state = snap
	s.traceLocked()
	if persist {
		s.persistLocked()
	}
}

// Persist writes the current settings to the settings file. Failures are
// logged and otherwise ignored.
func (s *Store) Persist() {
	defer guard.Acquire(&s.mu).Release()
	s.persistLocked()
}

func (s *Store) persistLocked() {
	data := Encode(s.state)
	if err := writeFileAtomic(s.fs, s.settingsFile, data); err != nil {
		logging.Warn("Settings not persisted", zap.Error(err))
		return
	}
	logging.LogFileEvent(s.settingsFile, "written", zap.Int("bytes", len(data)))
}

// Exists reports whether a settings file is present, i.e. whether the
// device has ever been configured.
func (s *Store) Exists() bool {
	defer guard.Acquire(&s.mu).Release()
	ok, err := afero.Exists(s.fs, s.settingsFile)
	if err != nil {
		logging.Warn("Failed to stat settings file", zap.String("path", s.settingsFile), zap.Error(err))
		return false
	}
	return ok
}

// EraseAll removes the settings and brightness files. The in-memory state
// is left as it is.
func (s *Store) EraseAll() {
	defer guard.Acquire(&s.mu).Release()
	for _, name := range []string{s.settingsFile, s.brightnessFile} {
		if err := removeIfExists(s.fs, name); err != nil {
			logging.Warn("Failed to erase file", zap.Error(err))
			continue
		}
		logging.LogFileEvent(name, "removed")
	}
}

// Snapshot returns a deep copy of the current settings.
func (s *Store) Snapshot() Snapshot {
	defer guard.Acquire(&s.mu).Release()
	return s.state.Clone()
}

// Mode returns the display mode.
func (s *Store) Mode() Mode {
	defer guard.Acquire(&s.mu).Release()
	return s.state.Mode
}

// NumberFormat returns the price number format.
func (s *Store) NumberFormat() NumberFormat {
	defer guard.Acquire(&s.mu).Release()
	return s.state.NumberFormat
}

// ChartPeriod returns the selected chart windows.
func (s *Store) ChartPeriod() ChartPeriod {
	defer guard.Acquire(&s.mu).Release()
	return s.state.ChartPeriod
}

// SwapInterval returns the coin rotation interval.
func (s *Store) SwapInterval() Swap {
	defer guard.Acquire(&s.mu).Release()
	return s.state.SwapInterval
}

// ChartStyle returns the chart style.
func (s *Store) ChartStyle() ChartStyle {
	defer guard.Acquire(&s.mu).Release()
	return s.state.ChartStyle
}

// Heartbeat reports whether the periodic liveness signal is enabled.
func (s *Store) Heartbeat() bool {
	defer guard.Acquire(&s.mu).Release()
	return s.state.Heartbeat
}

// coinsAndCurrencies copies the coin list and currency slots under the lock.
func (s *Store) coinsAndCurrencies() ([]Coin, Currencies) {
	defer guard.Acquire(&s.mu).Release()
	return append(make([]Coin, 0, len(s.state.Coins)), s.state.Coins...), s.state.Currencies
}

func (s *Store) traceLocked() {
	if !logging.DebugEnabled() {
		return
	}
	st := s.state
	coins := make([]string, 0, len(st.Coins))
	for _, c := range st.Coins {
		coins = append(coins, c.ID+"/"+c.Symbol+"/"+c.Name)
	}
	logging.Debug("Settings",
		zap.Stringer("mode", st.Mode),
		zap.Strings("coins", coins),
		zap.String("currency", st.Currencies[0].Currency+" "+st.Currencies[0].Symbol),
		zap.String("currency2", st.Currencies[1].Currency+" "+st.Currencies[1].Symbol),
		zap.Stringer("number_format", st.NumberFormat),
		zap.Stringer("chart_period", st.ChartPeriod),
		zap.Stringer("swap_interval", st.SwapInterval),
		zap.Stringer("chart_style", st.ChartStyle),
		zap.Bool("heartbeat", st.Heartbeat),
	)
}

func logReport(source string, r Report) {
	if r.Clean() {
		return
	}
	logging.Debug("Settings defaults substituted",
		zap.String("source", source),
		zap.Strings("defaulted", r.Defaulted),
		zap.Strings("ignored", r.Ignored),
	)
}
